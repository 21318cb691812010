package calendar

import (
	"fmt"
	"sort"
)

// PlacedEvent is one event positioned within a single week: a lane index
// (0 = topmost) plus the visible day span after clipping to the week.
type PlacedEvent struct {
	Event    Event
	Lane     int
	StartDay int // 0..6, offset within the week (0 = Sunday)
	Span     int // 1..7, inclusive day count of the clipped range
}

// ScheduleWeek assigns lanes to the events overlapping one week.
//
// The caller pre-filters events to those overlapping the window (see
// WeekWindow.Contains); ranges extending outside the window are clipped.
// Events are sorted by ascending start date, then by descending duration
// for equal starts, so a multi-day event claims a low lane before the
// single-day events sharing its start day fragment the packing. Each event
// then takes the lowest lane whose already-placed events do not overlap its
// clipped range. Lane count is unbounded; capping visible lanes is a
// presentation concern.
func ScheduleWeek(week WeekWindow, events []Event) []PlacedEvent {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].Start.Before(sorted[j].Start)
		}
		return duration(sorted[i]) > duration(sorted[j])
	})

	placed := make([]PlacedEvent, 0, len(sorted))
	for _, ev := range sorted {
		if ev.End.Before(ev.Start) {
			// The normalizer guarantees Start <= End; reaching this point
			// is a bug upstream, not bad input.
			panic(fmt.Sprintf("calendar: event %q has start after end", ev.ID))
		}

		startDay := week.Start.DaysUntil(maxDate(ev.Start, week.Start))
		endDay := week.Start.DaysUntil(minDate(ev.End, week.End))

		lane := 0
		for hasOverlap(placed, lane, startDay, endDay) {
			lane++
		}

		placed = append(placed, PlacedEvent{
			Event:    ev,
			Lane:     lane,
			StartDay: startDay,
			Span:     endDay - startDay + 1,
		})
	}
	return placed
}

// hasOverlap reports whether any event already placed in the given lane
// intersects the [startDay, endDay] range.
func hasOverlap(placed []PlacedEvent, lane, startDay, endDay int) bool {
	for _, p := range placed {
		if p.Lane != lane {
			continue
		}
		pEnd := p.StartDay + p.Span - 1
		if startDay <= pEnd && endDay >= p.StartDay {
			return true
		}
	}
	return false
}

func duration(e Event) int {
	return e.Start.DaysUntil(e.End)
}
