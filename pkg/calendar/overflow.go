package calendar

import "sort"

// EventsOnDate returns every event whose inclusive date range contains the
// given date, sorted by ascending start date.
//
// This is deliberately independent of lane assignment: a day rendered in a
// cell capped at K visible lanes can have far more active events, and the
// "+N more" list must enumerate all of them regardless of which week render
// hid them.
func EventsOnDate(date Date, events []Event) []Event {
	var active []Event
	for _, e := range events {
		if !e.Start.After(date) && !e.End.Before(date) {
			active = append(active, e)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Start.Before(active[j].Start)
	})
	return active
}

// VisibleOnDay counts the placed events covering the given day index whose
// lane falls below the visibility cap.
func VisibleOnDay(placed []PlacedEvent, day, maxLanes int) int {
	n := 0
	for _, p := range placed {
		if p.Lane < maxLanes && day >= p.StartDay && day < p.StartDay+p.Span {
			n++
		}
	}
	return n
}

// HiddenCount returns the "+N more" figure for one day: the number of
// events active on that date minus the ones shown in visible lanes of the
// scheduled week. Never negative.
func HiddenCount(date Date, events []Event, placed []PlacedEvent, day, maxLanes int) int {
	hidden := len(EventsOnDate(date, events)) - VisibleOnDay(placed, day, maxLanes)
	if hidden < 0 {
		return 0
	}
	return hidden
}
