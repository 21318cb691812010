package calendar

import (
	"fmt"
	"time"
)

// WeekWindow is a fixed window of 7 consecutive days starting on Sunday.
// Weeks span month boundaries: a window may contain days from up to three
// different months at the turn of a year.
type WeekWindow struct {
	Days  [7]Date
	Start Date // Days[0], Sunday
	End   Date // Days[6], Saturday
}

// Contains reports whether the event's date range overlaps this week.
func (w WeekWindow) Contains(e Event) bool {
	return !e.Start.After(w.End) && !e.End.Before(w.Start)
}

// BuildMonthGrid returns the ordered week windows covering the given
// reference month. The first window contains the 1st of the month; windows
// are emitted while their first day still falls on or before the month's
// last day, so the grid is 4 to 6 whole weeks and every day of the
// reference month appears in exactly one window. No trailing window fully
// outside the month is produced.
func BuildMonthGrid(year, month int) ([]WeekWindow, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d", month)
	}

	first := Date{Year: year, Month: month, Day: 1}
	last := first.AddDays(daysInMonth(year, month) - 1)

	// Walk back to the Sunday on or before the 1st.
	cur := first.AddDays(-first.Weekday())

	var weeks []WeekWindow
	for !cur.After(last) {
		weeks = append(weeks, makeWeek(cur))
		cur = cur.AddDays(7)
	}
	return weeks, nil
}

func makeWeek(start Date) WeekWindow {
	var w WeekWindow
	for i := 0; i < 7; i++ {
		w.Days[i] = start.AddDays(i)
	}
	w.Start = w.Days[0]
	w.End = w.Days[6]
	return w
}

func daysInMonth(year, month int) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
