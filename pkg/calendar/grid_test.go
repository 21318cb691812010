package calendar

import "testing"

func TestBuildMonthGridWeekShape(t *testing.T) {
	weeks, err := BuildMonthGrid(2024, 6)
	if err != nil {
		t.Fatal(err)
	}

	for wi, w := range weeks {
		if w.Days[0].Weekday() != 0 {
			t.Errorf("week %d starts on weekday %d, want Sunday", wi, w.Days[0].Weekday())
		}
		for di := 1; di < 7; di++ {
			if !w.Days[di].Equal(w.Days[di-1].AddDays(1)) {
				t.Errorf("week %d day %d not consecutive: %v after %v", wi, di, w.Days[di], w.Days[di-1])
			}
		}
		if !w.Start.Equal(w.Days[0]) || !w.End.Equal(w.Days[6]) {
			t.Errorf("week %d bounds %v..%v do not match days", wi, w.Start, w.End)
		}
	}
}

func TestBuildMonthGridCompleteness(t *testing.T) {
	// Every day of every month of several years must appear in exactly one
	// window of its month's grid.
	for _, year := range []int{2024, 2025, 2026} {
		for month := 1; month <= 12; month++ {
			weeks, err := BuildMonthGrid(year, month)
			if err != nil {
				t.Fatalf("%d-%02d: %v", year, month, err)
			}
			if len(weeks) < 4 || len(weeks) > 6 {
				t.Errorf("%d-%02d: got %d weeks, want 4..6", year, month, len(weeks))
			}

			seen := make(map[Date]int)
			for _, w := range weeks {
				for _, d := range w.Days {
					seen[d]++
				}
			}

			last := daysInMonth(year, month)
			for day := 1; day <= last; day++ {
				d := Date{Year: year, Month: month, Day: day}
				if seen[d] != 1 {
					t.Errorf("%d-%02d: day %v appears %d times", year, month, d, seen[d])
				}
			}
		}
	}
}

func TestBuildMonthGridWeekCounts(t *testing.T) {
	cases := []struct {
		year, month int
		weeks       int
	}{
		{2026, 2, 4},  // starts Sunday, 28 days: the only 4-week case
		{2026, 9, 5},  // starts Tuesday, 30 days
		{2026, 8, 6},  // starts Saturday, 31 days
		{2024, 6, 6},  // starts Saturday, 30 days
		{2024, 12, 5}, // starts Sunday, 31 days
		{2024, 2, 5},  // leap February starting Thursday
	}
	for _, c := range cases {
		weeks, err := BuildMonthGrid(c.year, c.month)
		if err != nil {
			t.Fatalf("%d-%02d: %v", c.year, c.month, err)
		}
		if len(weeks) != c.weeks {
			t.Errorf("%d-%02d: got %d weeks, want %d", c.year, c.month, len(weeks), c.weeks)
		}
	}
}

func TestBuildMonthGridFirstWeekContainsFirst(t *testing.T) {
	weeks, err := BuildMonthGrid(2024, 6)
	if err != nil {
		t.Fatal(err)
	}
	if !weeks[0].Start.Equal(MustParseDate("2024-05-26")) {
		t.Errorf("first week starts %v, want 2024-05-26", weeks[0].Start)
	}

	found := false
	for _, d := range weeks[0].Days {
		if d.Equal(MustParseDate("2024-06-01")) {
			found = true
		}
	}
	if !found {
		t.Error("first week does not contain June 1st")
	}
}

func TestBuildMonthGridYearBoundary(t *testing.T) {
	weeks, err := BuildMonthGrid(2026, 1)
	if err != nil {
		t.Fatal(err)
	}
	// January 1st 2026 is a Thursday; the grid starts Sunday Dec 28 2025.
	if !weeks[0].Start.Equal(MustParseDate("2025-12-28")) {
		t.Errorf("grid starts %v, want 2025-12-28", weeks[0].Start)
	}
}

func TestBuildMonthGridInvalidMonth(t *testing.T) {
	if _, err := BuildMonthGrid(2024, 0); err == nil {
		t.Error("expected error for month 0")
	}
	if _, err := BuildMonthGrid(2024, 13); err == nil {
		t.Error("expected error for month 13")
	}
}
