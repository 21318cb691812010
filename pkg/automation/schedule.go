package automation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NextRun computes the next fire time for a schedule, in UTC.
// A nil time with a nil error means the schedule has no future run
// (an expired oneshot, or a cron expression that never matches).
func NextRun(kind, expr, tz string, from time.Time) (*time.Time, error) {
	location := time.UTC
	if tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
		location = loc
	}
	localFrom := from.In(location)

	switch strings.ToLower(kind) {
	case "interval":
		d, err := time.ParseDuration(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid interval expression %q: %w", expr, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("interval must be > 0")
		}
		utc := localFrom.Add(d).UTC()
		return &utc, nil
	case "oneshot":
		t, err := time.Parse(time.RFC3339, expr)
		if err != nil {
			return nil, fmt.Errorf("invalid oneshot expression %q: %w", expr, err)
		}
		if !t.After(from) {
			return nil, nil
		}
		utc := t.UTC()
		return &utc, nil
	case "cron":
		next, err := nextCron(expr, localFrom)
		if err != nil || next == nil {
			return nil, err
		}
		utc := next.UTC()
		return &utc, nil
	default:
		return nil, fmt.Errorf("unsupported schedule kind %q", kind)
	}
}

type cronSpec struct {
	minute, hour, dom, month, dow []bool
	domAny, dowAny                bool
}

func parseCron(expr string) (*cronSpec, error) {
	parts := strings.Fields(strings.TrimSpace(expr))
	if len(parts) != 5 {
		return nil, fmt.Errorf("invalid cron expression %q (expected 5 fields)", expr)
	}

	var spec cronSpec
	var err error
	if spec.minute, err = parseCronField(parts[0], 0, 59); err != nil {
		return nil, fmt.Errorf("invalid minute field: %w", err)
	}
	if spec.hour, err = parseCronField(parts[1], 0, 23); err != nil {
		return nil, fmt.Errorf("invalid hour field: %w", err)
	}
	if spec.dom, err = parseCronField(parts[2], 1, 31); err != nil {
		return nil, fmt.Errorf("invalid day-of-month field: %w", err)
	}
	if spec.month, err = parseCronField(parts[3], 1, 12); err != nil {
		return nil, fmt.Errorf("invalid month field: %w", err)
	}
	if spec.dow, err = parseCronField(parts[4], 0, 7); err != nil {
		return nil, fmt.Errorf("invalid day-of-week field: %w", err)
	}
	// Both 0 and 7 mean Sunday.
	if spec.dow[7] {
		spec.dow[0] = true
	}
	spec.domAny = parts[2] == "*"
	spec.dowAny = parts[4] == "*"
	return &spec, nil
}

// dayMatches follows vixie cron: when both day fields are restricted
// the day matches if either one does.
func (s *cronSpec) dayMatches(t time.Time) bool {
	domMatch := s.dom[t.Day()]
	dowMatch := s.dow[int(t.Weekday())]
	switch {
	case s.domAny && s.dowAny:
		return true
	case s.domAny:
		return dowMatch
	case s.dowAny:
		return domMatch
	default:
		return domMatch || dowMatch
	}
}

func nextCron(expr string, from time.Time) (*time.Time, error) {
	switch strings.TrimSpace(expr) {
	case "@hourly":
		next := from.Truncate(time.Hour).Add(time.Hour)
		return &next, nil
	case "@daily":
		next := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location()).AddDate(0, 0, 1)
		return &next, nil
	case "@weekly":
		offset := (7 - int(from.Weekday())) % 7
		if offset == 0 {
			offset = 7
		}
		next := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location()).AddDate(0, 0, offset)
		return &next, nil
	}

	spec, err := parseCron(expr)
	if err != nil {
		return nil, err
	}

	candidate := from.Truncate(time.Minute).Add(time.Minute)
	limit := candidate.AddDate(2, 0, 0)
	for !candidate.After(limit) {
		if !spec.month[int(candidate.Month())] {
			candidate = time.Date(candidate.Year(), candidate.Month(), 1, 0, 0, 0, 0, candidate.Location()).AddDate(0, 1, 0)
			continue
		}
		if !spec.dayMatches(candidate) {
			candidate = time.Date(candidate.Year(), candidate.Month(), candidate.Day(), 0, 0, 0, 0, candidate.Location()).AddDate(0, 0, 1)
			continue
		}
		if !spec.hour[candidate.Hour()] || !spec.minute[candidate.Minute()] {
			candidate = candidate.Add(time.Minute)
			continue
		}
		return &candidate, nil
	}
	return nil, nil
}

func parseCronField(field string, min, max int) ([]bool, error) {
	allowed := make([]bool, max+1)
	mark := func(start, end, step int) {
		for i := start; i <= end; i += step {
			allowed[i] = true
		}
	}
	if field == "*" {
		mark(min, max, 1)
		return allowed, nil
	}

	for _, item := range strings.Split(field, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, fmt.Errorf("empty token")
		}
		step := 1
		rangePart := item
		if slash := strings.IndexByte(item, '/'); slash >= 0 {
			s, err := strconv.Atoi(item[slash+1:])
			if err != nil || s <= 0 {
				return nil, fmt.Errorf("invalid step in %q", item)
			}
			step = s
			rangePart = item[:slash]
		}

		if rangePart == "*" {
			mark(min, max, step)
			continue
		}
		start, end, err := parseRange(rangePart, min, max)
		if err != nil {
			return nil, err
		}
		mark(start, end, step)
	}

	any := false
	for _, v := range allowed {
		any = any || v
	}
	if !any {
		return nil, fmt.Errorf("no values selected")
	}
	return allowed, nil
}

func parseRange(part string, min, max int) (int, int, error) {
	if dash := strings.IndexByte(part, '-'); dash >= 0 {
		start, err := strconv.Atoi(part[:dash])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid range start %q", part)
		}
		end, err := strconv.Atoi(part[dash+1:])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid range end %q", part)
		}
		if start > end || start < min || end > max {
			return 0, 0, fmt.Errorf("range out of bounds %q", part)
		}
		return start, end, nil
	}

	v, err := strconv.Atoi(part)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid value %q", part)
	}
	if v < min || v > max {
		return 0, 0, fmt.Errorf("value %d out of bounds [%d,%d]", v, min, max)
	}
	return v, v, nil
}
