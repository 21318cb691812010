package calendar

import (
	"regexp"
	"strings"
)

// RawEvent is an event record as produced by the sheet mapping layer.
// Dates are "YYYY-MM-DD" strings or empty; Payload carries the full source
// row and is never interpreted here.
type RawEvent struct {
	ID        string
	StartDate string
	EndDate   string
	Author    string
	Content   string
	Payload   map[string]string
}

// Event is a validated calendar event with Start <= End guaranteed.
type Event struct {
	ID       string
	Start    Date
	End      Date
	Author   string
	Content  string
	ColorKey string
	Payload  map[string]string
}

// DefaultColorKey is the color key used for events without a recognized
// leading bracket tag.
const DefaultColorKey = "default"

var leadingTag = regexp.MustCompile(`^\[(.*?)\]`)

// ColorKeyFor derives a color key from a leading bracketed tag in the event
// content, e.g. "[출장] 부산 방문" yields "출장". Content without a tag maps
// to DefaultColorKey.
func ColorKeyFor(content string) string {
	m := leadingTag.FindStringSubmatch(content)
	if m == nil {
		return DefaultColorKey
	}
	tag := strings.TrimSpace(m[1])
	if tag == "" {
		return DefaultColorKey
	}
	return tag
}

// Normalize converts raw event records into validated events.
//
// Records whose start date fails to parse are dropped: they cannot be
// placed on any day. A missing, unparseable, or earlier-than-start end date
// is coerced to the start date. Output order is unspecified; the lane
// scheduler imposes its own ordering.
func Normalize(raw []RawEvent) []Event {
	events := make([]Event, 0, len(raw))
	for _, r := range raw {
		start, err := ParseDate(r.StartDate)
		if err != nil {
			continue
		}

		end, err := ParseDate(r.EndDate)
		if err != nil || end.Before(start) {
			end = start
		}

		events = append(events, Event{
			ID:       r.ID,
			Start:    start,
			End:      end,
			Author:   r.Author,
			Content:  r.Content,
			ColorKey: ColorKeyFor(r.Content),
			Payload:  r.Payload,
		})
	}
	return events
}
