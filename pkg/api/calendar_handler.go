package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/mklimuk/sheet-pilot/pkg/calendar"
)

type placedEventJSON struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Author   string `json:"author,omitempty"`
	Start    string `json:"start"`
	End      string `json:"end"`
	ColorKey string `json:"color_key"`
	Lane     int    `json:"lane"`
	StartDay int    `json:"start_day"`
	Span     int    `json:"span"`
	Hidden   bool   `json:"hidden"`
}

type weekJSON struct {
	Days   []string          `json:"days"`
	Events []placedEventJSON `json:"events"`
	// HiddenCounts[i] is the "+N more" badge for Days[i].
	HiddenCounts [7]int `json:"hidden_counts"`
}

type monthGridJSON struct {
	Year     int        `json:"year"`
	Month    int        `json:"month"`
	MaxLanes int        `json:"max_lanes"`
	Weeks    []weekJSON `json:"weeks"`
}

func (h *Handler) maxLanes(r *http.Request) int {
	if v := r.URL.Query().Get("max_lanes"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	if h.MaxLanes > 0 {
		return h.MaxLanes
	}
	return 3
}

func (h *Handler) monthEvents(r *http.Request) ([]calendar.Event, error) {
	rows, _, err := h.fetchRows(r)
	if err != nil {
		return nil, err
	}
	return calendar.Normalize(h.Mapping.ToRawEvents(rows)), nil
}

func parseYearMonth(r *http.Request) (int, int, error) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year")
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month")
	}
	return year, month, nil
}

// HandleMonthGrid handles GET /calendar/{year}/{month}. The response
// carries everything a client needs to paint a month view: the week
// windows, each event's lane and span within its week, and per-day
// overflow counts.
func (h *Handler) HandleMonthGrid(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	weeks, err := calendar.BuildMonthGrid(year, month)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	events, err := h.monthEvents(r)
	if err != nil {
		http.Error(w, "failed to load events: "+err.Error(), http.StatusBadGateway)
		return
	}
	maxLanes := h.maxLanes(r)

	grid := monthGridJSON{Year: year, Month: month, MaxLanes: maxLanes}
	for _, week := range weeks {
		var inWeek []calendar.Event
		for _, e := range events {
			if week.Contains(e) {
				inWeek = append(inWeek, e)
			}
		}
		placed := calendar.ScheduleWeek(week, inWeek)

		wj := weekJSON{Days: make([]string, 7)}
		for i, d := range week.Days {
			wj.Days[i] = d.String()
			wj.HiddenCounts[i] = calendar.HiddenCount(d, events, placed, i, maxLanes)
		}
		for _, p := range placed {
			wj.Events = append(wj.Events, placedEventJSON{
				ID:       p.Event.ID,
				Content:  p.Event.Content,
				Author:   p.Event.Author,
				Start:    p.Event.Start.String(),
				End:      p.Event.End.String(),
				ColorKey: p.Event.ColorKey,
				Lane:     p.Lane,
				StartDay: p.StartDay,
				Span:     p.Span,
				Hidden:   p.Lane >= maxLanes,
			})
		}
		grid.Weeks = append(grid.Weeks, wj)
	}

	writeJSON(w, http.StatusOK, grid)
}

// HandleEventsOnDate handles GET /events/{date}. It backs the day
// detail popup: every event active on that date, lanes ignored.
func (h *Handler) HandleEventsOnDate(w http.ResponseWriter, r *http.Request) {
	date, err := calendar.ParseDate(r.PathValue("date"))
	if err != nil {
		http.Error(w, "invalid date: "+err.Error(), http.StatusBadRequest)
		return
	}

	events, err := h.monthEvents(r)
	if err != nil {
		http.Error(w, "failed to load events: "+err.Error(), http.StatusBadGateway)
		return
	}
	active := calendar.EventsOnDate(date, events)

	out := make([]placedEventJSON, 0, len(active))
	for _, e := range active {
		out = append(out, placedEventJSON{
			ID:       e.ID,
			Content:  e.Content,
			Author:   e.Author,
			Start:    e.Start.String(),
			End:      e.End.String(),
			ColorKey: e.ColorKey,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":   date.String(),
		"count":  len(out),
		"events": out,
	})
}

// HandleMonthICS handles GET /calendar/{year}/{month}/ics, exporting
// the month's events as an iCalendar feed of all-day events.
func (h *Handler) HandleMonthICS(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	weeks, err := calendar.BuildMonthGrid(year, month)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	monthStart := weeks[0].Start
	monthEnd := weeks[len(weeks)-1].End

	events, err := h.monthEvents(r)
	if err != nil {
		http.Error(w, "failed to load events: "+err.Error(), http.StatusBadGateway)
		return
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Sheet Pilot//Calendar//KO")

	now := time.Now()
	for _, e := range events {
		if e.End.Before(monthStart) || e.Start.After(monthEnd) {
			continue
		}
		ev := cal.AddEvent(fmt.Sprintf("%s-%04d%02d@sheet-pilot", e.ID, year, month))
		ev.SetDtStampTime(now)
		ev.SetSummary(e.Content)
		if e.Author != "" {
			ev.SetDescription("작성자: " + e.Author)
		}
		start := time.Date(e.Start.Year, time.Month(e.Start.Month), e.Start.Day, 0, 0, 0, 0, time.UTC)
		// DTEND on an all-day event is exclusive.
		endDate := e.End.AddDays(1)
		end := time.Date(endDate.Year, time.Month(endDate.Month), endDate.Day, 0, 0, 0, 0, time.UTC)
		ev.SetAllDayStartAt(start)
		ev.SetAllDayEndAt(end)
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="calendar-%04d-%02d.ics"`, year, month))
	fmt.Fprint(w, cal.Serialize())
}
