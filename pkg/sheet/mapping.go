package sheet

import (
	"fmt"

	"github.com/mklimuk/sheet-pilot/pkg/calendar"
)

// CalendarMapping resolves user-chosen column names to the semantic fields
// the calendar core needs. StartDateField and ContentField are required;
// the rest are optional.
type CalendarMapping struct {
	StartDateField string `json:"start_date_field" yaml:"start_date_field"`
	EndDateField   string `json:"end_date_field,omitempty" yaml:"end_date_field,omitempty"`
	AuthorField    string `json:"author_field,omitempty" yaml:"author_field,omitempty"`
	ContentField   string `json:"content_field" yaml:"content_field"`
	// TypeLabel, when set, is prefixed to the content as a bracket tag so
	// the calendar colors all events from this mapping alike.
	TypeLabel string `json:"type_label,omitempty" yaml:"type_label,omitempty"`
}

// Validate checks the required fields.
func (m CalendarMapping) Validate() error {
	if m.StartDateField == "" {
		return fmt.Errorf("calendar mapping: start_date_field is required")
	}
	if m.ContentField == "" {
		return fmt.Errorf("calendar mapping: content_field is required")
	}
	return nil
}

// ToRawEvents maps spreadsheet rows into raw calendar events. Rows without
// a value in the start date column are skipped outright; everything else is
// passed along for the normalizer to validate. The full source row rides in
// the payload, uninterpreted.
func (m CalendarMapping) ToRawEvents(rows []Row) []calendar.RawEvent {
	raw := make([]calendar.RawEvent, 0, len(rows))
	for i, row := range rows {
		start := row[m.StartDateField]
		if start == "" {
			continue
		}

		content := row[m.ContentField]
		if m.TypeLabel != "" {
			content = fmt.Sprintf("[%s] %s", m.TypeLabel, content)
		}

		raw = append(raw, calendar.RawEvent{
			ID:        fmt.Sprintf("row-%d", i),
			StartDate: start,
			EndDate:   row[m.EndDateField],
			Author:    row[m.AuthorField],
			Content:   content,
			Payload:   row,
		})
	}
	return raw
}

// RowFilter narrows rows before mapping or summarization. Zero values mean
// "no constraint".
type RowFilter struct {
	Author         string
	StartDateField string
	From           string // inclusive "YYYY-MM-DD"
	To             string // inclusive "YYYY-MM-DD"
	AuthorField    string
}

// Apply returns the rows matching the filter.
func (f RowFilter) Apply(rows []Row) []Row {
	var from, to calendar.Date
	var hasFrom, hasTo bool
	if f.From != "" {
		if d, err := calendar.ParseDate(f.From); err == nil {
			from, hasFrom = d, true
		}
	}
	if f.To != "" {
		if d, err := calendar.ParseDate(f.To); err == nil {
			to, hasTo = d, true
		}
	}

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if f.Author != "" && row[f.AuthorField] != f.Author {
			continue
		}
		if hasFrom || hasTo {
			d, err := calendar.ParseDate(row[f.StartDateField])
			if err != nil {
				continue
			}
			if hasFrom && d.Before(from) {
				continue
			}
			if hasTo && d.After(to) {
				continue
			}
		}
		out = append(out, row)
	}
	return out
}

// SelectColumns reduces each row to the given columns, used to keep AI
// prompts limited to the fields the user chose to expose.
func SelectColumns(rows []Row, columns []string) []Row {
	if len(columns) == 0 {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		slim := make(Row, len(columns))
		for _, c := range columns {
			if v, ok := row[c]; ok {
				slim[c] = v
			}
		}
		out = append(out, slim)
	}
	return out
}
