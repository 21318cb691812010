package report

import (
	"context"
	"fmt"
	"time"

	"github.com/mklimuk/sheet-pilot/pkg/sheet"
)

// RowSource supplies the current spreadsheet rows.
type RowSource interface {
	Rows(ctx context.Context) ([]sheet.Row, error)
}

// WeeklyRunner generates the report for the week before now from a
// live row source. It is the engine behind the weekly automation and
// the bot commands.
type WeeklyRunner struct {
	service        *Service
	source         RowSource
	startDateField string
	templateName   string
	customPrompt   string
}

// NewWeeklyRunner creates a runner filtering rows on startDateField.
func NewWeeklyRunner(service *Service, source RowSource, startDateField string) *WeeklyRunner {
	return &WeeklyRunner{
		service:        service,
		source:         source,
		startDateField: startDateField,
	}
}

// WithTemplate sets the template used for generated reports.
func (r *WeeklyRunner) WithTemplate(name string) *WeeklyRunner {
	r.templateName = name
	return r
}

// WithPrompt sets extra instructions passed to the AI summary.
func (r *WeeklyRunner) WithPrompt(prompt string) *WeeklyRunner {
	r.customPrompt = prompt
	return r
}

// Run generates the report for the Monday..Sunday week before now.
func (r *WeeklyRunner) Run(ctx context.Context, now time.Time) (string, error) {
	start, end := LastWeek(now)

	rows, err := r.source.Rows(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load rows: %w", err)
	}
	filtered := sheet.RowFilter{
		StartDateField: r.startDateField,
		From:           start.String(),
		To:             end.String(),
	}.Apply(rows)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no rows in period %s ~ %s", start, end)
	}

	logged, err := r.service.Generate(ctx, Request{
		Rows:         filtered,
		PeriodStart:  start,
		PeriodEnd:    end,
		TemplateName: r.templateName,
		CustomPrompt: r.customPrompt,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("report %s ~ %s written to %s", logged.PeriodStart, logged.PeriodEnd, logged.FilePath), nil
}
