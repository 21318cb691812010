package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/mklimuk/sheet-pilot/pkg/ai"
	"github.com/mklimuk/sheet-pilot/pkg/calendar"
	"github.com/mklimuk/sheet-pilot/pkg/db"
	"github.com/mklimuk/sheet-pilot/pkg/sheet"
)

// Uploader pushes a finished report to external storage.
type Uploader interface {
	UploadFile(ctx context.Context, localPath, name string) error
}

// Service generates weekly reports from sheet rows: it asks the AI
// for a summary, renders it through a markdown template and records
// the result.
type Service struct {
	repo      *db.Repository
	generator ai.Generator
	engine    *TemplateEngine
	outputDir string

	archive  *Archive
	uploader Uploader
}

// NewService creates a report Service writing markdown into outputDir.
func NewService(repo *db.Repository, generator ai.Generator, engine *TemplateEngine, outputDir string) *Service {
	return &Service{
		repo:      repo,
		generator: generator,
		engine:    engine,
		outputDir: outputDir,
	}
}

// WithArchive enables git archiving of generated reports.
func (s *Service) WithArchive(a *Archive) *Service {
	s.archive = a
	return s
}

// WithUploader enables external backup of generated reports.
func (s *Service) WithUploader(u Uploader) *Service {
	s.uploader = u
	return s
}

// Request describes one report generation.
type Request struct {
	Rows         []sheet.Row
	PeriodStart  calendar.Date
	PeriodEnd    calendar.Date
	Title        string
	TemplateName string
	CustomPrompt string
}

// Generate produces a report for the request and logs it.
func (s *Service) Generate(ctx context.Context, req Request) (*db.ReportLog, error) {
	if req.PeriodEnd.Before(req.PeriodStart) {
		return nil, fmt.Errorf("report period end %s before start %s", req.PeriodEnd, req.PeriodStart)
	}
	if len(req.Rows) == 0 {
		return nil, fmt.Errorf("no rows to report on")
	}

	dataJSON, err := json.Marshal(req.Rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rows: %w", err)
	}

	summary, err := s.generator.GenerateText(ctx, ai.ReportSummaryPrompt(string(dataJSON), req.CustomPrompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary: %w", err)
	}

	title := req.Title
	if title == "" {
		title = fmt.Sprintf("주간보고 %s ~ %s", req.PeriodStart, req.PeriodEnd)
	}

	tmpl, err := s.engine.LoadTemplate(req.TemplateName)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	now := time.Now()
	body := s.engine.Render(tmpl, map[string]string{
		"title":   title,
		"period":  fmt.Sprintf("%s ~ %s", req.PeriodStart, req.PeriodEnd),
		"summary": summary,
	}, now)

	filename := SanitizeFilename(fmt.Sprintf("%s_%s", req.PeriodStart, req.PeriodEnd)) + ".md"
	path := filepath.Join(s.outputDir, filename)
	doc := &Document{
		Path: path,
		Frontmatter: map[string]interface{}{
			"type":         "weekly-report",
			"period_start": req.PeriodStart.String(),
			"period_end":   req.PeriodEnd.String(),
			"created":      now.Format(time.RFC3339),
		},
		Content: body,
	}
	if err := WriteDocument(doc); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	id, err := s.repo.LogReport(req.PeriodStart.String(), req.PeriodEnd.String(), summary, path)
	if err != nil {
		return nil, fmt.Errorf("failed to log report: %w", err)
	}

	if s.archive != nil {
		if err := s.archive.Sync(fmt.Sprintf("Add report %s ~ %s", req.PeriodStart, req.PeriodEnd)); err != nil {
			log.Printf("report: archive sync failed: %v", err)
		}
	}
	if s.uploader != nil {
		if err := s.uploader.UploadFile(ctx, path, filename); err != nil {
			log.Printf("report: backup upload failed: %v", err)
		}
	}

	return &db.ReportLog{
		ID:          id,
		PeriodStart: req.PeriodStart.String(),
		PeriodEnd:   req.PeriodEnd.String(),
		Summary:     summary,
		FilePath:    path,
	}, nil
}

// LastWeek returns the Monday..Sunday range of the week before t.
func LastWeek(t time.Time) (calendar.Date, calendar.Date) {
	offset := (int(t.Weekday()) + 6) % 7 // days since Monday
	monday := t.AddDate(0, 0, -offset-7)
	sunday := monday.AddDate(0, 0, 6)
	start := calendar.Date{Year: monday.Year(), Month: int(monday.Month()), Day: monday.Day()}
	end := calendar.Date{Year: sunday.Year(), Month: int(sunday.Month()), Day: sunday.Day()}
	return start, end
}
