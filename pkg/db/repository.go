package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Repository handles data access
type Repository struct {
	db *DB
}

// NewRepository creates a new Repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// UserSettings is the per-user dashboard configuration root.
type UserSettings struct {
	UserID          string `json:"user_id"`
	DefaultSheetURL string `json:"default_sheet_url"`
}

// GetUserSettings returns the settings for a user, or nil if none exist yet.
func (r *Repository) GetUserSettings(userID string) (*UserSettings, error) {
	row := r.db.QueryRow(`SELECT user_id, default_sheet_url FROM user_settings WHERE user_id = ?`, userID)

	var s UserSettings
	err := row.Scan(&s.UserID, &s.DefaultSheetURL)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user settings: %w", err)
	}
	return &s, nil
}

// UpsertUserSettings creates or updates the settings row for a user.
func (r *Repository) UpsertUserSettings(s UserSettings) error {
	query := `INSERT INTO user_settings (user_id, default_sheet_url, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			default_sheet_url = excluded.default_sheet_url,
			updated_at = CURRENT_TIMESTAMP`
	if _, err := r.db.Exec(query, s.UserID, s.DefaultSheetURL); err != nil {
		return fmt.Errorf("failed to upsert user settings: %w", err)
	}
	return nil
}

// SavedSheet is one spreadsheet bookmarked by a user.
type SavedSheet struct {
	ID     int64  `json:"id"`
	UserID string `json:"-"`
	Name   string `json:"name"`
	URL    string `json:"url"`
}

// ListSavedSheets returns a user's bookmarked sheets in insertion order.
func (r *Repository) ListSavedSheets(userID string) ([]SavedSheet, error) {
	rows, err := r.db.Query(`SELECT id, user_id, name, url FROM saved_sheets WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved sheets: %w", err)
	}
	defer rows.Close()

	var sheets []SavedSheet
	for rows.Next() {
		var s SavedSheet
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.URL); err != nil {
			return nil, fmt.Errorf("failed to scan saved sheet: %w", err)
		}
		sheets = append(sheets, s)
	}
	return sheets, rows.Err()
}

// AddSavedSheet bookmarks a sheet and returns the new ID.
func (r *Repository) AddSavedSheet(userID, name, url string) (int64, error) {
	res, err := r.db.Exec(`INSERT INTO saved_sheets (user_id, name, url) VALUES (?, ?, ?)`, userID, name, url)
	if err != nil {
		return 0, fmt.Errorf("failed to add saved sheet: %w", err)
	}
	return res.LastInsertId()
}

// DeleteSavedSheet removes one of the user's bookmarks.
func (r *Repository) DeleteSavedSheet(userID string, id int64) error {
	if _, err := r.db.Exec(`DELETE FROM saved_sheets WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("failed to delete saved sheet: %w", err)
	}
	return nil
}

// GetCardConfig returns the per-sheet card/calendar configuration JSON for
// a user, or empty string if none is stored.
func (r *Repository) GetCardConfig(userID, sheetURL string) (string, error) {
	row := r.db.QueryRow(`SELECT config FROM card_configs WHERE user_id = ? AND sheet_url = ?`, userID, sheetURL)

	var config string
	err := row.Scan(&config)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to get card config: %w", err)
	}
	return config, nil
}

// UpsertCardConfig stores the card/calendar configuration JSON for one
// (user, sheet) pair. The blob is opaque to the store; merge semantics live
// in the API layer.
func (r *Repository) UpsertCardConfig(userID, sheetURL, config string) error {
	query := `INSERT INTO card_configs (user_id, sheet_url, config, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, sheet_url) DO UPDATE SET
			config = excluded.config,
			updated_at = CURRENT_TIMESTAMP`
	if _, err := r.db.Exec(query, userID, sheetURL, config); err != nil {
		return fmt.Errorf("failed to upsert card config: %w", err)
	}
	return nil
}

// ReportLog is one generated report summary.
type ReportLog struct {
	ID          int64     `json:"id"`
	PeriodStart string    `json:"period_start"`
	PeriodEnd   string    `json:"period_end"`
	Summary     string    `json:"summary"`
	FilePath    string    `json:"file_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// LogReport records a generated report and returns its ID.
func (r *Repository) LogReport(periodStart, periodEnd, summary, filePath string) (int64, error) {
	res, err := r.db.Exec(`INSERT INTO reports (period_start, period_end, summary, file_path) VALUES (?, ?, ?, ?)`,
		periodStart, periodEnd, summary, filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to log report: %w", err)
	}
	return res.LastInsertId()
}

// GetLatestReport returns the most recent report, or nil if none exist.
func (r *Repository) GetLatestReport() (*ReportLog, error) {
	row := r.db.QueryRow(`SELECT id, period_start, period_end, summary, file_path, created_at
		FROM reports ORDER BY id DESC LIMIT 1`)

	var log ReportLog
	err := row.Scan(&log.ID, &log.PeriodStart, &log.PeriodEnd, &log.Summary, &log.FilePath, &log.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest report: %w", err)
	}
	return &log, nil
}

// ListReports returns the most recent reports, newest first.
func (r *Repository) ListReports(limit int) ([]ReportLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT id, period_start, period_end, summary, file_path, created_at
		FROM reports ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var logs []ReportLog
	for rows.Next() {
		var log ReportLog
		if err := rows.Scan(&log.ID, &log.PeriodStart, &log.PeriodEnd, &log.Summary, &log.FilePath, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
