package db

import (
	"database/sql"
	"fmt"
	"time"
)

// AutomationDefinition is a persisted scheduled job.
type AutomationDefinition struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	ActionType   string     `json:"action_type"`
	ScheduleKind string     `json:"schedule_kind"`
	ScheduleExpr string     `json:"schedule_expr"`
	Timezone     string     `json:"timezone"`
	Payload      string     `json:"payload"`
	Enabled      bool       `json:"enabled"`
	NextRunAt    *time.Time `json:"next_run_at"`
	LastRunAt    *time.Time `json:"last_run_at"`
}

// CreateAutomation inserts a new automation and returns its ID.
func (r *Repository) CreateAutomation(def AutomationDefinition) (int64, error) {
	res, err := r.db.Exec(`INSERT INTO automations
		(name, action_type, schedule_kind, schedule_expr, timezone, payload, enabled, next_run_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		def.Name, def.ActionType, def.ScheduleKind, def.ScheduleExpr, def.Timezone, def.Payload,
		def.Enabled, def.NextRunAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create automation: %w", err)
	}
	return res.LastInsertId()
}

// GetAutomation returns one automation by ID, or nil if absent.
func (r *Repository) GetAutomation(id int64) (*AutomationDefinition, error) {
	row := r.db.QueryRow(`SELECT id, name, action_type, schedule_kind, schedule_expr, timezone, payload, enabled, next_run_at, last_run_at
		FROM automations WHERE id = ?`, id)
	def, err := scanAutomation(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get automation: %w", err)
	}
	return def, nil
}

// ListAutomations returns all automations ordered by ID.
func (r *Repository) ListAutomations() ([]AutomationDefinition, error) {
	rows, err := r.db.Query(`SELECT id, name, action_type, schedule_kind, schedule_expr, timezone, payload, enabled, next_run_at, last_run_at
		FROM automations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list automations: %w", err)
	}
	defer rows.Close()

	var defs []AutomationDefinition
	for rows.Next() {
		def, err := scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation: %w", err)
		}
		defs = append(defs, *def)
	}
	return defs, rows.Err()
}

// UpdateAutomation rewrites all mutable fields of an automation.
func (r *Repository) UpdateAutomation(def *AutomationDefinition) error {
	if _, err := r.db.Exec(`UPDATE automations
		SET name = ?, action_type = ?, schedule_kind = ?, schedule_expr = ?, timezone = ?, payload = ?, enabled = ?, next_run_at = ?
		WHERE id = ?`,
		def.Name, def.ActionType, def.ScheduleKind, def.ScheduleExpr, def.Timezone, def.Payload,
		def.Enabled, def.NextRunAt, def.ID); err != nil {
		return fmt.Errorf("failed to update automation: %w", err)
	}
	return nil
}

// TriggerAutomationNow marks an automation due immediately.
func (r *Repository) TriggerAutomationNow(id int64, now time.Time) error {
	if _, err := r.db.Exec(`UPDATE automations SET enabled = 1, next_run_at = ? WHERE id = ?`,
		now, id); err != nil {
		return fmt.Errorf("failed to trigger automation: %w", err)
	}
	return nil
}

// UpdateAutomationSchedule updates the enable flag and next run time.
func (r *Repository) UpdateAutomationSchedule(id int64, enabled bool, nextRunAt *time.Time) error {
	if _, err := r.db.Exec(`UPDATE automations SET enabled = ?, next_run_at = ? WHERE id = ?`,
		enabled, nextRunAt, id); err != nil {
		return fmt.Errorf("failed to update automation: %w", err)
	}
	return nil
}

// ClaimDueAutomations returns up to limit enabled automations whose next
// run time has arrived, clearing next_run_at so a concurrent tick cannot
// claim them again. The completion call restores the schedule.
func (r *Repository) ClaimDueAutomations(now time.Time, limit int) ([]AutomationDefinition, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT id, name, action_type, schedule_kind, schedule_expr, timezone, payload, enabled, next_run_at, last_run_at
		FROM automations
		WHERE enabled = 1 AND next_run_at IS NOT NULL AND next_run_at <= ?
		ORDER BY next_run_at LIMIT ?`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due automations: %w", err)
	}

	var defs []AutomationDefinition
	for rows.Next() {
		def, err := scanAutomation(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan due automation: %w", err)
		}
		defs = append(defs, *def)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, def := range defs {
		if _, err := tx.Exec(`UPDATE automations SET next_run_at = NULL WHERE id = ?`, def.ID); err != nil {
			return nil, fmt.Errorf("failed to claim automation %d: %w", def.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim tx: %w", err)
	}
	return defs, nil
}

// InsertAutomationRun records the start of a run and returns the run ID.
func (r *Repository) InsertAutomationRun(automationID int64, startedAt time.Time) (int64, error) {
	res, err := r.db.Exec(`INSERT INTO automation_runs (automation_id, status, started_at) VALUES (?, 'running', ?)`,
		automationID, startedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert automation run: %w", err)
	}
	return res.LastInsertId()
}

// CompleteAutomationRun finalizes a run and reschedules the automation.
func (r *Repository) CompleteAutomationRun(runID, automationID int64, status, runErr, output string,
	finishedAt time.Time, enabled bool, lastRun time.Time, nextRun *time.Time) error {

	if _, err := r.db.Exec(`UPDATE automation_runs SET status = ?, error = ?, output = ?, finished_at = ? WHERE id = ?`,
		status, runErr, output, finishedAt, runID); err != nil {
		return fmt.Errorf("failed to complete automation run: %w", err)
	}

	if _, err := r.db.Exec(`UPDATE automations SET enabled = ?, last_run_at = ?, next_run_at = ? WHERE id = ?`,
		enabled, lastRun, nextRun, automationID); err != nil {
		return fmt.Errorf("failed to reschedule automation: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAutomation(row rowScanner) (*AutomationDefinition, error) {
	var def AutomationDefinition
	var next, last sql.NullTime
	if err := row.Scan(&def.ID, &def.Name, &def.ActionType, &def.ScheduleKind, &def.ScheduleExpr,
		&def.Timezone, &def.Payload, &def.Enabled, &next, &last); err != nil {
		return nil, err
	}
	if next.Valid {
		t := next.Time
		def.NextRunAt = &t
	}
	if last.Valid {
		t := last.Time
		def.LastRunAt = &t
	}
	return &def, nil
}
