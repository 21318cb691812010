package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mklimuk/sheet-pilot/pkg/automation"
	"github.com/mklimuk/sheet-pilot/pkg/db"
)

// defaultAutomationTZ is applied when a definition does not name a timezone;
// the dashboard's audience schedules in Korean local time.
const defaultAutomationTZ = "Asia/Seoul"

type automationPatch struct {
	Name         *string          `json:"name"`
	ActionType   *string          `json:"action_type"`
	ScheduleKind *string          `json:"schedule_kind"`
	ScheduleExpr *string          `json:"schedule_expr"`
	Timezone     *string          `json:"timezone"`
	Payload      *json.RawMessage `json:"payload"`
	Enabled      *bool            `json:"enabled"`
}

// apply merges the patch into def. Returns a client-facing message when the
// patch or resulting definition is invalid.
func (p automationPatch) apply(def *db.AutomationDefinition) string {
	if p.Name != nil {
		def.Name = strings.TrimSpace(*p.Name)
	}
	if p.ActionType != nil {
		def.ActionType = strings.TrimSpace(*p.ActionType)
	}
	if p.ScheduleKind != nil {
		def.ScheduleKind = strings.TrimSpace(strings.ToLower(*p.ScheduleKind))
	}
	if p.ScheduleExpr != nil {
		def.ScheduleExpr = strings.TrimSpace(*p.ScheduleExpr)
	}
	if p.Timezone != nil {
		def.Timezone = strings.TrimSpace(*p.Timezone)
	}
	if def.Timezone == "" {
		def.Timezone = defaultAutomationTZ
	}
	if p.Payload != nil {
		if !json.Valid(*p.Payload) {
			return "payload must be valid JSON"
		}
		def.Payload = string(*p.Payload)
	}
	if def.Payload == "" {
		def.Payload = "{}"
	}
	if p.Enabled != nil {
		def.Enabled = *p.Enabled
	}

	if def.Name == "" || def.ActionType == "" || def.ScheduleExpr == "" {
		return "name, action_type, schedule_kind and schedule_expr are required"
	}
	switch def.ScheduleKind {
	case "interval", "oneshot", "cron":
	default:
		return "schedule_kind must be interval, oneshot or cron"
	}
	return ""
}

func (h *Handler) HandleCreateAutomation(w http.ResponseWriter, r *http.Request) {
	var patch automationPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	def := db.AutomationDefinition{Enabled: true}
	if msg := patch.apply(&def); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	nextRun, err := automation.NextRun(def.ScheduleKind, def.ScheduleExpr, def.Timezone, time.Now().UTC())
	if err != nil {
		http.Error(w, "invalid schedule: "+err.Error(), http.StatusBadRequest)
		return
	}
	def.NextRunAt = nextRun

	id, err := h.Repo.CreateAutomation(def)
	if err != nil {
		http.Error(w, "failed to create automation: "+err.Error(), http.StatusInternalServerError)
		return
	}
	created, err := h.Repo.GetAutomation(id)
	if err != nil {
		http.Error(w, "failed to fetch created automation: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) HandleListAutomations(w http.ResponseWriter, r *http.Request) {
	defs, err := h.Repo.ListAutomations()
	if err != nil {
		http.Error(w, "failed to list automations: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"automations": defs})
}

func (h *Handler) HandleUpdateAutomation(w http.ResponseWriter, r *http.Request) {
	current, ok := h.loadAutomation(w, r)
	if !ok {
		return
	}

	var patch automationPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if msg := patch.apply(current); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	nextRun, err := automation.NextRun(current.ScheduleKind, current.ScheduleExpr, current.Timezone, time.Now().UTC())
	if err != nil {
		http.Error(w, "invalid schedule: "+err.Error(), http.StatusBadRequest)
		return
	}
	current.NextRunAt = nextRun

	if err := h.Repo.UpdateAutomation(current); err != nil {
		http.Error(w, "failed to update automation: "+err.Error(), http.StatusInternalServerError)
		return
	}
	updated, err := h.Repo.GetAutomation(current.ID)
	if err != nil {
		http.Error(w, "failed to fetch automation: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) HandleRunAutomationNow(w http.ResponseWriter, r *http.Request) {
	current, ok := h.loadAutomation(w, r)
	if !ok {
		return
	}
	if err := h.Repo.TriggerAutomationNow(current.ID, time.Now().UTC()); err != nil {
		http.Error(w, "failed to trigger automation: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "scheduled"})
}

// loadAutomation resolves the {id} path segment to a stored definition,
// writing the error response itself when that fails.
func (h *Handler) loadAutomation(w http.ResponseWriter, r *http.Request) (*db.AutomationDefinition, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return nil, false
	}
	def, loadErr := h.Repo.GetAutomation(id)
	if loadErr != nil {
		http.Error(w, "failed to load automation: "+loadErr.Error(), http.StatusInternalServerError)
		return nil, false
	}
	if def == nil {
		http.Error(w, "automation not found", http.StatusNotFound)
		return nil, false
	}
	return def, true
}
