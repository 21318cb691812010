package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mklimuk/sheet-pilot/pkg/ai"
	"github.com/mklimuk/sheet-pilot/pkg/db"
	"github.com/mklimuk/sheet-pilot/pkg/sheet"
)

// ReportRunner generates the weekly report on demand.
type ReportRunner interface {
	Run(ctx context.Context, now time.Time) (string, error)
}

// Handler holds dependencies for API handlers
type Handler struct {
	Repo    *db.Repository
	AI      ai.Generator
	Chat    ai.Chatter
	Fetcher sheet.Fetcher
	Runner  ReportRunner
	Mapping sheet.CalendarMapping

	// MaxLanes caps the event rows rendered per week before overflow.
	MaxLanes int
}

const defaultUser = "default"

func userID(r *http.Request) string {
	if u := r.PathValue("user"); u != "" {
		return u
	}
	if u := r.URL.Query().Get("user"); u != "" {
		return u
	}
	return defaultUser
}

// resolveSheetURL picks the sheet for a request: an explicit ?url=
// parameter wins, otherwise the user's default sheet.
func (h *Handler) resolveSheetURL(r *http.Request) (string, error) {
	if u := r.URL.Query().Get("url"); u != "" {
		return u, nil
	}
	settings, err := h.Repo.GetUserSettings(userID(r))
	if err != nil {
		return "", err
	}
	if settings == nil || settings.DefaultSheetURL == "" {
		return "", fmt.Errorf("no sheet URL given and no default sheet configured")
	}
	return settings.DefaultSheetURL, nil
}

func (h *Handler) fetchRows(r *http.Request) ([]sheet.Row, string, error) {
	sheetURL, err := h.resolveSheetURL(r)
	if err != nil {
		return nil, "", err
	}
	rows, err := h.Fetcher.FetchRows(r.Context(), sheetURL)
	if err != nil {
		return nil, sheetURL, err
	}

	q := r.URL.Query()
	filter := sheet.RowFilter{
		Author:         q.Get("author"),
		AuthorField:    h.Mapping.AuthorField,
		StartDateField: h.Mapping.StartDateField,
		From:           q.Get("from"),
		To:             q.Get("to"),
	}
	return filter.Apply(rows), sheetURL, nil
}

// HandleHealth handles GET /health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleSheetRows handles GET /sheet/rows
func (h *Handler) HandleSheetRows(w http.ResponseWriter, r *http.Request) {
	rows, sheetURL, err := h.fetchRows(r)
	if err != nil {
		http.Error(w, "failed to fetch sheet: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sheet_url": sheetURL,
		"count":     len(rows),
		"rows":      rows,
	})
}

type chatRequest struct {
	SheetURL string       `json:"sheet_url"`
	History  []ai.Message `json:"history"`
	Columns  []string     `json:"columns"`
}

// HandleChat handles POST /chat. The assistant answers questions about
// the current sheet: the rows are serialized into the system prompt and
// the caller supplies the full conversation history.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.History) == 0 {
		http.Error(w, "history must contain at least one message", http.StatusBadRequest)
		return
	}

	sheetURL := req.SheetURL
	if sheetURL == "" {
		var err error
		if sheetURL, err = h.resolveSheetURL(r); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	rows, err := h.Fetcher.FetchRows(r.Context(), sheetURL)
	if err != nil {
		http.Error(w, "failed to fetch sheet: "+err.Error(), http.StatusBadGateway)
		return
	}
	rows = sheet.SelectColumns(rows, req.Columns)

	dataJSON, err := json.Marshal(rows)
	if err != nil {
		http.Error(w, "failed to encode rows: "+err.Error(), http.StatusInternalServerError)
		return
	}

	answer, err := h.Chat.GenerateChat(r.Context(), ai.ChatSystemPrompt(string(dataJSON)), req.History)
	if err != nil {
		http.Error(w, "AI chat failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"role": "model", "text": answer})
}

// HandleGenerateReport handles POST /reports/generate
func (h *Handler) HandleGenerateReport(w http.ResponseWriter, r *http.Request) {
	if h.Runner == nil {
		http.Error(w, "report generation is not configured", http.StatusServiceUnavailable)
		return
	}
	result, err := h.Runner.Run(r.Context(), time.Now())
	if err != nil {
		http.Error(w, "report generation failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created", "result": result})
}

// HandleListReports handles GET /reports
func (h *Handler) HandleListReports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	reports, err := h.Repo.ListReports(limit)
	if err != nil {
		http.Error(w, "failed to list reports: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": reports})
}

// HandleLatestReport handles GET /reports/latest
func (h *Handler) HandleLatestReport(w http.ResponseWriter, r *http.Request) {
	latest, err := h.Repo.GetLatestReport()
	if err != nil {
		http.Error(w, "failed to load report: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if latest == nil {
		http.Error(w, "no reports generated yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

// HandleGetSettings handles GET /settings/{user}
func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Repo.GetUserSettings(userID(r))
	if err != nil {
		http.Error(w, "failed to load settings: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if settings == nil {
		settings = &db.UserSettings{UserID: userID(r)}
	}
	writeJSON(w, http.StatusOK, settings)
}

// HandlePutSettings handles PUT /settings/{user}
func (h *Handler) HandlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DefaultSheetURL string `json:"default_sheet_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	settings := db.UserSettings{UserID: userID(r), DefaultSheetURL: strings.TrimSpace(req.DefaultSheetURL)}
	if err := h.Repo.UpsertUserSettings(settings); err != nil {
		http.Error(w, "failed to save settings: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// HandleListSavedSheets handles GET /settings/{user}/sheets
func (h *Handler) HandleListSavedSheets(w http.ResponseWriter, r *http.Request) {
	sheets, err := h.Repo.ListSavedSheets(userID(r))
	if err != nil {
		http.Error(w, "failed to list sheets: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sheets": sheets})
}

// HandleAddSavedSheet handles POST /settings/{user}/sheets
func (h *Handler) HandleAddSavedSheet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.URL = strings.TrimSpace(req.URL)
	if req.Name == "" || req.URL == "" {
		http.Error(w, "name and url are required", http.StatusBadRequest)
		return
	}
	id, err := h.Repo.AddSavedSheet(userID(r), req.Name, req.URL)
	if err != nil {
		http.Error(w, "failed to save sheet: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, db.SavedSheet{ID: id, Name: req.Name, URL: req.URL})
}

// HandleDeleteSavedSheet handles DELETE /settings/{user}/sheets/{id}
func (h *Handler) HandleDeleteSavedSheet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDPath(w, r)
	if !ok {
		return
	}
	if err := h.Repo.DeleteSavedSheet(userID(r), id); err != nil {
		http.Error(w, "failed to delete sheet: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetCardConfig handles GET /settings/{user}/cards?url=...
func (h *Handler) HandleGetCardConfig(w http.ResponseWriter, r *http.Request) {
	sheetURL := r.URL.Query().Get("url")
	if sheetURL == "" {
		http.Error(w, "url query parameter is required", http.StatusBadRequest)
		return
	}
	config, err := h.Repo.GetCardConfig(userID(r), sheetURL)
	if err != nil {
		http.Error(w, "failed to load card config: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if config == "" {
		config = "{}"
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, config)
}

type cardConfigRequest struct {
	SheetURL string                     `json:"sheet_url"`
	Config   map[string]json.RawMessage `json:"config"`
}

// HandlePutCardConfig handles PUT /settings/{user}/cards. Incoming keys
// are merged over the stored configuration so partial updates from one
// card do not wipe the settings of another.
func (h *Handler) HandlePutCardConfig(w http.ResponseWriter, r *http.Request) {
	var req cardConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SheetURL == "" {
		http.Error(w, "sheet_url is required", http.StatusBadRequest)
		return
	}

	merged := make(map[string]json.RawMessage)
	if existing, err := h.Repo.GetCardConfig(userID(r), req.SheetURL); err != nil {
		http.Error(w, "failed to load card config: "+err.Error(), http.StatusInternalServerError)
		return
	} else if existing != "" {
		if err := json.Unmarshal([]byte(existing), &merged); err != nil {
			// A corrupt stored blob is replaced wholesale.
			merged = make(map[string]json.RawMessage)
		}
	}
	for k, v := range req.Config {
		merged[k] = v
	}

	blob, err := json.Marshal(merged)
	if err != nil {
		http.Error(w, "failed to encode config: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := h.Repo.UpsertCardConfig(userID(r), req.SheetURL, string(blob)); err != nil {
		http.Error(w, "failed to save card config: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(blob)
}

func parseIDPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
