package api

import (
	"net/http"

	"github.com/mklimuk/sheet-pilot/pkg/ai"
	"github.com/mklimuk/sheet-pilot/pkg/db"
	"github.com/mklimuk/sheet-pilot/pkg/sheet"
)

// NewRouter creates a new HTTP router
func NewRouter(repo *db.Repository, generator ai.Generator, chatter ai.Chatter, fetcher sheet.Fetcher,
	runner ReportRunner, mapping sheet.CalendarMapping, maxLanes int) *http.ServeMux {

	mux := http.NewServeMux()

	h := &Handler{
		Repo:     repo,
		AI:       generator,
		Chat:     chatter,
		Fetcher:  fetcher,
		Runner:   runner,
		Mapping:  mapping,
		MaxLanes: maxLanes,
	}

	mux.HandleFunc("GET /health", h.HandleHealth)

	mux.HandleFunc("GET /sheet/rows", h.HandleSheetRows)
	mux.HandleFunc("POST /chat", h.HandleChat)

	mux.HandleFunc("GET /calendar/{year}/{month}", h.HandleMonthGrid)
	mux.HandleFunc("GET /calendar/{year}/{month}/ics", h.HandleMonthICS)
	mux.HandleFunc("GET /events/{date}", h.HandleEventsOnDate)

	mux.HandleFunc("POST /reports/generate", h.HandleGenerateReport)
	mux.HandleFunc("GET /reports", h.HandleListReports)
	mux.HandleFunc("GET /reports/latest", h.HandleLatestReport)

	mux.HandleFunc("GET /settings/{user}", h.HandleGetSettings)
	mux.HandleFunc("PUT /settings/{user}", h.HandlePutSettings)
	mux.HandleFunc("GET /settings/{user}/sheets", h.HandleListSavedSheets)
	mux.HandleFunc("POST /settings/{user}/sheets", h.HandleAddSavedSheet)
	mux.HandleFunc("DELETE /settings/{user}/sheets/{id}", h.HandleDeleteSavedSheet)
	mux.HandleFunc("GET /settings/{user}/cards", h.HandleGetCardConfig)
	mux.HandleFunc("PUT /settings/{user}/cards", h.HandlePutCardConfig)

	mux.HandleFunc("POST /automations", h.HandleCreateAutomation)
	mux.HandleFunc("GET /automations", h.HandleListAutomations)
	mux.HandleFunc("PATCH /automations/{id}", h.HandleUpdateAutomation)
	mux.HandleFunc("POST /automations/{id}/run-now", h.HandleRunAutomationNow)

	return mux
}
