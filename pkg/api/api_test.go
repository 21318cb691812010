package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mklimuk/sheet-pilot/pkg/ai"
	"github.com/mklimuk/sheet-pilot/pkg/db"
	"github.com/mklimuk/sheet-pilot/pkg/sheet"
)

// MockGenerator implements ai.Generator for testing
type MockGenerator struct {
	Response string
	Err      error
}

func (m *MockGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	return m.Response, m.Err
}

// MockChatter implements ai.Chatter for testing
type MockChatter struct {
	Response string
	Err      error
	System   string
	History  []ai.Message
}

func (m *MockChatter) GenerateChat(ctx context.Context, system string, history []ai.Message) (string, error) {
	m.System = system
	m.History = history
	return m.Response, m.Err
}

type stubFetcher struct {
	rows []sheet.Row
	err  error
}

func (s *stubFetcher) FetchRows(ctx context.Context, sheetURL string) ([]sheet.Row, error) {
	return s.rows, s.err
}

type stubRunner struct {
	result string
	err    error
}

func (s *stubRunner) Run(ctx context.Context, now time.Time) (string, error) {
	return s.result, s.err
}

var testMapping = sheet.CalendarMapping{
	StartDateField: "시작일",
	EndDateField:   "종료일",
	AuthorField:    "작성자",
	ContentField:   "내용",
}

func setupRouter(t *testing.T, fetcher sheet.Fetcher, chatter ai.Chatter, runner ReportRunner) (*http.ServeMux, *db.Repository) {
	t.Helper()
	database, err := db.NewDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	repo := db.NewRepository(database)

	if chatter == nil {
		chatter = &MockChatter{Response: "ok"}
	}
	router := NewRouter(repo, &MockGenerator{Response: "summary"}, chatter, fetcher, runner, testMapping, 3)
	return router, repo
}

func do(router *http.ServeMux, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t, &stubFetcher{}, nil, nil)
	w := do(router, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %q", resp["status"])
	}
}

func TestHandleSheetRows(t *testing.T) {
	fetcher := &stubFetcher{rows: []sheet.Row{
		{"시작일": "2024-06-03", "내용": "회의", "작성자": "김철수"},
		{"시작일": "2024-06-05", "내용": "출장", "작성자": "이영희"},
	}}
	router, _ := setupRouter(t, fetcher, nil, nil)

	w := do(router, "GET", "/sheet/rows?url=https://sheet", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Count int         `json:"count"`
		Rows  []sheet.Row `json:"rows"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 2 {
		t.Errorf("count = %d", resp.Count)
	}

	// Author filter narrows the rows.
	w = do(router, "GET", "/sheet/rows?url=https://sheet&author=김철수", nil)
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 1 || resp.Rows[0]["내용"] != "회의" {
		t.Errorf("filtered rows = %+v", resp.Rows)
	}
}

func TestHandleSheetRowsNoDefault(t *testing.T) {
	router, _ := setupRouter(t, &stubFetcher{}, nil, nil)

	// No ?url and no default configured.
	w := do(router, "GET", "/sheet/rows", nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHandleSheetRowsUsesDefaultSheet(t *testing.T) {
	fetcher := &stubFetcher{rows: []sheet.Row{{"시작일": "2024-06-03", "내용": "회의"}}}
	router, repo := setupRouter(t, fetcher, nil, nil)

	repo.UpsertUserSettings(db.UserSettings{UserID: "default", DefaultSheetURL: "https://sheet"})

	w := do(router, "GET", "/sheet/rows", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
}

func TestHandleChat(t *testing.T) {
	fetcher := &stubFetcher{rows: []sheet.Row{{"내용": "대시보드 개편", "비밀": "숨김"}}}
	chatter := &MockChatter{Response: "대시보드 개편이 진행 중입니다."}
	router, _ := setupRouter(t, fetcher, chatter, nil)

	body := map[string]interface{}{
		"sheet_url": "https://sheet",
		"history": []map[string]string{
			{"role": "user", "text": "지금 뭐가 진행 중이야?"},
		},
		"columns": []string{"내용"},
	}
	w := do(router, "POST", "/chat", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}

	if !strings.Contains(chatter.System, "대시보드 개편") {
		t.Error("system prompt does not embed sheet data")
	}
	if strings.Contains(chatter.System, "숨김") {
		t.Error("column selection leaked an unexposed column into the prompt")
	}
	if len(chatter.History) != 1 || chatter.History[0].Role != "user" {
		t.Errorf("history = %+v", chatter.History)
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["text"] != chatter.Response {
		t.Errorf("text = %q", resp["text"])
	}
}

func TestHandleChatEmptyHistory(t *testing.T) {
	router, _ := setupRouter(t, &stubFetcher{}, nil, nil)

	w := do(router, "POST", "/chat", map[string]interface{}{"sheet_url": "https://sheet"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestMonthGridEndpoint(t *testing.T) {
	fetcher := &stubFetcher{rows: []sheet.Row{
		{"시작일": "2024-06-05", "종료일": "2024-06-07", "내용": "[출장] 부산", "작성자": "김철수"},
		{"시작일": "2024-06-05", "내용": "보고서 작성", "작성자": "이영희"},
		{"시작일": "2024-05-30", "종료일": "2024-06-02", "내용": "워크숍"},
	}}
	router, _ := setupRouter(t, fetcher, nil, nil)

	w := do(router, "GET", "/calendar/2024/6?url=https://sheet", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}

	var grid monthGridJSON
	if err := json.Unmarshal(w.Body.Bytes(), &grid); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if grid.Year != 2024 || grid.Month != 6 {
		t.Errorf("grid header = %d-%d", grid.Year, grid.Month)
	}
	if len(grid.Weeks) != 6 {
		t.Fatalf("weeks = %d, want 6", len(grid.Weeks))
	}
	if grid.Weeks[0].Days[0] != "2024-05-26" {
		t.Errorf("first day = %s", grid.Weeks[0].Days[0])
	}

	// The workshop spans the May tail of week 0.
	var found bool
	for _, e := range grid.Weeks[0].Events {
		if e.Content == "워크숍" {
			found = true
			if e.StartDay != 4 || e.Span != 3 {
				t.Errorf("workshop placement = day %d span %d", e.StartDay, e.Span)
			}
		}
	}
	if !found {
		t.Error("workshop event missing from week 0")
	}

	// The tagged event carries its bracket color key.
	for _, e := range grid.Weeks[1].Events {
		if strings.Contains(e.Content, "부산") && e.ColorKey != "출장" {
			t.Errorf("color key = %q", e.ColorKey)
		}
	}
}

func TestMonthGridInvalidMonth(t *testing.T) {
	router, _ := setupRouter(t, &stubFetcher{}, nil, nil)
	w := do(router, "GET", "/calendar/2024/13?url=https://sheet", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestEventsOnDateEndpoint(t *testing.T) {
	fetcher := &stubFetcher{rows: []sheet.Row{
		{"시작일": "2024-06-05", "종료일": "2024-06-07", "내용": "출장"},
		{"시작일": "2024-06-06", "내용": "회의"},
		{"시작일": "2024-06-10", "내용": "휴가"},
	}}
	router, _ := setupRouter(t, fetcher, nil, nil)

	w := do(router, "GET", "/events/2024-06-06?url=https://sheet", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Count  int               `json:"count"`
		Events []placedEventJSON `json:"events"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 2 {
		t.Errorf("count = %d events=%+v", resp.Count, resp.Events)
	}

	w = do(router, "GET", "/events/2024-06-31?url=https://sheet", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid date status = %d", w.Code)
	}
}

func TestMonthICSEndpoint(t *testing.T) {
	fetcher := &stubFetcher{rows: []sheet.Row{
		{"시작일": "2024-06-05", "종료일": "2024-06-07", "내용": "출장", "작성자": "김철수"},
	}}
	router, _ := setupRouter(t, fetcher, nil, nil)

	w := do(router, "GET", "/calendar/2024/6/ics?url=https://sheet", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "BEGIN:VEVENT") {
		t.Error("feed has no events")
	}
	if !strings.Contains(body, "출장") {
		t.Error("feed missing event summary")
	}
	// All-day DTEND is exclusive: event ending 06-07 must end 06-08.
	if !strings.Contains(body, "20240608") {
		t.Errorf("feed missing exclusive end date:\n%s", body)
	}
}

func TestReportEndpoints(t *testing.T) {
	runner := &stubRunner{result: "report written"}
	router, repo := setupRouter(t, &stubFetcher{}, nil, runner)

	w := do(router, "POST", "/reports/generate", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("generate status = %d body=%s", w.Code, w.Body.String())
	}

	w = do(router, "GET", "/reports/latest", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("latest with no reports status = %d", w.Code)
	}

	repo.LogReport("2024-06-03", "2024-06-09", "요약", "reports/w23.md")
	w = do(router, "GET", "/reports/latest", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("latest status = %d", w.Code)
	}

	w = do(router, "GET", "/reports?limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list struct {
		Reports []db.ReportLog `json:"reports"`
	}
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Reports) != 1 || list.Reports[0].Summary != "요약" {
		t.Errorf("reports = %+v", list.Reports)
	}
}

func TestReportGenerateFailure(t *testing.T) {
	runner := &stubRunner{err: errors.New("no rows in period")}
	router, _ := setupRouter(t, &stubFetcher{}, nil, runner)

	w := do(router, "POST", "/reports/generate", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	router, _ := setupRouter(t, &stubFetcher{}, nil, nil)

	// Fresh user gets empty settings, not 404.
	w := do(router, "GET", "/settings/u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = do(router, "PUT", "/settings/u1", map[string]string{"default_sheet_url": "https://sheet"})
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d body=%s", w.Code, w.Body.String())
	}

	w = do(router, "GET", "/settings/u1", nil)
	var settings db.UserSettings
	json.Unmarshal(w.Body.Bytes(), &settings)
	if settings.DefaultSheetURL != "https://sheet" {
		t.Errorf("settings = %+v", settings)
	}
}

func TestSavedSheetEndpoints(t *testing.T) {
	router, _ := setupRouter(t, &stubFetcher{}, nil, nil)

	w := do(router, "POST", "/settings/u1/sheets", map[string]string{"name": "주간보고", "url": "https://a"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add status = %d body=%s", w.Code, w.Body.String())
	}
	var created db.SavedSheet
	json.Unmarshal(w.Body.Bytes(), &created)
	if created.ID <= 0 {
		t.Fatalf("created = %+v", created)
	}

	w = do(router, "POST", "/settings/u1/sheets", map[string]string{"name": "", "url": "https://b"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("add without name status = %d", w.Code)
	}

	w = do(router, "GET", "/settings/u1/sheets", nil)
	var list struct {
		Sheets []db.SavedSheet `json:"sheets"`
	}
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Sheets) != 1 {
		t.Fatalf("sheets = %+v", list.Sheets)
	}

	w = do(router, "DELETE", "/settings/u1/sheets/"+strconv.FormatInt(created.ID, 10), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = do(router, "GET", "/settings/u1/sheets", nil)
	list.Sheets = nil
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Sheets) != 0 {
		t.Errorf("sheets after delete = %+v", list.Sheets)
	}
}

func TestCardConfigMerge(t *testing.T) {
	router, _ := setupRouter(t, &stubFetcher{}, nil, nil)

	put := func(config map[string]interface{}) *httptest.ResponseRecorder {
		return do(router, "PUT", "/settings/u1/cards", map[string]interface{}{
			"sheet_url": "https://sheet",
			"config":    config,
		})
	}

	if w := put(map[string]interface{}{"template": "calendar", "max_lanes": 3}); w.Code != http.StatusOK {
		t.Fatalf("put status = %d body=%s", w.Code, w.Body.String())
	}
	// A second partial update keeps earlier keys.
	if w := put(map[string]interface{}{"max_lanes": 5}); w.Code != http.StatusOK {
		t.Fatalf("put status = %d", w.Code)
	}

	w := do(router, "GET", "/settings/u1/cards?url="+"https%3A%2F%2Fsheet", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var config map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &config)
	if config["template"] != "calendar" {
		t.Errorf("merge dropped template: %v", config)
	}
	if config["max_lanes"] != float64(5) {
		t.Errorf("max_lanes = %v", config["max_lanes"])
	}
}

func TestCardConfigMissingURL(t *testing.T) {
	router, _ := setupRouter(t, &stubFetcher{}, nil, nil)
	w := do(router, "GET", "/settings/u1/cards", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestAutomationEndpoints(t *testing.T) {
	router, _ := setupRouter(t, &stubFetcher{}, nil, nil)

	createBody := map[string]interface{}{
		"name":          "Weekly Report",
		"action_type":   "generate_report",
		"schedule_kind": "cron",
		"schedule_expr": "0 8 * * 1",
		"timezone":      "Asia/Seoul",
		"payload":       map[string]interface{}{"template": "Weekly Report"},
	}
	w := do(router, "POST", "/automations", createBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", w.Code, w.Body.String())
	}

	var created struct {
		ID        int64      `json:"id"`
		NextRunAt *time.Time `json:"next_run_at"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal create response: %v", err)
	}
	if created.ID <= 0 {
		t.Fatalf("expected id > 0, got %d", created.ID)
	}
	if created.NextRunAt == nil {
		t.Fatal("expected next_run_at to be set")
	}

	w = do(router, "GET", "/automations", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d body=%s", w.Code, w.Body.String())
	}

	idPath := "/automations/" + strconv.FormatInt(created.ID, 10)

	patchBody := map[string]interface{}{"schedule_expr": "30 8 * * 1"}
	w = do(router, "PATCH", idPath, patchBody)
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d body=%s", w.Code, w.Body.String())
	}
	var updated db.AutomationDefinition
	json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.ScheduleExpr != "30 8 * * 1" {
		t.Errorf("schedule_expr = %q", updated.ScheduleExpr)
	}

	w = do(router, "POST", idPath+"/run-now", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("run-now status = %d body=%s", w.Code, w.Body.String())
	}
}

func TestAutomationValidation(t *testing.T) {
	router, _ := setupRouter(t, &stubFetcher{}, nil, nil)

	cases := []map[string]interface{}{
		{"name": "", "action_type": "a", "schedule_kind": "cron", "schedule_expr": "0 8 * * *"},
		{"name": "n", "action_type": "a", "schedule_kind": "cron", "schedule_expr": "not a cron"},
		{"name": "n", "action_type": "a", "schedule_kind": "fortnightly", "schedule_expr": "x"},
	}
	for i, body := range cases {
		w := do(router, "POST", "/automations", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("case %d: status = %d body=%s", i, w.Code, w.Body.String())
		}
	}

	w := do(router, "PATCH", "/automations/999", map[string]interface{}{"name": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("patch missing status = %d", w.Code)
	}
	w = do(router, "POST", "/automations/0/run-now", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("run-now bad id status = %d", w.Code)
	}
}
