package sheet

import "testing"

func TestCalendarMappingToRawEvents(t *testing.T) {
	m := CalendarMapping{
		StartDateField: "출장(시작일)",
		EndDateField:   "출장(종료일)",
		AuthorField:    "작성자",
		ContentField:   "출장내용",
		TypeLabel:      "출장",
	}

	rows := []Row{
		{"출장(시작일)": "2024-06-01", "출장(종료일)": "2024-06-03", "작성자": "김", "출장내용": "부산 방문"},
		{"출장(시작일)": "", "출장내용": "skip me"},
		{"출장(시작일)": "2024-06-05", "출장내용": "서울"},
	}

	raw := m.ToRawEvents(rows)
	if len(raw) != 2 {
		t.Fatalf("expected 2 raw events, got %d", len(raw))
	}
	if raw[0].StartDate != "2024-06-01" || raw[0].EndDate != "2024-06-03" {
		t.Errorf("raw[0] dates = %q..%q", raw[0].StartDate, raw[0].EndDate)
	}
	if raw[0].Content != "[출장] 부산 방문" {
		t.Errorf("raw[0] content = %q", raw[0].Content)
	}
	if raw[0].Author != "김" {
		t.Errorf("raw[0] author = %q", raw[0].Author)
	}
	if raw[0].Payload["출장내용"] != "부산 방문" {
		t.Errorf("payload not carried: %v", raw[0].Payload)
	}
	if raw[1].EndDate != "" {
		t.Errorf("raw[1] end date = %q, want empty", raw[1].EndDate)
	}
}

func TestCalendarMappingValidate(t *testing.T) {
	if err := (CalendarMapping{ContentField: "c"}).Validate(); err == nil {
		t.Error("expected error for missing start_date_field")
	}
	if err := (CalendarMapping{StartDateField: "s"}).Validate(); err == nil {
		t.Error("expected error for missing content_field")
	}
	if err := (CalendarMapping{StartDateField: "s", ContentField: "c"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRowFilterApply(t *testing.T) {
	rows := []Row{
		{"시작일": "2024-06-01", "작성자": "김"},
		{"시작일": "2024-06-10", "작성자": "이"},
		{"시작일": "2024-07-01", "작성자": "김"},
		{"시작일": "not-a-date", "작성자": "김"},
	}

	f := RowFilter{
		Author:         "김",
		AuthorField:    "작성자",
		StartDateField: "시작일",
		From:           "2024-06-01",
		To:             "2024-06-30",
	}
	got := f.Apply(rows)
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d: %v", len(got), got)
	}
	if got[0]["시작일"] != "2024-06-01" {
		t.Errorf("wrong row: %v", got[0])
	}

	// No constraints: everything passes.
	if got := (RowFilter{}).Apply(rows); len(got) != len(rows) {
		t.Errorf("empty filter dropped rows: %d of %d", len(got), len(rows))
	}
}

func TestSelectColumns(t *testing.T) {
	rows := []Row{{"a": "1", "b": "2", "c": "3"}}

	got := SelectColumns(rows, []string{"a", "c"})
	if len(got) != 1 {
		t.Fatal("expected 1 row")
	}
	if _, ok := got[0]["b"]; ok {
		t.Error("column b should be dropped")
	}
	if got[0]["a"] != "1" || got[0]["c"] != "3" {
		t.Errorf("row = %v", got[0])
	}

	// Empty selection keeps everything.
	if got := SelectColumns(rows, nil); len(got[0]) != 3 {
		t.Errorf("nil selection = %v", got[0])
	}
}
