package sheet

import "testing"

func TestParseCSV(t *testing.T) {
	csv := "시작일,종료일,작성자\n2024-06-01,2024-06-03,김\n2024-06-05,,이\n"
	rows, err := ParseCSV(csv)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["시작일"] != "2024-06-01" || rows[0]["작성자"] != "김" {
		t.Errorf("row 0 = %v", rows[0])
	}
	if rows[1]["종료일"] != "" {
		t.Errorf("expected empty 종료일, got %q", rows[1]["종료일"])
	}
}

func TestParseCSVMultilineField(t *testing.T) {
	csv := "name,notes\nalpha,\"line one\nline two\"\nbeta,plain\n"
	rows, err := ParseCSV(csv)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["notes"] != "line one\nline two" {
		t.Errorf("multiline field = %q", rows[0]["notes"])
	}
	if rows[1]["name"] != "beta" {
		t.Errorf("row after multiline field = %v", rows[1])
	}
}

func TestParseCSVStripsBOM(t *testing.T) {
	rows, err := ParseCSV("\ufeffa,b\n1,2\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0]["a"] != "1" {
		t.Errorf("rows = %v", rows)
	}
}

func TestParseCSVRaggedRows(t *testing.T) {
	rows, err := ParseCSV("a,b,c\n1,2\n3,4,5,6\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["c"] != "" {
		t.Errorf("short row: c = %q, want empty", rows[0]["c"])
	}
	if rows[1]["c"] != "5" {
		t.Errorf("long row: c = %q, want 5", rows[1]["c"])
	}
}

func TestParseCSVEscapedQuotes(t *testing.T) {
	rows, err := ParseCSV("a\n\"say \"\"hi\"\"\"\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0]["a"] != `say "hi"` {
		t.Errorf("rows = %v", rows)
	}
}

func TestParseCSVEmptyInputs(t *testing.T) {
	for _, in := range []string{"", "   \n", "only-header\n"} {
		rows, err := ParseCSV(in)
		if err != nil {
			t.Errorf("ParseCSV(%q): %v", in, err)
		}
		if len(rows) != 0 {
			t.Errorf("ParseCSV(%q) = %v, want no rows", in, rows)
		}
	}
}

func TestParseCSVSkipsBlankLines(t *testing.T) {
	rows, err := ParseCSV("a,b\n1,2\n,\n3,4\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("expected blank record skipped, got %d rows", len(rows))
	}
}

func TestParseCSVHeaders(t *testing.T) {
	headers, err := ParseCSVHeaders("시작일,\"주요일정\",작성자\n2024-06-01,x,y\n")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"시작일", "주요일정", "작성자"}
	if len(headers) != len(want) {
		t.Fatalf("headers = %v", headers)
	}
	for i := range want {
		if headers[i] != want[i] {
			t.Errorf("header %d = %q, want %q", i, headers[i], want[i])
		}
	}
}
