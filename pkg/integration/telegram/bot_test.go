package telegram

import (
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantCmd     string
		wantContent string
	}{
		{
			name:    "report command",
			input:   "/report",
			wantCmd: "/report",
		},
		{
			name:        "report command with argument",
			input:       "/report last week",
			wantCmd:     "/report",
			wantContent: "last week",
		},
		{
			name:    "latest command",
			input:   "/latest",
			wantCmd: "/latest",
		},
		{
			name:    "status command",
			input:   "/status",
			wantCmd: "/status",
		},
		{
			name:        "unknown command",
			input:       "/help",
			wantCmd:     "",
			wantContent: "/help",
		},
		{
			name:        "plain text",
			input:       "hello world",
			wantCmd:     "",
			wantContent: "hello world",
		},
		{
			name:        "report without space is not a command",
			input:       "/reportfoo",
			wantCmd:     "",
			wantContent: "/reportfoo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, content := ParseCommand(tt.input)
			if cmd != tt.wantCmd {
				t.Errorf("ParseCommand(%q) command = %q, want %q", tt.input, cmd, tt.wantCmd)
			}
			if content != tt.wantContent {
				t.Errorf("ParseCommand(%q) content = %q, want %q", tt.input, content, tt.wantContent)
			}
		})
	}
}

func TestTruncateSummary(t *testing.T) {
	short := "이번 주 요약입니다."
	if got := TruncateSummary(short); got != short {
		t.Errorf("short summary changed: %q", got)
	}

	long := strings.Repeat("a", 4000)
	got := TruncateSummary(long)
	if len(got) != 3503 {
		t.Errorf("truncated length = %d", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated summary missing ellipsis")
	}
}
