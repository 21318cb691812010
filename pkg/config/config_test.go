package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8080" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Timezone != "Asia/Seoul" {
		t.Errorf("Timezone = %q", cfg.Timezone)
	}
	if cfg.Calendar.Mapping.StartDateField != "시작일" {
		t.Errorf("StartDateField = %q", cfg.Calendar.Mapping.StartDateField)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config was not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file mode = %o, want 600", perm)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Listen = "0.0.0.0:9000"
	cfg.Sheet.URL = "https://docs.google.com/spreadsheets/d/abc/pub?output=csv"
	cfg.Sheet.Mode = "api"
	cfg.Sheet.CredentialsFile = "sa.json"
	cfg.Calendar.MaxLanes = 5
	cfg.Report.Prompt = "핵심 성과 위주로 요약해 주세요."
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Listen != "0.0.0.0:9000" {
		t.Errorf("Listen = %q", loaded.Listen)
	}
	if loaded.Sheet.Mode != "api" || loaded.Sheet.CredentialsFile != "sa.json" {
		t.Errorf("Sheet = %+v", loaded.Sheet)
	}
	if loaded.Calendar.MaxLanes != 5 {
		t.Errorf("MaxLanes = %d", loaded.Calendar.MaxLanes)
	}
	if loaded.Report.Prompt != "핵심 성과 위주로 요약해 주세요." {
		t.Errorf("Prompt = %q", loaded.Report.Prompt)
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := &Config{AI: AIConfig{Provider: "claude"}, Sheet: SheetConfig{Mode: "rss"}}
	cfg.Normalize()

	if cfg.AI.Provider != "gemini" {
		t.Errorf("Provider = %q", cfg.AI.Provider)
	}
	if cfg.Sheet.Mode != "csv" {
		t.Errorf("Mode = %q", cfg.Sheet.Mode)
	}
	if cfg.Calendar.MaxLanes != 3 {
		t.Errorf("MaxLanes = %d", cfg.Calendar.MaxLanes)
	}
	if cfg.Report.OutputDir != "reports" {
		t.Errorf("OutputDir = %q", cfg.Report.OutputDir)
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("listen: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
