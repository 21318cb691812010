package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/sheet-pilot/pkg/sheet"
)

// AIConfig selects the language model backend. API keys come from the
// environment (GEMINI_API_KEY / OPENAI_API_KEY), never from this file.
type AIConfig struct {
	// Provider is "gemini" (default) or "openai".
	Provider string `yaml:"provider" json:"provider"`
	// Model overrides the provider's default model name.
	Model string `yaml:"model,omitempty" json:"model,omitempty"`
}

// SheetConfig describes the spreadsheet the dashboard is built from.
type SheetConfig struct {
	// URL is the published-CSV link or the regular sheet URL when Mode
	// is "api".
	URL string `yaml:"url" json:"url"`
	// Mode is "csv" (publish-to-web CSV, default) or "api" (Sheets API
	// with a service account).
	Mode string `yaml:"mode" json:"mode"`
	// CredentialsFile is the service account JSON key, required for
	// Mode "api".
	CredentialsFile string `yaml:"credentials_file,omitempty" json:"credentials_file,omitempty"`
	// Poll is the background refresh interval (Go duration, e.g. "5m").
	Poll string `yaml:"poll" json:"poll"`
}

// DriveConfig enables Google Drive integrations.
type DriveConfig struct {
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`
	// BackupFolderID receives copies of generated reports.
	BackupFolderID string `yaml:"backup_folder_id,omitempty" json:"backup_folder_id,omitempty"`
	// TemplateFolderID is watched for report template changes.
	TemplateFolderID string `yaml:"template_folder_id,omitempty" json:"template_folder_id,omitempty"`
}

// ReportConfig controls weekly report generation.
type ReportConfig struct {
	// OutputDir is where generated markdown reports are written.
	OutputDir string `yaml:"output_dir" json:"output_dir"`
	// TemplateDir holds markdown templates; empty means built-in.
	TemplateDir string `yaml:"template_dir,omitempty" json:"template_dir,omitempty"`
	// Template is the template name to render with.
	Template string `yaml:"template,omitempty" json:"template,omitempty"`
	// Prompt is appended to the AI summary instructions.
	Prompt string `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	// GitArchive commits generated reports when OutputDir is a git repo.
	GitArchive bool `yaml:"git_archive" json:"git_archive"`
	Drive      *DriveConfig `yaml:"drive,omitempty" json:"drive,omitempty"`
}

// CalendarConfig controls the month view.
type CalendarConfig struct {
	// MaxLanes caps the event rows rendered per week before "+N more".
	MaxLanes int                   `yaml:"max_lanes" json:"max_lanes"`
	Mapping  sheet.CalendarMapping `yaml:"mapping" json:"mapping"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path" json:"db_path"`

	// Timezone is the IANA timezone used for schedules (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone" json:"timezone"`

	AI       AIConfig       `yaml:"ai" json:"ai"`
	Sheet    SheetConfig    `yaml:"sheet" json:"sheet"`
	Calendar CalendarConfig `yaml:"calendar" json:"calendar"`
	Report   ReportConfig   `yaml:"report" json:"report"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		DBPath:   "sheet-pilot.db",
		Timezone: "Asia/Seoul",
		AI:       AIConfig{Provider: "gemini"},
		Sheet:    SheetConfig{Mode: "csv", Poll: "5m"},
		Calendar: CalendarConfig{
			MaxLanes: 3,
			Mapping: sheet.CalendarMapping{
				StartDateField: "시작일",
				EndDateField:   "종료일",
				AuthorField:    "작성자",
				ContentField:   "내용",
			},
		},
		Report: ReportConfig{OutputDir: "reports"},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.DBPath == "" {
		c.DBPath = "sheet-pilot.db"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Seoul"
	}
	switch c.AI.Provider {
	case "gemini", "openai":
	default:
		c.AI.Provider = "gemini"
	}
	switch c.Sheet.Mode {
	case "csv", "api":
	default:
		c.Sheet.Mode = "csv"
	}
	if c.Sheet.Poll == "" {
		c.Sheet.Poll = "5m"
	}
	if c.Calendar.MaxLanes <= 0 {
		c.Calendar.MaxLanes = 3
	}
	if c.Calendar.Mapping.StartDateField == "" {
		c.Calendar.Mapping.StartDateField = "시작일"
	}
	if c.Calendar.Mapping.ContentField == "" {
		c.Calendar.Mapping.ContentField = "내용"
	}
	if c.Report.OutputDir == "" {
		c.Report.OutputDir = "reports"
	}
}

// Load loads configuration from the given YAML path. A missing file is
// created with defaults so the first run leaves an editable config behind.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".sheet-pilot-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
