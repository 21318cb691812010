package report

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// DefaultTemplate is used when no template file is configured.
const DefaultTemplate = `# {{title}}

> 기간: {{period}}
> 작성일: {{date:YYYY-MM-DD}}

{{summary}}
`

var datePlaceholder = regexp.MustCompile(`\{\{date:(.*?)\}\}`)

// TemplateEngine loads and renders markdown report templates.
type TemplateEngine struct {
	TemplateDir string
}

// NewTemplateEngine creates a new TemplateEngine.
func NewTemplateEngine(templateDir string) *TemplateEngine {
	return &TemplateEngine{TemplateDir: templateDir}
}

// LoadTemplate reads a template file from the template directory.
// An empty name returns the built-in default.
func (e *TemplateEngine) LoadTemplate(name string) (string, error) {
	if name == "" {
		return DefaultTemplate, nil
	}
	if !strings.HasSuffix(name, ".md") {
		name += ".md"
	}
	content, err := os.ReadFile(fmt.Sprintf("%s/%s", e.TemplateDir, name))
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// Render replaces placeholders in the template content.
// {{key}} placeholders are filled from vars; {{date:FORMAT}} is
// replaced with the given time formatted per FORMAT (e.g. YYYY-MM-DD).
func (e *TemplateEngine) Render(content string, vars map[string]string, now time.Time) string {
	for key, value := range vars {
		content = strings.ReplaceAll(content, "{{"+key+"}}", value)
	}

	return datePlaceholder.ReplaceAllStringFunc(content, func(match string) string {
		parts := datePlaceholder.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return formatDate(parts[1], now)
	})
}

// formatDate renders a Moment.js style format string. Templates come
// from the spreadsheet side of the house, so the tokens follow the
// convention its users already know.
func formatDate(format string, t time.Time) string {
	if format == "YYYY-[W]WW" {
		y, w := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	}

	goFormat := strings.NewReplacer(
		"YYYY", "2006",
		"MM", "01",
		"DD", "02",
		"HH", "15",
		"mm", "04",
		"ss", "05",
	).Replace(format)
	return t.Format(goFormat)
}
