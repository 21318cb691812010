package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a markdown report file with YAML frontmatter.
type Document struct {
	Path        string
	Frontmatter map[string]interface{}
	Content     string
}

// ReadDocument parses a markdown file into frontmatter and body.
func ReadDocument(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var fmLines, bodyLines []string
	inFrontmatter := false
	lineCount := 0

	for scanner.Scan() {
		line := scanner.Text()
		lineCount++

		if lineCount == 1 && line == "---" {
			inFrontmatter = true
			continue
		}
		if inFrontmatter {
			if line == "---" {
				inFrontmatter = false
				continue
			}
			fmLines = append(fmLines, line)
			continue
		}
		bodyLines = append(bodyLines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var frontmatter map[string]interface{}
	if len(fmLines) > 0 {
		if err := yaml.Unmarshal([]byte(strings.Join(fmLines, "\n")), &frontmatter); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
	}

	return &Document{
		Path:        path,
		Frontmatter: frontmatter,
		Content:     strings.Join(bodyLines, "\n"),
	}, nil
}

// WriteDocument writes the document to its path, creating parent
// directories as needed.
func WriteDocument(doc *Document) error {
	fmData, err := yaml.Marshal(doc.Frontmatter)
	if err != nil {
		return fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	content := fmt.Sprintf("---\n%s---\n%s", string(fmData), doc.Content)

	if err := os.MkdirAll(filepath.Dir(doc.Path), 0755); err != nil {
		return err
	}
	return os.WriteFile(doc.Path, []byte(content), 0644)
}

// SanitizeFilename removes characters invalid in filenames.
func SanitizeFilename(name string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	for _, char := range invalid {
		name = strings.ReplaceAll(name, char, "-")
	}
	return name
}
