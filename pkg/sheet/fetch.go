package sheet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Fetcher retrieves the rows of a spreadsheet identified by its URL.
type Fetcher interface {
	FetchRows(ctx context.Context, sheetURL string) ([]Row, error)
}

// CSVFetcher fetches rows from a Google Sheets "publish to web" CSV link.
type CSVFetcher struct {
	httpClient *http.Client
}

// Ensure CSVFetcher implements Fetcher.
var _ Fetcher = (*CSVFetcher)(nil)

// NewCSVFetcher creates a new published-CSV fetcher.
func NewCSVFetcher() *CSVFetcher {
	return &CSVFetcher{
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// FetchRows downloads and parses the published CSV. A cache-busting query
// parameter is appended because the publish endpoint sits behind aggressive
// edge caches.
func (f *CSVFetcher) FetchRows(ctx context.Context, sheetURL string) ([]Row, error) {
	u, err := url.Parse(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid sheet URL: %w", err)
	}
	q := u.Query()
	q.Set("_", strconv.FormatInt(time.Now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheet fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet body: %w", err)
	}

	text := string(body)
	// A sheet that is not published as CSV serves an HTML page instead.
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "<!DOCTYPE html") || strings.HasPrefix(trimmed, "<html") {
		return nil, fmt.Errorf("sheet URL returned HTML, not CSV; check that the sheet is published to the web as CSV")
	}

	rows, err := ParseCSV(text)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 && trimmed != "" {
		return nil, fmt.Errorf("sheet body could not be parsed into rows")
	}
	return rows, nil
}
