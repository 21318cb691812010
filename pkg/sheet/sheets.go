package sheet

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	googleauth "github.com/mklimuk/sheet-pilot/pkg/integration/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// APIFetcher reads rows through the Google Sheets API v4 using service
// account credentials. Unlike the published-CSV path it works for private
// sheets shared with the service account.
type APIFetcher struct {
	srv *gsheets.Service
}

// Ensure APIFetcher implements Fetcher.
var _ Fetcher = (*APIFetcher)(nil)

// NewAPIFetcher creates a Sheets API fetcher from a service account key
// file, with the client scoped to read-only spreadsheet access.
func NewAPIFetcher(ctx context.Context, credentialsFile string) (*APIFetcher, error) {
	client, err := googleauth.NewHTTPClient(ctx, credentialsFile, gsheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, err
	}
	srv, err := gsheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &APIFetcher{srv: srv}, nil
}

// FetchRows resolves the spreadsheet and tab from the URL, fetches the A:Z
// value range, and binds the header row to each data row.
func (f *APIFetcher) FetchRows(ctx context.Context, sheetURL string) ([]Row, error) {
	spreadsheetID, gid, err := ExtractIDs(sheetURL)
	if err != nil {
		return nil, err
	}

	title := "Sheet1"
	if gid != "" {
		title, err = f.resolveTitle(ctx, spreadsheetID, gid)
		if err != nil {
			return nil, err
		}
	}

	resp, err := f.srv.Spreadsheets.Values.
		Get(spreadsheetID, fmt.Sprintf("%s!A:Z", title)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch values: %w", err)
	}

	return bindValues(resp.Values), nil
}

// resolveTitle maps a gid (tab ID from the URL fragment) to the tab title
// required by A1 notation.
func (f *APIFetcher) resolveTitle(ctx context.Context, spreadsheetID, gid string) (string, error) {
	gidNum, err := strconv.ParseInt(gid, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid gid %q: %w", gid, err)
	}

	meta, err := f.srv.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to fetch spreadsheet metadata: %w", err)
	}
	for _, s := range meta.Sheets {
		if s.Properties != nil && s.Properties.SheetId == gidNum {
			return s.Properties.Title, nil
		}
	}
	return "Sheet1", nil
}

func bindValues(values [][]interface{}) []Row {
	if len(values) < 2 {
		return nil
	}

	headers := make([]string, len(values[0]))
	for i, h := range values[0] {
		headers[i] = fmt.Sprint(h)
	}

	rows := make([]Row, 0, len(values)-1)
	for _, rec := range values[1:] {
		row := make(Row, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(rec) {
				row[h] = fmt.Sprint(rec[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

var spreadsheetPath = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
var gidFragment = regexp.MustCompile(`gid=(\d+)`)

// ExtractIDs pulls the spreadsheet ID and optional gid out of a Google
// Sheets URL. The gid identifies a tab and may appear as a query parameter
// or in the URL fragment.
func ExtractIDs(sheetURL string) (spreadsheetID, gid string, err error) {
	u, err := url.Parse(sheetURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid sheet URL: %w", err)
	}

	if m := spreadsheetPath.FindStringSubmatch(u.Path); m != nil {
		spreadsheetID = m[1]
	} else if id := u.Query().Get("id"); id != "" {
		spreadsheetID = id
	}
	if spreadsheetID == "" {
		return "", "", fmt.Errorf("no spreadsheet ID in URL %q", sheetURL)
	}

	gid = u.Query().Get("gid")
	if gid == "" {
		if m := gidFragment.FindStringSubmatch(u.Fragment); m != nil {
			gid = m[1]
		}
	}
	return spreadsheetID, gid, nil
}
