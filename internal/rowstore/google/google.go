// Package google adapts the Google Sheets API to the rowstore ports.
// One spreadsheet holds every branch-month ledger as a worksheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"megafin/internal/rowstore"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const newSheetRows = 2000

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	retry         rowstore.RetryPolicy

	mu     sync.Mutex
	titles map[string]bool // worksheet titles seen at last open
}

// Ensure interface conformance
var _ rowstore.Store = (*Client)(nil)

// New creates a Sheets-backed row store for the given spreadsheet.
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID string, retry rowstore.RetryPolicy) (*Client, error) {
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		retry:         retry,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// open fetches the spreadsheet metadata under the retry policy and
// refreshes the cached worksheet title set. Quota errors are the usual
// transient failure here.
func (c *Client) open(ctx context.Context) (*gsheet.Spreadsheet, error) {
	var sh *gsheet.Spreadsheet
	err := c.retry.Do(ctx, func() error {
		var err error
		sh, err = c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
		return err
	})
	if err != nil {
		slog.ErrorContext(ctx, "Cannot open spreadsheet", "spreadsheet_id", c.spreadsheetID, "error", err)
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}

	titles := make(map[string]bool, len(sh.Sheets))
	for _, ws := range sh.Sheets {
		if ws.Properties != nil {
			titles[ws.Properties.Title] = true
		}
	}
	c.mu.Lock()
	c.titles = titles
	c.mu.Unlock()
	return sh, nil
}

// Titles implements rowstore.Lister.
func (c *Client) Titles(ctx context.Context) ([]string, error) {
	sh, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(sh.Sheets))
	for _, ws := range sh.Sheets {
		if ws.Properties != nil {
			out = append(out, ws.Properties.Title)
		}
	}
	return out, nil
}

// Ensure implements rowstore.Ensurer: create the worksheet with its
// header when absent, rewrite the header when it drifted. Idempotent.
func (c *Client) Ensure(ctx context.Context, title string, columns []string) error {
	c.mu.Lock()
	known := c.titles != nil && c.titles[title]
	c.mu.Unlock()

	if !known {
		if _, err := c.open(ctx); err != nil {
			return err
		}
		c.mu.Lock()
		known = c.titles[title]
		c.mu.Unlock()
	}

	if !known {
		req := &gsheet.BatchUpdateSpreadsheetRequest{
			Requests: []*gsheet.Request{{
				AddSheet: &gsheet.AddSheetRequest{
					Properties: &gsheet.SheetProperties{
						Title: title,
						GridProperties: &gsheet.GridProperties{
							RowCount:    newSheetRows,
							ColumnCount: int64(max(len(columns), 8)),
						},
					},
				},
			}},
		}
		if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("add worksheet %q: %w", title, err)
		}
		c.mu.Lock()
		if c.titles == nil {
			c.titles = map[string]bool{}
		}
		c.titles[title] = true
		c.mu.Unlock()
		slog.InfoContext(ctx, "Created ledger worksheet", "ledger", title)
		return c.writeHeader(ctx, title, columns)
	}

	header, err := c.readHeader(ctx, title)
	if err != nil {
		return err
	}
	if headerDrifted(header, columns) {
		slog.WarnContext(ctx, "Repairing ledger header", "ledger", title)
		return c.writeHeader(ctx, title, columns)
	}
	return nil
}

func (c *Client) readHeader(ctx context.Context, title string) ([]string, error) {
	rng := fmt.Sprintf("'%s'!1:1", title)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read header of %q: %w", title, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	return toStrings(resp.Values[0]), nil
}

func (c *Client) writeHeader(ctx context.Context, title string, columns []string) error {
	rng := fmt.Sprintf("'%s'!1:1", title)
	values := make([]any, len(columns))
	for i, col := range columns {
		values[i] = col
	}
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header of %q: %w", title, err)
	}
	return nil
}

// headerDrifted reports whether the stored header no longer starts with
// the expected columns.
func headerDrifted(header, columns []string) bool {
	if len(header) < len(columns) {
		return true
	}
	for i, col := range columns {
		if strings.TrimSpace(header[i]) != col {
			return true
		}
	}
	return false
}

// ReadAll implements rowstore.Reader, returning every row of the ledger
// with the header first.
func (c *Client) ReadAll(ctx context.Context, title string) ([][]string, error) {
	rng := fmt.Sprintf("'%s'", title)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read ledger %q: %w", title, err)
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		rows = append(rows, toStrings(row))
	}
	return rows, nil
}

// Append implements rowstore.Appender. The Sheets API serializes
// concurrent appends on its side; one call is one row, all or nothing.
func (c *Client) Append(ctx context.Context, title string, values []string) error {
	rng := fmt.Sprintf("'%s'!A1", title)
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to ledger %q: %w", title, err)
	}
	slog.DebugContext(ctx, "Appended ledger row", "ledger", title, "cells", len(values))
	return nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
