package google

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"fintrack/internal/config"
	applog "fintrack/internal/log"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base tab name without year (e.g. "Budgets"); the report year is prefixed.
	reportBase string
	logger     *applog.Logger
}

var _ ports.ReportWriter = (*Client)(nil)

// New creates a Sheets client from configuration using service-account
// credentials.
func New(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.GoogleSpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	logger = logger.WithComponent(applog.ComponentSheets)

	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	base := strings.TrimSpace(cfg.GoogleReportSheetName)
	if base == "" {
		base = "Budgets"
	}
	return &Client{svc: svc, spreadsheetID: cfg.GoogleSpreadsheetID, reportBase: base, logger: logger}, nil
}

// loadCredentials reads GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func loadCredentials(cfg *config.Config) ([]byte, error) {
	if js := strings.TrimSpace(cfg.GoogleServiceAccountJSON); js != "" {
		return []byte(js), nil
	}
	path := strings.TrimSpace(cfg.GoogleServiceAccountFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

// WriteBudgetReport clears the user's report tab and rewrites it.
func (c *Client) WriteBudgetReport(ctx context.Context, r ports.BudgetReport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	tab := reportSheetName(c.reportBase, r.Year, r.UserID)
	if err := c.ensureSheet(ctx, tab); err != nil {
		return "", err
	}

	clearRange := a1(tab, "A:G")
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}

	rows := ports.ReportRows(r)
	rng := a1(tab, fmt.Sprintf("A1:G%d", len(rows)))
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}

	c.logger.InfoContext(ctx, "Budget report written",
		applog.FieldUserID, r.UserID,
		applog.FieldSheetsRange, rng,
		applog.FieldCount, len(r.Metrics))
	return rng, nil
}

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", title, err)
	}
	c.logger.InfoContext(ctx, "Created report sheet", "sheet", title)
	return nil
}

// Sheet titles are limited to 100 characters.
const maxSheetTitle = 100

// reportSheetName returns "<year> <base> (<user>)". Titles that would exceed
// the limit keep a prefix of the user id followed by a short hash of the
// full id, so distinct users never share a tab.
func reportSheetName(base string, year int, userID string) string {
	name := yearPrefixedName(base, year)
	if userID == "" {
		return truncateRunes(name, maxSheetTitle)
	}
	full := name + " (" + userID + ")"
	if utf8.RuneCountInString(full) <= maxSheetTitle {
		return full
	}

	sum := sha256.Sum256([]byte(userID))
	tag := "~" + hex.EncodeToString(sum[:4]) + ")"
	name = truncateRunes(name, maxSheetTitle-utf8.RuneCountInString(" ("+tag))
	room := maxSheetTitle - utf8.RuneCountInString(name+" ("+tag)
	return name + " (" + truncateRunes(userID, room) + tag
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// a1 builds an A1 range, quoting the sheet title.
func a1(sheet, cells string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + cells
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
