package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	applog "fintrack/internal/log"
	"fintrack/internal/mirror"
)

// Header is written to an empty ledger sheet before its first row.
var Header = []any{"Date", "Kind", "Description", "Amount", "Account", "Card", "User", "Entity", "Event"}

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID string
	// SheetName is the base name; rows go to "<year> <SheetName>".
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *applog.Logger

	// Appends compute the next row from a read, so they must not interleave.
	mu sync.Mutex
}

var _ mirror.Writer = (*Client)(nil)

// New creates a Sheets client from the service account credentials in cfg.
// When opts are given they configure the service instead.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Ledger"
	}

	logger := applog.Default(applog.ComponentMirror)

	if len(opts) == 0 {
		creds, err := credentials(cfg)
		if err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "Creating Google Sheets service with Service Account",
			"credentials_size", len(creds),
			"scope", gsheet.SpreadsheetsScope)
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sheetBase:     base,
		logger:        logger,
	}, nil
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials")
}

// Append writes r on the first empty row of the sheet for r's year. An
// empty sheet gets the header first.
func (c *Client) Append(ctx context.Context, r mirror.Row) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := yearPrefixedName(c.sheetBase, r.Date.Year())

	c.mu.Lock()
	defer c.mu.Unlock()

	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", sheet, err)
	}

	values := [][]any{r.Values()}
	nextRow := len(resp.Values) + 1
	if nextRow == 1 {
		values = [][]any{Header, r.Values()}
	}
	lastRow := nextRow + len(values) - 1

	dataRange := fmt.Sprintf("%s!A%d:I%d", sheet, nextRow, lastRow)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", dataRange, err)
	}

	ref := fmt.Sprintf("%s!A%d:I%d", sheet, lastRow, lastRow)
	c.logger.DebugContext(ctx, "Row appended to sheet",
		applog.FieldEventID, r.EventID, "sheets_ref", ref)
	return ref, nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with
// a year.
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
