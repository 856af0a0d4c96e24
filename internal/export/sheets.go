// Package export pushes aggregated reports to external destinations.
// The only destination today is a Google Sheets spreadsheet.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"finledger/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// SheetsExporter writes monthly report rows to a configured spreadsheet
// using a service account.
type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Config holds the exporter's destination and credentials. Exactly one
// of CredentialsFile and CredentialsJSON must be set.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

// NewSheetsExporter creates an exporter from service account credentials.
func NewSheetsExporter(ctx context.Context, cfg Config) (*SheetsExporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Report"
	}

	var credentialsJSON []byte
	switch {
	case cfg.CredentialsJSON != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// ExportMonthlyReport replaces the sheet's contents with one header row
// plus one row per month. Rows are written in the order given.
func (e *SheetsExporter) ExportMonthlyReport(ctx context.Context, username string, months []core.MonthTotal) error {
	values := make([][]any, 0, len(months)+1)
	values = append(values, []any{"Month", "Income", "Expense", "Net"})
	for _, m := range months {
		values = append(values, []any{m.Month, m.Income, m.Expense, m.Net})
	}

	rangeRef := fmt.Sprintf("%s!A1", e.sheetName)
	clearRef := fmt.Sprintf("%s!A:Z", e.sheetName)

	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, clearRef, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", e.sheetName, err)
	}

	_, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rangeRef, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update sheet %s: %w", e.sheetName, err)
	}

	slog.InfoContext(ctx, "Exported monthly report",
		"username", username,
		"rows", len(months),
		"spreadsheet_id", e.spreadsheetID,
		"sheet", e.sheetName)
	return nil
}
