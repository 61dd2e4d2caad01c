// Package sheets provides spreadsheet backends for the interaction log: the
// Google Sheets API and a local .xlsx workbook.
package sheets

import "context"

// Client opens spreadsheets by identifier.
type Client interface {
	Open(ctx context.Context, spreadsheetID string) (Spreadsheet, error)
}

// Spreadsheet exposes worksheets by zero-based index.
type Spreadsheet interface {
	Worksheet(ctx context.Context, index int) (Worksheet, error)
}

// Worksheet supports appending rows and reading a row back.
type Worksheet interface {
	// AppendRow appends one row after the last non-empty row.
	AppendRow(ctx context.Context, values []string) error
	// RowValues returns the values of the 1-based row.
	RowValues(ctx context.Context, row int) ([]string, error)
}
