package sheets

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

const defaultSheetName = "Log"

// XLSXClient writes the log to a local workbook. The workbook identifier
// passed to Open is ignored; all spreadsheets map to the configured file.
// Appends are serialized because each one rewrites the file.
type XLSXClient struct {
	path string
	mu   sync.Mutex
}

// NewXLSXClient returns a client for the workbook at path. The file is
// created with a single "Log" sheet on first open if it does not exist.
func NewXLSXClient(path string) *XLSXClient {
	return &XLSXClient{path: path}
}

func (c *XLSXClient) Open(_ context.Context, _ string) (Spreadsheet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.path); errors.Is(err, fs.ErrNotExist) {
		f := xlsx.NewFile()
		if _, err := f.AddSheet(defaultSheetName); err != nil {
			return nil, eris.Wrap(err, "xlsx: add sheet")
		}
		if err := f.Save(c.path); err != nil {
			return nil, eris.Wrap(err, "xlsx: create workbook")
		}
	}

	f, err := xlsx.OpenFile(c.path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	return &xlsxSpreadsheet{client: c, file: f}, nil
}

type xlsxSpreadsheet struct {
	client *XLSXClient
	file   *xlsx.File
}

func (s *xlsxSpreadsheet) Worksheet(_ context.Context, index int) (Worksheet, error) {
	if index < 0 || index >= len(s.file.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", index, len(s.file.Sheets))
	}
	return &xlsxWorksheet{client: s.client, index: index}, nil
}

type xlsxWorksheet struct {
	client *XLSXClient
	index  int
}

// AppendRow reloads the workbook under the client lock so rows appended by
// other handles since Open are kept.
func (w *xlsxWorksheet) AppendRow(_ context.Context, values []string) error {
	w.client.mu.Lock()
	defer w.client.mu.Unlock()

	f, err := xlsx.OpenFile(w.client.path)
	if err != nil {
		return eris.Wrap(err, "xlsx: open file")
	}
	if w.index >= len(f.Sheets) {
		return eris.Errorf("xlsx: sheet index %d out of range", w.index)
	}

	row := f.Sheets[w.index].AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
	return eris.Wrap(f.Save(w.client.path), "xlsx: save workbook")
}

func (w *xlsxWorksheet) RowValues(_ context.Context, row int) ([]string, error) {
	if row < 1 {
		return nil, eris.Errorf("xlsx: invalid row %d", row)
	}

	w.client.mu.Lock()
	defer w.client.mu.Unlock()

	f, err := xlsx.OpenFile(w.client.path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	sheet := f.Sheets[w.index]
	if row > len(sheet.Rows) {
		return []string{}, nil
	}
	return rowToStrings(sheet.Rows[row-1]), nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
