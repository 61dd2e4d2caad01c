package sheets

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestXLSXClient_CreatesWorkbookAndAppends(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "log.xlsx")
	c := NewXLSXClient(path)

	ss, err := c.Open(ctx, "ignored")
	require.NoError(t, err)
	ws, err := ss.Worksheet(ctx, 0)
	require.NoError(t, err)

	require.NoError(t, ws.AppendRow(ctx, []string{"2024-01-01 12:00:00", "", "отсутствие огнетушителя"}))
	require.NoError(t, ws.AppendRow(ctx, []string{"second"}))

	row1, err := ws.RowValues(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01 12:00:00", "", "отсутствие огнетушителя"}, row1)

	row2, err := ws.RowValues(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, row2)

	missing, err := ws.RowValues(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, missing)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	assert.Equal(t, "Log", f.Sheets[0].Name)
	assert.Len(t, f.Sheets[0].Rows, 2)
}

func TestXLSXClient_ExistingWorkbook(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "existing.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Нарушения")
	require.NoError(t, err)
	header := sheet.AddRow()
	for _, h := range []string{"Дата", "ID пользователя", "Вопрос"} {
		header.AddCell().SetString(h)
	}
	require.NoError(t, f.Save(path))

	c := NewXLSXClient(path)
	ss, err := c.Open(ctx, "")
	require.NoError(t, err)
	ws, err := ss.Worksheet(ctx, 0)
	require.NoError(t, err)

	headers, err := ws.RowValues(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Дата", "ID пользователя", "Вопрос"}, headers)

	require.NoError(t, ws.AppendRow(ctx, []string{"a", "b", "c"}))
	row2, err := ws.RowValues(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, row2)
}

func TestXLSXClient_WorksheetOutOfRange(t *testing.T) {
	ctx := context.Background()
	c := NewXLSXClient(filepath.Join(t.TempDir(), "log.xlsx"))
	ss, err := c.Open(ctx, "")
	require.NoError(t, err)

	_, err = ss.Worksheet(ctx, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestXLSXClient_InvalidRow(t *testing.T) {
	ctx := context.Background()
	c := NewXLSXClient(filepath.Join(t.TempDir(), "log.xlsx"))
	ss, err := c.Open(ctx, "")
	require.NoError(t, err)
	ws, err := ss.Worksheet(ctx, 0)
	require.NoError(t, err)

	_, err = ws.RowValues(ctx, 0)
	assert.Error(t, err)
}

func TestXLSXClient_OpenBadDirectory(t *testing.T) {
	c := NewXLSXClient(filepath.Join(t.TempDir(), "missing-dir", "log.xlsx"))
	_, err := c.Open(context.Background(), "")
	assert.Error(t, err)
}
