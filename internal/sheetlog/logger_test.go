package sheetlog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/violation-assistant/internal/model"
	"github.com/sells-group/violation-assistant/pkg/sheets"
	"github.com/sells-group/violation-assistant/pkg/sheets/mocks"
)

func frag(i int, text string) model.RetrievedFragment {
	return model.RetrievedFragment{
		DocumentTitle:  "СП 9.13130.2009",
		DocumentNumber: "9.13130.2009",
		ClauseNumber:   "4.1." + string(rune('0'+i)),
		Text:           text,
	}
}

func setupMocks(t *testing.T) (*mocks.MockClient, *mocks.MockWorksheet, *int) {
	t.Helper()
	client := &mocks.MockClient{}
	ss := &mocks.MockSpreadsheet{}
	ws := &mocks.MockWorksheet{}
	client.On("Open", mock.Anything, "sheet-id").Return(ss, nil)
	ss.On("Worksheet", mock.Anything, 0).Return(ws, nil)
	connects := 0
	return client, ws, &connects
}

func newLogger(client sheets.Client, calls *int) *Logger {
	return New(func(context.Context) (sheets.Client, error) {
		*calls++
		return client, nil
	}, "sheet-id")
}

func TestFormatFragments_AlwaysThreeSlots(t *testing.T) {
	for n := 0; n <= 5; n++ {
		frags := make([]model.RetrievedFragment, n)
		for i := range frags {
			frags[i] = frag(i+1, "text")
		}
		slots := FormatFragments(frags)
		assert.Len(t, slots, 3)
		for i := 0; i < 3; i++ {
			if i < n {
				assert.NotEmpty(t, slots[i], "n=%d slot=%d", n, i)
			} else {
				assert.Empty(t, slots[i], "n=%d slot=%d", n, i)
			}
		}
	}
}

func TestFormatFragments_Layout(t *testing.T) {
	slots := FormatFragments([]model.RetrievedFragment{frag(3, "Огнетушители должны размещаться")})
	assert.Equal(t, "Чанк 1:\nДокумент: СП 9.13130.2009 9.13130.2009, п.4.1.3\nТекст: Огнетушители должны размещаться", slots[0])
}

func TestFormatFragments_Truncation(t *testing.T) {
	exact := strings.Repeat("я", 200)
	long := strings.Repeat("я", 201)

	slots := FormatFragments([]model.RetrievedFragment{frag(1, exact), frag(2, long)})
	assert.True(t, strings.HasSuffix(slots[0], "Текст: "+exact))
	assert.True(t, strings.HasSuffix(slots[1], "Текст: "+exact+"..."))
}

func TestViolationRow(t *testing.T) {
	rec := model.NewViolationRecord("нет огнетушителя", []model.RetrievedFragment{frag(1, "a"), frag(2, "b")})

	row := ViolationRow(rec, "ответ", "claude-sonnet-4-5-20250929")
	require.Len(t, row, 6)
	_, err := time.ParseInLocation(timestampLayout, row[0], time.Local)
	assert.NoError(t, err)
	assert.Equal(t, "", row[1])
	assert.Equal(t, "нет огнетушителя", row[2])
	assert.Equal(t, "ответ", row[3])
	parts := strings.Split(row[4], "\n\n====================\n\n")
	assert.Len(t, parts, 2)
	assert.True(t, strings.HasPrefix(parts[1], "Чанк 2:"))
	assert.Equal(t, "claude-sonnet-4-5-20250929", row[5])
}

func TestViolationRow_NoFragments(t *testing.T) {
	row := ViolationRow(model.NewViolationRecord("x", nil), "r", "m")
	assert.Equal(t, "", row[4])
}

func TestErrorRow(t *testing.T) {
	ts := time.Date(2025, 3, 1, 14, 5, 9, 0, time.UTC)
	uid := int64(42)

	row := ErrorRow(ts, "boom", &uid)
	assert.Equal(t, []string{"2025-03-01 14:05:09", "Ошибка пользователя 42", "", "", "", "", "", "", "boom"}, row)

	assert.Equal(t, "Системная ошибка", ErrorRow(ts, "boom", nil)[1])
	zero := int64(0)
	assert.Equal(t, "Системная ошибка", ErrorRow(ts, "boom", &zero)[1])
}

func TestLogViolation_Success(t *testing.T) {
	client, ws, calls := setupMocks(t)
	ws.On("AppendRow", mock.Anything, mock.MatchedBy(func(row []string) bool {
		return len(row) == 6 && row[2] == "нет огнетушителя"
	})).Return(nil)

	l := newLogger(client, calls)
	rec := model.NewViolationRecord("нет огнетушителя", nil)
	assert.True(t, l.LogViolation(context.Background(), rec, "resp", "model"))
	assert.True(t, l.LogViolation(context.Background(), rec, "resp", "model"))

	// connector is consulted on every call
	assert.Equal(t, 2, *calls)
	ws.AssertNumberOfCalls(t, "AppendRow", 2)
}

func TestLogViolation_AppendFails(t *testing.T) {
	client, ws, calls := setupMocks(t)
	ws.On("AppendRow", mock.Anything, mock.Anything).Return(errors.New("quota exceeded"))

	l := newLogger(client, calls)
	assert.False(t, l.LogViolation(context.Background(), model.NewViolationRecord("x", nil), "r", "m"))
}

func TestLogViolation_ConnectFails(t *testing.T) {
	l := New(func(context.Context) (sheets.Client, error) {
		return nil, errors.New("credentials.json: no such file")
	}, "sheet-id")
	assert.False(t, l.LogViolation(context.Background(), model.NewViolationRecord("x", nil), "r", "m"))
	assert.False(t, l.LogError(context.Background(), "boom", nil))
	assert.False(t, l.TestConnection(context.Background()))
}

func TestLogViolation_OpenFails(t *testing.T) {
	client := &mocks.MockClient{}
	client.On("Open", mock.Anything, "sheet-id").Return(nil, errors.New("404"))
	calls := 0
	l := newLogger(client, &calls)
	assert.False(t, l.LogViolation(context.Background(), model.NewViolationRecord("x", nil), "r", "m"))
}

func TestLogError(t *testing.T) {
	client, ws, calls := setupMocks(t)
	ws.On("AppendRow", mock.Anything, mock.MatchedBy(func(row []string) bool {
		return len(row) == 9 && row[1] == "Ошибка пользователя 7" && row[8] == "timeout"
	})).Return(nil)

	l := newLogger(client, calls)
	l.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	uid := int64(7)
	assert.True(t, l.LogError(context.Background(), "timeout", &uid))
	ws.AssertExpectations(t)
}

func TestTestConnection(t *testing.T) {
	client, ws, calls := setupMocks(t)
	ws.On("RowValues", mock.Anything, 1).Return([]string{"Дата", "Пользователь"}, nil).Once()
	ws.On("RowValues", mock.Anything, 1).Return(nil, errors.New("403")).Once()

	l := newLogger(client, calls)
	assert.True(t, l.TestConnection(context.Background()))
	assert.False(t, l.TestConnection(context.Background()))
}
