// Package sheetlog appends interaction records to a spreadsheet.
package sheetlog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/violation-assistant/internal/model"
	"github.com/sells-group/violation-assistant/pkg/sheets"
)

const (
	timestampLayout  = "2006-01-02 15:04:05"
	fragmentSep      = "\n\n====================\n\n"
	maxFragmentRunes = 200
	fragmentSlots    = 3
)

// Connector returns a spreadsheet client. It is invoked for every logging
// call, so each call authorizes afresh.
type Connector func(ctx context.Context) (sheets.Client, error)

// Logger writes violation and error rows to the first worksheet of one
// spreadsheet. All methods report failure as false and never return errors.
type Logger struct {
	connect       Connector
	spreadsheetID string
	now           func() time.Time
}

// New creates a Logger.
func New(connect Connector, spreadsheetID string) *Logger {
	return &Logger{connect: connect, spreadsheetID: spreadsheetID, now: time.Now}
}

// LogViolation appends the six-column record of a completed turn.
func (l *Logger) LogViolation(ctx context.Context, rec *model.ViolationRecord, responseText, modelID string) bool {
	ws, err := l.worksheet(ctx)
	if err != nil {
		zap.L().Error("sheetlog: log violation", zap.Error(err))
		return false
	}
	if err := ws.AppendRow(ctx, ViolationRow(rec, responseText, modelID)); err != nil {
		zap.L().Error("sheetlog: log violation", zap.Error(eris.Wrap(err, "sheetlog: append row")))
		return false
	}
	return true
}

// LogError appends the nine-column error record. A nil or zero userID is
// logged as a system error.
func (l *Logger) LogError(ctx context.Context, message string, userID *int64) bool {
	ws, err := l.worksheet(ctx)
	if err != nil {
		zap.L().Error("sheetlog: log error", zap.Error(err))
		return false
	}
	if err := ws.AppendRow(ctx, ErrorRow(l.now(), message, userID)); err != nil {
		zap.L().Error("sheetlog: log error", zap.Error(eris.Wrap(err, "sheetlog: append row")))
		return false
	}
	return true
}

// TestConnection reads the header row to verify access.
func (l *Logger) TestConnection(ctx context.Context) bool {
	ws, err := l.worksheet(ctx)
	if err != nil {
		zap.L().Error("sheetlog: test connection", zap.Error(err))
		return false
	}
	if _, err := ws.RowValues(ctx, 1); err != nil {
		zap.L().Error("sheetlog: test connection", zap.Error(eris.Wrap(err, "sheetlog: read header row")))
		return false
	}
	return true
}

func (l *Logger) worksheet(ctx context.Context) (sheets.Worksheet, error) {
	client, err := l.connect(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "sheetlog: connect")
	}
	ss, err := client.Open(ctx, l.spreadsheetID)
	if err != nil {
		return nil, eris.Wrap(err, "sheetlog: open spreadsheet")
	}
	ws, err := ss.Worksheet(ctx, 0)
	if err != nil {
		return nil, eris.Wrap(err, "sheetlog: get worksheet")
	}
	return ws, nil
}

// ViolationRow builds [timestamp, user, original, response, fragments, model].
func ViolationRow(rec *model.ViolationRecord, responseText, modelID string) []string {
	slots := FormatFragments(rec.Fragments)
	var nonEmpty []string
	for _, s := range slots {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return []string{
		rec.CreatedAt().Format(timestampLayout),
		"",
		rec.OriginalText,
		responseText,
		strings.Join(nonEmpty, fragmentSep),
		modelID,
	}
}

// ErrorRow builds the error record: timestamp, source, six empty cells and
// the message.
func ErrorRow(ts time.Time, message string, userID *int64) []string {
	source := "Системная ошибка"
	if userID != nil && *userID != 0 {
		source = fmt.Sprintf("Ошибка пользователя %d", *userID)
	}
	return []string{ts.Format(timestampLayout), source, "", "", "", "", "", "", message}
}

// FormatFragments renders the first three fragments, padding with empty
// strings so exactly three slots are always returned.
func FormatFragments(frags []model.RetrievedFragment) [fragmentSlots]string {
	var out [fragmentSlots]string
	for i, f := range frags {
		if i >= fragmentSlots {
			break
		}
		out[i] = fmt.Sprintf("Чанк %d:\nДокумент: %s %s, п.%s\nТекст: %s",
			i+1, f.DocumentTitle, f.DocumentNumber, f.ClauseNumber, truncate(f.Text, maxFragmentRunes))
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
