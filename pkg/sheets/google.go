package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Scopes requested for the service account.
var Scopes = []string{
	gsheets.SpreadsheetsScope,
	"https://www.googleapis.com/auth/drive",
}

type googleClient struct {
	svc *gsheets.Service
}

// NewGoogleClient authorizes a Sheets API client from a service-account
// credentials file. Extra options are appended after the credentials.
func NewGoogleClient(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (Client, error) {
	all := append([]option.ClientOption{
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(Scopes...),
	}, opts...)
	return newGoogleClient(ctx, all...)
}

func newGoogleClient(ctx context.Context, opts ...option.ClientOption) (Client, error) {
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: create service")
	}
	return &googleClient{svc: svc}, nil
}

func (c *googleClient) Open(ctx context.Context, spreadsheetID string) (Spreadsheet, error) {
	ss, err := c.svc.Spreadsheets.Get(spreadsheetID).
		Fields("spreadsheetId", "sheets.properties").
		Context(ctx).Do()
	if err != nil {
		return nil, eris.Wrapf(err, "sheets: open %s", spreadsheetID)
	}
	return &googleSpreadsheet{svc: c.svc, ss: ss}, nil
}

type googleSpreadsheet struct {
	svc *gsheets.Service
	ss  *gsheets.Spreadsheet
}

func (s *googleSpreadsheet) Worksheet(_ context.Context, index int) (Worksheet, error) {
	if index < 0 || index >= len(s.ss.Sheets) {
		return nil, eris.Errorf("sheets: worksheet index %d out of range (spreadsheet has %d sheets)", index, len(s.ss.Sheets))
	}
	props := s.ss.Sheets[index].Properties
	if props == nil {
		return nil, eris.Errorf("sheets: worksheet %d has no properties", index)
	}
	return &googleWorksheet{
		svc:           s.svc,
		spreadsheetID: s.ss.SpreadsheetId,
		title:         props.Title,
	}, nil
}

type googleWorksheet struct {
	svc           *gsheets.Service
	spreadsheetID string
	title         string
}

func (w *googleWorksheet) AppendRow(ctx context.Context, values []string) error {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	_, err := w.svc.Spreadsheets.Values.Append(w.spreadsheetID, w.a1("A1"), &gsheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return eris.Wrapf(err, "sheets: append row to %q", w.title)
}

func (w *googleWorksheet) RowValues(ctx context.Context, row int) ([]string, error) {
	if row < 1 {
		return nil, eris.Errorf("sheets: invalid row %d", row)
	}
	resp, err := w.svc.Spreadsheets.Values.Get(w.spreadsheetID, w.a1(fmt.Sprintf("%d:%d", row, row))).
		Context(ctx).Do()
	if err != nil {
		return nil, eris.Wrapf(err, "sheets: read row %d of %q", row, w.title)
	}
	if len(resp.Values) == 0 {
		return []string{}, nil
	}
	out := make([]string, len(resp.Values[0]))
	for i, v := range resp.Values[0] {
		out[i] = fmt.Sprint(v)
	}
	return out, nil
}

// a1 builds an A1 range qualified with the quoted sheet title. Quotes inside
// the title are doubled.
func (w *googleWorksheet) a1(rng string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(w.title, "'", "''"), rng)
}
