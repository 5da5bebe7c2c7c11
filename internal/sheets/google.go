package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// GoogleClient implements Client on top of the Google Sheets v4 API. It is
// bound to a single spreadsheet.
type GoogleClient struct {
	svc           *gsheets.Service
	spreadsheetID string
}

// NewGoogleClient builds a client authenticated with a service-account
// credentials file. The spreadsheet must be shared with that account.
func NewGoogleClient(ctx context.Context, spreadsheetID, credentialsFile string) (*GoogleClient, error) {
	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &GoogleClient{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (g *GoogleClient) GetAllRows(ctx context.Context, sheet string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, rangeRef(sheet, "")).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	return toStrings(resp.Values), nil
}

func (g *GoogleClient) GetColumn(ctx context.Context, sheet string, col int) ([]string, error) {
	letter := ColumnLetter(col)
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, rangeRef(sheet, letter+":"+letter)).
		MajorDimension("COLUMNS").
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	cols := toStrings(resp.Values)
	if len(cols) == 0 {
		return []string{}, nil
	}
	return cols[0], nil
}

func (g *GoogleClient) UpdateCell(ctx context.Context, sheet string, row, col int, value string) error {
	cell := Cell{Row: row, Col: col}
	vr := &gsheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rangeRef(sheet, cell.A1()), vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	return mapError(err)
}

func (g *GoogleClient) UpdateRange(ctx context.Context, sheet string, topLeft Cell, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	if width == 0 {
		return nil
	}
	bottomRight := Cell{Row: topLeft.Row + len(rows) - 1, Col: topLeft.Col + width - 1}
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		line := make([]interface{}, width)
		for j := range line {
			line[j] = ""
			if j < len(r) {
				line[j] = r[j]
			}
		}
		values[i] = line
	}
	a1 := topLeft.A1() + ":" + bottomRight.A1()
	vr := &gsheets.ValueRange{Range: rangeRef(sheet, a1), MajorDimension: "ROWS", Values: values}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rangeRef(sheet, a1), vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	return mapError(err)
}

func (g *GoogleClient) AppendRow(ctx context.Context, sheet string, row []string) error {
	line := make([]interface{}, len(row))
	for i, v := range row {
		line[i] = v
	}
	vr := &gsheets.ValueRange{Values: [][]interface{}{line}}
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, rangeRef(sheet, "A1"), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	return mapError(err)
}

// GetDataValidationList reads the rule attached to cell. ONE_OF_LIST rules
// yield their values; a single delimited value ("Стол 1, Стол 2") is split.
// ONE_OF_RANGE rules are resolved by reading the referenced range.
func (g *GoogleClient) GetDataValidationList(ctx context.Context, sheet string, cell Cell) ([]string, error) {
	ss, err := g.svc.Spreadsheets.Get(g.spreadsheetID).
		Ranges(rangeRef(sheet, cell.A1())).
		IncludeGridData(true).
		Fields("sheets(data(rowData(values(dataValidation))))").
		Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	rule := firstRule(ss)
	if rule == nil || rule.Condition == nil {
		return nil, ErrNoValidation
	}
	var raw []string
	for _, v := range rule.Condition.Values {
		if v != nil {
			raw = append(raw, v.UserEnteredValue)
		}
	}
	switch rule.Condition.Type {
	case "ONE_OF_LIST":
		if len(raw) == 1 {
			return SplitList(raw[0]), nil
		}
		return raw, nil
	case "ONE_OF_RANGE":
		if len(raw) == 0 {
			return nil, ErrNoValidation
		}
		return g.readRangeValues(ctx, strings.TrimPrefix(raw[0], "="))
	default:
		return nil, ErrNoValidation
	}
}

func (g *GoogleClient) readRangeValues(ctx context.Context, ref string) ([]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, ref).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	var out []string
	for _, row := range toStrings(resp.Values) {
		for _, v := range row {
			if strings.TrimSpace(v) != "" {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

func firstRule(ss *gsheets.Spreadsheet) *gsheets.DataValidationRule {
	if ss == nil {
		return nil
	}
	for _, sh := range ss.Sheets {
		for _, gd := range sh.Data {
			for _, rd := range gd.RowData {
				for _, cd := range rd.Values {
					if cd != nil && cd.DataValidation != nil {
						return cd.DataValidation
					}
				}
			}
		}
	}
	return nil
}

// SplitList splits a delimited validation value on commas or semicolons.
func SplitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toStrings(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		line := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				line[j] = fmt.Sprint(v)
			}
		}
		out[i] = line
	}
	return out
}

// mapError translates "unknown tab" responses into ErrSheetNotFound and
// passes everything else through.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest &&
		strings.Contains(gerr.Message, "Unable to parse range") {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, gerr.Message)
	}
	return err
}
