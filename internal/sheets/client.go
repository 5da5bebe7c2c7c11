// Package sheets is the spreadsheet access layer. It exposes a small set of
// row/column primitives over named tabs; callers never see the transport.
// All coordinates are 1-based and row 1 is the header row.
package sheets

import (
	"context"
	"errors"
)

// ErrSheetNotFound is returned when the named tab does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// ErrNoValidation is returned when the requested cell carries no list-type
// data-validation rule.
var ErrNoValidation = errors.New("no data validation rule")

// Client is the read/write capability the rest of the service consumes.
// Implementations hold no domain state.
type Client interface {
	// GetAllRows returns a full snapshot of the sheet. Rows may be ragged;
	// a shorter row implies trailing empty cells.
	GetAllRows(ctx context.Context, sheet string) ([][]string, error)
	// GetColumn returns the values of one column, top to bottom.
	GetColumn(ctx context.Context, sheet string, col int) ([]string, error)
	// UpdateCell writes a single value.
	UpdateCell(ctx context.Context, sheet string, row, col int, value string) error
	// UpdateRange writes a block of values anchored at topLeft in one call.
	UpdateRange(ctx context.Context, sheet string, topLeft Cell, rows [][]string) error
	// AppendRow adds a row after the last non-empty row.
	AppendRow(ctx context.Context, sheet string, row []string) error
	// GetDataValidationList returns the allowed values of a list rule.
	GetDataValidationList(ctx context.Context, sheet string, cell Cell) ([]string, error)
}

// IsConfigError reports whether err stems from spreadsheet configuration
// (missing tab, missing rule) rather than from I/O.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrSheetNotFound) || errors.Is(err, ErrNoValidation)
}

// CellAt returns the trimmed value at 1-based (row, col) of a snapshot,
// or "" when the snapshot is shorter.
func CellAt(rows [][]string, row, col int) string {
	if row < 1 || row > len(rows) {
		return ""
	}
	r := rows[row-1]
	if col < 1 || col > len(r) {
		return ""
	}
	return r[col-1]
}
