package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/ezhigval/wedding-bot/internal/model"
	"github.com/ezhigval/wedding-bot/internal/sheets"
)

// GuestRepo reads and updates the guest-list sheet.  Every call works on a
// fresh snapshot; row numbers returned in model.Guest are only valid until
// the next write by someone else.
type GuestRepo struct {
	client sheets.Client
	sheet  string
}

// NewGuestRepo binds a GuestRepo to the named guest-list tab.
func NewGuestRepo(client sheets.Client, sheet string) *GuestRepo {
	return &GuestRepo{client: client, sheet: sheet}
}

// Sheet returns the tab name this repository works on.
func (r *GuestRepo) Sheet() string { return r.sheet }

// List returns every guest row (row 2 onwards) in sheet order.  Rows with
// an empty name are skipped.
func (r *GuestRepo) List(ctx context.Context) ([]model.Guest, error) {
	rows, err := r.client.GetAllRows(ctx, r.sheet)
	if err != nil {
		return nil, fmt.Errorf("read guest list: %w", err)
	}
	guests := make([]model.Guest, 0, len(rows))
	for i := 1; i < len(rows); i++ {
		g := parseGuest(i+1, rows)
		if g.Name == "" {
			continue
		}
		guests = append(guests, g)
	}
	return guests, nil
}

// FindByName returns the first guest whose name matches (case- and
// whitespace-insensitive).
func (r *GuestRepo) FindByName(ctx context.Context, name string) (model.Guest, error) {
	guests, err := r.List(ctx)
	if err != nil {
		return model.Guest{}, err
	}
	key := model.NormalizeName(name)
	for _, g := range guests {
		if g.Key() == key {
			return g, nil
		}
	}
	return model.Guest{}, ErrGuestNotFound
}

// SetTable writes a table name (or "" to unassign) into a guest row.
func (r *GuestRepo) SetTable(ctx context.Context, row int, table string) error {
	if row < 2 {
		return fmt.Errorf("set table: invalid guest row %d", row)
	}
	if err := r.client.UpdateCell(ctx, r.sheet, row, ColGuestTable, table); err != nil {
		return fmt.Errorf("set table row %d: %w", row, err)
	}
	return nil
}

// ClearTables blanks the table cell of every guest assigned to one of the
// given tables.  Keys of stale are normalized table names.  It returns the
// number of rows cleared.
func (r *GuestRepo) ClearTables(ctx context.Context, stale map[string]bool) (int, error) {
	if len(stale) == 0 {
		return 0, nil
	}
	guests, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	cleared := 0
	for _, g := range guests {
		if !g.HasTable() || !stale[model.NormalizeName(g.Table)] {
			continue
		}
		if err := r.SetTable(ctx, g.Row, ""); err != nil {
			return cleared, err
		}
		cleared++
	}
	return cleared, nil
}

// parseGuest maps a positional row into a named record.
func parseGuest(row int, rows [][]string) model.Guest {
	cell := func(col int) string { return strings.TrimSpace(sheets.CellAt(rows, row, col)) }
	return model.Guest{
		Row:       row,
		Name:      model.CleanName(cell(ColGuestName)),
		Age:       cell(ColGuestAge),
		Confirmed: isYes(cell(ColGuestConfirmed)),
		Category:  cell(ColGuestCategory),
		Side:      cell(ColGuestSide),
		AccountID: cell(ColGuestAccount),
		Table:     model.CleanName(cell(ColGuestTable)),
	}
}

func isYes(v string) bool {
	switch model.NormalizeName(v) {
	case "да", "yes", "true", "1":
		return true
	}
	return false
}
