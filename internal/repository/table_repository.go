package repository

import (
	"context"
	"fmt"

	"github.com/ezhigval/wedding-bot/internal/model"
	"github.com/ezhigval/wedding-bot/internal/sheets"
)

// TableRepo reads the authoritative list of table names: the data-validation
// rule attached to the guest list's table-selector column.
type TableRepo struct {
	client sheets.Client
	sheet  string
	cell   sheets.Cell
}

// NewTableRepo binds a TableRepo to the validated cell (usually G2 of the
// guest list).
func NewTableRepo(client sheets.Client, sheet string, cell sheets.Cell) *TableRepo {
	return &TableRepo{client: client, sheet: sheet, cell: cell}
}

// ValidTables returns table names in rule order: trimmed, blanks dropped,
// duplicates (by normalized name) removed keeping the first occurrence.
// Configuration problems surface as sheets.ErrSheetNotFound or
// sheets.ErrNoValidation so callers can treat them as neutral.
func (r *TableRepo) ValidTables(ctx context.Context) ([]string, error) {
	raw, err := r.client.GetDataValidationList(ctx, r.sheet, r.cell)
	if err != nil {
		return nil, fmt.Errorf("read table validation %s!%s: %w", r.sheet, r.cell.A1(), err)
	}
	return DedupeNames(raw), nil
}

// DedupeNames cleans names and removes normalized duplicates, keeping order.
func DedupeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = model.CleanName(n)
		key := model.NormalizeName(n)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}
