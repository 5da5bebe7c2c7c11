package seating

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/ezhigval/wedding-bot/internal/model"
	"github.com/ezhigval/wedding-bot/internal/sheets"
)

type headerResult struct {
	Changed bool
	Stale   []string
	Cleared int
}

// RebuildHeader makes the chart header equal the table validation list, in
// list order.  Guests travel with their table's column; columns of tables
// no longer in the list are dropped and guest rows pointing at them are
// cleared.  A missing or empty list never destroys data: it is logged and
// reported as no change.
func (s *Service) RebuildHeader(ctx context.Context) (bool, error) {
	start := s.now()
	locked, err := s.isLocked(ctx, model.OpRebuildHeader)
	if err != nil {
		s.finish(ctx, model.OpRebuildHeader, start, 0, err)
		return false, err
	}
	if locked {
		s.skipped(ctx, model.OpRebuildHeader, start)
		return false, nil
	}
	res, err := s.rebuildHeader(ctx)
	s.finish(ctx, model.OpRebuildHeader, start, headerWrites(res), err)
	if err != nil {
		return false, err
	}
	return res.Changed, nil
}

func headerWrites(res headerResult) int {
	n := res.Cleared
	if res.Changed {
		n++
	}
	return n
}

func (s *Service) rebuildHeader(ctx context.Context) (headerResult, error) {
	valid, err := s.tables.ValidTables(ctx)
	if err != nil {
		if sheets.IsConfigError(err) {
			s.log.Warn("table validation list unavailable, header left untouched", zap.Error(err))
			return headerResult{}, nil
		}
		return headerResult{}, err
	}
	if len(valid) == 0 {
		s.log.Warn("table validation list is empty, header left untouched")
		return headerResult{}, nil
	}

	chart, err := s.chart.Load(ctx)
	if err != nil {
		if errors.Is(err, sheets.ErrSheetNotFound) {
			s.log.Warn("seating chart sheet missing", zap.String("sheet", s.chart.Sheet()))
			return headerResult{}, nil
		}
		return headerResult{}, err
	}

	grid, stale := planHeader(valid, chart)
	if gridEqual(grid, currentGrid(chart, len(grid[0]), len(grid)-1)) {
		return headerResult{}, nil
	}

	// Guest rows are cleared before the chart loses the stale columns: if
	// the chart write then fails, a retry still sees them and converges.
	res := headerResult{Stale: stale}
	if len(stale) > 0 {
		keys := make(map[string]bool, len(stale))
		for _, name := range stale {
			keys[model.NormalizeName(name)] = true
		}
		cleared, err := s.guests.ClearTables(ctx, keys)
		res.Cleared = cleared
		if err != nil {
			return res, fmt.Errorf("clear stale assignments: %w", err)
		}
		if cleared > 0 {
			s.log.Info("cleared assignments to removed tables", zap.Int("guests", cleared))
		}
	}

	if err := s.chart.WriteBlock(ctx, grid); err != nil {
		return res, err
	}
	res.Changed = true
	s.log.Info("seating header rebuilt",
		zap.Strings("tables", valid),
		zap.Strings("removed", stale))
	return res, nil
}

// planHeader computes the new chart block (header row first) anchored at
// B1 and the names of stale header columns.  The block is padded to the
// current chart size so vacated cells are blanked by the same write.
func planHeader(valid []string, chart model.SeatingChart) ([][]string, []string) {
	index := make(map[string]int, len(valid))
	for i, name := range valid {
		index[model.NormalizeName(name)] = i
	}
	contents := make([][]string, len(valid))
	seen := make([]map[string]bool, len(valid))
	for i := range seen {
		seen[i] = make(map[string]bool)
	}

	var stale []string
	staleSeen := make(map[string]bool)
	for _, col := range chart.Columns {
		key := model.NormalizeName(col.Name)
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			if !staleSeen[key] {
				staleSeen[key] = true
				stale = append(stale, col.Name)
			}
			continue
		}
		// duplicate columns of one table merge, left column first
		for _, g := range col.Guests {
			gk := model.NormalizeName(g)
			if seen[i][gk] {
				continue
			}
			seen[i][gk] = true
			contents[i] = append(contents[i], g)
		}
	}

	width := max(len(valid), chart.Width)
	height := chart.Height
	for _, c := range contents {
		height = max(height, len(c))
	}
	grid := make([][]string, height+1)
	for r := range grid {
		grid[r] = make([]string, width)
	}
	copy(grid[0], valid)
	for c, names := range contents {
		for r, name := range names {
			grid[r+1][c] = name
		}
	}
	return grid, stale
}

// currentGrid renders the chart as a block of the given size anchored at B1.
func currentGrid(chart model.SeatingChart, width, height int) [][]string {
	grid := make([][]string, height+1)
	for r := range grid {
		grid[r] = make([]string, width)
	}
	for c, col := range chart.Columns {
		if c >= width {
			break
		}
		grid[0][c] = col.Name
		for r, v := range col.Cells {
			if r >= height {
				break
			}
			grid[r+1][c] = v
		}
	}
	return grid
}

func gridEqual(a, b [][]string) bool {
	return slices.EqualFunc(a, b, func(x, y []string) bool { return slices.Equal(x, y) })
}
