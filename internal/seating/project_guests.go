package seating

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/ezhigval/wedding-bot/internal/model"
	"github.com/ezhigval/wedding-bot/internal/sheets"
)

// GuestSyncResult summarizes a guest list -> chart projection.
type GuestSyncResult struct {
	Skipped       bool `json:"skipped"`        // lock was set
	TablesWritten int  `json:"tables_written"` // columns rewritten
	GuestsPlaced  int  `json:"guests_placed"`  // names present on the chart afterwards
	Unplaced      int  `json:"unplaced"`       // guests whose table has no column
}

// SyncFromGuests rewrites every table column of the chart so it lists
// exactly the guests assigned to that table, in guest-list order.  The
// chart afterwards is a pure function of the guest list; columns already
// matching are not written.
func (s *Service) SyncFromGuests(ctx context.Context) (GuestSyncResult, error) {
	start := s.now()
	locked, err := s.isLocked(ctx, model.OpSyncGuests)
	if err != nil {
		s.finish(ctx, model.OpSyncGuests, start, 0, err)
		return GuestSyncResult{}, err
	}
	if locked {
		s.skipped(ctx, model.OpSyncGuests, start)
		return GuestSyncResult{Skipped: true}, nil
	}
	res, err := s.syncFromGuests(ctx)
	s.finish(ctx, model.OpSyncGuests, start, res.TablesWritten, err)
	return res, err
}

func (s *Service) syncFromGuests(ctx context.Context) (GuestSyncResult, error) {
	guests, err := s.guests.List(ctx)
	if err != nil {
		return GuestSyncResult{}, err
	}
	chart, err := s.chart.Load(ctx)
	if err != nil {
		return GuestSyncResult{}, err
	}
	valid, err := s.validSet(ctx)
	if err != nil {
		return GuestSyncResult{}, err
	}

	// group by table, keeping guest-list order and one entry per name
	groups := make(map[string][]string)
	seen := make(map[string]map[string]bool)
	for _, g := range guests {
		if !g.HasTable() {
			continue
		}
		tk := model.NormalizeName(g.Table)
		if seen[tk] == nil {
			seen[tk] = make(map[string]bool)
		}
		if seen[tk][g.Key()] {
			continue
		}
		seen[tk][g.Key()] = true
		groups[tk] = append(groups[tk], g.Name)
	}

	var res GuestSyncResult
	claimed := make(map[string]bool)
	for _, col := range chart.Columns {
		tk := model.NormalizeName(col.Name)
		if tk == "" {
			continue
		}
		if valid != nil && !valid[tk] {
			s.log.Debug("column is not a valid table, left for header rebuild", zap.String("table", col.Name))
			continue
		}
		var names []string
		// a table listed twice gets its guests in the leftmost column only
		if !claimed[tk] {
			claimed[tk] = true
			names = groups[tk]
		}
		cells := compact(names, len(col.Cells))
		if slices.Equal(cells, pad(col.Cells, len(cells))) {
			res.GuestsPlaced += len(names)
			continue
		}
		if err := s.chart.WriteColumn(ctx, col.Col, cells); err != nil {
			return res, err
		}
		res.TablesWritten++
		res.GuestsPlaced += len(names)
	}
	for tk, names := range groups {
		if !claimed[tk] {
			res.Unplaced += len(names)
		}
	}
	if res.Unplaced > 0 {
		s.log.Debug("guests assigned to tables without a chart column", zap.Int("guests", res.Unplaced))
	}
	if res.TablesWritten > 0 {
		s.log.Info("seating chart updated from guest list",
			zap.Int("tables_written", res.TablesWritten),
			zap.Int("guests_placed", res.GuestsPlaced))
	}
	return res, nil
}

// validSet returns the normalized valid table names, or nil when the list
// is missing or empty (every header column is then accepted).  Only I/O
// errors are returned.
func (s *Service) validSet(ctx context.Context) (map[string]bool, error) {
	valid, err := s.tables.ValidTables(ctx)
	if err != nil {
		if sheets.IsConfigError(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(valid) == 0 {
		return nil, nil
	}
	set := make(map[string]bool, len(valid))
	for _, v := range valid {
		set[model.NormalizeName(v)] = true
	}
	return set, nil
}

// compact lays names out top-down and pads with blanks to at least minLen.
func compact(names []string, minLen int) []string {
	out := make([]string, max(len(names), minLen))
	copy(out, names)
	return out
}

func pad(cells []string, n int) []string {
	if len(cells) >= n {
		return cells
	}
	out := make([]string, n)
	copy(out, cells)
	return out
}
