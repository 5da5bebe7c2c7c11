package seating

import (
	"context"

	"go.uber.org/zap"

	"github.com/ezhigval/wedding-bot/internal/model"
)

// SeatingSyncResult summarizes a chart -> guest list projection.
type SeatingSyncResult struct {
	Skipped   bool     `json:"skipped"`   // lock was set
	Updated   int      `json:"updated"`   // guest rows whose table changed
	Unmatched []string `json:"unmatched"` // chart names without a guest row
	Conflicts []string `json:"conflicts"` // names found under several tables
}

// SyncFromSeating writes each chart placement back into the guest list.
// Columns are scanned left to right, so a name listed under several tables
// ends up at the rightmost one.  Names without a guest row are skipped; the
// chart never creates guests.  Guests missing from the chart keep their
// current assignment.
func (s *Service) SyncFromSeating(ctx context.Context) (SeatingSyncResult, error) {
	start := s.now()
	locked, err := s.isLocked(ctx, model.OpSyncSeating)
	if err != nil {
		s.finish(ctx, model.OpSyncSeating, start, 0, err)
		return SeatingSyncResult{}, err
	}
	if locked {
		s.skipped(ctx, model.OpSyncSeating, start)
		return SeatingSyncResult{Skipped: true}, nil
	}
	res, err := s.syncFromSeating(ctx)
	s.finish(ctx, model.OpSyncSeating, start, res.Updated, err)
	return res, err
}

type placement struct {
	name  string
	table string
}

func (s *Service) syncFromSeating(ctx context.Context) (SeatingSyncResult, error) {
	res := SeatingSyncResult{Unmatched: []string{}, Conflicts: []string{}}
	chart, err := s.chart.Load(ctx)
	if err != nil {
		return res, err
	}
	valid, err := s.validSet(ctx)
	if err != nil {
		return res, err
	}

	var order []string
	placed := make(map[string]placement)
	conflicted := make(map[string]bool)
	for _, col := range chart.Columns {
		tk := model.NormalizeName(col.Name)
		if tk == "" {
			continue
		}
		if valid != nil && !valid[tk] {
			s.log.Warn("chart column is not a valid table, ignored", zap.String("table", col.Name))
			continue
		}
		for _, name := range col.Guests {
			key := model.NormalizeName(name)
			prev, ok := placed[key]
			if !ok {
				order = append(order, key)
			} else if !model.SameName(prev.table, col.Name) && !conflicted[key] {
				conflicted[key] = true
				res.Conflicts = append(res.Conflicts, name)
			}
			placed[key] = placement{name: name, table: col.Name}
		}
	}
	if len(res.Conflicts) > 0 {
		s.log.Warn("guests listed under several tables, rightmost column wins",
			zap.Strings("guests", res.Conflicts))
	}
	if len(order) == 0 {
		return res, nil
	}

	guests, err := s.guests.List(ctx)
	if err != nil {
		return res, err
	}
	byKey := make(map[string]model.Guest, len(guests))
	for _, g := range guests {
		if _, dup := byKey[g.Key()]; dup {
			s.log.Warn("duplicate guest name, first row is used",
				zap.String("guest", g.Name), zap.Int("row", g.Row))
			continue
		}
		byKey[g.Key()] = g
	}

	for _, key := range order {
		p := placed[key]
		g, ok := byKey[key]
		if !ok {
			res.Unmatched = append(res.Unmatched, p.name)
			continue
		}
		if g.Table == p.table {
			continue
		}
		if err := s.guests.SetTable(ctx, g.Row, p.table); err != nil {
			return res, err
		}
		res.Updated++
	}
	if len(res.Unmatched) > 0 {
		s.log.Warn("chart names not found in guest list, skipped",
			zap.Strings("names", res.Unmatched))
	}
	if res.Updated > 0 {
		s.log.Info("guest list updated from seating chart", zap.Int("updated", res.Updated))
	}
	return res, nil
}
