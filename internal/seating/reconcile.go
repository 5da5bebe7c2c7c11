package seating

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ezhigval/wedding-bot/internal/model"
)

// ReconcileResult summarizes a full reconciliation.
type ReconcileResult struct {
	Skipped       bool              `json:"skipped"`
	HeaderChanged bool              `json:"header_changed"`
	StaleTables   []string          `json:"stale_tables"`
	Guests        GuestSyncResult   `json:"guests"`
	Seating       SeatingSyncResult `json:"seating"`
}

func (r ReconcileResult) writes() int {
	n := r.Guests.TablesWritten + r.Seating.Updated
	if r.HeaderChanged {
		n++
	}
	return n
}

// FullReconcile runs, in order, the header rebuild, the guest list -> chart
// projection and the chart -> guest list projection.  It is not
// transactional: a failure leaves earlier steps applied, and calling it
// again converges to the same result.
func (s *Service) FullReconcile(ctx context.Context) (ReconcileResult, error) {
	start := s.now()
	locked, err := s.isLocked(ctx, model.OpFullReconcile)
	if err != nil {
		s.finish(ctx, model.OpFullReconcile, start, 0, err)
		return ReconcileResult{}, err
	}
	if locked {
		s.skipped(ctx, model.OpFullReconcile, start)
		return ReconcileResult{Skipped: true}, nil
	}

	var res ReconcileResult
	err = s.reconcile(ctx, &res)
	s.finish(ctx, model.OpFullReconcile, start, res.writes(), err)
	if err != nil {
		return res, err
	}
	s.log.Info("full reconcile finished",
		zap.Bool("header_changed", res.HeaderChanged),
		zap.Int("tables_written", res.Guests.TablesWritten),
		zap.Int("guests_updated", res.Seating.Updated))
	if res.writes() > 0 {
		s.publish(ctx, model.SeatingEvent{Kind: "reconciled", Operation: model.OpFullReconcile, Changed: res.writes()})
	}
	return res, nil
}

func (s *Service) reconcile(ctx context.Context, res *ReconcileResult) error {
	header, err := s.rebuildHeader(ctx)
	res.HeaderChanged = header.Changed
	res.StaleTables = header.Stale
	if err != nil {
		return fmt.Errorf("rebuild header: %w", err)
	}
	res.Guests, err = s.syncFromGuests(ctx)
	if err != nil {
		return fmt.Errorf("sync from guests: %w", err)
	}
	res.Seating, err = s.syncFromSeating(ctx)
	if err != nil {
		return fmt.Errorf("sync from seating: %w", err)
	}
	return nil
}
