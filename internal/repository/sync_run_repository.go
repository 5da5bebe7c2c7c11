package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ezhigval/wedding-bot/internal/model"
)

// SyncRunRepo persists the reconciliation journal in the `sync_runs` table.
type SyncRunRepo struct {
	db *sql.DB
}

// NewSyncRunRepo constructs a SyncRunRepo with the given DB handle.
func NewSyncRunRepo(db *sql.DB) *SyncRunRepo {
	return &SyncRunRepo{db: db}
}

// Record inserts a journal entry and fills in its ID.
func (r *SyncRunRepo) Record(ctx context.Context, run *model.SyncRun) error {
	const q = `INSERT INTO sync_runs (operation, trigger_source, outcome, changed, detail, started_at, finished_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		run.Operation, run.Trigger, run.Outcome, run.Changed, run.Detail,
		run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	run.ID = uint64(id)
	return nil
}

// ListRecent returns up to limit entries, newest first.
func (r *SyncRunRepo) ListRecent(ctx context.Context, limit int) ([]model.SyncRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	const q = `SELECT id, operation, trigger_source, outcome, changed, detail, started_at, finished_at
	           FROM sync_runs
	           ORDER BY id DESC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	runs := []model.SyncRun{}
	for rows.Next() {
		var (
			run    model.SyncRun
			detail sql.NullString
			start  time.Time
			finish time.Time
		)
		if err := rows.Scan(&run.ID, &run.Operation, &run.Trigger, &run.Outcome, &run.Changed, &detail, &start, &finish); err != nil {
			return nil, err
		}
		run.Detail = detail.String
		run.StartedAt = start
		run.FinishedAt = finish
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
