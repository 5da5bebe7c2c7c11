package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ezhigval/wedding-bot/internal/model"
	"github.com/ezhigval/wedding-bot/internal/sheets"
)

// LockStore persists the finalized-seating flag outside process memory so
// it survives restarts.  Locking is one-way.
type LockStore interface {
	State(ctx context.Context) (model.LockState, error)
	Lock(ctx context.Context, by string) (model.LockState, error)
}

// lockKey is the settings-row key used by SheetLockStore.
const lockKey = "seating_locked"

// SheetLockStore keeps the lock as a key/value row on a settings tab:
//
//	A: seating_locked | B: TRUE | C: RFC3339 timestamp | D: locked by
type SheetLockStore struct {
	client sheets.Client
	sheet  string
	now    func() time.Time
}

// NewSheetLockStore binds the store to a settings tab.
func NewSheetLockStore(client sheets.Client, sheet string) *SheetLockStore {
	return &SheetLockStore{client: client, sheet: sheet, now: time.Now}
}

// State reads the lock row.  A missing settings tab reads as unlocked.
func (s *SheetLockStore) State(ctx context.Context) (model.LockState, error) {
	rows, err := s.client.GetAllRows(ctx, s.sheet)
	if errors.Is(err, sheets.ErrSheetNotFound) {
		return model.LockState{}, nil
	}
	if err != nil {
		return model.LockState{}, fmt.Errorf("read lock: %w", err)
	}
	row := findKeyRow(rows)
	if row == 0 {
		return model.LockState{}, nil
	}
	st := model.LockState{Locked: isYes(sheets.CellAt(rows, row, 2))}
	if !st.Locked {
		return st, nil
	}
	if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(sheets.CellAt(rows, row, 3))); err == nil {
		st.LockedAt = &ts
	}
	st.LockedBy = strings.TrimSpace(sheets.CellAt(rows, row, 4))
	return st, nil
}

// Lock writes the lock row, overwriting the metadata when already locked.
func (s *SheetLockStore) Lock(ctx context.Context, by string) (model.LockState, error) {
	rows, err := s.client.GetAllRows(ctx, s.sheet)
	if err != nil {
		return model.LockState{}, fmt.Errorf("read lock: %w", err)
	}
	at := s.now().UTC().Truncate(time.Second)
	line := []string{lockKey, "TRUE", at.Format(time.RFC3339), by}
	if row := findKeyRow(rows); row > 0 {
		err = s.client.UpdateRange(ctx, s.sheet, sheets.Cell{Row: row, Col: 1}, [][]string{line})
	} else {
		err = s.client.AppendRow(ctx, s.sheet, line)
	}
	if err != nil {
		return model.LockState{}, fmt.Errorf("write lock: %w", err)
	}
	return model.LockState{Locked: true, LockedAt: &at, LockedBy: by}, nil
}

func findKeyRow(rows [][]string) int {
	for i := range rows {
		if strings.EqualFold(strings.TrimSpace(sheets.CellAt(rows, i+1, 1)), lockKey) {
			return i + 1
		}
	}
	return 0
}

// RedisLockStore keeps the lock as a JSON document under a single key.
type RedisLockStore struct {
	rdb *redis.Client
	key string
	now func() time.Time
}

// NewRedisLockStore returns a store using key (default "seating:lock").
func NewRedisLockStore(rdb *redis.Client, key string) *RedisLockStore {
	if key == "" {
		key = "seating:lock"
	}
	return &RedisLockStore{rdb: rdb, key: key, now: time.Now}
}

func (s *RedisLockStore) State(ctx context.Context) (model.LockState, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.LockState{}, nil
	}
	if err != nil {
		return model.LockState{}, fmt.Errorf("read lock: %w", err)
	}
	var st model.LockState
	if err := json.Unmarshal(raw, &st); err != nil {
		return model.LockState{}, fmt.Errorf("decode lock: %w", err)
	}
	return st, nil
}

func (s *RedisLockStore) Lock(ctx context.Context, by string) (model.LockState, error) {
	at := s.now().UTC().Truncate(time.Second)
	st := model.LockState{Locked: true, LockedAt: &at, LockedBy: by}
	raw, err := json.Marshal(st)
	if err != nil {
		return model.LockState{}, err
	}
	// no expiry: the lock is permanent
	if err := s.rdb.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return model.LockState{}, fmt.Errorf("write lock: %w", err)
	}
	return st, nil
}
