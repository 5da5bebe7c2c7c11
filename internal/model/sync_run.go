package model

import "time"

// Sync operations, used as journal and metric labels.
const (
    OpRebuildHeader = "rebuild_header"
    OpSyncGuests    = "sync_from_guests"
    OpSyncSeating   = "sync_from_seating"
    OpFullReconcile = "full_reconcile"
    OpLock          = "lock_seating"
)

// Sync outcomes.
const (
    OutcomeOK     = "ok"
    OutcomeLocked = "locked"
    OutcomeNoop   = "noop"
    OutcomeFailed = "failed"
)

// SyncRun is one journal entry in the `sync_runs` table.
//
// Fields:
//  ID         – sync_runs.id
//  Operation  – one of the Op* constants.
//  Trigger    – "admin", "webhook", "queue" or "startup".
//  Outcome    – one of the Outcome* constants.
//  Changed    – number of cells/columns written.
//  Detail     – error text or a short summary.
//  StartedAt  – when the run began.
//  FinishedAt – when the run ended.
type SyncRun struct {
    ID         uint64    `json:"id"`
    Operation  string    `json:"operation"`
    Trigger    string    `json:"trigger"`
    Outcome    string    `json:"outcome"`
    Changed    int       `json:"changed"`
    Detail     string    `json:"detail,omitempty"`
    StartedAt  time.Time `json:"started_at"`
    FinishedAt time.Time `json:"finished_at"`
}

// SeatingEvent is broadcast after a reconciliation that wrote data or after
// seating was locked, so the notification side can inform admins.
type SeatingEvent struct {
    Kind       string `json:"kind"` // "reconciled" | "locked"
    Operation  string `json:"operation"`
    Changed    int    `json:"changed"`
    Actor      string `json:"actor,omitempty"`
    OccurredAt string `json:"occurred_at"`
}
