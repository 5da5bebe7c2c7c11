package seating

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ezhigval/wedding-bot/internal/model"
)

// Action is what HandleEdit decided to do with a notification.
type Action string

const (
	ActionNone        Action = "none"
	ActionLocked      Action = "locked"
	ActionSyncGuests  Action = "sync_guests"
	ActionSyncSeating Action = "sync_seating"
)

// Dispatcher routes edit notifications to the matching projection.
//
//	locked                          -> nothing
//	guest list, table column edited -> SyncFromGuests
//	guest list, other columns       -> nothing
//	seating chart, any cell         -> SyncFromSeating
//	any other sheet                 -> nothing
type Dispatcher struct {
	svc      *Service
	tableCol int
}

// NewDispatcher returns a dispatcher watching tableCol of the guest list.
func NewDispatcher(svc *Service, tableCol int) *Dispatcher {
	return &Dispatcher{svc: svc, tableCol: tableCol}
}

// Route classifies a notification without touching any sheet.
func (d *Dispatcher) Route(n model.EditNotification) Action {
	switch {
	case sameSheet(n.SheetName, d.svc.GuestSheet()):
		if n.CoversColumn(d.tableCol) {
			return ActionSyncGuests
		}
		return ActionNone
	case sameSheet(n.SheetName, d.svc.ChartSheet()):
		return ActionSyncSeating
	default:
		return ActionNone
	}
}

// HandleEdit applies the dispatch rules.  Irrelevant edits are dropped
// before the lock is read so they cost no API calls.
func (d *Dispatcher) HandleEdit(ctx context.Context, n model.EditNotification) (Action, error) {
	action := d.Route(n)
	if action == ActionNone {
		return ActionNone, nil
	}
	st, err := d.svc.LockStatus(ctx)
	if err != nil {
		return ActionNone, err
	}
	if st.Locked {
		d.svc.log.Info("edit ignored, seating is locked",
			zap.String("sheet", n.SheetName), zap.Int("col_start", n.ColStart))
		return ActionLocked, nil
	}

	switch action {
	case ActionSyncGuests:
		res, err := d.svc.SyncFromGuests(ctx)
		if res.Skipped {
			return ActionLocked, err
		}
		return action, err
	case ActionSyncSeating:
		res, err := d.svc.SyncFromSeating(ctx)
		if res.Skipped {
			return ActionLocked, err
		}
		return action, err
	}
	return ActionNone, nil
}

func sameSheet(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
