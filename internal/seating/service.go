// Package seating keeps the guest list and the seating chart consistent.
//
// The guest list holds one row per guest with an assigned table; the chart
// holds one column per table with guest names beneath it.  Both views are
// projections of the same assignments.  Every operation starts from a fresh
// full read and rewrites whole columns, so repeating an operation with
// unchanged input writes nothing new and concurrent runs converge instead of
// corrupting each other.  There is no in-process mutual exclusion.
package seating

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ezhigval/wedding-bot/internal/metrics"
	"github.com/ezhigval/wedding-bot/internal/model"
	"github.com/ezhigval/wedding-bot/internal/repository"
)

// Journal stores a record of every sync run.
type Journal interface {
	Record(ctx context.Context, run *model.SyncRun) error
}

// EventPublisher broadcasts seating events to interested parties.
type EventPublisher interface {
	PublishSeatingEvent(ctx context.Context, ev model.SeatingEvent) error
}

// Service runs the header rebuild, both projections, the full reconcile and
// the lock.  It is safe for concurrent use.
type Service struct {
	guests *repository.GuestRepo
	chart  *repository.ChartRepo
	tables *repository.TableRepo
	lock   repository.LockStore

	log      *zap.Logger
	journal  Journal
	events   EventPublisher
	onChange func(ctx context.Context)
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger (default: no-op).
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

// WithJournal records every run.
func WithJournal(j Journal) Option { return func(s *Service) { s.journal = j } }

// WithEvents publishes reconcile and lock events.
func WithEvents(p EventPublisher) Option { return func(s *Service) { s.events = p } }

// WithOnChange registers a callback invoked after any run that wrote to a
// sheet, e.g. to purge cached views.
func WithOnChange(fn func(ctx context.Context)) Option { return func(s *Service) { s.onChange = fn } }

// NewService wires the repositories together.
func NewService(guests *repository.GuestRepo, chart *repository.ChartRepo, tables *repository.TableRepo, lock repository.LockStore, opts ...Option) *Service {
	if guests == nil || chart == nil || tables == nil || lock == nil {
		panic("nil dependency passed to seating.NewService")
	}
	s := &Service{
		guests: guests,
		chart:  chart,
		tables: tables,
		lock:   lock,
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GuestSheet returns the guest-list tab name.
func (s *Service) GuestSheet() string { return s.guests.Sheet() }

// ChartSheet returns the seating-chart tab name.
func (s *Service) ChartSheet() string { return s.chart.Sheet() }

// LockStatus reports whether seating is finalized.
func (s *Service) LockStatus(ctx context.Context) (model.LockState, error) {
	st, err := s.lock.State(ctx)
	if err != nil {
		return model.LockState{}, err
	}
	metrics.SetLocked(st.Locked)
	return st, nil
}

// Lock finalizes seating.  Every later sync becomes a no-op.  Calling it
// again refreshes the lock metadata.
func (s *Service) Lock(ctx context.Context, by string) (model.LockState, error) {
	start := s.now()
	st, err := s.lock.Lock(ctx, by)
	if err != nil {
		s.finish(ctx, model.OpLock, start, 0, err)
		return model.LockState{}, err
	}
	metrics.SetLocked(true)
	s.log.Info("seating locked", zap.String("by", by))
	s.finish(ctx, model.OpLock, start, 1, nil)
	s.publish(ctx, model.SeatingEvent{Kind: "locked", Operation: model.OpLock, Actor: by})
	return st, nil
}

// isLocked is checked at the start of every sync entry point.
func (s *Service) isLocked(ctx context.Context, op string) (bool, error) {
	st, err := s.lock.State(ctx)
	if err != nil {
		return false, err
	}
	metrics.SetLocked(st.Locked)
	if st.Locked {
		s.log.Info("seating is locked, sync skipped", zap.String("operation", op))
	}
	return st.Locked, nil
}

// skipped journals a run suppressed by the lock.
func (s *Service) skipped(ctx context.Context, op string, start time.Time) {
	s.record(ctx, op, start, model.OutcomeLocked, 0, "")
}

// finish journals a run, logs failures and fires the change hook.
func (s *Service) finish(ctx context.Context, op string, start time.Time, changed int, err error) {
	switch {
	case err != nil:
		s.log.Error("seating sync failed", zap.String("operation", op), zap.Error(err))
		s.record(ctx, op, start, model.OutcomeFailed, changed, err.Error())
	case changed == 0:
		s.record(ctx, op, start, model.OutcomeNoop, 0, "")
	default:
		s.record(ctx, op, start, model.OutcomeOK, changed, "")
	}
	// partial writes also invalidate cached views
	if changed > 0 && s.onChange != nil {
		s.onChange(ctx)
	}
}

func (s *Service) record(ctx context.Context, op string, start time.Time, outcome string, changed int, detail string) {
	end := s.now()
	metrics.ObserveSync(op, outcome, end.Sub(start))
	if s.journal == nil {
		return
	}
	run := &model.SyncRun{
		Operation:  op,
		Trigger:    TriggerFrom(ctx),
		Outcome:    outcome,
		Changed:    changed,
		Detail:     detail,
		StartedAt:  start,
		FinishedAt: end,
	}
	if err := s.journal.Record(context.WithoutCancel(ctx), run); err != nil {
		s.log.Warn("journal write failed", zap.String("operation", op), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, ev model.SeatingEvent) {
	if s.events == nil {
		return
	}
	ev.OccurredAt = s.now().UTC().Format(time.RFC3339)
	if err := s.events.PublishSeatingEvent(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn("publish seating event failed", zap.String("kind", ev.Kind), zap.Error(err))
	}
}

type triggerKey struct{}

// WithTrigger tags ctx with what started a run ("admin", "webhook", ...).
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

// TriggerFrom returns the trigger stored by WithTrigger, or "admin".
func TriggerFrom(ctx context.Context) string {
	if v, ok := ctx.Value(triggerKey{}).(string); ok && v != "" {
		return v
	}
	return "admin"
}
