// Package scheduler drives the sleep/wake/fire cycle. The engine holds only
// derived, disposable state: on every wake it re-reads the store, drains
// everything due, and re-arms for the earliest next occurrence. A restart
// therefore recovers by construction; there is no timer state worth saving.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qatestsmith/medicinereminderbot/internal/dispatch"
	"github.com/qatestsmith/medicinereminderbot/internal/domain"
	"github.com/qatestsmith/medicinereminderbot/internal/store"
)

const (
	// fallback wake when nothing is armed or the store query failed
	idleWake  = time.Hour
	errorWake = 30 * time.Second
)

// Engine schedules and fires reminders.
type Engine struct {
	repo store.Repo
	disp *dispatch.Dispatcher
	log  *zap.Logger
	wake chan struct{}
	now  func() time.Time // injectable for tests
}

// New creates an Engine.
func New(repo store.Repo, disp *dispatch.Dispatcher, log *zap.Logger) *Engine {
	return &Engine{
		repo: repo,
		disp: disp,
		log:  log,
		wake: make(chan struct{}, 1),
		now:  time.Now,
	}
}

// Notify signals that the reminder set changed (create/edit/delete, timezone
// change) and the engine should recompute its timers. Never blocks.
func (e *Engine) Notify() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Run executes the sleep/wake/fire cycle until ctx is canceled. The cold
// start drains anything already due, which both catches up reminders missed
// while the process was down and is harmless after a clean restart thanks to
// the delivery log.
func (e *Engine) Run(ctx context.Context) {
	for {
		e.drain(ctx)

		timer := time.NewTimer(e.untilNextWake(ctx))
		select {
		case <-ctx.Done():
			timer.Stop()
			e.log.Info("scheduler stopping")
			return
		case <-timer.C:
		case <-e.wake:
			timer.Stop()
		}
	}
}

// drain fires every due reminder before returning. Reminders sharing a due
// instant are dispatched and logged independently; none is skipped because
// another fired first. A failed due query means "try again at next wake".
func (e *Engine) drain(ctx context.Context) {
	now := e.now()
	due, err := e.repo.ListDue(ctx, now)
	if err != nil {
		e.log.Error("due query failed", zap.Error(err))
		return
	}
	for _, d := range due {
		err := e.disp.Dispatch(d)
		if err != nil {
			// No same-day retry: the attempt is still recorded so the user
			// is not pinged late at night by a recovering process.
			e.log.Error("dispatch failed",
				zap.Int64("reminder_id", d.ReminderID),
				zap.Error(err),
			)
		}
		if logErr := e.repo.LogAttempt(ctx, d.ReminderID, now, err == nil); logErr != nil {
			e.log.Error("log attempt failed",
				zap.Int64("reminder_id", d.ReminderID),
				zap.Error(logErr),
			)
		}
	}
}

// untilNextWake computes how long to sleep: the earliest next occurrence over
// all active reminders, an idle fallback when there are none, or a short
// retry window after a store error.
func (e *Engine) untilNextWake(ctx context.Context) time.Duration {
	now := e.now()
	active, err := e.repo.ListActive(ctx)
	if err != nil {
		e.log.Error("list active failed", zap.Error(err))
		return errorWake
	}

	var earliest time.Time
	for _, a := range active {
		at, err := domain.NextOccurrence(a.Timezone, a.Time, now)
		if err != nil {
			e.log.Warn("unschedulable reminder",
				zap.Int64("reminder_id", a.ReminderID),
				zap.Error(err),
			)
			continue
		}
		if earliest.IsZero() || at.Before(earliest) {
			earliest = at
		}
	}
	if earliest.IsZero() {
		return idleWake
	}
	d := earliest.Sub(now)
	if d < 0 {
		d = 0
	}
	return d
}
