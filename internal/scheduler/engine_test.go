package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qatestsmith/medicinereminderbot/internal/dispatch"
	"github.com/qatestsmith/medicinereminderbot/internal/domain"
	"github.com/qatestsmith/medicinereminderbot/internal/store"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (s *recordingSender) SendMessage(chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("network down")
	}
	s.sent = append(s.sent, text)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func testRepo(t *testing.T) *store.SQLiteRepo {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedReminders(t *testing.T, repo *store.SQLiteRepo, times ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.UpsertUser(ctx, &domain.User{ChatID: 1, Timezone: "UTC"}))
	for _, tm := range times {
		_, err := repo.CreateMedicine(ctx, 1, "med-"+tm, []domain.ReminderInput{
			{Time: tm, Dosage: "1 tablet"},
		})
		require.NoError(t, err)
	}
}

func newTestEngine(repo *store.SQLiteRepo, sender *recordingSender, now time.Time) *Engine {
	e := New(repo, dispatch.New(sender, zap.NewNop()), zap.NewNop())
	e.now = func() time.Time { return now }
	return e
}

func TestDrain_FiresInTimeOrderWithoutPriorState(t *testing.T) {
	repo := testRepo(t)
	// T1 < T2 < T3, all earlier than "now": a fresh engine with no carried
	// state must deliver all three, ordered.
	seedReminders(t, repo, "06:00", "07:30", "09:15")
	sender := &recordingSender{}
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	e := newTestEngine(repo, sender, now)

	e.drain(context.Background())

	require.Len(t, sender.sent, 3)
	assert.Contains(t, sender.sent[0], "06:00")
	assert.Contains(t, sender.sent[1], "07:30")
	assert.Contains(t, sender.sent[2], "09:15")
}

func TestDrain_AtMostOncePerLocalDay(t *testing.T) {
	repo := testRepo(t)
	seedReminders(t, repo, "08:00")
	sender := &recordingSender{}
	now := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	e := newTestEngine(repo, sender, now)
	ctx := context.Background()

	e.drain(ctx)
	e.drain(ctx) // immediate re-run must find nothing due
	assert.Len(t, sender.sent, 1)

	// a second engine instance over the same store (restart mid-day) must
	// not deliver again
	restarted := newTestEngine(repo, sender, now.Add(time.Minute))
	restarted.drain(ctx)
	assert.Len(t, sender.sent, 1)
}

func TestDrain_SharedInstantDispatchesAll(t *testing.T) {
	repo := testRepo(t)
	seedReminders(t, repo, "08:00", "08:00")
	sender := &recordingSender{}
	e := newTestEngine(repo, sender, time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC))

	e.drain(context.Background())
	assert.Len(t, sender.sent, 2)
}

func TestDrain_FailedSendIsAttemptedNotRetried(t *testing.T) {
	repo := testRepo(t)
	seedReminders(t, repo, "08:00")
	sender := &recordingSender{fail: true}
	now := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	e := newTestEngine(repo, sender, now)
	ctx := context.Background()

	e.drain(ctx)
	assert.Empty(t, sender.sent)

	// same day: no retry even though the sender recovered
	sender.fail = false
	later := newTestEngine(repo, sender, now.Add(3*time.Hour))
	later.drain(ctx)
	assert.Empty(t, sender.sent)

	// next local day it fires again
	nextDay := newTestEngine(repo, sender, now.Add(24*time.Hour))
	nextDay.drain(ctx)
	assert.Len(t, sender.sent, 1)
}

func TestDrain_DeletedMedicineNeverFires(t *testing.T) {
	repo := testRepo(t)
	seedReminders(t, repo, "08:00")
	ctx := context.Background()

	meds, err := repo.ListMedicines(ctx, 1)
	require.NoError(t, err)
	require.Len(t, meds, 1)
	require.NoError(t, repo.DeleteMedicine(ctx, meds[0].ID, 1))

	sender := &recordingSender{}
	e := newTestEngine(repo, sender, time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))
	e.drain(ctx)
	assert.Empty(t, sender.sent)
}

func TestUntilNextWake_EarliestUpcomingOccurrence(t *testing.T) {
	repo := testRepo(t)
	seedReminders(t, repo, "12:30", "18:00")
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	e := newTestEngine(repo, &recordingSender{}, now)

	d := e.untilNextWake(context.Background())
	assert.Equal(t, 2*time.Hour+30*time.Minute, d)
}

func TestUntilNextWake_IdleWhenNothingArmed(t *testing.T) {
	repo := testRepo(t)
	e := newTestEngine(repo, &recordingSender{}, time.Now())
	assert.Equal(t, idleWake, e.untilNextWake(context.Background()))
}

func TestNotify_WakesRunLoop(t *testing.T) {
	repo := testRepo(t)
	sender := &recordingSender{}
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	e := newTestEngine(repo, sender, now)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	// engine is idle (no reminders); add one already due and notify
	seedReminders(t, repo, "09:00")
	e.Notify()

	require.Eventually(t, func() bool {
		return sender.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
