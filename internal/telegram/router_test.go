package telegram

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qatestsmith/medicinereminderbot/internal/domain"
	"github.com/qatestsmith/medicinereminderbot/internal/flow"
	"github.com/qatestsmith/medicinereminderbot/internal/store"
	"github.com/qatestsmith/medicinereminderbot/internal/tz"
)

type fakeAPI struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1].Text
}

type allowGate struct{ allowed map[int64]bool }

func (g allowGate) IsAuthorized(chatID int64, _ string) bool { return g.allowed[chatID] }

type countingNotifier struct{ n int }

func (c *countingNotifier) Notify() { c.n++ }

func newTestRouter(t *testing.T, gate Gate) (*Router, *fakeAPI, store.Repo) {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), t.TempDir()+"/bot.db")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	catalog, err := tz.Load("")
	require.NoError(t, err)

	api := &fakeAPI{}
	return NewRouter(api, zap.NewNop(), repo, gate, catalog), api, repo
}

func update(chatID int64, username, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{UserName: username},
		Text: text,
	}}
}

func TestUnauthorizedTouchesNothing(t *testing.T) {
	r, api, repo := newTestRouter(t, allowGate{allowed: map[int64]bool{}})
	ctx := context.Background()

	r.HandleUpdate(ctx, update(99, "stranger", "/start"))
	require.Equal(t, deniedText, api.lastText(t))

	_, err := repo.GetUser(ctx, 99)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Equal(t, flow.StateNone, r.flows.State(99))

	r.HandleUpdate(ctx, update(99, "stranger", btnAddMedicine))
	require.Equal(t, deniedText, api.lastText(t))
	require.Equal(t, flow.StateNone, r.flows.State(99))
}

func TestStartNewUserEntersOnboarding(t *testing.T) {
	r, api, _ := newTestRouter(t, allowGate{allowed: map[int64]bool{7: true}})

	r.HandleUpdate(context.Background(), update(7, "alice", "/start"))
	require.Equal(t, welcomeText, api.lastText(t))
	require.Equal(t, flow.StateTimezone, r.flows.State(7))
}

func TestStartKnownUserShowsMenu(t *testing.T) {
	r, api, repo := newTestRouter(t, allowGate{allowed: map[int64]bool{7: true}})
	ctx := context.Background()
	require.NoError(t, repo.UpsertUser(ctx, &domain.User{ChatID: 7, Timezone: "UTC"}))

	r.HandleUpdate(ctx, update(7, "alice", "/start"))
	require.Equal(t, mainMenuText, api.lastText(t))
	require.Equal(t, flow.StateNone, r.flows.State(7))
}

func TestFullEntryDialoguePersistsMedicine(t *testing.T) {
	gate := allowGate{allowed: map[int64]bool{7: true}}
	r, api, repo := newTestRouter(t, gate)
	notifier := &countingNotifier{}
	r.BindScheduler(notifier)
	ctx := context.Background()

	catalog, err := tz.Load("")
	require.NoError(t, err)
	label := catalog.Entries()[0].Label

	r.HandleUpdate(ctx, update(7, "alice", "/start"))
	r.HandleUpdate(ctx, update(7, "alice", label))
	r.HandleUpdate(ctx, update(7, "alice", "Aspirin"))
	r.HandleUpdate(ctx, update(7, "alice", "08:30"))
	r.HandleUpdate(ctx, update(7, "alice", "1 tablet"))
	r.HandleUpdate(ctx, update(7, "alice", btnSave))
	require.Equal(t, savedText, api.lastText(t))
	require.Equal(t, 1, notifier.n)

	u, err := repo.GetUser(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)

	meds, err := repo.ListMedicines(ctx, 7)
	require.NoError(t, err)
	require.Len(t, meds, 1)
	require.Equal(t, "Aspirin", meds[0].Name)
	require.Len(t, meds[0].Reminders, 1)
	require.Equal(t, "08:30", meds[0].Reminders[0].Time)
	require.Equal(t, "1 tablet", meds[0].Reminders[0].Dosage)
}

func TestInvalidTimeRepromptsWithoutAdvancing(t *testing.T) {
	r, api, _ := newTestRouter(t, allowGate{allowed: map[int64]bool{7: true}})
	ctx := context.Background()

	catalog, err := tz.Load("")
	require.NoError(t, err)

	r.HandleUpdate(ctx, update(7, "alice", "/start"))
	r.HandleUpdate(ctx, update(7, "alice", catalog.Entries()[0].Label))
	r.HandleUpdate(ctx, update(7, "alice", "Aspirin"))
	r.HandleUpdate(ctx, update(7, "alice", "25:00"))
	require.Equal(t, badTimeText, api.lastText(t))
	require.Equal(t, flow.StateTime, r.flows.State(7))
}

func TestCancelDiscardsDialogue(t *testing.T) {
	r, api, repo := newTestRouter(t, allowGate{allowed: map[int64]bool{7: true}})
	ctx := context.Background()
	require.NoError(t, repo.UpsertUser(ctx, &domain.User{ChatID: 7, Timezone: "UTC"}))

	r.HandleUpdate(ctx, update(7, "alice", btnAddMedicine))
	r.HandleUpdate(ctx, update(7, "alice", "Aspirin"))
	r.HandleUpdate(ctx, update(7, "alice", btnCancel))
	require.Equal(t, cancelledText, api.lastText(t))
	require.Equal(t, flow.StateNone, r.flows.State(7))

	meds, err := repo.ListMedicines(ctx, 7)
	require.NoError(t, err)
	require.Empty(t, meds)
}

func TestDeleteMedicineDialogue(t *testing.T) {
	r, api, repo := newTestRouter(t, allowGate{allowed: map[int64]bool{7: true}})
	notifier := &countingNotifier{}
	r.BindScheduler(notifier)
	ctx := context.Background()
	require.NoError(t, repo.UpsertUser(ctx, &domain.User{ChatID: 7, Timezone: "UTC"}))
	_, err := repo.CreateMedicine(ctx, 7, "Aspirin", []domain.ReminderInput{{Time: "08:00", Dosage: "1 tablet"}})
	require.NoError(t, err)

	r.HandleUpdate(ctx, update(7, "alice", btnDeleteMedicine))
	r.HandleUpdate(ctx, update(7, "alice", "1. Aspirin (1 reminders)"))
	r.HandleUpdate(ctx, update(7, "alice", btnConfirmDelete))
	require.Contains(t, api.lastText(t), "deleted")
	require.Equal(t, 1, notifier.n)

	meds, err := repo.ListMedicines(ctx, 7)
	require.NoError(t, err)
	require.Empty(t, meds)
}

func TestDeleteSingleReminderKeepsOthers(t *testing.T) {
	r, _, repo := newTestRouter(t, allowGate{allowed: map[int64]bool{7: true}})
	ctx := context.Background()
	require.NoError(t, repo.UpsertUser(ctx, &domain.User{ChatID: 7, Timezone: "UTC"}))
	_, err := repo.CreateMedicine(ctx, 7, "Aspirin", []domain.ReminderInput{
		{Time: "08:00", Dosage: "1 tablet"},
		{Time: "20:00", Dosage: "2 tablets"},
	})
	require.NoError(t, err)

	r.HandleUpdate(ctx, update(7, "alice", btnDeleteMedicine))
	r.HandleUpdate(ctx, update(7, "alice", "1. Aspirin (2 reminders)"))
	r.HandleUpdate(ctx, update(7, "alice", "🕐 Delete 08:00 — 1 tablet"))
	r.HandleUpdate(ctx, update(7, "alice", btnConfirmDelete))

	meds, err := repo.ListMedicines(ctx, 7)
	require.NoError(t, err)
	require.Len(t, meds, 1)
	require.Len(t, meds[0].Reminders, 1)
	require.Equal(t, "20:00", meds[0].Reminders[0].Time)
}

func TestDeleteAllRequiresDoubleConfirmation(t *testing.T) {
	r, api, repo := newTestRouter(t, allowGate{allowed: map[int64]bool{7: true}})
	ctx := context.Background()
	require.NoError(t, repo.UpsertUser(ctx, &domain.User{ChatID: 7, Timezone: "UTC"}))
	_, err := repo.CreateMedicine(ctx, 7, "Aspirin", []domain.ReminderInput{{Time: "08:00", Dosage: "1 tablet"}})
	require.NoError(t, err)
	_, err = repo.CreateMedicine(ctx, 7, "Vitamin D", []domain.ReminderInput{{Time: "09:00", Dosage: "1 capsule"}})
	require.NoError(t, err)

	r.HandleUpdate(ctx, update(7, "alice", btnDeleteMedicine))
	r.HandleUpdate(ctx, update(7, "alice", btnDeleteAll))
	r.HandleUpdate(ctx, update(7, "alice", btnDeleteAllYes))

	// backing out at the last step keeps everything
	r.HandleUpdate(ctx, update(7, "alice", btnDeleteAllNo))
	meds, err := repo.ListMedicines(ctx, 7)
	require.NoError(t, err)
	require.Len(t, meds, 2)

	r.HandleUpdate(ctx, update(7, "alice", btnDeleteMedicine))
	r.HandleUpdate(ctx, update(7, "alice", btnDeleteAll))
	r.HandleUpdate(ctx, update(7, "alice", btnDeleteAllYes))
	r.HandleUpdate(ctx, update(7, "alice", btnDeleteAllFinal))
	require.Contains(t, api.lastText(t), "Deleted 2 medicines")

	meds, err = repo.ListMedicines(ctx, 7)
	require.NoError(t, err)
	require.Empty(t, meds)
}

func TestChangeTimezoneNotifiesScheduler(t *testing.T) {
	r, _, repo := newTestRouter(t, allowGate{allowed: map[int64]bool{7: true}})
	notifier := &countingNotifier{}
	r.BindScheduler(notifier)
	ctx := context.Background()
	require.NoError(t, repo.UpsertUser(ctx, &domain.User{ChatID: 7, Timezone: "UTC"}))

	catalog, err := tz.Load("")
	require.NoError(t, err)
	entries := catalog.Entries()
	require.True(t, len(entries) > 1)

	var target tz.Entry
	for _, e := range entries {
		if e.Zone != "UTC" {
			target = e
			break
		}
	}

	r.HandleUpdate(ctx, update(7, "alice", btnChangeTimezone))
	r.HandleUpdate(ctx, update(7, "alice", target.Label))
	require.Equal(t, 1, notifier.n)

	u, err := repo.GetUser(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, target.Zone, u.Timezone)
}
