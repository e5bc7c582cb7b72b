package telegram

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/qatestsmith/medicinereminderbot/internal/domain"
	"github.com/qatestsmith/medicinereminderbot/internal/flow"
	"github.com/qatestsmith/medicinereminderbot/internal/store"
	"github.com/qatestsmith/medicinereminderbot/internal/tz"
)

// API is the slice of the bot client the router needs. *tgbotapi.BotAPI
// satisfies it; tests substitute a fake.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Gate authorizes inbound events before any state is touched.
type Gate interface {
	IsAuthorized(chatID int64, username string) bool
}

// Notifier is poked after every mutation so the scheduling engine re-arms.
type Notifier interface {
	Notify()
}

// selKind tags the pending keyboard-selection dialogues that live outside
// the entry flow (deletions, timezone change).
type selKind int

const (
	selTimezoneChange selKind = iota + 1
	selDeleteMedicine
	selDeleteReminder
	selConfirmDelete
	selDeleteAllFirst
	selDeleteAllFinal
)

type selection struct {
	kind      selKind
	medicines []domain.Medicine
	medicine  *domain.Medicine
	reminder  *domain.Reminder
}

// Router wires Telegram updates to handlers. Conversation state (entry flow
// sessions and pending selections) is in-memory only; everything durable
// lives in the store.
type Router struct {
	bot      API
	log      *zap.Logger
	repo     store.Repo
	gate     Gate
	catalog  *tz.Catalog
	flows    *flow.Manager
	notifier Notifier

	mu         sync.Mutex
	selections map[int64]*selection
}

// NewRouter creates a Router. Call BindScheduler before handling updates so
// mutations reach the engine.
func NewRouter(bot API, log *zap.Logger, repo store.Repo, gate Gate, catalog *tz.Catalog) *Router {
	return &Router{
		bot:        bot,
		log:        log,
		repo:       repo,
		gate:       gate,
		catalog:    catalog,
		flows:      flow.NewManager(catalog),
		selections: make(map[int64]*selection),
	}
}

// BindScheduler attaches the engine notifier. The router and engine
// reference each other (the router is also the engine's Sender), so this
// link is made after both exist.
func (r *Router) BindScheduler(n Notifier) { r.notifier = n }

func (r *Router) notifyScheduler() {
	if r.notifier != nil {
		r.notifier.Notify()
	}
}

// HandleUpdate routes a single update. Every event passes the access gate
// first: unauthorized identifiers get a fixed denial and touch nothing.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID
	var username string
	if msg.From != nil {
		username = msg.From.UserName
	}

	if !r.gate.IsAuthorized(chatID, username) {
		r.log.Warn("unauthorized access attempt",
			zap.Int64("chat_id", chatID),
			zap.String("username", username),
		)
		r.sendText(chatID, deniedText)
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		r.handleStart(ctx, chatID)
	case text == btnCancel || strings.HasPrefix(text, "/cancel"):
		r.handleCancel(chatID)
	case text == btnAddMedicine:
		r.handleAddMedicine(ctx, chatID)
	case text == btnMyMedicines:
		r.handleShowMedicines(ctx, chatID)
	case text == btnDeleteMedicine:
		r.handleDeleteMenu(ctx, chatID)
	case text == btnChangeTimezone:
		r.handleChangeTimezone(ctx, chatID)
	case text == btnHelp || strings.HasPrefix(text, "/help"):
		r.sendWithKeyboard(chatID, helpText, mainMenuKeyboard())
	default:
		r.handleDialogueInput(ctx, chatID, username, text)
	}
}

// SendMessage sends a plain text message; this makes Router the
// dispatcher's Sender.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (r *Router) sendText(chatID int64, text string) {
	if err := r.SendMessage(chatID, text); err != nil {
		r.log.Error("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) sendWithKeyboard(chatID int64, text string, kb tgbotapi.ReplyKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Error("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) setSelection(chatID int64, s *selection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selections[chatID] = s
}

func (r *Router) getSelection(chatID int64) *selection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selections[chatID]
}

func (r *Router) clearSelection(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.selections, chatID)
}
