package store

import (
	"context"
	"errors"
	"time"

	"github.com/qatestsmith/medicinereminderbot/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist or is owned by
// a different user.
var ErrNotFound = errors.New("not found")

// Repo defines storage operations for users, medicines, reminders and the
// delivery log. It is the single owner of all durable state; multi-row writes
// are atomic to readers.
type Repo interface {
	UpsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, chatID int64) (*domain.User, error)
	SetTimezone(ctx context.Context, chatID int64, timezone string) error

	// CreateMedicine inserts a medicine and its reminders in one transaction.
	CreateMedicine(ctx context.Context, chatID int64, name string, items []domain.ReminderInput) (int64, error)
	ListMedicines(ctx context.Context, chatID int64) ([]domain.Medicine, error)
	GetMedicine(ctx context.Context, medicineID, chatID int64) (*domain.Medicine, error)
	DeleteMedicine(ctx context.Context, medicineID, chatID int64) error
	DeleteReminder(ctx context.Context, reminderID, chatID int64) error
	DeleteAllMedicines(ctx context.Context, chatID int64) (int64, error)

	// ListDue returns active reminders whose occurrence on at's local calendar
	// date (in the owner's timezone) is at or before at, and which have no
	// dispatch attempt logged on that local date. This is the engine's sole
	// source of truth for what to fire.
	ListDue(ctx context.Context, at time.Time) ([]domain.DueReminder, error)

	// ListActive returns every active reminder with its owner, for arming.
	ListActive(ctx context.Context) ([]domain.DueReminder, error)

	// LogAttempt appends one delivery-log row per dispatch attempt.
	LogAttempt(ctx context.Context, reminderID int64, at time.Time, delivered bool) error

	Close() error
}
