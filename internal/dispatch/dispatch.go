// Package dispatch turns a due reminder into one outbound notification.
// Retry policy lives in the scheduler, not here: a failed send is reported
// back and that is the end of it.
package dispatch

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/qatestsmith/medicinereminderbot/internal/domain"
)

// Sender is the outbound messaging capability. telegram.Router implements it.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// Dispatcher formats and sends reminder notifications.
type Dispatcher struct {
	sender Sender
	log    *zap.Logger
}

// New creates a Dispatcher.
func New(sender Sender, log *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, log: log}
}

// Dispatch sends exactly one notification for the due reminder. The caller
// records the attempt in the delivery log after this returns, never before.
func (d *Dispatcher) Dispatch(due domain.DueReminder) error {
	text := Message(due)
	if err := d.sender.SendMessage(due.ChatID, text); err != nil {
		return fmt.Errorf("send reminder %d to chat %d: %w", due.ReminderID, due.ChatID, err)
	}
	d.log.Info("reminder delivered",
		zap.Int64("reminder_id", due.ReminderID),
		zap.Int64("chat_id", due.ChatID),
		zap.String("time", due.Time),
	)
	return nil
}

// Message renders the notification text for a due reminder.
func Message(due domain.DueReminder) string {
	return fmt.Sprintf("💊 %s — time to take %s (%s)", due.Time, due.MedicineName, due.Dosage)
}
