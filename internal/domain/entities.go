package domain

import "time"

// User is a bot user identified by their Telegram chat id.
type User struct {
	ChatID    int64
	Username  string
	Timezone  string // IANA identifier, set during onboarding
	CreatedAt time.Time
}

// Medicine groups one or more reminders under a user-chosen name.
type Medicine struct {
	ID        int64
	ChatID    int64
	Name      string
	CreatedAt time.Time
	Reminders []Reminder
}

// Reminder is a single (time-of-day, dosage) pair attached to a medicine.
// Time is always normalized "HH:MM" in the owning user's timezone.
type Reminder struct {
	ID         int64
	MedicineID int64
	Time       string
	Dosage     string
	Active     bool
	CreatedAt  time.Time
}

// ReminderInput is the data needed to create one reminder.
type ReminderInput struct {
	Time   string
	Dosage string
}

// DueReminder is the store's join of a reminder with its medicine and owner,
// enough for the scheduler to compute occurrences and for the dispatcher to
// format a message.
type DueReminder struct {
	ReminderID   int64
	Time         string
	Dosage       string
	MedicineName string
	ChatID       int64
	Timezone     string
	LastAttempt  *time.Time // UTC, nil if never attempted
}
