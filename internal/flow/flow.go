// Package flow implements the guided entry dialogue that creates a medicine
// with its reminders. All partial input lives in memory only; nothing reaches
// the store until the user confirms, so the store never holds an incomplete
// medicine. The package is transport-independent: the telegram layer maps
// messages and buttons onto these transitions.
package flow

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/qatestsmith/medicinereminderbot/internal/domain"
	"github.com/qatestsmith/medicinereminderbot/internal/tz"
)

// State identifies the step an in-progress session is waiting on.
type State int

const (
	StateNone State = iota // no session
	StateTimezone
	StateName
	StateTime
	StateDosage
	StateConfirm
)

var (
	ErrNoSession       = errors.New("no entry flow in progress")
	ErrWrongState      = errors.New("input does not match the current step")
	ErrUnknownTimezone = errors.New("timezone not in catalog")
	ErrEmptyName       = errors.New("medicine name is empty")
	ErrNameTooLong     = errors.New("medicine name too long")
	ErrEmptyDosage     = errors.New("dosage is empty")
)

const maxNameLen = 100

// Entry is one completed (time, dosage) pair within a draft.
type Entry struct {
	Time   string
	Dosage string
}

// Draft is the confirmed result of a session, ready to be written atomically.
type Draft struct {
	Name    string
	Entries []Entry
}

type session struct {
	state       State
	name        string
	entries     []Entry
	pendingTime string
}

// Manager holds one session per chat, created on first event and removed on
// every terminal transition so the map stays bounded.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*session
	catalog  *tz.Catalog
}

// NewManager creates a Manager over the timezone catalog.
func NewManager(catalog *tz.Catalog) *Manager {
	return &Manager{
		sessions: make(map[int64]*session),
		catalog:  catalog,
	}
}

// Start opens a session. New users pass needTimezone to onboard through the
// timezone step first; existing users go straight to the medicine name.
// An existing session for the chat is discarded.
func (m *Manager) Start(chatID int64, needTimezone bool) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &session{state: StateName}
	if needTimezone {
		s.state = StateTimezone
	}
	m.sessions[chatID] = s
	return s.state
}

// State returns the chat's current step, or StateNone.
func (m *Manager) State(chatID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[chatID]; ok {
		return s.state
	}
	return StateNone
}

// Cancel discards the session and every piece of partial input.
func (m *Manager) Cancel(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}

// SubmitTimezone resolves a catalog label during onboarding and advances to
// the medicine-name step. An unknown label leaves the state unchanged.
func (m *Manager) SubmitTimezone(chatID int64, label string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.sessionIn(chatID, StateTimezone)
	if err != nil {
		return "", err
	}
	zone, ok := m.catalog.Resolve(strings.TrimSpace(label))
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTimezone, label)
	}
	s.state = StateName
	return zone, nil
}

// SubmitName validates the medicine name and advances to the time step.
func (m *Manager) SubmitName(chatID int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.sessionIn(chatID, StateName)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("%w: %d characters, max %d", ErrNameTooLong, len(name), maxNameLen)
	}
	s.name = name
	// after an Edit the collected times are kept, so go straight back to
	// confirmation instead of forcing re-entry
	if len(s.entries) > 0 {
		s.state = StateConfirm
	} else {
		s.state = StateTime
	}
	return nil
}

// SubmitTime normalizes a time-of-day and advances to the dosage step.
// Invalid or out-of-range input rejects without advancing, never clamps.
func (m *Manager) SubmitTime(chatID int64, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.sessionIn(chatID, StateTime)
	if err != nil {
		return "", err
	}
	normalized, err := domain.ParseTimeOfDay(text)
	if err != nil {
		return "", err
	}
	s.pendingTime = normalized
	s.state = StateDosage
	return normalized, nil
}

// SubmitDosage completes the pending (time, dosage) pair and advances to
// confirmation. Only empty input is rejected; dosage is free text.
func (m *Manager) SubmitDosage(chatID int64, text string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.sessionIn(chatID, StateDosage)
	if err != nil {
		return Entry{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Entry{}, ErrEmptyDosage
	}
	e := Entry{Time: s.pendingTime, Dosage: text}
	s.entries = append(s.entries, e)
	s.pendingTime = ""
	s.state = StateConfirm
	return e, nil
}

// AddAnotherTime returns from confirmation to the time step, keeping the
// entries collected so far.
func (m *Manager) AddAnotherTime(chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.sessionIn(chatID, StateConfirm)
	if err != nil {
		return err
	}
	s.state = StateTime
	return nil
}

// Edit returns from confirmation to the name step with prior values kept:
// the name is re-entered, collected entries stay.
func (m *Manager) Edit(chatID int64) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.sessionIn(chatID, StateConfirm)
	if err != nil {
		return Draft{}, err
	}
	prior := draftOf(s)
	s.state = StateName
	return prior, nil
}

// Save finishes the session and returns the draft for atomic persistence.
// The session is removed; the caller owns the write.
func (m *Manager) Save(chatID int64) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.sessionIn(chatID, StateConfirm)
	if err != nil {
		return Draft{}, err
	}
	d := draftOf(s)
	delete(m.sessions, chatID)
	return d, nil
}

// Snapshot returns the draft collected so far, for confirmation display.
func (m *Manager) Snapshot(chatID int64) (Draft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	if !ok {
		return Draft{}, false
	}
	return draftOf(s), true
}

func (m *Manager) sessionIn(chatID int64, want State) (*session, error) {
	s, ok := m.sessions[chatID]
	if !ok {
		return nil, ErrNoSession
	}
	if s.state != want {
		return nil, fmt.Errorf("%w: at step %d, expected %d", ErrWrongState, s.state, want)
	}
	return s, nil
}

func draftOf(s *session) Draft {
	entries := make([]Entry, len(s.entries))
	copy(entries, s.entries)
	return Draft{Name: s.name, Entries: entries}
}
