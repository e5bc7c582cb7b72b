package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/qatestsmith/medicinereminderbot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single connection: SQLite is a single-writer engine, and one connection
	// keeps the entry flow's writes and the engine's reads serialized.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// UpsertUser inserts or updates a user row keyed by chat id.
func (r *SQLiteRepo) UpsertUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (telegram_id, username, timezone, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			username = excluded.username,
			timezone = excluded.timezone`,
		u.ChatID, u.Username, u.Timezone, created.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetUser returns a user by chat id, or ErrNotFound.
func (r *SQLiteRepo) GetUser(ctx context.Context, chatID int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT telegram_id, username, timezone, created_at
		FROM users WHERE telegram_id = ?`, chatID)

	var (
		u       domain.User
		created int64
	)
	if err := row.Scan(&u.ChatID, &u.Username, &u.Timezone, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return &u, nil
}

// SetTimezone updates a user's timezone.
func (r *SQLiteRepo) SetTimezone(ctx context.Context, chatID int64, timezone string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET timezone = ? WHERE telegram_id = ?`, timezone, chatID)
	if err != nil {
		return fmt.Errorf("set timezone: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateMedicine inserts a medicine and its reminders atomically. Readers
// never observe the medicine without its reminders.
func (r *SQLiteRepo) CreateMedicine(ctx context.Context, chatID int64, name string, items []domain.ReminderInput) (int64, error) {
	if name == "" {
		return 0, errors.New("empty medicine name")
	}
	if len(items) == 0 {
		return 0, errors.New("medicine without reminders")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("create medicine: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Unix()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO medicines (user_id, name, created_at) VALUES (?, ?, ?)`,
		chatID, name, now)
	if err != nil {
		return 0, fmt.Errorf("create medicine: %w", err)
	}
	medicineID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, it := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reminders (medicine_id, time, dosage, active, created_at)
			 VALUES (?, ?, ?, 1, ?)`,
			medicineID, it.Time, it.Dosage, now); err != nil {
			return 0, fmt.Errorf("create reminder: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("create medicine: %w", err)
	}
	return medicineID, nil
}

// ListMedicines returns a user's medicines with reminders, reminders sorted
// by time within each medicine.
func (r *SQLiteRepo) ListMedicines(ctx context.Context, chatID int64) ([]domain.Medicine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.name, m.created_at,
		       r.id, r.time, r.dosage, r.active, r.created_at
		FROM medicines m
		LEFT JOIN reminders r ON r.medicine_id = m.id
		WHERE m.user_id = ?
		ORDER BY m.name, m.id, r.time`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	defer rows.Close()
	return scanMedicines(rows, chatID)
}

// GetMedicine returns one medicine with reminders, checking ownership.
func (r *SQLiteRepo) GetMedicine(ctx context.Context, medicineID, chatID int64) (*domain.Medicine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.name, m.created_at,
		       r.id, r.time, r.dosage, r.active, r.created_at
		FROM medicines m
		LEFT JOIN reminders r ON r.medicine_id = m.id
		WHERE m.id = ? AND m.user_id = ?
		ORDER BY r.time`, medicineID, chatID)
	if err != nil {
		return nil, fmt.Errorf("get medicine: %w", err)
	}
	defer rows.Close()

	meds, err := scanMedicines(rows, chatID)
	if err != nil {
		return nil, err
	}
	if len(meds) == 0 {
		return nil, ErrNotFound
	}
	return &meds[0], nil
}

func scanMedicines(rows *sql.Rows, chatID int64) ([]domain.Medicine, error) {
	var (
		out   []domain.Medicine
		index = map[int64]int{}
	)
	for rows.Next() {
		var (
			medID, medCreated int64
			medName           string
			remID             sql.NullInt64
			remTime, remDos   sql.NullString
			remActive         sql.NullInt64
			remCreated        sql.NullInt64
		)
		if err := rows.Scan(&medID, &medName, &medCreated,
			&remID, &remTime, &remDos, &remActive, &remCreated); err != nil {
			return nil, fmt.Errorf("scan medicine: %w", err)
		}
		i, ok := index[medID]
		if !ok {
			out = append(out, domain.Medicine{
				ID:        medID,
				ChatID:    chatID,
				Name:      medName,
				CreatedAt: time.Unix(medCreated, 0).UTC(),
			})
			i = len(out) - 1
			index[medID] = i
		}
		if remID.Valid {
			out[i].Reminders = append(out[i].Reminders, domain.Reminder{
				ID:         remID.Int64,
				MedicineID: medID,
				Time:       remTime.String,
				Dosage:     remDos.String,
				Active:     remActive.Int64 != 0,
				CreatedAt:  time.Unix(remCreated.Int64, 0).UTC(),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteMedicine removes a medicine; reminders and their log rows cascade.
func (r *SQLiteRepo) DeleteMedicine(ctx context.Context, medicineID, chatID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM medicines WHERE id = ? AND user_id = ?`, medicineID, chatID)
	if err != nil {
		return fmt.Errorf("delete medicine: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReminder removes one reminder, checking ownership via its medicine.
func (r *SQLiteRepo) DeleteReminder(ctx context.Context, reminderID, chatID int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM reminders
		WHERE id = ? AND medicine_id IN (
			SELECT id FROM medicines WHERE user_id = ?
		)`, reminderID, chatID)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllMedicines removes every medicine of a user and returns the count.
func (r *SQLiteRepo) DeleteAllMedicines(ctx context.Context, chatID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM medicines WHERE user_id = ?`, chatID)
	if err != nil {
		return 0, fmt.Errorf("delete all medicines: %w", err)
	}
	return res.RowsAffected()
}

// ListActive returns every active reminder joined with its medicine and owner.
func (r *SQLiteRepo) ListActive(ctx context.Context) ([]domain.DueReminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.time, r.dosage, m.name, u.telegram_id, u.timezone,
		       (SELECT MAX(l.sent_at) FROM reminder_logs l WHERE l.reminder_id = r.id)
		FROM reminders r
		JOIN medicines m ON m.id = r.medicine_id
		JOIN users u ON u.telegram_id = m.user_id
		WHERE r.active = 1
		ORDER BY r.time, r.id`)
	if err != nil {
		return nil, fmt.Errorf("list active: %w", err)
	}
	defer rows.Close()

	var out []domain.DueReminder
	for rows.Next() {
		var (
			d    domain.DueReminder
			last sql.NullInt64
		)
		if err := rows.Scan(&d.ReminderID, &d.Time, &d.Dosage,
			&d.MedicineName, &d.ChatID, &d.Timezone, &last); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		if last.Valid {
			t := time.Unix(last.Int64, 0).UTC()
			d.LastAttempt = &t
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDue filters ListActive down to reminders due at or before at on at's
// local calendar date in the owner's timezone, with no attempt logged on that
// date. SQLite cannot evaluate IANA zones, so the calendar comparison happens
// here against durable state only.
func (r *SQLiteRepo) ListDue(ctx context.Context, at time.Time) ([]domain.DueReminder, error) {
	active, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var due []domain.DueReminder
	for _, d := range active {
		occ, err := domain.OccurrenceOn(d.Timezone, d.Time, at)
		if err != nil {
			// A stored zone or time that no longer parses is corruption;
			// surface it rather than silently dropping the reminder.
			return nil, fmt.Errorf("reminder %d: %w", d.ReminderID, err)
		}
		if occ.After(at) {
			continue
		}
		if d.LastAttempt != nil {
			same, err := domain.SameLocalDate(d.Timezone, *d.LastAttempt, at)
			if err != nil {
				return nil, fmt.Errorf("reminder %d: %w", d.ReminderID, err)
			}
			if same {
				continue
			}
		}
		due = append(due, d)
	}
	return due, nil
}

// LogAttempt appends one delivery-log row for a dispatch attempt.
func (r *SQLiteRepo) LogAttempt(ctx context.Context, reminderID int64, at time.Time, delivered bool) error {
	flag := 0
	if delivered {
		flag = 1
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reminder_logs (reminder_id, sent_at, delivered) VALUES (?, ?, ?)`,
		reminderID, at.UTC().Unix(), flag)
	if err != nil {
		return fmt.Errorf("log attempt: %w", err)
	}
	return nil
}
