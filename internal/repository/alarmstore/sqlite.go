package alarmstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// schema is applied on every open; CREATE IF NOT EXISTS keeps it idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS alarms (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	start_time  TEXT NOT NULL,
	end_time    TEXT NOT NULL,
	enabled     INTEGER NOT NULL DEFAULT 0,
	repeat_days INTEGER NOT NULL DEFAULT 0,
	puzzle      TEXT NOT NULL DEFAULT 'none',
	sound_id    TEXT NOT NULL DEFAULT '',
	vibration   INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
`

const alarmColumns = `id, name, start_time, end_time, enabled, repeat_days, puzzle, sound_id, vibration, created_at, updated_at`

// SQLiteStore persists alarm definitions in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the alarm database at the given path.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite handles a single writer; pooling extra connections only
	// produces "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetAll returns every stored alarm ordered by creation time.
func (s *SQLiteStore) GetAll(ctx context.Context) ([]*domain.Alarm, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+alarmColumns+` FROM alarms ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query alarms: %w", err)
	}
	defer rows.Close()

	var alarms []*domain.Alarm

	for rows.Next() {
		a, err := scanAlarm(rows)
		if err != nil {
			return nil, err
		}

		alarms = append(alarms, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alarms: %w", err)
	}

	return alarms, nil
}

// GetByID returns the alarm with the given id or ErrNotFound.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*domain.Alarm, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alarmColumns+` FROM alarms WHERE id = ?`, id)

	a, err := scanAlarm(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return a, nil
}

// Create inserts a new alarm, generating a UUID when the id is empty.
func (s *SQLiteStore) Create(ctx context.Context, a *domain.Alarm) (*domain.Alarm, error) {
	stored := a.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	if err := stored.Validate(); err != nil {
		return nil, fmt.Errorf("validate alarm: %w", err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alarms (`+alarmColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID,
		stored.Name,
		stored.Time.String(),
		stored.EndTime.String(),
		boolToInt(stored.Enabled),
		int(stored.RepeatDays),
		stored.Puzzle.String(),
		stored.SoundID,
		boolToInt(stored.VibrationEnabled),
		stored.CreatedAt.Format(time.RFC3339Nano),
		stored.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert alarm: %w", err)
	}

	return stored, nil
}

// Update replaces the stored definition for the alarm's id.
func (s *SQLiteStore) Update(ctx context.Context, a *domain.Alarm) (*domain.Alarm, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("validate alarm: %w", err)
	}

	stored := a.Clone()
	stored.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		`UPDATE alarms SET name = ?, start_time = ?, end_time = ?, enabled = ?, repeat_days = ?,
			puzzle = ?, sound_id = ?, vibration = ?, updated_at = ? WHERE id = ?`,
		stored.Name,
		stored.Time.String(),
		stored.EndTime.String(),
		boolToInt(stored.Enabled),
		int(stored.RepeatDays),
		stored.Puzzle.String(),
		stored.SoundID,
		boolToInt(stored.VibrationEnabled),
		stored.UpdatedAt.Format(time.RFC3339Nano),
		stored.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update alarm: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, ErrNotFound
	}

	return stored, nil
}

// Delete removes the alarm; a missing id yields ErrNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM alarms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete alarm: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetEnabled flips only the enabled bit, leaving the definition untouched.
func (s *SQLiteStore) SetEnabled(ctx context.Context, id string, enabled bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alarms SET enabled = ?, updated_at = ? WHERE id = ?`,
		boolToInt(enabled),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("set enabled: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrNotFound
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanAlarm reads one alarm row into the domain model.
func scanAlarm(row rowScanner) (*domain.Alarm, error) {
	var (
		a                    domain.Alarm
		startRaw, endRaw     string
		enabled, vibration   int
		repeatDays           int
		puzzle               string
		createdRaw, updated  string
	)

	err := row.Scan(
		&a.ID,
		&a.Name,
		&startRaw,
		&endRaw,
		&enabled,
		&repeatDays,
		&puzzle,
		&a.SoundID,
		&vibration,
		&createdRaw,
		&updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("scan alarm: %w", err)
	}

	if a.Time, err = domain.ParseClockTime(startRaw); err != nil {
		return nil, fmt.Errorf("alarm %s: %w", a.ID, err)
	}

	if a.EndTime, err = domain.ParseClockTime(endRaw); err != nil {
		return nil, fmt.Errorf("alarm %s: %w", a.ID, err)
	}

	a.Enabled = enabled != 0
	a.VibrationEnabled = vibration != 0
	a.RepeatDays = domain.Weekdays(repeatDays) //nolint:gosec // bitmask fits in 7 bits
	a.Puzzle = domain.PuzzleTypeFromString(puzzle)

	if a.CreatedAt, err = time.Parse(time.RFC3339Nano, createdRaw); err != nil {
		return nil, fmt.Errorf("alarm %s: parse created_at: %w", a.ID, err)
	}

	if a.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("alarm %s: parse updated_at: %w", a.ID, err)
	}

	return &a, nil
}

// boolToInt maps Go bool to SQLite integer representation.
func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
