package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/moodlog/internal/models"
	"github.com/desertthunder/moodlog/internal/shared"
	"github.com/facebookgo/clock"
)

const moodEntryColumns = `id, sequence, user_id, mood, note, auto_saved, created_at, deleted_at`

// ListCriteria narrows a history listing. Zero values mean "no filter".
type ListCriteria struct {
	UserID string
	Mood   models.Mood
	Since  time.Time // inclusive
	Until  time.Time // exclusive
	Limit  int
}

// MoodEntryRepository persists [models.MoodEntry] rows in SQLite.
type MoodEntryRepository struct {
	db    *sql.DB
	clock clock.Clock
}

// NewMoodEntryRepository creates a new [MoodEntryRepository] with the given database connection
func NewMoodEntryRepository(db *sql.DB) *MoodEntryRepository {
	return &MoodEntryRepository{db: db, clock: clock.New()}
}

// WithClock replaces the clock used to stamp created_at.
func (r *MoodEntryRepository) WithClock(c clock.Clock) *MoodEntryRepository {
	r.clock = c
	return r
}

// Insert validates and stores entry, assigning its id, sequence and created_at (UTC).
//
// Either the whole row is written or nothing is.
func (r *MoodEntryRepository) Insert(ctx context.Context, entry *models.MoodEntry) (*models.MoodEntry, error) {
	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := NextSequence(ctx, tx, "mood_entries")
	if err != nil {
		return nil, fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	createdAt := r.clock.Now().UTC()

	query := `
		INSERT INTO mood_entries (id, sequence, user_id, mood, note, auto_saved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if _, err := tx.ExecContext(ctx, query, id, sequence, entry.UserID(), string(entry.Mood()), entry.Note(), entry.AutoSaved(), createdAt); err != nil {
		return nil, fmt.Errorf("failed to insert mood entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit mood entry: %w", err)
	}

	entry.Stamp(id, sequence, createdAt)
	return entry, nil
}

// QueryLatest returns the most recent live entry for userID, or nil when the user has none.
func (r *MoodEntryRepository) QueryLatest(ctx context.Context, userID string) (*models.MoodEntry, error) {
	query := `
		SELECT ` + moodEntryColumns + `
		FROM mood_entries
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC, sequence DESC
		LIMIT 1
	`

	entry, err := scanMoodEntry(r.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest mood entry: %w", err)
	}
	return entry, nil
}

// Get retrieves a live entry by ID.
func (r *MoodEntryRepository) Get(ctx context.Context, id string) (*models.MoodEntry, error) {
	query := `
		SELECT ` + moodEntryColumns + `
		FROM mood_entries
		WHERE id = ? AND deleted_at IS NULL
	`

	entry, err := scanMoodEntry(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrEntryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query mood entry: %w", err)
	}
	return entry, nil
}

// List retrieves live entries matching criteria, newest first.
func (r *MoodEntryRepository) List(ctx context.Context, criteria ListCriteria) ([]*models.MoodEntry, error) {
	query := `
		SELECT ` + moodEntryColumns + `
		FROM mood_entries
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if criteria.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, criteria.UserID)
	}
	if criteria.Mood != "" {
		query += " AND mood = ?"
		args = append(args, string(criteria.Mood))
	}
	if !criteria.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, criteria.Since.UTC())
	}
	if !criteria.Until.IsZero() {
		query += " AND created_at < ?"
		args = append(args, criteria.Until.UTC())
	}

	query += " ORDER BY created_at DESC, sequence DESC"

	if criteria.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, criteria.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mood entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.MoodEntry
	for rows.Next() {
		entry, err := scanMoodEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mood entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// Delete soft-deletes the entry id owned by userID.
func (r *MoodEntryRepository) Delete(ctx context.Context, userID, id string) error {
	now := r.clock.Now().UTC()

	query := `
		UPDATE mood_entries
		SET deleted_at = ?
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, now, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete mood entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrEntryNotFound, id)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMoodEntry(row rowScanner) (*models.MoodEntry, error) {
	var (
		id        string
		sequence  int
		userID    string
		mood      string
		note      string
		autoSaved bool
		createdAt time.Time
		deletedAt sql.NullTime
	)

	if err := row.Scan(&id, &sequence, &userID, &mood, &note, &autoSaved, &createdAt, &deletedAt); err != nil {
		return nil, err
	}

	parsed, err := models.ParseMood(mood)
	if err != nil {
		return nil, fmt.Errorf("stored entry %s: %w", id, err)
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	return models.RestoreMoodEntry(id, sequence, userID, parsed, note, autoSaved, createdAt.UTC(), deleted), nil
}
