package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/moodlog/internal/shared"
)

// MoodEntry is one user's emotional self-report.
//
// The store assigns id, sequence and createdAt on insert; after that an entry only changes by soft deletion.
type MoodEntry struct {
	id        string
	sequence  int
	userID    string
	mood      Mood
	note      string
	autoSaved bool
	createdAt time.Time
	deletedAt *time.Time
}

// NewMoodEntry creates an unsaved entry for userID.
func NewMoodEntry(userID string, mood Mood, note string) *MoodEntry {
	return &MoodEntry{userID: userID, mood: mood, note: note}
}

// NewAutoSavedEntry creates the default entry written when a check-in times out.
func NewAutoSavedEntry(userID string) *MoodEntry {
	e := NewMoodEntry(userID, AutoSaveMood, AutoSaveNote)
	e.autoSaved = true
	return e
}

// RestoreMoodEntry rebuilds a persisted entry from stored columns.
func RestoreMoodEntry(id string, sequence int, userID string, mood Mood, note string, autoSaved bool, createdAt time.Time, deletedAt *time.Time) *MoodEntry {
	return &MoodEntry{
		id:        id,
		sequence:  sequence,
		userID:    userID,
		mood:      mood,
		note:      note,
		autoSaved: autoSaved,
		createdAt: createdAt,
		deletedAt: deletedAt,
	}
}

func (e *MoodEntry) ID() string            { return e.id }
func (e *MoodEntry) Sequence() int         { return e.sequence }
func (e *MoodEntry) UserID() string        { return e.userID }
func (e *MoodEntry) Mood() Mood            { return e.mood }
func (e *MoodEntry) Note() string          { return e.note }
func (e *MoodEntry) AutoSaved() bool       { return e.autoSaved }
func (e *MoodEntry) CreatedAt() time.Time  { return e.createdAt }
func (e *MoodEntry) DeletedAt() *time.Time { return e.deletedAt }
func (e *MoodEntry) Deleted() bool         { return e.deletedAt != nil }

// Stamp records the store-assigned identity of a newly inserted entry.
func (e *MoodEntry) Stamp(id string, sequence int, createdAt time.Time) {
	e.id = id
	e.sequence = sequence
	e.createdAt = createdAt
}

// SetDeletedAt marks the entry as soft deleted.
func (e *MoodEntry) SetDeletedAt(t *time.Time) {
	e.deletedAt = t
}

// Validate checks ownership and the mood label.
func (e *MoodEntry) Validate() error {
	if strings.TrimSpace(e.userID) == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	}
	if !e.mood.Valid() {
		return fmt.Errorf("%w: %q", shared.ErrInvalidMood, e.mood)
	}
	return nil
}

type moodEntryJSON struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Mood      Mood       `json:"mood"`
	Note      string     `json:"note"`
	AutoSaved bool       `json:"auto_saved"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// MarshalJSON renders the entry with snake_case keys.
func (e *MoodEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(moodEntryJSON{
		ID:        e.id,
		UserID:    e.userID,
		Mood:      e.mood,
		Note:      e.note,
		AutoSaved: e.autoSaved,
		CreatedAt: e.createdAt,
		DeletedAt: e.deletedAt,
	})
}
