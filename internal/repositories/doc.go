// Package repositories implements SQLite persistence for mood entries.
//
// [MoodEntryRepository] is the Mood Record Store used by the check-in gate and the history views.
// Inserts assign the entry id, a per-table sequence number and the creation timestamp inside a single transaction,
// so a failed insert leaves nothing behind.
//
// Deletes are soft (deleted_at) and deleted rows are excluded from every query, including the latest-entry lookup
// the gate depends on.
//
// Sequence numbers give a stable tiebreaker when two entries share a timestamp.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
