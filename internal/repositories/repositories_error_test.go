package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/moodlog/internal/models"
	"github.com/desertthunder/moodlog/internal/shared"
)

func TestMoodEntryRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Insert", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			repo, _, db := setupRepo(t, day)
			defer db.Close()

			if _, err := repo.Insert(ctx, models.NewMoodEntry("", models.MoodHappy, "")); err == nil {
				t.Fatal("expected validation error for empty user")
			}

			_, err := repo.Insert(ctx, models.NewMoodEntry("u-1", models.Mood("Elated"), ""))
			if !errors.Is(err, shared.ErrInvalidMood) {
				t.Fatalf("expected ErrInvalidMood, got %v", err)
			}
		})

		t.Run("FailedInsertLeavesNoRow", func(t *testing.T) {
			repo, _, db := setupRepo(t, day)
			defer db.Close()

			if _, err := db.Exec("DROP TABLE mood_entries_sequence"); err != nil {
				t.Fatalf("failed to drop sequence table: %v", err)
			}

			if _, err := repo.Insert(ctx, models.NewMoodEntry("u-1", models.MoodHappy, "")); err == nil {
				t.Fatal("expected error when sequence table is missing")
			}

			var count int
			if err := db.QueryRow("SELECT COUNT(*) FROM mood_entries").Scan(&count); err != nil {
				t.Fatalf("failed to count: %v", err)
			}
			if count != 0 {
				t.Errorf("expected no partial write, found %d rows", count)
			}
		})

		t.Run("ClosedDatabase", func(t *testing.T) {
			repo, _, db := setupRepo(t, day)
			db.Close()

			if _, err := repo.Insert(ctx, models.NewMoodEntry("u-1", models.MoodHappy, "")); err == nil {
				t.Fatal("expected error on closed database")
			}
		})
	})

	t.Run("QueryLatest", func(t *testing.T) {
		t.Run("ClosedDatabase", func(t *testing.T) {
			repo, _, db := setupRepo(t, day)
			db.Close()

			if _, err := repo.QueryLatest(ctx, "u-1"); err == nil {
				t.Fatal("expected error on closed database")
			}
		})

		t.Run("CorruptMood", func(t *testing.T) {
			repo, _, db := setupRepo(t, day)
			defer db.Close()

			if _, err := db.Exec("DROP TABLE mood_entries"); err != nil {
				t.Fatalf("failed to drop table: %v", err)
			}
			if _, err := db.Exec(`CREATE TABLE mood_entries (
				id TEXT PRIMARY KEY, sequence INTEGER, user_id TEXT, mood TEXT, note TEXT,
				auto_saved BOOLEAN, created_at TIMESTAMP, deleted_at TIMESTAMP)`); err != nil {
				t.Fatalf("failed to recreate table: %v", err)
			}
			if _, err := db.Exec(`INSERT INTO mood_entries VALUES ('x', 1, 'u-1', 'Ecstatic', '', 0, ?, NULL)`, day); err != nil {
				t.Fatalf("failed to seed row: %v", err)
			}

			_, err := repo.QueryLatest(ctx, "u-1")
			if !errors.Is(err, shared.ErrInvalidMood) {
				t.Fatalf("expected ErrInvalidMood for unknown stored label, got %v", err)
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo, _, db := setupRepo(t, day)
			defer db.Close()

			_, err := repo.Get(ctx, "nonexistent-id")
			if !errors.Is(err, shared.ErrEntryNotFound) {
				t.Fatalf("expected ErrEntryNotFound, got %v", err)
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo, _, db := setupRepo(t, day)
			defer db.Close()

			if err := repo.Delete(ctx, "u-1", "nonexistent-id"); !errors.Is(err, shared.ErrEntryNotFound) {
				t.Fatalf("expected ErrEntryNotFound, got %v", err)
			}
		})

		t.Run("OtherUsersEntry", func(t *testing.T) {
			repo, _, db := setupRepo(t, day)
			defer db.Close()

			saved := mustInsert(t, repo, models.NewMoodEntry("u-1", models.MoodHappy, ""))
			if err := repo.Delete(ctx, "u-2", saved.ID()); !errors.Is(err, shared.ErrEntryNotFound) {
				t.Fatalf("expected ErrEntryNotFound deleting another user's entry, got %v", err)
			}
		})

		t.Run("AlreadyDeleted", func(t *testing.T) {
			repo, _, db := setupRepo(t, day)
			defer db.Close()

			saved := mustInsert(t, repo, models.NewMoodEntry("u-1", models.MoodHappy, ""))
			if err := repo.Delete(ctx, "u-1", saved.ID()); err != nil {
				t.Fatalf("first delete failed: %v", err)
			}
			if err := repo.Delete(ctx, "u-1", saved.ID()); err == nil {
				t.Fatal("expected error deleting twice")
			}
		})
	})
}
