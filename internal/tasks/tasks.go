// package tasks implements history reports over stored mood entries.
//
// The core abstraction is HistoryEngine, which lists, summarizes and exports a user's check-ins.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/desertthunder/moodlog/internal/formatter"
	"github.com/desertthunder/moodlog/internal/models"
	"github.com/desertthunder/moodlog/internal/repositories"
	"github.com/desertthunder/moodlog/internal/shared"
	"github.com/facebookgo/clock"
)

// HistoryStore lists stored entries. Implemented by [repositories.MoodEntryRepository].
type HistoryStore interface {
	List(ctx context.Context, criteria repositories.ListCriteria) ([]*models.MoodEntry, error)
}

// HistoryOpts narrows a listing.
type HistoryOpts struct {
	Location *time.Location // viewer zone; defaults to Local
	Days     int            // last N calendar days including today; 0 means all
	Since    time.Time      // overrides Days when set
	Mood     models.Mood
	Limit    int
}

// Summary aggregates a user's check-ins over a window of calendar days.
type Summary struct {
	UserID         string              `json:"user_id"`
	Timezone       string              `json:"timezone"`
	From           string              `json:"from,omitempty"` // first date of the window, empty for all history
	To             string              `json:"to"`
	Total          int                 `json:"total"`
	AutoSaved      int                 `json:"auto_saved"`
	Counts         map[models.Mood]int `json:"counts"`
	MostCommon     models.Mood         `json:"most_common,omitempty"`
	DaysCheckedIn  int                 `json:"days_checked_in"`
	CheckedInToday bool                `json:"checked_in_today"`
	CurrentStreak  int                 `json:"current_streak"`
	LongestStreak  int                 `json:"longest_streak"`
}

// ExportOpts configures [HistoryEngine.Export].
type ExportOpts struct {
	Format     formatter.Format
	OutputPath string // default: moods_{user}.{ext}
	Location   *time.Location
	Days       int
}

// ExportResult reports where an export was written.
type ExportResult struct {
	Path    string
	Format  formatter.Format
	Entries int
}

// HistoryEngine implements history reports over a [HistoryStore].
type HistoryEngine struct {
	store HistoryStore
	clock clock.Clock
}

// NewHistoryEngine creates a new HistoryEngine. A nil clock uses the wall clock.
func NewHistoryEngine(store HistoryStore, c clock.Clock) *HistoryEngine {
	if c == nil {
		c = clock.New()
	}
	return &HistoryEngine{store: store, clock: c}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *HistoryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// windowStart returns midnight of the first day of a days-long window ending today, or zero for all history.
func (e *HistoryEngine) windowStart(days int, loc *time.Location) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	return shared.CalendarDate(e.clock.Now(), loc).AddDate(0, 0, -(days - 1))
}

// History lists a user's live entries, newest first.
func (e *HistoryEngine) History(ctx context.Context, userID string, opts HistoryOpts) (*formatter.History, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	since := opts.Since
	if since.IsZero() {
		since = e.windowStart(opts.Days, loc)
	}

	entries, err := e.store.List(ctx, repositories.ListCriteria{
		UserID: userID,
		Mood:   opts.Mood,
		Since:  since,
		Limit:  opts.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStoreRead, err)
	}

	return &formatter.History{UserID: userID, Location: loc, Entries: entries}, nil
}

// Summarize aggregates the last days calendar days (all history when days is 0) as seen from loc.
func (e *HistoryEngine) Summarize(ctx context.Context, progress chan<- ProgressUpdate, userID string, loc *time.Location, days int) (*Summary, error) {
	if loc == nil {
		loc = time.Local
	}

	e.sendProgress(progress, fetchEntriesUpdate(1, 2, userID))
	h, err := e.History(ctx, userID, HistoryOpts{Location: loc, Days: days})
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, foundEntriesUpdate(1, 2, len(h.Entries)))

	e.sendProgress(progress, aggregateUpdate(2, 2))

	today := shared.CalendarDate(e.clock.Now(), loc)
	summary := &Summary{
		UserID:   userID,
		Timezone: loc.String(),
		To:       today.Format(time.DateOnly),
		Counts:   make(map[models.Mood]int, len(models.Moods())),
	}
	if start := e.windowStart(days, loc); !start.IsZero() {
		summary.From = start.Format(time.DateOnly)
	}
	for _, m := range models.Moods() {
		summary.Counts[m] = 0
	}

	seen := make(map[time.Time]bool)
	for _, entry := range h.Entries {
		summary.Total++
		summary.Counts[entry.Mood()]++
		if entry.AutoSaved() {
			summary.AutoSaved++
		}
		seen[shared.CalendarDate(entry.CreatedAt(), loc)] = true
	}

	best := 0
	for _, m := range models.Moods() {
		if c := summary.Counts[m]; c > best {
			best = c
			summary.MostCommon = m
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	summary.DaysCheckedIn = len(dates)
	summary.CheckedInToday = seen[today]
	summary.CurrentStreak = currentStreak(seen, today)
	summary.LongestStreak = longestStreak(dates)

	return summary, nil
}

// currentStreak counts consecutive days ending today, or ending yesterday when today has no entry yet.
func currentStreak(seen map[time.Time]bool, today time.Time) int {
	day := today
	if !seen[day] {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for seen[day] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// longestStreak expects ascending calendar dates.
func longestStreak(dates []time.Time) int {
	longest, run := 0, 0
	for i, d := range dates {
		if i > 0 && dates[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}

// Export renders a user's history and writes it to disk.
func (e *HistoryEngine) Export(ctx context.Context, progress chan<- ProgressUpdate, userID string, opts ExportOpts) (*ExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.JSON
	}

	e.sendProgress(progress, fetchEntriesUpdate(1, 3, userID))
	h, err := e.History(ctx, userID, HistoryOpts{Location: opts.Location, Days: opts.Days})
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, foundEntriesUpdate(1, 3, len(h.Entries)))

	e.sendProgress(progress, renderExportUpdate(2, 3, opts.Format))
	path, err := formatter.WriteExport(h, opts.Format, opts.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("export failed: %w", err)
	}

	e.sendProgress(progress, exportWrittenUpdate(3, 3, path))
	return &ExportResult{Path: path, Format: opts.Format, Entries: len(h.Entries)}, nil
}
