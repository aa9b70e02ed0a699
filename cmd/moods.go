package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/moodlog/internal/formatter"
	"github.com/desertthunder/moodlog/internal/models"
	"github.com/desertthunder/moodlog/internal/shared"
	"github.com/desertthunder/moodlog/internal/tasks"
	"github.com/urfave/cli/v3"
)

// MoodsList prints a user's entries, newest first.
func (r *Runner) MoodsList(ctx context.Context, cmd *cli.Command) error {
	userID, err := userArg(cmd)
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := r.open(cmd); err != nil {
		return err
	}
	loc, err := r.location(cmd)
	if err != nil {
		return err
	}

	opts := tasks.HistoryOpts{
		Location: loc,
		Days:     int(cmd.Int("days")),
		Limit:    int(cmd.Int("limit")),
	}
	if since := cmd.String("since"); since != "" {
		if opts.Since, err = time.ParseInLocation(time.DateOnly, since, loc); err != nil {
			return fmt.Errorf("%w: --since must be YYYY-MM-DD", shared.ErrInvalidArgument)
		}
	}
	if mood := cmd.String("mood"); mood != "" {
		if opts.Mood, err = models.ParseMood(mood); err != nil {
			return err
		}
	}

	history, err := r.engine.History(ctx, userID, opts)
	if err != nil {
		return err
	}
	data, err := formatter.Render(history, format)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// MoodsDelete removes an entry from the user's history.
func (r *Runner) MoodsDelete(ctx context.Context, cmd *cli.Command) error {
	userID, err := userArg(cmd)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(cmd.String("id"))
	if id == "" {
		return fmt.Errorf("%w: --id is required", shared.ErrMissingArgument)
	}
	if err := r.open(cmd); err != nil {
		return err
	}

	if err := r.entries.Delete(ctx, userID, id); err != nil {
		return err
	}
	r.logger.Info("deleted mood entry", "user", userID, "id", id)
	return r.writePlain("✓ Deleted entry %s\n", id)
}

// MoodsSummary prints counts per mood and check-in streaks.
func (r *Runner) MoodsSummary(ctx context.Context, cmd *cli.Command) error {
	userID, err := userArg(cmd)
	if err != nil {
		return err
	}
	if err := r.open(cmd); err != nil {
		return err
	}
	loc, err := r.location(cmd)
	if err != nil {
		return err
	}

	summary, err := r.engine.Summarize(ctx, nil, userID, loc, int(cmd.Int("days")))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(summary, true)
	}

	r.writePlainHeader(fmt.Sprintf("Mood summary for %s", summary.UserID))
	if summary.From != "" {
		r.writePlain("Window: %s to %s (%s)\n", summary.From, summary.To, summary.Timezone)
	} else {
		r.writePlain("Window: all history to %s (%s)\n", summary.To, summary.Timezone)
	}
	r.writePlain("Entries: %d (%d auto-saved)\n\n", summary.Total, summary.AutoSaved)

	for _, m := range models.Moods() {
		n := summary.Counts[m]
		r.writePlain("%s %-8s %3d %s\n", m.Emoji(), m, n, strings.Repeat("█", n))
	}
	if summary.MostCommon != "" {
		r.writePlainln("Most common: %s %s", summary.MostCommon.Emoji(), summary.MostCommon)
	}

	today := "no"
	if summary.CheckedInToday {
		today = "yes"
	}
	r.writePlain("\nDays checked in: %d\n", summary.DaysCheckedIn)
	r.writePlain("Checked in today: %s\n", today)
	r.writePlain("Current streak: %d days\n", summary.CurrentStreak)
	r.writePlain("Longest streak: %d days\n", summary.LongestStreak)
	return nil
}

// MoodsExport writes a user's history to a file.
func (r *Runner) MoodsExport(ctx context.Context, cmd *cli.Command) error {
	userID, err := userArg(cmd)
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := r.open(cmd); err != nil {
		return err
	}
	loc, err := r.location(cmd)
	if err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 10)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchEntries:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.RenderExport:
				r.writePlain("📝 %s\n", update.Message)
			case tasks.WriteExport:
				r.writePlain("💾 %s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.Export(ctx, progressCh, userID, tasks.ExportOpts{
		Format:     format,
		OutputPath: cmd.String("output"),
		Location:   loc,
		Days:       int(cmd.Int("days")),
	})
	close(progressCh)
	<-printed

	if err != nil {
		return err
	}

	r.logger.Info("exported history", "user", userID, "format", result.Format, "path", result.Path)
	r.writePlainln("✓ Exported %d entries to %s", result.Entries, result.Path)
	return nil
}
