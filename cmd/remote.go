package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/moodlog/internal/client"
	"github.com/desertthunder/moodlog/internal/models"
	"github.com/desertthunder/moodlog/internal/shared"
	"github.com/urfave/cli/v3"
)

// RemoteCheckin runs the check-in against a moodlog server. The interactive prompt is local only,
// so --mood is required.
func (r *Runner) RemoteCheckin(ctx context.Context, cmd *cli.Command, userID, server string) error {
	if cmd.String("mood") == "" {
		return fmt.Errorf("%w: --mood is required with --server", shared.ErrMissingArgument)
	}
	mood, err := models.ParseMood(cmd.String("mood"))
	if err != nil {
		return err
	}

	c := client.New(server, userID, r.httpClient).WithTimezone(cmd.String("tz"))

	act, err := c.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start check-in: %w", err)
	}
	r.logger.Debug("remote check-in started", "server", server, "id", act.ID, "decision", act.Decision)

	if act.NeedsCheckIn() {
		entry, err := c.Submit(ctx, act.ID, mood.String(), cmd.String("note"))
		if err != nil {
			if dErr := c.Dispose(ctx, act.ID); dErr != nil {
				r.logger.Warn("failed to dispose remote check-in", "id", act.ID, "error", dErr)
			}
			return fmt.Errorf("failed to submit check-in: %w", err)
		}
		act.Entry = entry
		act.State = "settled"
	}

	if cmd.Bool("json") {
		return r.writeJSON(act, true)
	}

	switch {
	case act.Entry == nil:
		return r.writePlain("Check-in %s is %s\n", act.ID, act.State)
	case act.Decision == "already_checked_in":
		return r.writePlain("Already checked in today: %s at %s\n", act.Entry.Mood, act.Entry.CreatedAt.Format("15:04 MST"))
	default:
		return r.writePlain("✓ Saved %s on %s\n", act.Entry.Mood, server)
	}
}
