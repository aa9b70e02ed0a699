package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/moodlog/internal/gate"
	"github.com/desertthunder/moodlog/internal/models"
	"github.com/urfave/cli/v3"
)

type checkinResult struct {
	Decision  gate.Decision     `json:"decision"`
	State     gate.State        `json:"state"`
	Entry     *models.MoodEntry `json:"entry,omitempty"`
	AutoSaved bool              `json:"auto_saved"`
}

// Checkin runs the daily gate for --user. Without --mood it opens the interactive prompt.
func (r *Runner) Checkin(ctx context.Context, cmd *cli.Command) error {
	userID, err := userArg(cmd)
	if err != nil {
		return err
	}
	if server := cmd.String("server"); server != "" {
		return r.RemoteCheckin(ctx, cmd, userID, server)
	}
	if cmd.String("mood") == "" {
		return r.CheckinPrompt(ctx, cmd, userID)
	}

	mood, err := models.ParseMood(cmd.String("mood"))
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

	act := r.gate.Activate(userID, gate.InLocation(loc))
	defer act.Dispose()

	decision, err := act.Evaluate(ctx)
	if err != nil {
		return err
	}

	if decision == gate.NeedsCheckIn {
		if _, err := act.Submit(ctx, mood, cmd.String("note")); err != nil {
			return err
		}
	}

	return r.printOutcome(act, cmd.Bool("json"))
}

func (r *Runner) printOutcome(act *gate.Activation, asJSON bool) error {
	out := act.Outcome()
	if asJSON {
		return r.writeJSON(checkinResult{
			Decision:  out.Decision,
			State:     act.State(),
			Entry:     out.Entry,
			AutoSaved: out.AutoSaved,
		}, true)
	}

	switch {
	case act.State() == gate.Disposed:
		return r.writePlain("Check-in skipped, nothing was saved.\n")
	case out.Err != nil:
		return fmt.Errorf("check-in failed: %w", out.Err)
	case out.Entry == nil:
		return nil
	case out.Decision == gate.AlreadyCheckedIn:
		return r.writePlain("Already checked in today: %s %s at %s\n",
			out.Entry.Mood().Emoji(), out.Entry.Mood(), out.Entry.CreatedAt().In(act.Location()).Format("15:04"))
	case out.AutoSaved:
		return r.writePlain("Auto-saved %s %s\n", out.Entry.Mood().Emoji(), out.Entry.Mood())
	default:
		if err := r.writePlain("✓ Saved %s %s\n", out.Entry.Mood().Emoji(), out.Entry.Mood()); err != nil {
			return err
		}
		if out.Entry.Note() != "" {
			return r.writePlain("  %s\n", out.Entry.Note())
		}
		return nil
	}
}
