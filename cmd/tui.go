package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodlog/internal/gate"
	"github.com/desertthunder/moodlog/internal/shared"
	"github.com/desertthunder/moodlog/internal/ui"
	"github.com/urfave/cli/v3"
)

// CheckinPrompt launches the interactive check-in for userID.
func (r *Runner) CheckinPrompt(ctx context.Context, cmd *cli.Command, userID string) error {
	if err := r.open(cmd); err != nil {
		return err
	}
	loc, err := r.location(cmd)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Logging.TUIFile)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	if level, err := shared.ParseLogLevel(r.config.Logging.Level); err == nil {
		shared.SetLogLevel(fileLogger, level)
	}
	r.SetLogger(shared.WithLogger(fileLogger, "user", userID))

	act := r.gate.Activate(userID, gate.InLocation(loc))
	defer act.Dispose()

	model := ui.NewModel(ctx, act, r.clock)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return r.printOutcome(act, cmd.Bool("json"))
}
