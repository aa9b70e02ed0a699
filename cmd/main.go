package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/moodlog/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:    "moodlog",
		Usage:   "Daily mood check-ins from the terminal or over HTTP",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Commands: runner.register(),
		After: func(ctx context.Context, cmd *cli.Command) error {
			return runner.Close()
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidArgument),
			errors.Is(err, shared.ErrInvalidMood), errors.Is(err, shared.ErrInvalidFlag):
			logger.Error(err)
			os.Exit(2)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
