package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/moodlog/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP check-in service until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(cmd); err != nil {
		return err
	}

	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = int(port)
	}

	loc, err := r.config.Checkin.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(server.Opts{
		Config:   cfg,
		Gate:     r.gate,
		Registry: server.NewRegistry(r.clock, r.config.Checkin.ActivationTTL, r.logger),
		History:  r.engine,
		Entries:  r.entries,
		Location: loc,
		Logger:   r.logger,
	})

	r.logger.Info("starting check-in service", "addr", cfg.Addr(), "auto_save_after", r.gate.AutoSaveAfter())
	return srv.Run(ctx)
}
