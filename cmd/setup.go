package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/desertthunder/moodlog/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations, creating config.toml from the template if missing.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if !r.configured {
		if _, err := os.Stat(configPath); err != nil {
			r.logger.Info("config file not found, creating from template", "path", configPath)
			if err := shared.CreateConfigFile(configPath); err != nil {
				r.logger.Warn("failed to create config file, using defaults", "error", err)
			} else {
				r.logger.Info("config file created", "path", configPath)
			}
		}
	}
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if err := r.open(cmd); err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.printMigrations(r.db)
}

// SetupRollback rolls back the most recently applied migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	db, done, err := r.migrationDB(cmd)
	if err != nil {
		return err
	}
	defer done()

	r.logger.Info("rolling back latest migration", "path", r.config.Database.Path)
	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	r.writePlain("✓ Rolled back latest migration\n")
	return r.printMigrations(db)
}

// SetupStatus lists known migrations without applying any.
func (r *Runner) SetupStatus(ctx context.Context, cmd *cli.Command) error {
	db, done, err := r.migrationDB(cmd)
	if err != nil {
		return err
	}
	defer done()
	return r.printMigrations(db)
}

// migrationDB returns the runner's database, or opens one without migrating it.
func (r *Runner) migrationDB(cmd *cli.Command) (*sql.DB, func(), error) {
	if err := r.loadConfig(cmd); err != nil {
		return nil, nil, err
	}
	if r.db != nil {
		return r.db, func() {}, nil
	}
	db, err := shared.OpenDatabase(r.config.Database.Path, r.config.Database.WAL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, func() { db.Close() }, nil
}

func (r *Runner) printMigrations(db *sql.DB) error {
	states, err := shared.MigrationStatus(db)
	if err != nil {
		return err
	}
	for _, s := range states {
		mark := " "
		if s.Applied {
			mark = "✓"
		}
		r.writePlain("[%s] %04d %s\n", mark, s.Version, s.Name)
	}
	return nil
}
