// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "User ID to check in as",
		Sources:  cli.EnvVars("MOODLOG_USER"),
		Required: true,
	}
}

func tzFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "tz",
		Usage: "IANA time zone that decides what \"today\" is (default: checkin.timezone)",
	}
}

// setupCommand handles database setup operations.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create config if missing, initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
			{
				Name:   "status",
				Usage:  "List migrations and whether they are applied",
				Action: r.SetupStatus,
			},
		},
	}
}

// checkinCommand runs the daily check-in gate for one user.
func checkinCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "checkin",
		Aliases: []string{"ci"},
		Usage:   "Check in today's mood (interactive unless --mood is given)",
		Flags: []cli.Flag{
			userFlag(),
			tzFlag(),
			&cli.StringFlag{
				Name:    "mood",
				Aliases: []string{"m"},
				Usage:   "Mood label: Happy, Okay, Neutral, Sad or Angry",
			},
			&cli.StringFlag{
				Name:    "note",
				Aliases: []string{"n"},
				Usage:   "Optional note",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the outcome as JSON",
			},
			&cli.StringFlag{
				Name:    "server",
				Usage:   "Check in through a running moodlog server at this URL instead of the local database",
				Sources: cli.EnvVars("MOODLOG_SERVER"),
			},
		},
		Action: r.Checkin,
	}
}

// moodsCommand handles history operations.
func moodsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "moods",
		Aliases: []string{"history"},
		Usage:   "Browse, summarize and export check-in history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List entries, newest first",
				Flags: []cli.Flag{
					userFlag(),
					tzFlag(),
					&cli.StringFlag{
						Name:  "since",
						Usage: "Only entries on or after this date (YYYY-MM-DD)",
					},
					&cli.IntFlag{
						Name:  "days",
						Usage: "Only the last N calendar days including today",
					},
					&cli.StringFlag{
						Name:  "mood",
						Usage: "Only entries with this mood",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries to return",
						Value: 30,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: table, json, csv or markdown",
						Value:   "table",
					},
				},
				Action: r.MoodsList,
			},
			{
				Name:  "delete",
				Usage: "Delete an entry from history",
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Entry ID to delete",
						Required: true,
					},
				},
				Action: r.MoodsDelete,
			},
			{
				Name:  "summary",
				Usage: "Summarize moods and streaks",
				Flags: []cli.Flag{
					userFlag(),
					tzFlag(),
					&cli.IntFlag{
						Name:  "days",
						Usage: "Window of calendar days including today (0 for all history)",
						Value: 30,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.MoodsSummary,
			},
			{
				Name:  "export",
				Usage: "Export history to a file",
				Flags: []cli.Flag{
					userFlag(),
					tzFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown or text",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: moods_{user}.{ext})",
					},
					&cli.IntFlag{
						Name:  "days",
						Usage: "Only the last N calendar days including today",
					},
				},
				Action: r.MoodsExport,
			},
		},
	}
}

// serveCommand runs the HTTP check-in service.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the check-in HTTP service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (default: server.port)",
			},
		},
		Action: r.Serve,
	}
}
