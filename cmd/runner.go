package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlog/internal/gate"
	"github.com/desertthunder/moodlog/internal/repositories"
	"github.com/desertthunder/moodlog/internal/shared"
	"github.com/desertthunder/moodlog/internal/tasks"
	"github.com/facebookgo/clock"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database and everything built on it are opened on first use so that commands like
// setup can run before a database exists.
type Runner struct {
	config     *shared.Config
	configured bool // config came from RunnerOpts or was already loaded
	db         *sql.DB
	ownsDB     bool
	clock      clock.Clock
	entries    *repositories.MoodEntryRepository
	gate       *gate.Gate
	engine     *tasks.HistoryEngine
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	DB         *sql.DB // migrated database; opened from config when nil
	Clock      clock.Clock
	HTTPClient *http.Client // used by commands that talk to a remote server
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	configured := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:     opts.Config,
		configured: configured,
		db:         opts.DB,
		clock:      opts.Clock,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	if r.db != nil {
		if err := r.wire(); err != nil {
			r.logger.Warn("failed to wire runner", "error", err)
		}
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, checkinCommand, moodsCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger swaps the logger, rebuilding the gate so activations log to it too.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	if r.db != nil {
		if err := r.wire(); err != nil {
			r.logger.Warn("failed to rewire runner", "error", err)
		}
	}
}

// Close releases the database if the runner opened it.
func (r *Runner) Close() error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.gate, r.engine, r.entries = nil, nil, nil
	return err
}

// loadConfig reads the --config file when present, falling back to defaults.
func (r *Runner) loadConfig(cmd *cli.Command) error {
	if r.configured {
		return nil
	}

	path := cmd.String("config")
	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return err
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", path)
	}

	if err := r.config.Validate(); err != nil {
		return err
	}
	level, err := shared.ParseLogLevel(r.config.Logging.Level)
	if err != nil {
		return err
	}
	shared.SetLogLevel(r.logger, level)
	r.configured = true
	return nil
}

// open loads config, opens and migrates the database and wires the gate and history engine.
func (r *Runner) open(cmd *cli.Command) error {
	if r.gate != nil {
		return nil
	}
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	db, err := shared.OpenDatabase(r.config.Database.Path, r.config.Database.WAL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db, r.ownsDB = db, true
	return r.wire()
}

func (r *Runner) wire() error {
	loc, err := r.config.Checkin.Location()
	if err != nil {
		return err
	}

	r.entries = repositories.NewMoodEntryRepository(r.db).WithClock(r.clock)
	r.engine = tasks.NewHistoryEngine(r.entries, r.clock)
	r.gate = gate.New(r.entries, gate.Options{
		Clock:         r.clock,
		Location:      loc,
		AutoSaveAfter: r.config.Checkin.AutoSaveAfter,
		WriteTimeout:  r.config.Checkin.WriteTimeout,
		Logger:        r.logger,
	})
	return nil
}

// location resolves --tz, falling back to checkin.timezone.
func (r *Runner) location(cmd *cli.Command) (*time.Location, error) {
	if tz := strings.TrimSpace(cmd.String("tz")); tz != "" {
		return shared.LoadLocation(tz)
	}
	return r.config.Checkin.Location()
}

func userArg(cmd *cli.Command) (string, error) {
	user := strings.TrimSpace(cmd.String("user"))
	if user == "" {
		return "", fmt.Errorf("%w: --user is required", shared.ErrMissingArgument)
	}
	return user, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
