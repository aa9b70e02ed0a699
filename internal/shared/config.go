package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// DefaultAutoSaveAfter is how long an armed check-in waits before saving the default mood.
const DefaultAutoSaveAfter = 30 * time.Second

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Checkin  CheckinConfig  `toml:"checkin"`
	Logging  LoggingConfig  `toml:"logging"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	WAL          bool   `toml:"wal"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `toml:"host"`
	Port            int           `toml:"port"`
	RateLimit       float64       `toml:"rate_limit"` // requests per second, per user
	RateBurst       int           `toml:"rate_burst"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// CheckinConfig contains daily check-in gate settings.
type CheckinConfig struct {
	AutoSaveAfter time.Duration `toml:"auto_save_after"`
	WriteTimeout  time.Duration `toml:"write_timeout"`
	Timezone      string        `toml:"timezone"`
	ActivationTTL time.Duration `toml:"activation_ttl"` // how long finished activations stay queryable
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	Level   string `toml:"level"`
	TUIFile string `toml:"tui_file"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Location resolves the configured default viewer time zone.
func (c CheckinConfig) Location() (*time.Location, error) {
	return LoadLocation(c.Timezone)
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("%w: server rate limits must not be negative", ErrInvalidConfig)
	}
	if c.Checkin.AutoSaveAfter <= 0 {
		return fmt.Errorf("%w: checkin.auto_save_after must be positive", ErrInvalidConfig)
	}
	if c.Checkin.WriteTimeout < 0 || c.Checkin.ActivationTTL < 0 {
		return fmt.Errorf("%w: checkin timeouts must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Checkin.Location(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
