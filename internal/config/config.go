// Package config loads and validates tgharvest configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Configuration validation errors.
var (
	ErrNoChannels          = errors.New("at least one channel is required")
	ErrChannelMissingName  = errors.New("channel name is required")
	ErrInvalidChannelName  = errors.New("channel name may only contain letters, digits, '_', '-' and '.'")
	ErrChannelMissingURL   = errors.New("channel url is required")
	ErrDuplicateChannel    = errors.New("channel names must be unique")
	ErrInvalidMaxMessages  = errors.New("scraping.max_messages must be at least 1")
	ErrInvalidConcurrency  = errors.New("scraping.concurrency must be at least 1")
	ErrMissingRawDir       = errors.New("scraping.raw_dir is required")
	ErrInvalidDateError    = errors.New("cleaning.on_date_error must be one of: drop, abort")
	ErrInvalidDriver       = errors.New("database.driver must be one of: postgres, sqlite")
	ErrInvalidIfExists     = errors.New("database.if_exists must be one of: fail, replace, append")
	ErrInvalidTableName    = errors.New("database.table must be a plain SQL identifier")
	ErrMissingSQLitePath   = errors.New("database.path is required for sqlite")
	ErrInvalidLogLevel     = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrMissingEmailAddress = errors.New("email.from_address and email.to_address are required when email is enabled")
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// channelNamePattern keeps names usable as a single file name. The leading
// character cannot be '.', which rules out "." and "..".
var channelNamePattern = regexp.MustCompile(`^[\p{L}\p{N}_-][\p{L}\p{N}_.-]*$`)

// Config holds all application configuration
type Config struct {
	Version  int             `toml:"version"`
	Channels []ChannelConfig `toml:"channels"`
	Scraping ScrapingConfig  `toml:"scraping"`
	Cleaning CleaningConfig  `toml:"cleaning"`
	Database DatabaseConfig  `toml:"database"`
	Schedule ScheduleConfig  `toml:"schedule"`
	Logging  LoggingConfig   `toml:"logging"`
	Email    EmailConfig     `toml:"email"`
}

// ChannelConfig names one channel and its public URL.
type ChannelConfig struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

type ScrapingConfig struct {
	MaxMessages        int    `toml:"max_messages"`
	Headless           bool   `toml:"headless"`
	Concurrency        int    `toml:"concurrency"`
	PageTimeoutSeconds int    `toml:"page_timeout_seconds"`
	RawDir             string `toml:"raw_dir"`
}

type CleaningConfig struct {
	OnDateError  string `toml:"on_date_error"`
	ProcessedDir string `toml:"processed_dir"`
}

type DatabaseConfig struct {
	Driver   string `toml:"driver"`
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	SSLMode  string `toml:"sslmode"`
	Path     string `toml:"path"`
	Table    string `toml:"table"`
	IfExists string `toml:"if_exists"`
}

type ScheduleConfig struct {
	Cron     string `toml:"cron"`
	Timezone string `toml:"timezone"`
}

type LoggingConfig struct {
	Level       string   `toml:"level"`
	Development bool     `toml:"development"`
	OutputPaths []string `toml:"output_paths"`
}

type EmailConfig struct {
	Enabled  bool   `toml:"enabled"`
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass"`
	FromAddr string `toml:"from_address"`
	ToAddr   string `toml:"to_address"`
}

// DefaultChannels are the channels scraped when none are configured.
func DefaultChannels() []ChannelConfig {
	return []ChannelConfig{
		{Name: "DoctorsET", URL: "https://t.me/DoctorsET"},
		{Name: "Chemed", URL: "https://t.me/CheMed123"},
		{Name: "Lobelia4Cosmetics", URL: "https://t.me/lobelia4cosmetics"},
		{Name: "Yetenaweg", URL: "https://t.me/yetenaweg"},
		{Name: "EAHCI", URL: "https://t.me/EAHCI"},
	}
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version:  1,
		Channels: DefaultChannels(),
		Scraping: ScrapingConfig{
			MaxMessages:        100,
			Headless:           true,
			Concurrency:        2,
			PageTimeoutSeconds: 60,
			RawDir:             filepath.Join("data", "raw", "telegram"),
		},
		Cleaning: CleaningConfig{
			OnDateError:  "drop",
			ProcessedDir: filepath.Join("data", "processed", "telegram"),
		},
		Database: DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     "5432",
			SSLMode:  "disable",
			Path:     filepath.Join("data", "tgharvest.db"),
			Table:    "telegram_messages",
			IfExists: "replace",
		},
		Schedule: ScheduleConfig{
			Cron:     "0 */6 * * *",
			Timezone: "UTC",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Email: EmailConfig{
			SMTPPort: 587,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "tgharvest"), nil
}

// ConfigPath returns the full path to the default config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config from path on top of the defaults, then applies
// environment overrides. .env files are loaded first and never override
// variables already set in the process environment.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.Channels = nil
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if len(cfg.Channels) == 0 {
		cfg.Channels = DefaultChannels()
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// LoadOrCreate loads path, writing the defaults there first if it does not exist.
func LoadOrCreate(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}

	cfg = Default()
	if err := cfg.Save(path); err != nil {
		return nil, false, fmt.Errorf("write default config: %w", err)
	}
	cfg.ApplyEnv()
	return cfg, true, nil
}

// Save writes config to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}

// loadEnvFiles loads ENV_FILE if set, otherwise .env.local and .env.
// Missing files are ignored.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// ApplyEnv overrides credentials and connection settings from the environment.
func (c *Config) ApplyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{"DB_DRIVER", &c.Database.Driver},
		{"DB_HOST", &c.Database.Host},
		{"DB_PORT", &c.Database.Port},
		{"DB_NAME", &c.Database.Name},
		{"DB_USER", &c.Database.User},
		{"DB_PASSWORD", &c.Database.Password},
		{"DB_SSLMODE", &c.Database.SSLMode},
		{"DB_PATH", &c.Database.Path},
		{"LOG_LEVEL", &c.Logging.Level},
		{"SMTP_PASS", &c.Email.SMTPPass},
	}

	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.dst = v
		}
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Channels) == 0 {
		return ErrNoChannels
	}

	seen := make(map[string]bool, len(c.Channels))
	for i, ch := range c.Channels {
		if ch.Name == "" {
			return fmt.Errorf("%w at index %d", ErrChannelMissingName, i)
		}
		if !channelNamePattern.MatchString(ch.Name) {
			return fmt.Errorf("%w: %q", ErrInvalidChannelName, ch.Name)
		}
		if ch.URL == "" {
			return fmt.Errorf("%w for %s", ErrChannelMissingURL, ch.Name)
		}
		if seen[ch.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateChannel, ch.Name)
		}
		seen[ch.Name] = true
	}

	if c.Scraping.MaxMessages < 1 {
		return ErrInvalidMaxMessages
	}
	if c.Scraping.Concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if c.Scraping.RawDir == "" {
		return ErrMissingRawDir
	}

	switch strings.ToLower(c.Cleaning.OnDateError) {
	case "", "drop", "abort":
	default:
		return ErrInvalidDateError
	}

	switch c.Database.Driver {
	case "postgres":
	case "sqlite":
		if c.Database.Path == "" {
			return ErrMissingSQLitePath
		}
	default:
		return ErrInvalidDriver
	}

	switch c.Database.IfExists {
	case "fail", "replace", "append":
	default:
		return ErrInvalidIfExists
	}

	if !identifierPattern.MatchString(c.Database.Table) {
		return ErrInvalidTableName
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return ErrInvalidLogLevel
	}

	if c.Email.Enabled && (c.Email.FromAddr == "" || c.Email.ToAddr == "") {
		return ErrMissingEmailAddress
	}

	return nil
}
