// Package database provides database connectivity and record persistence.
package database

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ibeckermayer/tgharvest/internal/config"
)

const (
	// DefaultMaxOpenConns is the default maximum number of open connections
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime is the default maximum connection lifetime
	DefaultConnMaxLifetime = 5 * time.Minute
	// DefaultPingTimeout is the default timeout for ping operations
	DefaultPingTimeout = 5 * time.Second
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrUnknownDriver is returned by Open for drivers other than postgres and sqlite.
var ErrUnknownDriver = errors.New("unknown database driver")

// Config holds database configuration.
type Config struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the database file for the sqlite driver.
	Path string
}

// ConfigFrom maps the application's database section onto a connection config.
func ConfigFrom(c config.DatabaseConfig) Config {
	return Config{
		Driver:   c.Driver,
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		DBName:   c.Name,
		SSLMode:  c.SSLMode,
		Path:     c.Path,
	}
}

// Open connects to the configured database.
func Open(cfg Config) (*sqlx.DB, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return NewPostgresConnection(cfg)
	case DriverSQLite:
		return NewSQLiteConnection(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// postgresDSN renders cfg as a postgres:// URL. Empty fields are left out
// and the rest are escaped, so blanks and spaces cannot shift keys.
func postgresDSN(cfg Config) string {
	u := &url.URL{Scheme: "postgres", Host: cfg.Host}
	if cfg.Port != "" {
		u.Host = net.JoinHostPort(cfg.Host, cfg.Port)
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	if cfg.DBName != "" {
		u.Path = "/" + cfg.DBName
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

// NewPostgresConnection creates a new PostgreSQL database connection.
func NewPostgresConnection(cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect(DriverPostgres, postgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), DefaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return db, nil
}

// NewSQLiteConnection opens (and creates if needed) a SQLite database file.
func NewSQLiteConnection(path string) (*sqlx.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database dir: %w", err)
	}

	db, err := sqlx.Open(DriverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), DefaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return db, nil
}
