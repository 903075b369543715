// Package database persists research gaps with sqlx on PostgreSQL or SQLite.
package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25

	// DefaultMaxIdleConns is the default maximum number of idle connections
	DefaultMaxIdleConns = 5

	// DefaultConnMaxLifetime is the default maximum lifetime of a connection
	DefaultConnMaxLifetime = 5 * time.Minute

	// DefaultPingTimeout is the default timeout for pinging the database
	DefaultPingTimeout = 5 * time.Second
)

// Config holds database configuration
type Config struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	// Path is the SQLite database file.
	Path string
}

// DSN returns the driver data source name.
func (c Config) DSN() string {
	if c.Driver == DriverSQLite {
		return c.Path
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// MigrationURL returns the database URL understood by golang-migrate.
func (c Config) MigrationURL() string {
	if c.Driver == DriverSQLite {
		return "sqlite3://" + c.Path
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Connect opens a pooled connection and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	switch cfg.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(DefaultMaxOpenConns)
		db.SetMaxIdleConns(DefaultMaxIdleConns)
		db.SetConnMaxLifetime(DefaultConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return db, nil
}

// Close closes the database connection
func Close(db *sqlx.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
