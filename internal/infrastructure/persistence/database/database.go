// Package database opens the submission store: a local SQLite file by default,
// or a remote libsql database when the URL says so.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
)

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
	Driver string
	logger *logging.ChanneledLogger
}

// Options controls the connection pool.
type Options struct {
	AuthToken       string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// IsRemote reports whether url addresses a libsql server.
func IsRemote(url string) bool {
	for _, scheme := range []string{"libsql://", "https://", "http://", "wss://", "ws://"} {
		if strings.HasPrefix(url, scheme) {
			return true
		}
	}
	return false
}

// Open connects to url and pings it. Local paths get their parent directory
// created first.
func Open(ctx context.Context, url string, opts Options, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()

	driver, dsn := "sqlite3", url
	if IsRemote(url) {
		driver = "libsql"
		if opts.AuthToken != "" {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "authToken=" + opts.AuthToken
		}
	} else {
		if dir := filepath.Dir(url); dir != "." && !strings.HasPrefix(url, "file::memory:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_busy_timeout=5000&_foreign_keys=on"
		}
	}

	logger.Database().Debug("Creating new database connection", "driverName", driver)

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		logger.Database().Error("Failed to open database connection", "error", err.Error(), "driverName", driver)
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		logger.Database().Error("Database ping failed", "error", err.Error(), "driverName", driver)
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	if opts.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	logger.Database().Info("Database connection established", "driverName", driver, "duration", time.Since(start))
	return &DB{DB: conn, Driver: driver, logger: logger}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS contact_submissions (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	email        TEXT NOT NULL,
	subject      TEXT NOT NULL,
	message      TEXT NOT NULL,
	status       TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	remote_addr  TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL,
	delivered_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_contact_submissions_created ON contact_submissions(created_at);
`

// Migrate creates the schema if it does not exist.
func (db *DB) Migrate(ctx context.Context) error {
	start := time.Now()
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	db.logger.Database().Info("Schema ready", "driverName", db.Driver, "duration", time.Since(start))
	return nil
}

// Info describes the connection pool for the health endpoint.
func (db *DB) Info() map[string]any {
	stats := db.Stats()
	return map[string]any{
		"driver":       db.Driver,
		"maxOpen":      stats.MaxOpenConnections,
		"open":         stats.OpenConnections,
		"inUse":        stats.InUse,
		"idle":         stats.Idle,
		"waitCount":    stats.WaitCount,
		"waitDuration": stats.WaitDuration.String(),
	}
}
