package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Dialect identifies the SQL flavour behind a *sql.DB.
type Dialect string

const (
	Postgres Dialect = "pgx"
	SQLite   Dialect = "sqlite3"
)

var ErrUnsupportedURL = errors.New("unsupported database url")

type DB struct {
	SQL     *sql.DB
	Dialect Dialect
}

// ParseURL picks the driver for a DATABASE_URL and returns the DSN to hand to
// it. postgres:// and postgresql:// go to pgx; sqlite://, sqlite3:// and file:
// go to go-sqlite3.
func ParseURL(databaseURL string) (Dialect, string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return Postgres, databaseURL, nil
	case strings.HasPrefix(databaseURL, "sqlite3://"):
		return SQLite, strings.TrimPrefix(databaseURL, "sqlite3://"), nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return SQLite, strings.TrimPrefix(databaseURL, "sqlite://"), nil
	case strings.HasPrefix(databaseURL, "file:"):
		return SQLite, databaseURL, nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrUnsupportedURL, redact(databaseURL))
}

func Open(ctx context.Context, databaseURL string, maxOpen, maxIdle int, maxLifetime, maxIdleTime time.Duration) (*DB, error) {
	dialect, dsn, err := ParseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	if dialect == SQLite && !isMemory(dsn) {
		if err := os.MkdirAll(filepath.Dir(sqlitePath(dsn)), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open(dialect.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dialect == SQLite && isMemory(dsn) {
		// Every connection to :memory: is a separate database, so pin one
		// connection and never recycle it.
		maxOpen, maxIdle, maxLifetime, maxIdleTime = 1, 1, 0, 0
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)
	db.SetConnMaxIdleTime(maxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dialect == SQLite && !isMemory(dsn) {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	return &DB{SQL: db, Dialect: dialect}, nil
}

// EnsureSchema creates the notes table and its indexes when they are missing.
// It is safe to run on every start.
func (d *DB) EnsureSchema(ctx context.Context) error {
	stmts, ok := schema[d.Dialect]
	if !ok {
		return fmt.Errorf("no schema for dialect %q", d.Dialect)
	}
	for _, stmt := range stmts {
		if _, err := d.SQL.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Ping checks that the database is reachable within a short deadline.
func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.SQL.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.SQL.Close()
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory") || strings.HasPrefix(dsn, "file::memory:")
}

// sqlitePath strips the file: scheme and query parameters from a DSN.
func sqlitePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}

// redact hides credentials so the URL can appear in errors and logs.
func redact(u string) string {
	at := strings.LastIndexByte(u, '@')
	scheme := strings.Index(u, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return u
	}
	return u[:scheme+3] + "***" + u[at:]
}
