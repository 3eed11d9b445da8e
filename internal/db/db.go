// Package db persists subscriptions and sent videos. Postgres and SQLite are
// both supported through sqlx.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver
)

const sqlitePrefix = "sqlite://"

// Store is the persistent store shared by the reconciliation and video
// passes.
type Store struct {
	db *sqlx.DB
}

// New wraps an existing connection. Migrate must be called before use.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to databaseURL and runs the migrations. A URL of the form
// sqlite://<path> opens a SQLite file, anything else is handed to the
// postgres driver.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is not set")
	}

	driver, dsn := "postgres", databaseURL
	if path, ok := strings.CutPrefix(databaseURL, sqlitePrefix); ok {
		driver, dsn = "sqlite", path
	}

	conn, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to %s database: %w", driver, err)
	}
	if driver == "sqlite" {
		// sqlite locks on write; one connection avoids SQLITE_BUSY.
		conn.SetMaxOpenConns(1)
		if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set wal mode: %w", err)
		}
	}

	s := New(conn)
	if err := s.Migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
