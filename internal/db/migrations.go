package db

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS subscriptions (
		channel_id TEXT PRIMARY KEY,
		channel_title TEXT NOT NULL,
		channel_thumbnail TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sent_videos (
		video_id TEXT PRIMARY KEY,
		channel_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		notified_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS sent_videos_channel_id_idx ON sent_videos (channel_id)`,
}

type column struct {
	table      string
	name       string
	definition string
}

// Columns added after the initial schema. Each is added once, after checking
// the live column metadata.
var addedColumns = []column{
	{table: "subscriptions", name: "deleted", definition: "BOOLEAN NOT NULL DEFAULT FALSE"},
}

// Migrate creates missing tables and columns. Running it again is a no-op.
func (s *Store) Migrate(ctx context.Context) error {
	for _, query := range schema {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}

	for _, col := range addedColumns {
		exists, err := s.columnExists(ctx, col.table, col.name)
		if err != nil {
			return fmt.Errorf("inspect %s.%s: %w", col.table, col.name, err)
		}
		if exists {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", col.table, col.name, col.definition)
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("add %s.%s: %w", col.table, col.name, err)
		}
	}

	return nil
}

func (s *Store) columnExists(ctx context.Context, table, name string) (bool, error) {
	query := `SELECT COUNT(*) FROM information_schema.columns WHERE table_name = ? AND column_name = ?`
	if s.db.DriverName() == "sqlite" {
		query = `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`
	}

	var count int
	if err := s.db.GetContext(ctx, &count, s.db.Rebind(query), table, name); err != nil {
		return false, err
	}
	return count > 0, nil
}
