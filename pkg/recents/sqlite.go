package recents

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS recents (
	identity   TEXT NOT NULL,
	id         TEXT NOT NULL,
	content    TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (identity, id)
);
`

// SQLiteCache persists recents in a SQLite database. Rows that fail to scan
// or whose timestamps fail to parse are dropped on load and logged, never
// surfaced: the cache is a convenience, not critical data.
type SQLiteCache struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteCache opens (and if needed creates) the cache database at path.
// Use ":memory:" for an in-memory database.
func NewSQLiteCache(path string, logger *zap.Logger) (*SQLiteCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteCache{db: db, logger: logger}, nil
}

// Load returns the cached records for the identity, dropping malformed rows.
func (c *SQLiteCache) Load(ctx context.Context, identity string) ([]Record, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, content, updated_at FROM recents WHERE identity = ?`, identity)
	if err != nil {
		return nil, fmt.Errorf("query recents: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, Cap)
	for rows.Next() {
		var rec Record
		var updatedAt string
		if err := rows.Scan(&rec.ID, &rec.Content, &updatedAt); err != nil {
			c.logger.Warn("dropping unreadable recents row", zap.Error(err))
			continue
		}
		rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			c.logger.Warn("dropping recents row with malformed timestamp",
				zap.String("id", rec.ID),
				zap.String("updated_at", updatedAt),
			)
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recents: %w", err)
	}

	return records, nil
}

// Save replaces the identity's cached records with the given snapshot.
func (c *SQLiteCache) Save(ctx context.Context, identity string, records []Record) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM recents WHERE identity = ?`, identity); err != nil {
		return fmt.Errorf("clear previous snapshot: %w", err)
	}

	for _, rec := range records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recents (identity, id, content, updated_at) VALUES (?, ?, ?, ?)`,
			identity, rec.ID, rec.Content, rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Clear removes all cached records for the identity.
func (c *SQLiteCache) Clear(ctx context.Context, identity string) error {
	if _, err := c.db.ExecContext(ctx,
		`DELETE FROM recents WHERE identity = ?`, identity); err != nil {
		return fmt.Errorf("clear recents: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
