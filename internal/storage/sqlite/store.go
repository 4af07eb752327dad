// Package sqlite persists the health log in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/partydamage/internal/game/agent"
	"github.com/cory-johannsen/partydamage/internal/game/health"
)

const schema = `
CREATE TABLE IF NOT EXISTS health_log (
	identity_key INTEGER PRIMARY KEY,
	max_hp       INTEGER NOT NULL
);`

// Store is a health.Store backed by a SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema exists.
//
// Precondition: path must be non-empty.
// Postcondition: Returns an open Store or a non-nil error.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("empty sqlite path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		schema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initialising %s: %w", path, err)
		}
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns every stored entry ordered by identity key.
func (s *Store) Load(ctx context.Context) ([]health.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identity_key, max_hp FROM health_log ORDER BY identity_key`)
	if err != nil {
		return nil, fmt.Errorf("querying health log: %w", err)
	}
	defer rows.Close()

	var entries []health.Entry
	for rows.Next() {
		var key int64
		var hp int
		if err := rows.Scan(&key, &hp); err != nil {
			return nil, fmt.Errorf("scanning health log row: %w", err)
		}
		entries = append(entries, health.Entry{Key: agent.IdentityKey(key), MaxHP: hp})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating health log: %w", err)
	}
	return entries, nil
}

// Save upserts every entry in one transaction. Rows absent from entries are kept.
func (s *Store) Save(ctx context.Context, entries []health.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO health_log (identity_key, max_hp) VALUES (?, ?)
		ON CONFLICT(identity_key) DO UPDATE SET max_hp = excluded.max_hp`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, int64(e.Key), e.MaxHP); err != nil {
			return fmt.Errorf("upserting key %d: %w", e.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing health log: %w", err)
	}
	return nil
}
