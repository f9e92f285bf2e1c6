package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteBackend stores collections in a single-file database.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (or creates) the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if strings.TrimSpace(path) == "" {
		path = "examforge.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS record_collections (
		key        TEXT PRIMARY KEY,
		body       TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

// Close releases the database handle.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

const sqliteUpsertSQL = `INSERT INTO record_collections (key, body, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`

func (b *SQLiteBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var body string
	err := b.db.QueryRowContext(ctx, `SELECT body FROM record_collections WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return body, true, nil
}

func (b *SQLiteBackend) Put(ctx context.Context, key, text string) error {
	_, err := b.db.ExecContext(ctx, sqliteUpsertSQL, key, text)
	return err
}

// Update runs the cycle in one transaction; the single connection makes it
// exclusive within the process and SQLite's file lock across processes.
func (b *SQLiteBackend) Update(ctx context.Context, key string, fn func(text string, ok bool) (string, error)) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var body string
	ok := true
	err = tx.QueryRowContext(ctx, `SELECT body FROM record_collections WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		ok = false
	} else if err != nil {
		return err
	}

	next, err := fn(body, ok)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, sqliteUpsertSQL, key, next); err != nil {
		return err
	}
	return tx.Commit()
}
