package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend stores collections in the record_collections table
// (see migrations/).
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend wraps an existing pool.
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

func (b *PostgresBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var body string
	err := b.pool.QueryRow(ctx,
		`SELECT body FROM record_collections WHERE key = $1`, key,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return body, true, nil
}

func (b *PostgresBackend) Put(ctx context.Context, key, text string) error {
	_, err := b.pool.Exec(ctx, upsertCollectionSQL, key, text)
	return err
}

const upsertCollectionSQL = `INSERT INTO record_collections (key, body, updated_at)
	 VALUES ($1, $2, NOW())
	 ON CONFLICT (key) DO UPDATE
	 SET body = EXCLUDED.body, updated_at = NOW()`

// Update serializes writers of one key with a transaction-scoped advisory
// lock, which also covers keys that do not exist yet.
func (b *PostgresBackend) Update(ctx context.Context, key string, fn func(text string, ok bool) (string, error)) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}

	var body string
	ok := true
	err = tx.QueryRow(ctx,
		`SELECT body FROM record_collections WHERE key = $1 FOR UPDATE`, key,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		ok = false
	} else if err != nil {
		return err
	}

	next, err := fn(body, ok)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, upsertCollectionSQL, key, next); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
