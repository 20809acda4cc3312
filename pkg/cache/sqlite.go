package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteTier is the durable on-disk tier. One row per key; rows are
// independent, so concurrent writes to different keys need no coordination
// beyond the single connection.
type SQLiteTier struct {
	db    *sql.DB
	table string
}

// NewSQLiteTier opens (or creates) the backing database file.
func NewSQLiteTier(path string, opts ...SQLiteOption) (*SQLiteTier, error) {
	cfg := &SQLiteConfig{
		Path:  path,
		Table: "cache_entries",
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite tier: path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)

	st := &SQLiteTier{db: db, table: cfg.Table}
	if err := st.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return st, nil
}

func (st *SQLiteTier) migrate() error {
	// Timestamps as unix nanoseconds keep range comparisons exact.
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		stored_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	)`, st.table)

	if _, err := st.db.Exec(stmt); err != nil {
		return fmt.Errorf("sqlite migrate: %w", err)
	}
	return nil
}

func (st *SQLiteTier) Get(ctx context.Context, key string) (*Entry, error) {
	q := fmt.Sprintf("SELECT payload, stored_at, expires_at FROM %s WHERE key = ?", st.table)

	var payload []byte
	var storedAt, expiresAt int64
	err := st.db.QueryRowContext(ctx, q, key).Scan(&payload, &storedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get: %w", err)
	}

	return &Entry{
		Key:       key,
		Payload:   payload,
		StoredAt:  time.Unix(0, storedAt).UTC(),
		ExpiresAt: time.Unix(0, expiresAt).UTC(),
	}, nil
}

func (st *SQLiteTier) Set(ctx context.Context, entry *Entry) error {
	q := fmt.Sprintf(`
		INSERT INTO %s (key, payload, stored_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at
	`, st.table)

	_, err := st.db.ExecContext(ctx, q,
		entry.Key,
		entry.Payload,
		entry.StoredAt.UnixNano(),
		entry.ExpiresAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite set: %w", err)
	}
	return nil
}

func (st *SQLiteTier) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	q := fmt.Sprintf("DELETE FROM %s WHERE key = ?", st.table)
	for _, key := range keys {
		if _, err := st.db.ExecContext(ctx, q, key); err != nil {
			return fmt.Errorf("sqlite delete: %w", err)
		}
	}
	return nil
}

func (st *SQLiteTier) Clear(ctx context.Context) error {
	q := fmt.Sprintf("DELETE FROM %s", st.table)
	if _, err := st.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("sqlite clear: %w", err)
	}
	return nil
}

func (st *SQLiteTier) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	q := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", st.table)
	res, err := st.db.ExecContext(ctx, q, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite sweep: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite sweep: %w", err)
	}
	return int(n), nil
}

func (st *SQLiteTier) Len(ctx context.Context) (int, error) {
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", st.table)
	var n int
	if err := st.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite len: %w", err)
	}
	return n, nil
}

// Close closes the database handle.
func (st *SQLiteTier) Close() error {
	if st == nil || st.db == nil {
		return nil
	}
	return st.db.Close()
}
