package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gurman-sys/rentbuddy/pkg/plugin"
)

// Well-known keys of the per-user key-value store.
const (
	KeyFavorites            = "favorites"
	KeyWelcomeBonusReceived = "welcomeBonusReceived"
	KeyLastSpin             = "lastSpinAt"
	KeyRecentWins           = "recentWins"
)

// Entry is a single value in the key-value store. Values are JSON documents.
type Entry struct {
	UserID    string    `json:"user_id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KeyValueRepository is the local-persistence store: small JSON values keyed
// by fixed names and scoped to a user.
type KeyValueRepository interface {
	// Get returns a single entry, or ErrNotFound.
	Get(ctx context.Context, userID, key string) (*Entry, error)

	// List returns all entries of a user ordered by key.
	List(ctx context.Context, userID string) ([]Entry, error)

	// Set creates or replaces an entry.
	Set(ctx context.Context, userID, key, value string) error

	// SetTx is Set inside the caller's transaction on the same store.
	SetTx(ctx context.Context, tx *sql.Tx, userID, key, value string) error

	// Delete removes an entry, or returns ErrNotFound.
	Delete(ctx context.Context, userID, key string) error
}

// Compile-time interface guard.
var _ KeyValueRepository = (*SQLiteKeyValueRepository)(nil)

// SQLiteKeyValueRepository implements KeyValueRepository using SQLite.
type SQLiteKeyValueRepository struct {
	db *sql.DB
}

// NewSQLiteKeyValueRepository creates a KeyValueRepository and runs the
// kv_entries migration.
func NewSQLiteKeyValueRepository(ctx context.Context, store plugin.Store) (*SQLiteKeyValueRepository, error) {
	if err := store.Migrate(ctx, "kv", kvMigrations); err != nil {
		return nil, fmt.Errorf("kv migrations: %w", err)
	}
	return &SQLiteKeyValueRepository{db: store.DB()}, nil
}

func (r *SQLiteKeyValueRepository) Get(ctx context.Context, userID, key string) (*Entry, error) {
	var e Entry
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, key, value, updated_at FROM kv_entries WHERE user_id = ? AND key = ?`,
		userID, key,
	).Scan(&e.UserID, &e.Key, &e.Value, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%q: %w", userID, key, err)
	}
	return &e, nil
}

func (r *SQLiteKeyValueRepository) List(ctx context.Context, userID string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, key, value, updated_at FROM kv_entries WHERE user_id = ? ORDER BY key`, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserID, &e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *SQLiteKeyValueRepository) Set(ctx context.Context, userID, key, value string) error {
	return setEntry(ctx, r.db, userID, key, value)
}

func (r *SQLiteKeyValueRepository) SetTx(ctx context.Context, tx *sql.Tx, userID, key, value string) error {
	return setEntry(ctx, tx, userID, key, value)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setEntry(ctx context.Context, db execer, userID, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO kv_entries (user_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		userID, key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set %s/%q: %w", userID, key, err)
	}
	return nil
}

func (r *SQLiteKeyValueRepository) Delete(ctx context.Context, userID, key string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE user_id = ? AND key = ?`, userID, key)
	if err != nil {
		return fmt.Errorf("delete %s/%q: %w", userID, key, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetJSON decodes the value stored under key into v. It reports false when the
// key is absent.
func GetJSON(ctx context.Context, repo KeyValueRepository, userID, key string, v any) (bool, error) {
	e, err := repo.Get(ctx, userID, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(e.Value), v); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v under key as a JSON document.
func SetJSON(ctx context.Context, repo KeyValueRepository, userID, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return repo.Set(ctx, userID, key, string(b))
}

// SetJSONTx is SetJSON inside the caller's transaction.
func SetJSONTx(ctx context.Context, repo KeyValueRepository, tx *sql.Tx, userID, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return repo.SetTx(ctx, tx, userID, key, string(b))
}

var kvMigrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create kv_entries table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE kv_entries (
					user_id    TEXT     NOT NULL,
					key        TEXT     NOT NULL,
					value      TEXT     NOT NULL,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (user_id, key)
				)`)
			return err
		},
	},
}
