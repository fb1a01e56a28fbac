package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/chatrooms/internal/store"
)

// Schema is the table layout used by the identity store.
const Schema = `
CREATE TABLE IF NOT EXISTS identities (
	identity_key TEXT PRIMARY KEY,
	record       TEXT NOT NULL,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore implements store.IdentityStore for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database at dbPath and makes sure the schema exists.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetIdentity retrieves the record stored under key.
func (s *SQLiteStore) GetIdentity(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT record
		FROM identities
		WHERE identity_key = ?
	`
	var record string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query identity: %w", err)
	}

	return []byte(record), nil
}

// PutIdentity inserts or replaces the record stored under key.
func (s *SQLiteStore) PutIdentity(ctx context.Context, key string, record []byte) error {
	query := `
		INSERT INTO identities (identity_key, record, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(identity_key) DO UPDATE SET
			record = excluded.record,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, string(record)); err != nil {
		return fmt.Errorf("upsert identity: %w", err)
	}
	return nil
}

// DeleteIdentity removes the record stored under key.
func (s *SQLiteStore) DeleteIdentity(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM identities WHERE identity_key = ?`, key); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}

var _ store.IdentityStore = (*SQLiteStore)(nil)
