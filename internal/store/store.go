package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is recorded in baseline_info and checked on load.
const SchemaVersion = "1"

// Store is the SQLite data access layer for a persisted library set.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Ordinals store container order; every query that rebuilds the tree sorts
// by them.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS baseline_info (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS libraries (
  id              INTEGER PRIMARY KEY,
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  display         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS namespaces (
  id              INTEGER PRIMARY KEY,
  library_id      INTEGER NOT NULL REFERENCES libraries(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS types (
  id              INTEGER PRIMARY KEY,
  namespace_id    INTEGER NOT NULL REFERENCES namespaces(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  signature       TEXT NOT NULL,
  signature_hash  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS members (
  id              INTEGER PRIMARY KEY,
  type_id         INTEGER NOT NULL REFERENCES types(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  signature       TEXT NOT NULL,
  signature_hash  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_namespaces_library ON namespaces(library_id, ordinal);
CREATE INDEX IF NOT EXISTS idx_types_namespace ON types(namespace_id, ordinal);
CREATE INDEX IF NOT EXISTS idx_types_hash ON types(signature_hash);
CREATE INDEX IF NOT EXISTS idx_members_type ON members(type_id, ordinal);
CREATE INDEX IF NOT EXISTS idx_members_hash ON members(signature_hash);
`

// SetInfo records a baseline_info value, replacing any previous one.
func (s *Store) SetInfo(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO baseline_info (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set info %q: %w", key, err)
	}
	return nil
}

// Info returns a baseline_info value, or "" when the key is absent.
func (s *Store) Info(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM baseline_info WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("info %q: %w", key, err)
	}
	return v, nil
}

// Reset removes every library, namespace, type and member. Deletes in
// reverse-dependency order to respect FK constraints.
func (s *Store) Reset() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := resetTx(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func resetTx(tx *sql.Tx) error {
	for _, q := range []string{
		"DELETE FROM members",
		"DELETE FROM types",
		"DELETE FROM namespaces",
		"DELETE FROM libraries",
	} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	return nil
}
