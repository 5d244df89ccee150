package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	apperrors "ocrmill/internal/errors"
)

// SQLiteStore persists configuration values in an app_config table,
// mirroring the layout the desktop application uses for its settings.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the configuration database at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open config database", err)
	}

	// Single-writer key/value table; last write wins by design.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS app_config (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("failed to create app_config table", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the stored value for key. Read failures are reported as
// absent values so a corrupt store degrades rather than crashes callers.
func (s *SQLiteStore) Get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM app_config WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// Set stores value under key
func (s *SQLiteStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO app_config (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to set config %s", key), err)
	}
	return nil
}

// Delete removes key
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM app_config WHERE key = ?`, key); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to delete config %s", key), err)
	}
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
