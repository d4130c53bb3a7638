package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_credentials (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL
);
`

// SQLiteStore is a CredentialStore backed by a local SQLite database file.
// The UNIQUE constraint on the name column is the authoritative uniqueness
// guard; the user service's pre-insert lookup only exists to produce a
// friendlier error earlier.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) the database at path and ensures
// the schema exists.  Schema or I/O failures here are fatal to startup, so
// they are returned rather than deferred.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetUserByName(name string) (*UserCredentials, error) {
	row := s.db.QueryRow(
		`SELECT name, password_hash FROM user_credentials WHERE name = ?`, name,
	)

	var creds UserCredentials
	switch err := row.Scan(&creds.Name, &creds.PasswordHash); {
	case err == nil:
		return &creds, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	default:
		return nil, fmt.Errorf("store: lookup %q: %w", name, err)
	}
}

func (s *SQLiteStore) AddNewUser(creds UserCredentials) error {
	_, err := s.db.Exec(
		`INSERT INTO user_credentials (name, password_hash) VALUES (?, ?)`,
		creds.Name, creds.PasswordHash,
	)
	if err != nil {
		var serr *sqlite.Error
		if errors.As(err, &serr) && serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return ErrNameTaken
		}
		return fmt.Errorf("store: insert %q: %w", creds.Name, err)
	}
	return nil
}
