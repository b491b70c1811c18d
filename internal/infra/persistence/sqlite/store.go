// Package sqlite provides the embedded SQLite persistent store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"firmcore/internal/infra/persistence/sqlstore"
	"fmt"
	"os"
	"path/filepath"

	msqlite "modernc.org/sqlite" // pure go sqlite driver
	sqlite3 "modernc.org/sqlite/lib"
)

const defaultPath = "firmcore.db"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS employees (
		employee_id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_name TEXT NOT NULL UNIQUE,
		hashed_password TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS clients (
		client_id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_name TEXT NOT NULL,
		client_service INTEGER NOT NULL DEFAULT 0,
		asn_employee_id INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS clients_asn_employee_idx ON clients (asn_employee_id)`,
}

// Dialect describes SQLite for the shared SQL store.
var Dialect = sqlstore.Dialect{
	Name:              "sqlite",
	Placeholder:       sqlstore.QuestionPlaceholder,
	Schema:            schema,
	IsUniqueViolation: isUniqueViolation,
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// Store persists clients and employees to a single SQLite file.
type Store struct {
	*sqlstore.Store
	path string
}

// NewStore opens (creating if needed) the SQLite database at path and applies
// the schema. An empty path falls back to ./firmcore.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection: the open transaction and autocommit reads share it
	db.SetMaxOpenConns(1)
	base, err := sqlstore.Open(context.Background(), db, Dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: base, path: path}, nil
}

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
