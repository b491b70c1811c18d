// Package postgres provides a Postgres-backed persistent store sharing the
// SQL implementation with the embedded SQLite backend.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"firmcore/internal/infra/persistence/sqlstore"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with OpenPersistentStore defaults while allowing overrides via env.
	defaultDSN = "postgres://localhost/firmcore?sslmode=disable"

	uniqueViolation = "23505"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS employees (
		employee_id INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		employee_name TEXT NOT NULL UNIQUE,
		hashed_password TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS clients (
		client_id INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		client_name TEXT NOT NULL,
		client_service INTEGER NOT NULL DEFAULT 0,
		asn_employee_id INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS clients_asn_employee_idx ON clients (asn_employee_id)`,
}

// Dialect describes Postgres for the shared SQL store.
var Dialect = sqlstore.Dialect{
	Name:              "postgres",
	Placeholder:       sqlstore.DollarPlaceholder,
	Schema:            schema,
	IsUniqueViolation: isUniqueViolation,
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Store persists clients and employees to Postgres.
type Store struct {
	*sqlstore.Store
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN)
// and applies the schema.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	base, err := sqlstore.Open(ctx, db, Dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: base}, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
