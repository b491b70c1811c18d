// Package sqlstore implements domain.PersistentStore on top of database/sql.
// Backend packages supply a Dialect describing placeholder syntax, schema,
// and how the driver reports unique-key violations.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"firmcore/pkg/domain"
	"fmt"
	"strings"
	"sync"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Dialect captures the backend-specific parts of the SQL store.
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// Schema lists idempotent DDL statements applied on open.
	Schema []string
	// IsUniqueViolation reports whether err is a unique constraint failure.
	IsUniqueViolation func(err error) bool
}

// QuestionPlaceholder renders "?" parameters.
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder renders "$n" parameters.
func DollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

var (
	errTxOpen = errors.New("transaction already open")
	errNoTx   = errors.New("no open transaction")
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a database/sql backed persistent store. Statements issued while a
// transaction is open run inside it; all others autocommit.
type Store struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.Mutex
	tx      *sql.Tx
	stmts   statements
}

type statements struct {
	insertClient   string
	selectClient   string
	listClients    string
	updateClient   string
	deleteClient   string
	insertEmployee string
	selectEmployee string
	selectHash     string
	updateEmployee string
	deleteEmployee string
}

// Rebind rewrites "?" placeholders in query using the dialect.
func (d Dialect) Rebind(query string) string {
	if d.Placeholder == nil {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func newStatements(d Dialect) statements {
	return statements{
		insertClient:   d.Rebind(`INSERT INTO clients (client_name, client_service, asn_employee_id) VALUES (?, ?, ?) RETURNING client_id`),
		selectClient:   d.Rebind(`SELECT client_id, client_name, client_service, asn_employee_id FROM clients WHERE client_id = ?`),
		listClients:    `SELECT client_id, client_name, client_service, asn_employee_id FROM clients ORDER BY client_id`,
		updateClient:   d.Rebind(`UPDATE clients SET client_name = ?, client_service = ?, asn_employee_id = ? WHERE client_id = ?`),
		deleteClient:   d.Rebind(`DELETE FROM clients WHERE client_id = ?`),
		insertEmployee: d.Rebind(`INSERT INTO employees (employee_name, hashed_password) VALUES (?, ?) RETURNING employee_id`),
		selectEmployee: d.Rebind(`SELECT employee_id, employee_name, hashed_password FROM employees WHERE employee_id = ?`),
		selectHash:     d.Rebind(`SELECT hashed_password FROM employees WHERE employee_id = ?`),
		updateEmployee: d.Rebind(`UPDATE employees SET employee_name = ?, hashed_password = ? WHERE employee_id = ?`),
		deleteEmployee: d.Rebind(`DELETE FROM employees WHERE employee_id = ?`),
	}
}

// Open wraps db, applying the dialect's schema.
func Open(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if err := ApplySchema(ctx, db, dialect.Schema); err != nil {
		return nil, err
	}
	return &Store{db: db, dialect: dialect, stmts: newStatements(dialect)}, nil
}

// ApplySchema executes each non-empty DDL statement in order.
func ApplySchema(ctx context.Context, db *sql.DB, schema []string) error {
	for _, stmt := range schema {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the configured dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) conn() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// BeginTransaction opens the store's single transaction.
func (s *Store) BeginTransaction(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return domain.NewStoreError("begin", errTxOpen)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStoreError("begin", err)
	}
	s.tx = tx
	return nil
}

// CommitTransaction commits the open transaction. The handle is released even
// when the commit fails.
func (s *Store) CommitTransaction(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return domain.NewStoreError("commit", errNoTx)
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return domain.NewStoreError("commit", err)
	}
	return nil
}

// RollbackTransaction aborts the open transaction.
func (s *Store) RollbackTransaction(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return domain.NewStoreError("rollback", errNoTx)
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil {
		return domain.NewStoreError("rollback", err)
	}
	return nil
}

func (s *Store) classify(op string, entity domain.EntityType, id int, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrNotFound{Entity: entity, ID: id}
	case s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err):
		return domain.ErrDuplicateKey{Entity: entity, ID: id, Name: name}
	default:
		return domain.NewStoreError(op, err)
	}
}

func (s *Store) execAffecting(ctx context.Context, op string, entity domain.EntityType, id int, name string, query string, args ...any) error {
	res, err := s.conn().ExecContext(ctx, query, args...)
	if err != nil {
		return s.classify(op, entity, id, name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewStoreError(op, err)
	}
	if n == 0 {
		return domain.ErrNotFound{Entity: entity, ID: id}
	}
	return nil
}

// CreateClient inserts client and returns it with the generated ID.
func (s *Store) CreateClient(ctx context.Context, client domain.Client) (domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var id int
	err := s.conn().QueryRowContext(ctx, s.stmts.insertClient, client.Name, int(client.Service), client.EmployeeID).Scan(&id)
	if err != nil {
		return domain.Client{}, s.classify("create client", domain.EntityClient, 0, "", err)
	}
	client.ID = id
	return client, nil
}

// GetClient loads a single client.
func (s *Store) GetClient(ctx context.Context, id int) (domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c domain.Client
	var service int
	err := s.conn().QueryRowContext(ctx, s.stmts.selectClient, id).Scan(&c.ID, &c.Name, &service, &c.EmployeeID)
	if err != nil {
		return domain.Client{}, s.classify("get client", domain.EntityClient, id, "", err)
	}
	c.Service = domain.ServiceCode(service)
	return c, nil
}

// ListClients loads every client ordered by ID.
func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.conn().QueryContext(ctx, s.stmts.listClients)
	if err != nil {
		return nil, domain.NewStoreError("list clients", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Client
	for rows.Next() {
		var c domain.Client
		var service int
		if err := rows.Scan(&c.ID, &c.Name, &service, &c.EmployeeID); err != nil {
			return nil, domain.NewStoreError("list clients", fmt.Errorf("scan: %w", err))
		}
		c.Service = domain.ServiceCode(service)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("list clients", err)
	}
	return out, nil
}

// UpdateClient overwrites every column of an existing client.
func (s *Store) UpdateClient(ctx context.Context, client domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execAffecting(ctx, "update client", domain.EntityClient, client.ID, "",
		s.stmts.updateClient, client.Name, int(client.Service), client.EmployeeID, client.ID)
}

// DeleteClient removes a client.
func (s *Store) DeleteClient(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execAffecting(ctx, "delete client", domain.EntityClient, id, "", s.stmts.deleteClient, id)
}

// CreateEmployee inserts employee and returns it with the generated ID.
func (s *Store) CreateEmployee(ctx context.Context, employee domain.Employee) (domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var id int
	err := s.conn().QueryRowContext(ctx, s.stmts.insertEmployee, employee.Name, employee.PasswordHash).Scan(&id)
	if err != nil {
		return domain.Employee{}, s.classify("create employee", domain.EntityEmployee, 0, employee.Name, err)
	}
	employee.ID = id
	return employee, nil
}

// GetEmployee loads a single employee.
func (s *Store) GetEmployee(ctx context.Context, id int) (domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var e domain.Employee
	err := s.conn().QueryRowContext(ctx, s.stmts.selectEmployee, id).Scan(&e.ID, &e.Name, &e.PasswordHash)
	if err != nil {
		return domain.Employee{}, s.classify("get employee", domain.EntityEmployee, id, "", err)
	}
	return e, nil
}

// GetEmployeeHash loads only the credential hash of an employee.
func (s *Store) GetEmployeeHash(ctx context.Context, id int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var hash string
	if err := s.conn().QueryRowContext(ctx, s.stmts.selectHash, id).Scan(&hash); err != nil {
		return "", s.classify("get employee hash", domain.EntityEmployee, id, "", err)
	}
	return hash, nil
}

// UpdateEmployee overwrites an existing employee.
func (s *Store) UpdateEmployee(ctx context.Context, employee domain.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execAffecting(ctx, "update employee", domain.EntityEmployee, employee.ID, employee.Name,
		s.stmts.updateEmployee, employee.Name, employee.PasswordHash, employee.ID)
}

// DeleteEmployee removes an employee.
func (s *Store) DeleteEmployee(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execAffecting(ctx, "delete employee", domain.EntityEmployee, id, "", s.stmts.deleteEmployee, id)
}

// Close rolls back any open transaction and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	return s.db.Close()
}
