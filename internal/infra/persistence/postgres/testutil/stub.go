// Package testutil provides a recording stub database for postgres store tests.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgconn"
)

var stubSeq uint64

// StubConn records statements issued by the postgres store and serves canned
// results. It is a single shared connection; tests set the Fail* knobs.
type StubConn struct {
	Execs   []string
	Queries []string

	Begins    int
	Commits   int
	Rollbacks int

	FailPing   bool
	FailExec   bool
	FailBegin  bool
	FailCommit bool
	// Unique makes the next INSERT fail with a unique violation.
	Unique bool
	// Affected is returned as RowsAffected for UPDATE and DELETE.
	Affected int64
	// Rows holds the rows returned by SELECTs against a table.
	Rows map[string][][]driver.Value

	nextID int64
}

// NewStubDB registers a sql.DB backed by a fresh stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Affected: 1, Rows: make(map[string][][]driver.Value)}
	name := fmt.Sprintf("stubpg%d", atomic.AddUint64(&stubSeq, 1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	db.SetMaxOpenConns(1)
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	c.Begins++
	return &stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	up := strings.ToUpper(strings.TrimSpace(query))
	if strings.HasPrefix(up, "UPDATE") || strings.HasPrefix(up, "DELETE") {
		return driver.RowsAffected(c.Affected), nil
	}
	return driver.RowsAffected(0), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.Queries = append(c.Queries, query)
	up := strings.ToUpper(strings.TrimSpace(query))
	if strings.HasPrefix(up, "INSERT") {
		if c.Unique {
			c.Unique = false
			return nil, &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
		c.nextID++
		return &stubRows{cols: []string{"id"}, rows: [][]driver.Value{{c.nextID}}}, nil
	}
	table, cols := parseSelect(query)
	return &stubRows{cols: cols, rows: c.Rows[table]}, nil
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	t.conn.Commits++
	return nil
}

func (t *stubTx) Rollback() error {
	t.conn.Rollbacks++
	return nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func parseSelect(query string) (string, []string) {
	lower := strings.ToLower(query)
	fromIdx := strings.Index(lower, " from ")
	if !strings.HasPrefix(lower, "select ") || fromIdx == -1 {
		return "", nil
	}
	cols := strings.Split(query[len("select "):fromIdx], ",")
	for i := range cols {
		cols[i] = strings.ToLower(strings.TrimSpace(cols[i]))
	}
	rest := strings.Fields(query[fromIdx+len(" from "):])
	if len(rest) == 0 {
		return "", cols
	}
	return strings.ToLower(rest[0]), cols
}
