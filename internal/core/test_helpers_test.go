package core

import (
	"context"
	"errors"
	"firmcore/internal/infra/persistence/memory"
	"firmcore/pkg/domain"
	"fmt"
	"sync"
	"testing"
)

// recordingStore wraps the memory store, logging every call and failing the
// operations named in fail.
type recordingStore struct {
	*memory.Store
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Store: memory.NewStore(), fail: make(map[string]error)}
}

func (r *recordingStore) record(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, op)
	return r.fail[op]
}

func (r *recordingStore) failOn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.fail, op)
		return
	}
	r.fail[op] = err
}

func (r *recordingStore) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *recordingStore) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *recordingStore) BeginTransaction(ctx context.Context) error {
	if err := r.record("begin"); err != nil {
		return err
	}
	return r.Store.BeginTransaction(ctx)
}

// A failed commit still ends the transaction, matching the SQL stores.
func (r *recordingStore) CommitTransaction(ctx context.Context) error {
	if err := r.record("commit"); err != nil {
		_ = r.Store.RollbackTransaction(ctx)
		return err
	}
	return r.Store.CommitTransaction(ctx)
}

func (r *recordingStore) RollbackTransaction(ctx context.Context) error {
	if err := r.record("rollback"); err != nil {
		_ = r.Store.RollbackTransaction(ctx)
		return err
	}
	return r.Store.RollbackTransaction(ctx)
}

func (r *recordingStore) CreateClient(ctx context.Context, c domain.Client) (domain.Client, error) {
	if err := r.record("create_client"); err != nil {
		return domain.Client{}, err
	}
	return r.Store.CreateClient(ctx, c)
}

func (r *recordingStore) ListClients(ctx context.Context) ([]domain.Client, error) {
	if err := r.record("list_clients"); err != nil {
		return nil, err
	}
	return r.Store.ListClients(ctx)
}

func (r *recordingStore) UpdateClient(ctx context.Context, c domain.Client) error {
	if err := r.record("update_client"); err != nil {
		return err
	}
	return r.Store.UpdateClient(ctx, c)
}

func (r *recordingStore) DeleteClient(ctx context.Context, id int) error {
	if err := r.record("delete_client"); err != nil {
		return err
	}
	return r.Store.DeleteClient(ctx, id)
}

func (r *recordingStore) CreateEmployee(ctx context.Context, e domain.Employee) (domain.Employee, error) {
	if err := r.record("create_employee"); err != nil {
		return domain.Employee{}, err
	}
	return r.Store.CreateEmployee(ctx, e)
}

func (r *recordingStore) GetEmployee(ctx context.Context, id int) (domain.Employee, error) {
	if err := r.record("get_employee"); err != nil {
		return domain.Employee{}, err
	}
	return r.Store.GetEmployee(ctx, id)
}

func (r *recordingStore) GetEmployeeHash(ctx context.Context, id int) (string, error) {
	if err := r.record("get_employee_hash"); err != nil {
		return "", err
	}
	return r.Store.GetEmployeeHash(ctx, id)
}

func (r *recordingStore) UpdateEmployee(ctx context.Context, e domain.Employee) error {
	if err := r.record("update_employee"); err != nil {
		return err
	}
	return r.Store.UpdateEmployee(ctx, e)
}

func (r *recordingStore) DeleteEmployee(ctx context.Context, id int) error {
	if err := r.record("delete_employee"); err != nil {
		return err
	}
	return r.Store.DeleteEmployee(ctx, id)
}

var errInjected = errors.New("injected failure")

// captureLogger records log lines as "level msg".
type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (c *captureLogger) log(level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, fmt.Sprintf("%s %s", level, msg))
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.log("debug", msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.log("info", msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.log("warn", msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.log("error", msg) }

func (c *captureLogger) has(line string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.lines {
		if l == line {
			return true
		}
	}
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mustClientHandler(t *testing.T, store domain.PersistentStore, opts ...Option) *ClientHandler {
	t.Helper()
	h, err := NewClientHandler(context.Background(), store, opts...)
	if err != nil {
		t.Fatalf("NewClientHandler: %v", err)
	}
	return h
}

func mustEmployeeHandler(t *testing.T, store domain.PersistentStore, opts ...Option) *EmployeeHandler {
	t.Helper()
	h, err := NewEmployeeHandler(store, opts...)
	if err != nil {
		t.Fatalf("NewEmployeeHandler: %v", err)
	}
	return h
}
