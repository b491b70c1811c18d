// Package memory provides an in-memory implementation of the persistent store
// used for tests and ephemeral environments.
package memory

import (
	"context"
	"errors"
	"firmcore/pkg/domain"
	"sync"

	"github.com/google/btree"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Client aliases domain.Client for in-memory persistence operations.
	Client = domain.Client
	// Employee aliases domain.Employee.
	Employee = domain.Employee
)

const btreeDegree = 16

var (
	errTxOpen   = errors.New("transaction already open")
	errNoTx     = errors.New("no open transaction")
	errClosed   = errors.New("store closed")
	errEmptyKey = errors.New("name must not be empty")
)

type memoryState struct {
	clients        *btree.BTreeG[Client]
	employees      *btree.BTreeG[Employee]
	nextClientID   int
	nextEmployeeID int
}

func lessClient(a, b Client) bool     { return a.ID < b.ID }
func lessEmployee(a, b Employee) bool { return a.ID < b.ID }

func newMemoryState() memoryState {
	return memoryState{
		clients:        btree.NewG[Client](btreeDegree, lessClient),
		employees:      btree.NewG[Employee](btreeDegree, lessEmployee),
		nextClientID:   1,
		nextEmployeeID: 1,
	}
}

// clone is copy-on-write; writes to either copy never show through the other.
func (m memoryState) clone() memoryState {
	return memoryState{
		clients:        m.clients.Clone(),
		employees:      m.employees.Clone(),
		nextClientID:   m.nextClientID,
		nextEmployeeID: m.nextEmployeeID,
	}
}

// Snapshot captures a point-in-time copy of the store state.
type Snapshot struct {
	Clients   []Client   `json:"clients"`
	Employees []Employee `json:"employees"`
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Clients:   make([]Client, 0, state.clients.Len()),
		Employees: make([]Employee, 0, state.employees.Len()),
	}
	state.clients.Ascend(func(c Client) bool {
		s.Clients = append(s.Clients, c)
		return true
	})
	state.employees.Ascend(func(e Employee) bool {
		s.Employees = append(s.Employees, e)
		return true
	})
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for _, c := range s.Clients {
		state.clients.ReplaceOrInsert(c)
		if c.ID >= state.nextClientID {
			state.nextClientID = c.ID + 1
		}
	}
	for _, e := range s.Employees {
		state.employees.ReplaceOrInsert(e)
		if e.ID >= state.nextEmployeeID {
			state.nextEmployeeID = e.ID + 1
		}
	}
	return state
}

// Store keeps clients and employees in ordered in-memory tables. A begun
// transaction works on a copy-on-write clone that replaces the committed
// state on commit and is discarded on rollback.
type Store struct {
	mu      sync.Mutex
	state   memoryState
	working *memoryState
	closed  bool
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{state: newMemoryState()}
}

// ExportState clones the committed store state.
func (s *Store) ExportState() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the committed store state with the provided snapshot.
// Any open transaction is discarded.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
	s.working = nil
}

// InTransaction reports whether a transaction is open.
func (s *Store) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.working != nil
}

func (s *Store) current() *memoryState {
	if s.working != nil {
		return s.working
	}
	return &s.state
}

func (s *Store) guard(op string) error {
	if s.closed {
		return domain.NewStoreError(op, errClosed)
	}
	return nil
}

// BeginTransaction opens a transaction. Only one may be open at a time.
func (s *Store) BeginTransaction(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard("begin"); err != nil {
		return err
	}
	if s.working != nil {
		return domain.NewStoreError("begin", errTxOpen)
	}
	working := s.state.clone()
	s.working = &working
	return nil
}

// CommitTransaction publishes the open transaction's writes.
func (s *Store) CommitTransaction(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard("commit"); err != nil {
		return err
	}
	if s.working == nil {
		return domain.NewStoreError("commit", errNoTx)
	}
	s.state = *s.working
	s.working = nil
	return nil
}

// RollbackTransaction discards the open transaction's writes.
func (s *Store) RollbackTransaction(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard("rollback"); err != nil {
		return err
	}
	if s.working == nil {
		return domain.NewStoreError("rollback", errNoTx)
	}
	s.working = nil
	return nil
}

// CreateClient assigns the next client ID and stores the record.
func (s *Store) CreateClient(_ context.Context, client Client) (Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard("create client"); err != nil {
		return Client{}, err
	}
	state := s.current()
	client.ID = state.nextClientID
	state.nextClientID++
	state.clients.ReplaceOrInsert(client)
	return client, nil
}

// GetClient returns the client stored under id.
func (s *Store) GetClient(_ context.Context, id int) (Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard("get client"); err != nil {
		return Client{}, err
	}
	c, ok := s.current().clients.Get(Client{ID: id})
	if !ok {
		return Client{}, domain.ErrNotFound{Entity: domain.EntityClient, ID: id}
	}
	return c, nil
}

// ListClients returns every client in ascending ID order.
func (s *Store) ListClients(_ context.Context) ([]Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard("list clients"); err != nil {
		return nil, err
	}
	state := s.current()
	out := make([]Client, 0, state.clients.Len())
	state.clients.Ascend(func(c Client) bool {
		out = append(out, c)
		return true
	})
	return out, nil
}

// UpdateClient overwrites an existing client.
func (s *Store) UpdateClient(_ context.Context, client Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard("update client"); err != nil {
		return err
	}
	state := s.current()
	if !state.clients.Has(client) {
		return domain.ErrNotFound{Entity: domain.EntityClient, ID: client.ID}
	}
	state.clients.ReplaceOrInsert(client)
	return nil
}

// DeleteClient removes a client.
func (s *Store) DeleteClient(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard("delete client"); err != nil {
		return err
	}
	if _, ok := s.current().clients.Delete(Client{ID: id}); !ok {
		return domain.ErrNotFound{Entity: domain.EntityClient, ID: id}
	}
	return nil
}

func (m *memoryState) employeeByName(name string) (Employee, bool) {
	var found Employee
	var ok bool
	m.employees.Ascend(func(e Employee) bool {
		if e.Name == name {
			found, ok = e, true
			return false
		}
		return true
	})
	return found, ok
}

// CreateEmployee assigns the next employee ID and stores the record.
// Employee names are unique.
func (s *Store) CreateEmployee(_ context.Context, employee Employee) (Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard("create employee"); err != nil {
		return Employee{}, err
	}
	if employee.Name == "" {
		return Employee{}, domain.NewStoreError("create employee", errEmptyKey)
	}
	state := s.current()
	if existing, ok := state.employeeByName(employee.Name); ok {
		return Employee{}, domain.ErrDuplicateKey{Entity: domain.EntityEmployee, ID: existing.ID, Name: existing.Name}
	}
	employee.ID = state.nextEmployeeID
	state.nextEmployeeID++
	state.employees.ReplaceOrInsert(employee)
	return employee, nil
}

// GetEmployee returns the employee stored under id.
func (s *Store) GetEmployee(_ context.Context, id int) (Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard("get employee"); err != nil {
		return Employee{}, err
	}
	e, ok := s.current().employees.Get(Employee{ID: id})
	if !ok {
		return Employee{}, domain.ErrNotFound{Entity: domain.EntityEmployee, ID: id}
	}
	return e, nil
}

// GetEmployeeHash returns the stored credential hash for id.
func (s *Store) GetEmployeeHash(ctx context.Context, id int) (string, error) {
	e, err := s.GetEmployee(ctx, id)
	if err != nil {
		return "", err
	}
	return e.PasswordHash, nil
}

// UpdateEmployee overwrites an existing employee.
func (s *Store) UpdateEmployee(_ context.Context, employee Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard("update employee"); err != nil {
		return err
	}
	state := s.current()
	if !state.employees.Has(employee) {
		return domain.ErrNotFound{Entity: domain.EntityEmployee, ID: employee.ID}
	}
	if existing, ok := state.employeeByName(employee.Name); ok && existing.ID != employee.ID {
		return domain.ErrDuplicateKey{Entity: domain.EntityEmployee, ID: existing.ID, Name: existing.Name}
	}
	state.employees.ReplaceOrInsert(employee)
	return nil
}

// DeleteEmployee removes an employee.
func (s *Store) DeleteEmployee(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard("delete employee"); err != nil {
		return err
	}
	if _, ok := s.current().employees.Delete(Employee{ID: id}); !ok {
		return domain.ErrNotFound{Entity: domain.EntityEmployee, ID: id}
	}
	return nil
}

// Close marks the store closed; later calls fail with a StoreError.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.working = nil
	return nil
}
