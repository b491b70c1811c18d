package core

import (
	"context"
	"errors"
	"firmcore/internal/index"
	"firmcore/pkg/domain"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// EmployeeHandler caches employees as they are first requested. Credential
// hashes are held separately in a bounded LRU so authentication does not keep
// every hash resident.
type EmployeeHandler struct {
	mu        sync.Mutex
	store     domain.PersistentStore
	employees *index.BalancedIndex[domain.Employee]
	hashes    *lru.Cache[int, string]
	opts      options
}

var _ EmployeeValidator = (*EmployeeHandler)(nil)

// NewEmployeeHandler builds an empty handler over store. Nothing is loaded
// until the first read.
func NewEmployeeHandler(store domain.PersistentStore, opts ...Option) (*EmployeeHandler, error) {
	if store == nil {
		return nil, errors.New("employee handler: nil store")
	}
	o := buildOptions(opts)
	hashes, err := lru.New[int, string](o.hashCacheSize)
	if err != nil {
		return nil, fmt.Errorf("employee hash cache: %w", err)
	}
	return &EmployeeHandler{
		store:     store,
		employees: index.NewBalancedIndex[domain.Employee](domain.EntityEmployee),
		hashes:    hashes,
		opts:      o,
	}, nil
}

// Get returns an employee, loading it from the store on a cache miss.
func (h *EmployeeHandler) Get(ctx context.Context, id int) (emp domain.Employee, err error) {
	ctx, done := h.opts.instrument(ctx, "employee.get")
	defer func() { done(err) }()
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.get(ctx, id)
}

func (h *EmployeeHandler) get(ctx context.Context, id int) (domain.Employee, error) {
	if emp, err := h.employees.Find(id); err == nil {
		return emp, nil
	}
	emp, err := h.store.GetEmployee(ctx, id)
	if err != nil {
		return domain.Employee{}, err
	}
	if err := h.employees.Insert(emp); err != nil {
		return domain.Employee{}, err
	}
	h.hashes.Add(emp.ID, emp.PasswordHash)
	return emp, nil
}

// Hash returns the stored credential hash for an employee.
func (h *EmployeeHandler) Hash(ctx context.Context, id int) (hash string, err error) {
	ctx, done := h.opts.instrument(ctx, "employee.hash")
	defer func() { done(err) }()
	h.mu.Lock()
	defer h.mu.Unlock()
	if cached, ok := h.hashes.Get(id); ok {
		return cached, nil
	}
	hash, err = h.store.GetEmployeeHash(ctx, id)
	if err != nil {
		return "", err
	}
	h.hashes.Add(id, hash)
	return hash, nil
}

// IsValidID reports whether id names an existing employee. A missing employee
// is not an error.
func (h *EmployeeHandler) IsValidID(ctx context.Context, id int) (bool, error) {
	_, err := h.Get(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case domain.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Len returns the number of employees currently cached.
func (h *EmployeeHandler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.employees.Len()
}

// Create persists a new employee and caches it.
func (h *EmployeeHandler) Create(ctx context.Context, employee domain.Employee) (created domain.Employee, err error) {
	ctx, done := h.opts.instrument(ctx, "employee.create")
	defer func() { done(err) }()
	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := BeginTransaction(ctx, h.store, WithLogger(h.opts.logger))
	if err != nil {
		return domain.Employee{}, err
	}
	defer tx.Close()

	created, err = tx.Store().CreateEmployee(ctx, employee)
	if err != nil {
		return domain.Employee{}, err
	}
	if err := h.employees.Insert(created); err != nil {
		return domain.Employee{}, err
	}
	h.hashes.Add(created.ID, created.PasswordHash)
	if err := tx.Commit(ctx); err != nil {
		return created, err
	}
	return created, nil
}

// Update overwrites an employee. The employee need not be cached; a cached
// copy is refreshed.
func (h *EmployeeHandler) Update(ctx context.Context, employee domain.Employee) (err error) {
	ctx, done := h.opts.instrument(ctx, "employee.update")
	defer func() { done(err) }()
	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := BeginTransaction(ctx, h.store, WithLogger(h.opts.logger))
	if err != nil {
		return err
	}
	defer tx.Close()

	if err := tx.Store().UpdateEmployee(ctx, employee); err != nil {
		return err
	}
	if h.employees.Contains(employee.ID) {
		if err := h.employees.Replace(employee); err != nil {
			return err
		}
	} else if err := h.employees.Insert(employee); err != nil {
		return err
	}
	h.hashes.Add(employee.ID, employee.PasswordHash)
	return tx.Commit(ctx)
}

// Delete removes an employee from the store and from both caches.
func (h *EmployeeHandler) Delete(ctx context.Context, id int) (err error) {
	ctx, done := h.opts.instrument(ctx, "employee.delete")
	defer func() { done(err) }()
	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := BeginTransaction(ctx, h.store, WithLogger(h.opts.logger))
	if err != nil {
		return err
	}
	defer tx.Close()

	if err := tx.Store().DeleteEmployee(ctx, id); err != nil {
		return err
	}
	if h.employees.Contains(id) {
		if _, err := h.employees.Remove(id); err != nil {
			return err
		}
	}
	h.hashes.Remove(id)
	return tx.Commit(ctx)
}
