package core

import (
	"context"
	"errors"
	"firmcore/internal/index"
	"firmcore/pkg/domain"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrInvalidService is returned when a client is moved to an unknown or unset service.
	ErrInvalidService = errors.New("invalid service code")
	// ErrInvalidEmployee is returned when a reassignment names an employee that does not exist.
	ErrInvalidEmployee = errors.New("invalid employee id")
)

// EmployeeValidator reports whether an employee id refers to an existing employee.
type EmployeeValidator interface {
	IsValidID(ctx context.Context, id int) (bool, error)
}

// ClientHandler keeps an ordered cache of every client plus an index from
// employee id to the ids of the clients assigned to them. Every write goes
// to the store first and is mirrored locally before the commit.
type ClientHandler struct {
	mu         sync.Mutex
	store      domain.PersistentStore
	clients    *index.BalancedIndex[domain.Client]
	byEmployee *index.GroupIndex
	opts       options
}

// NewClientHandler loads every client from store. A load failure fails
// construction.
func NewClientHandler(ctx context.Context, store domain.PersistentStore, opts ...Option) (*ClientHandler, error) {
	if store == nil {
		return nil, errors.New("client handler: nil store")
	}
	h := &ClientHandler{
		store:      store,
		clients:    index.NewBalancedIndex[domain.Client](domain.EntityClient),
		byEmployee: index.NewGroupIndex(),
		opts:       buildOptions(opts),
	}
	ctx, done := h.opts.instrument(ctx, "client.load")
	err := h.load(ctx)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("load clients: %w", err)
	}
	h.opts.logger.Info("clients loaded", "count", h.clients.Len(), "employees", h.byEmployee.Len())
	return h, nil
}

func (h *ClientHandler) load(ctx context.Context) error {
	list, err := h.store.ListClients(ctx)
	if err != nil {
		return err
	}
	for _, c := range list {
		if err := h.clients.Insert(c); err != nil {
			return err
		}
		h.byEmployee.Add(c.EmployeeID, c.ID)
	}
	return nil
}

// Create persists client and caches it with the id assigned by the store.
func (h *ClientHandler) Create(ctx context.Context, client domain.Client) (created domain.Client, err error) {
	ctx, done := h.opts.instrument(ctx, "client.create")
	defer func() { done(err) }()
	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := BeginTransaction(ctx, h.store, WithLogger(h.opts.logger))
	if err != nil {
		return domain.Client{}, err
	}
	defer tx.Close()

	created, err = tx.Store().CreateClient(ctx, client)
	if err != nil {
		return domain.Client{}, err
	}
	if err := h.clients.Insert(created); err != nil {
		return domain.Client{}, err
	}
	h.byEmployee.Add(created.EmployeeID, created.ID)
	if err := tx.Commit(ctx); err != nil {
		return created, err
	}
	return created, nil
}

// Get returns the cached client.
func (h *ClientHandler) Get(id int) (domain.Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clients.Find(id)
}

// ClientsForEmployee returns the ids of the clients assigned to an employee in
// ascending order. ok is false when the employee has none.
func (h *ClientHandler) ClientsForEmployee(employeeID int) ([]int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.byEmployee.Lookup(employeeID)
}

// List returns all cached clients ordered by id.
func (h *ClientHandler) List() []domain.Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clients.Values()
}

// Len returns the number of cached clients.
func (h *ClientHandler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clients.Len()
}

// Update overwrites a cached client in the store and the cache. The client
// must already be cached.
func (h *ClientHandler) Update(ctx context.Context, client domain.Client) (err error) {
	ctx, done := h.opts.instrument(ctx, "client.update")
	defer func() { done(err) }()
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.update(ctx, client)
}

func (h *ClientHandler) update(ctx context.Context, client domain.Client) error {
	old, err := h.clients.Find(client.ID)
	if err != nil {
		return err
	}

	tx, err := BeginTransaction(ctx, h.store, WithLogger(h.opts.logger))
	if err != nil {
		return err
	}
	defer tx.Close()

	if err := tx.Store().UpdateClient(ctx, client); err != nil {
		return err
	}
	if err := h.clients.Replace(client); err != nil {
		return err
	}
	h.byEmployee.Reassign(old.EmployeeID, client.EmployeeID, client.ID)
	return tx.Commit(ctx)
}

// Delete removes a cached client from the store and the cache.
func (h *ClientHandler) Delete(ctx context.Context, id int) (err error) {
	ctx, done := h.opts.instrument(ctx, "client.delete")
	defer func() { done(err) }()
	h.mu.Lock()
	defer h.mu.Unlock()

	old, err := h.clients.Find(id)
	if err != nil {
		return err
	}

	tx, err := BeginTransaction(ctx, h.store, WithLogger(h.opts.logger))
	if err != nil {
		return err
	}
	defer tx.Close()

	if err := tx.Store().DeleteClient(ctx, id); err != nil {
		return err
	}
	if _, err := h.clients.Remove(id); err != nil {
		return err
	}
	h.byEmployee.Remove(old.EmployeeID, id)
	return tx.Commit(ctx)
}

// ChangeService moves a client to another service.
func (h *ClientHandler) ChangeService(ctx context.Context, clientID int, service domain.ServiceCode) (updated domain.Client, err error) {
	ctx, done := h.opts.instrument(ctx, "client.change_service")
	defer func() { done(err) }()
	if service == domain.ServiceUnset || !service.Valid() {
		return domain.Client{}, fmt.Errorf("%w: %d", ErrInvalidService, int(service))
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	updated, err = h.clients.Find(clientID)
	if err != nil {
		return domain.Client{}, err
	}
	updated.Service = service
	if err := h.update(ctx, updated); err != nil {
		return domain.Client{}, err
	}
	return updated, nil
}

// Reassign pairs a client with another employee. The employee is checked
// with validator before any transaction is opened.
func (h *ClientHandler) Reassign(ctx context.Context, clientID, employeeID int, validator EmployeeValidator) (updated domain.Client, err error) {
	ctx, done := h.opts.instrument(ctx, "client.reassign")
	defer func() { done(err) }()
	if validator == nil {
		return domain.Client{}, errors.New("reassign: nil employee validator")
	}
	ok, err := validator.IsValidID(ctx, employeeID)
	if err != nil {
		return domain.Client{}, err
	}
	if !ok {
		return domain.Client{}, fmt.Errorf("%w: %d", ErrInvalidEmployee, employeeID)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	updated, err = h.clients.Find(clientID)
	if err != nil {
		return domain.Client{}, err
	}
	updated.EmployeeID = employeeID
	if err := h.update(ctx, updated); err != nil {
		return domain.Client{}, err
	}
	return updated, nil
}

// Validate checks the structural invariants of the cache and its agreement
// with the employee index.
func (h *ClientHandler) Validate() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.clients.Validate(); err != nil {
		return err
	}
	members := 0
	var bad error
	h.clients.Ascend(func(c domain.Client) bool {
		ids, ok := h.byEmployee.Lookup(c.EmployeeID)
		if !ok || !slices.Contains(ids, c.ID) {
			bad = domain.InvariantViolation{Detail: fmt.Sprintf("client %d missing from employee %d group", c.ID, c.EmployeeID)}
			return false
		}
		return true
	})
	if bad != nil {
		return bad
	}
	for _, g := range h.byEmployee.Groups() {
		ids, _ := h.byEmployee.Lookup(g)
		members += len(ids)
	}
	if members != h.clients.Len() {
		return domain.InvariantViolation{Detail: fmt.Sprintf("group index holds %d members for %d clients", members, h.clients.Len())}
	}
	return nil
}
