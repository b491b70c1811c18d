package domain

import "context"

// PersistentStore is the remote system of record mirrored by the cache. It
// provides atomic begin/commit/rollback semantics for a single open
// transaction per handle; mutations issued while a transaction is open belong
// to it, mutations issued without one are applied immediately.
//
// Implementations must report lookup misses as ErrNotFound, unique key
// collisions as ErrDuplicateKey, and every other failure as *StoreError.
type PersistentStore interface {
	BeginTransaction(ctx context.Context) error
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error

	// CreateClient persists a client and returns it with the store-assigned ID.
	CreateClient(ctx context.Context, client Client) (Client, error)
	GetClient(ctx context.Context, id int) (Client, error)
	ListClients(ctx context.Context) ([]Client, error)
	UpdateClient(ctx context.Context, client Client) error
	DeleteClient(ctx context.Context, id int) error

	// CreateEmployee persists an employee and returns it with the store-assigned ID.
	CreateEmployee(ctx context.Context, employee Employee) (Employee, error)
	GetEmployee(ctx context.Context, id int) (Employee, error)
	GetEmployeeHash(ctx context.Context, id int) (string, error)
	UpdateEmployee(ctx context.Context, employee Employee) error
	DeleteEmployee(ctx context.Context, id int) error

	Close() error
}

// Authenticator compares a candidate password against a stored credential hash.
type Authenticator interface {
	Verify(storedHash, candidate string) bool
}
