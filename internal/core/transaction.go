package core

import (
	"context"
	"errors"
	"firmcore/pkg/domain"
	"fmt"

	"github.com/google/uuid"
)

// TxState reports where a ScopedTransaction is in its lifecycle.
type TxState int

const (
	TxPending TxState = iota
	TxCommitted
	TxRolledBack
)

func (s TxState) String() string {
	switch s {
	case TxPending:
		return "pending"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("TxState(%d)", int(s))
	}
}

// ErrTransactionFinalized is returned when Commit is called on a guard that
// already committed or rolled back.
var ErrTransactionFinalized = errors.New("transaction already finalized")

// ScopedTransaction owns the store's transaction context for one unit of
// work. Callers defer Close immediately after a successful BeginTransaction;
// Close rolls back unless Commit ran first.
//
//	tx, err := core.BeginTransaction(ctx, store)
//	if err != nil {
//		return err
//	}
//	defer tx.Close()
//	... mutate through tx.Store() ...
//	return tx.Commit(ctx)
type ScopedTransaction struct {
	store  domain.PersistentStore
	id     uuid.UUID
	state  TxState
	logger Logger
}

// BeginTransaction opens a transaction on store. No guard is returned when
// the store refuses to begin.
func BeginTransaction(ctx context.Context, store domain.PersistentStore, opts ...Option) (*ScopedTransaction, error) {
	if store == nil {
		return nil, domain.NewStoreError("begin", errors.New("nil store"))
	}
	o := buildOptions(opts)
	if err := store.BeginTransaction(ctx); err != nil {
		return nil, err
	}
	tx := &ScopedTransaction{store: store, id: uuid.New(), logger: o.logger}
	tx.logger.Debug("transaction begun", "tx", tx.id.String())
	return tx, nil
}

// ID returns the correlation id used in log lines.
func (t *ScopedTransaction) ID() uuid.UUID { return t.id }

// State returns the current lifecycle state.
func (t *ScopedTransaction) State() TxState { return t.state }

// Store returns the store handle for mutations under this guard.
func (t *ScopedTransaction) Store() domain.PersistentStore { return t.store }

// Commit commits the transaction. The guard is finalized whatever the
// outcome, so a failed commit is never followed by a rollback from Close.
func (t *ScopedTransaction) Commit(ctx context.Context) error {
	if t.state != TxPending {
		return ErrTransactionFinalized
	}
	t.state = TxCommitted
	if err := t.store.CommitTransaction(ctx); err != nil {
		t.logger.Error("transaction commit failed", "tx", t.id.String(), "error", err)
		return err
	}
	t.logger.Debug("transaction committed", "tx", t.id.String())
	return nil
}

// Close rolls back a pending transaction. Rollback failures are logged and
// dropped. Calling Close more than once is harmless.
func (t *ScopedTransaction) Close() {
	if t == nil || t.state != TxPending {
		return
	}
	t.state = TxRolledBack
	// Rollback runs on the deferred path where the caller's context may
	// already be cancelled.
	if err := t.store.RollbackTransaction(context.Background()); err != nil {
		t.logger.Warn("transaction rollback failed", "tx", t.id.String(), "error", err)
		return
	}
	t.logger.Debug("transaction rolled back", "tx", t.id.String())
}
