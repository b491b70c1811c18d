package memory

import (
	"context"
	"firmcore/pkg/domain"
	"testing"
)

func TestStoreTransactionCommitAndSnapshots(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	if err := store.BeginTransaction(ctx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	created, err := store.CreateClient(ctx, Client{Name: "Ana", Service: domain.ServiceBrokerage, EmployeeID: 7})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 1 {
		t.Fatalf("expected generated ID 1, got %d", created.ID)
	}
	if got := store.ExportState(); len(got.Clients) != 0 {
		t.Fatalf("uncommitted write visible in committed state")
	}
	if err := store.CommitTransaction(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	snapshot := store.ExportState()
	if len(snapshot.Clients) != 1 {
		t.Fatalf("expected persisted client")
	}
	store.ImportState(Snapshot{})
	if clients, _ := store.ListClients(ctx); len(clients) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	got, err := store.GetClient(ctx, created.ID)
	if err != nil || got != created {
		t.Fatalf("expected restored client, got %+v %v", got, err)
	}
	next, _ := store.CreateClient(ctx, Client{Name: "Ben"})
	if next.ID != 2 {
		t.Fatalf("expected sequence to resume after import, got %d", next.ID)
	}
}

func TestStoreRollbackDiscardsWrites(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base, _ := store.CreateClient(ctx, Client{Name: "Base", EmployeeID: 1})

	if err := store.BeginTransaction(ctx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := store.UpdateClient(ctx, Client{ID: base.ID, Name: "Changed", EmployeeID: 2}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := store.CreateClient(ctx, Client{Name: "Extra"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	inside, _ := store.GetClient(ctx, base.ID)
	if inside.Name != "Changed" {
		t.Fatalf("transaction should read its own writes")
	}
	if err := store.RollbackTransaction(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	after, _ := store.GetClient(ctx, base.ID)
	if after != base {
		t.Fatalf("rollback did not restore %+v, got %+v", base, after)
	}
	clients, _ := store.ListClients(ctx)
	if len(clients) != 1 {
		t.Fatalf("expected 1 client after rollback, got %d", len(clients))
	}
}

func TestStoreTransactionStateErrors(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	if err := store.CommitTransaction(ctx); !domain.IsStoreError(err) {
		t.Fatalf("expected store error committing without tx, got %v", err)
	}
	if err := store.RollbackTransaction(ctx); !domain.IsStoreError(err) {
		t.Fatalf("expected store error rolling back without tx, got %v", err)
	}
	if err := store.BeginTransaction(ctx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := store.BeginTransaction(ctx); !domain.IsStoreError(err) {
		t.Fatalf("expected nested begin to fail, got %v", err)
	}
	if !store.InTransaction() {
		t.Fatalf("expected open transaction")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := store.ListClients(ctx); !domain.IsStoreError(err) {
		t.Fatalf("expected closed store error, got %v", err)
	}
}

func TestStoreNotFound(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	if _, err := store.GetClient(ctx, 9); !domain.IsNotFound(err) {
		t.Fatalf("get client: %v", err)
	}
	if err := store.UpdateClient(ctx, Client{ID: 9}); !domain.IsNotFound(err) {
		t.Fatalf("update client: %v", err)
	}
	if err := store.DeleteClient(ctx, 9); !domain.IsNotFound(err) {
		t.Fatalf("delete client: %v", err)
	}
	if _, err := store.GetEmployeeHash(ctx, 9); !domain.IsNotFound(err) {
		t.Fatalf("get hash: %v", err)
	}
	if err := store.UpdateEmployee(ctx, Employee{ID: 9, Name: "x"}); !domain.IsNotFound(err) {
		t.Fatalf("update employee: %v", err)
	}
	if err := store.DeleteEmployee(ctx, 9); !domain.IsNotFound(err) {
		t.Fatalf("delete employee: %v", err)
	}
}

func TestStoreEmployeeNamesUnique(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	first, err := store.CreateEmployee(ctx, Employee{Name: "dana", PasswordHash: "h1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateEmployee(ctx, Employee{Name: "dana", PasswordHash: "h2"}); !domain.IsDuplicateKey(err) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
	second, _ := store.CreateEmployee(ctx, Employee{Name: "eli", PasswordHash: "h3"})
	if err := store.UpdateEmployee(ctx, Employee{ID: second.ID, Name: "dana"}); !domain.IsDuplicateKey(err) {
		t.Fatalf("expected duplicate on rename, got %v", err)
	}
	if _, err := store.CreateEmployee(ctx, Employee{}); !domain.IsStoreError(err) {
		t.Fatalf("expected store error for empty name, got %v", err)
	}
	hash, err := store.GetEmployeeHash(ctx, first.ID)
	if err != nil || hash != "h1" {
		t.Fatalf("hash: %q %v", hash, err)
	}
	if err := store.DeleteEmployee(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetEmployee(ctx, first.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected deleted employee missing, got %v", err)
	}
}
