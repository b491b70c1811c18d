package core

import (
	"context"
	"errors"
	"firmcore/internal/infra/persistence/memory"
	"firmcore/pkg/domain"
	"testing"
)

func employeeStore() *recordingStore {
	store := newRecordingStore()
	store.ImportState(memory.Snapshot{Employees: []domain.Employee{
		{ID: 1, Name: "dana", PasswordHash: "h1"},
		{ID: 2, Name: "eli", PasswordHash: "h2"},
		{ID: 3, Name: "fay", PasswordHash: "h3"},
	}})
	return store
}

func countCalls(calls []string, op string) int {
	n := 0
	for _, c := range calls {
		if c == op {
			n++
		}
	}
	return n
}

func TestEmployeeHandlerLazyLoad(t *testing.T) {
	store := employeeStore()
	h := mustEmployeeHandler(t, store)
	if h.Len() != 0 || len(store.Calls()) != 0 {
		t.Fatalf("construction must not load employees")
	}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		emp, err := h.Get(ctx, 2)
		if err != nil || emp.Name != "eli" {
			t.Fatalf("get: %+v %v", emp, err)
		}
	}
	if n := countCalls(store.Calls(), "get_employee"); n != 1 {
		t.Fatalf("expected a single store read, got %d", n)
	}
	if h.Len() != 1 {
		t.Fatalf("expected 1 cached employee, got %d", h.Len())
	}
	if _, err := h.Get(ctx, 99); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEmployeeHandlerHashCache(t *testing.T) {
	store := employeeStore()
	h := mustEmployeeHandler(t, store, WithHashCacheSize(2))
	ctx := context.Background()

	for _, id := range []int{1, 2, 1} {
		if _, err := h.Hash(ctx, id); err != nil {
			t.Fatalf("hash %d: %v", id, err)
		}
	}
	if n := countCalls(store.Calls(), "get_employee_hash"); n != 2 {
		t.Fatalf("expected 2 hash reads, got %d", n)
	}
	// 3 evicts 2, the least recently used.
	if hash, err := h.Hash(ctx, 3); err != nil || hash != "h3" {
		t.Fatalf("hash 3: %q %v", hash, err)
	}
	if _, err := h.Hash(ctx, 2); err != nil {
		t.Fatalf("hash 2: %v", err)
	}
	if n := countCalls(store.Calls(), "get_employee_hash"); n != 4 {
		t.Fatalf("expected eviction to force a reload, got %d reads", n)
	}
	if _, err := h.Hash(ctx, 42); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEmployeeHandlerGetPrimesHashCache(t *testing.T) {
	store := employeeStore()
	h := mustEmployeeHandler(t, store)
	ctx := context.Background()
	if _, err := h.Get(ctx, 1); err != nil {
		t.Fatalf("get: %v", err)
	}
	if hash, err := h.Hash(ctx, 1); err != nil || hash != "h1" {
		t.Fatalf("hash: %q %v", hash, err)
	}
	if n := countCalls(store.Calls(), "get_employee_hash"); n != 0 {
		t.Fatalf("hash should come from the cache, got %d reads", n)
	}
}

func TestEmployeeHandlerIsValidID(t *testing.T) {
	store := employeeStore()
	h := mustEmployeeHandler(t, store)
	ctx := context.Background()
	if ok, err := h.IsValidID(ctx, 3); !ok || err != nil {
		t.Fatalf("expected valid, got %v %v", ok, err)
	}
	if ok, err := h.IsValidID(ctx, 30); ok || err != nil {
		t.Fatalf("expected invalid without error, got %v %v", ok, err)
	}
	store.failOn("get_employee", errInjected)
	if ok, err := h.IsValidID(ctx, 2); ok || !errors.Is(err, errInjected) {
		t.Fatalf("expected store error to propagate, got %v %v", ok, err)
	}
}

func TestEmployeeHandlerWrites(t *testing.T) {
	store := newRecordingStore()
	h := mustEmployeeHandler(t, store)
	ctx := context.Background()

	created, err := h.Create(ctx, domain.Employee{Name: "dana", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if _, err := h.Create(ctx, domain.Employee{Name: "dana", PasswordHash: "x"}); !domain.IsDuplicateKey(err) {
		t.Fatalf("expected duplicate key, got %v", err)
	}

	created.PasswordHash = "rotated"
	if err := h.Update(ctx, created); err != nil {
		t.Fatalf("update: %v", err)
	}
	store.reset()
	if hash, _ := h.Hash(ctx, created.ID); hash != "rotated" {
		t.Fatalf("hash cache not refreshed: %q", hash)
	}
	if len(store.Calls()) != 0 {
		t.Fatalf("expected cached hash, got %v", store.Calls())
	}

	if err := h.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := h.Hash(ctx, created.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected purged hash, got %v", err)
	}
	if _, err := h.Get(ctx, created.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected purged employee, got %v", err)
	}
	if err := h.Delete(ctx, created.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if store.InTransaction() {
		t.Fatalf("transaction left open")
	}
}

func TestEmployeeHandlerUpdateUncached(t *testing.T) {
	store := employeeStore()
	h := mustEmployeeHandler(t, store)
	ctx := context.Background()
	if err := h.Update(ctx, domain.Employee{ID: 3, Name: "fay", PasswordHash: "new"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if h.Len() != 1 {
		t.Fatalf("updated employee should be cached")
	}
	store.failOn("update_employee", errInjected)
	if err := h.Update(ctx, domain.Employee{ID: 3, Name: "fay", PasswordHash: "newer"}); !errors.Is(err, errInjected) {
		t.Fatalf("expected failure, got %v", err)
	}
	if emp, _ := h.Get(ctx, 3); emp.PasswordHash != "new" {
		t.Fatalf("failed update changed cache: %+v", emp)
	}
	if err := h.Update(ctx, domain.Employee{ID: 77, Name: "x", PasswordHash: "y"}); !errors.Is(err, errInjected) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	store.failOn("update_employee", nil)
	if err := h.Update(ctx, domain.Employee{ID: 77, Name: "x", PasswordHash: "y"}); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewEmployeeHandlerNilStore(t *testing.T) {
	if _, err := NewEmployeeHandler(nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestEmployeeHandlerCommitFailureKeepsLocalMutation(t *testing.T) {
	ctx := context.Background()

	t.Run("create", func(t *testing.T) {
		store := newRecordingStore()
		h := mustEmployeeHandler(t, store)
		store.failOn("commit", errInjected)
		created, err := h.Create(ctx, domain.Employee{Name: "dana", PasswordHash: "h"})
		if !errors.Is(err, errInjected) {
			t.Fatalf("expected commit failure, got %v", err)
		}
		if h.Len() != 1 {
			t.Fatalf("local cache should hold the employee")
		}
		if hash, err := h.Hash(ctx, created.ID); err != nil || hash != "h" {
			t.Fatalf("hash cache should hold the employee: %q %v", hash, err)
		}
		if _, err := store.GetEmployee(ctx, created.ID); !domain.IsNotFound(err) {
			t.Fatalf("remote store should not hold the employee, got %v", err)
		}
	})

	t.Run("update", func(t *testing.T) {
		store := employeeStore()
		h := mustEmployeeHandler(t, store)
		store.failOn("commit", errInjected)
		if err := h.Update(ctx, domain.Employee{ID: 3, Name: "fay", PasswordHash: "new"}); !errors.Is(err, errInjected) {
			t.Fatalf("expected commit failure, got %v", err)
		}
		if hash, _ := h.Hash(ctx, 3); hash != "new" {
			t.Fatalf("hash cache should hold the update, got %q", hash)
		}
		if hash, _ := store.GetEmployeeHash(ctx, 3); hash != "h3" {
			t.Fatalf("remote store should keep the old hash, got %q", hash)
		}
	})

	t.Run("delete", func(t *testing.T) {
		store := employeeStore()
		h := mustEmployeeHandler(t, store)
		if _, err := h.Get(ctx, 2); err != nil {
			t.Fatalf("get: %v", err)
		}
		store.failOn("commit", errInjected)
		if err := h.Delete(ctx, 2); !errors.Is(err, errInjected) {
			t.Fatalf("expected commit failure, got %v", err)
		}
		if h.Len() != 0 {
			t.Fatalf("local cache should drop the employee")
		}
		if _, err := store.GetEmployee(ctx, 2); err != nil {
			t.Fatalf("remote store should keep the employee, got %v", err)
		}
		if store.InTransaction() {
			t.Fatalf("transaction left open")
		}
	})
}
