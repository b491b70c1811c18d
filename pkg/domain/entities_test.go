package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestServiceCode(t *testing.T) {
	cases := []struct {
		code  ServiceCode
		valid bool
		name  string
	}{
		{ServiceUnset, false, "unset"},
		{ServiceBrokerage, true, "brokerage"},
		{ServiceRetirement, true, "retirement"},
		{ServiceCode(9), false, "service(9)"},
	}
	for _, c := range cases {
		if c.code.Valid() != c.valid || c.code.String() != c.name {
			t.Errorf("code %d: valid=%v name=%q", int(c.code), c.code.Valid(), c.code.String())
		}
	}
}

func TestKeys(t *testing.T) {
	var k Keyed = Client{ID: 42}
	if k.Key() != 42 {
		t.Fatalf("client key %d", k.Key())
	}
	k = Employee{ID: 7}
	if k.Key() != 7 {
		t.Fatalf("employee key %d", k.Key())
	}
}

func TestClientJSONFieldNames(t *testing.T) {
	raw, err := json.Marshal(Client{ID: 42, Name: "Ana", Service: ServiceBrokerage, EmployeeID: 7})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"client_id":42,"client_name":"Ana","client_service":1,"asn_employee_id":7}`
	if string(raw) != want {
		t.Fatalf("got %s want %s", raw, want)
	}
}

func TestErrorClassification(t *testing.T) {
	nf := fmt.Errorf("load: %w", ErrNotFound{Entity: EntityClient, ID: 3})
	if !IsNotFound(nf) || IsDuplicateKey(nf) || IsStoreError(nf) {
		t.Fatalf("not found misclassified")
	}
	if nf.Error() != "load: client 3 not found" {
		t.Fatalf("message %q", nf.Error())
	}

	if got := (ErrDuplicateKey{Entity: EntityEmployee, Name: "dana"}).Error(); got != `employee "dana" already exists` {
		t.Fatalf("named duplicate %q", got)
	}
	if got := (ErrDuplicateKey{Entity: EntityClient, ID: 5}).Error(); got != "client 5 already exists" {
		t.Fatalf("keyed duplicate %q", got)
	}

	cause := errors.New("connection reset")
	se := fmt.Errorf("commit: %w", NewStoreError("commit", cause))
	if !IsStoreError(se) || !errors.Is(se, cause) {
		t.Fatalf("store error should wrap its cause")
	}
	if got := (&StoreError{Op: "begin", Msg: "nested transaction"}).Error(); got != "store begin: nested transaction" {
		t.Fatalf("message-only store error %q", got)
	}
	if got := (&StoreError{Op: "exec", Msg: "insert client", Err: cause}).Error(); !strings.Contains(got, "insert client: connection reset") {
		t.Fatalf("full store error %q", got)
	}
	if got := (InvariantViolation{Detail: "height mismatch"}).Error(); got != "invariant violation: height mismatch" {
		t.Fatalf("invariant %q", got)
	}
}
