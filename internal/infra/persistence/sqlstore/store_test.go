package sqlstore

import (
	"errors"
	"firmcore/pkg/domain"
	"testing"
)

func TestRebind(t *testing.T) {
	d := Dialect{Placeholder: DollarPlaceholder}
	got := d.Rebind("UPDATE t SET a = ?, b = ? WHERE id = ?")
	if got != "UPDATE t SET a = $1, b = $2 WHERE id = $3" {
		t.Fatalf("unexpected rebind: %s", got)
	}
	q := Dialect{Placeholder: QuestionPlaceholder}
	if q.Rebind("a = ?") != "a = ?" {
		t.Fatalf("question placeholder changed query")
	}
	if (Dialect{}).Rebind("a = ?") != "a = ?" {
		t.Fatalf("nil placeholder should leave query untouched")
	}
}

var errUnique = errors.New("unique violation")

func TestClassify(t *testing.T) {
	s := &Store{dialect: Dialect{IsUniqueViolation: func(err error) bool { return errors.Is(err, errUnique) }}}
	if err := s.classify("op", domain.EntityClient, 1, "", nil); err != nil {
		t.Fatalf("nil should stay nil")
	}
	if err := s.classify("op", domain.EntityEmployee, 0, "dana", errUnique); !domain.IsDuplicateKey(err) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
	err := s.classify("op", domain.EntityClient, 1, "", errors.New("boom"))
	var se *domain.StoreError
	if !errors.As(err, &se) || se.Op != "op" {
		t.Fatalf("expected store error, got %v", err)
	}
}
