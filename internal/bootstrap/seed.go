// Package bootstrap performs first-run seeding of the employee table.
package bootstrap

import (
	"context"
	"errors"
	"firmcore/internal/core"
	"firmcore/pkg/domain"
	"fmt"
	"strings"
)

// Hasher turns a plaintext password into a stored credential hash.
type Hasher interface {
	Hash(password string) (string, error)
}

// Seed is one employee to create on first run.
type Seed struct {
	Name     string
	Password string
}

// ParseSeed parses "name:password". The password may itself contain colons.
func ParseSeed(s string) (Seed, error) {
	name, password, ok := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" || password == "" {
		return Seed{}, fmt.Errorf("invalid employee seed %q: want name:password", s)
	}
	return Seed{Name: name, Password: password}, nil
}

// SeedReport describes what SeedEmployees did.
type SeedReport struct {
	// AlreadySeeded is true when employee 1 existed and nothing was attempted.
	AlreadySeeded bool
	Created       []domain.Employee
	Duplicates    []string
}

// firstEmployeeID marks a store that has been seeded before.
const firstEmployeeID = 1

// SeedEmployees creates seeds in one transaction unless the store already
// holds employee 1. Names that already exist are skipped; any other failure
// rolls the whole batch back.
func SeedEmployees(ctx context.Context, store domain.PersistentStore, hasher Hasher, seeds []Seed, opts ...core.Option) (SeedReport, error) {
	if store == nil || hasher == nil {
		return SeedReport{}, errors.New("seed employees: nil store or hasher")
	}
	_, err := store.GetEmployeeHash(ctx, firstEmployeeID)
	switch {
	case err == nil:
		return SeedReport{AlreadySeeded: true}, nil
	case !domain.IsNotFound(err):
		return SeedReport{}, fmt.Errorf("check seeded: %w", err)
	}

	tx, err := core.BeginTransaction(ctx, store, opts...)
	if err != nil {
		return SeedReport{}, err
	}
	defer tx.Close()

	var report SeedReport
	for _, seed := range seeds {
		hash, err := hasher.Hash(seed.Password)
		if err != nil {
			return SeedReport{}, fmt.Errorf("hash password for %s: %w", seed.Name, err)
		}
		created, err := tx.Store().CreateEmployee(ctx, domain.Employee{Name: seed.Name, PasswordHash: hash})
		if domain.IsDuplicateKey(err) {
			report.Duplicates = append(report.Duplicates, seed.Name)
			continue
		}
		if err != nil {
			return SeedReport{}, fmt.Errorf("seed employee %s: %w", seed.Name, err)
		}
		report.Created = append(report.Created, created)
	}
	if err := tx.Commit(ctx); err != nil {
		return SeedReport{}, err
	}
	return report, nil
}
