package auth

import (
	"context"
	"errors"
	"firmcore/pkg/domain"
	"sync"
)

// DefaultMaxAttempts is the number of login attempts allowed per session.
const DefaultMaxAttempts = 5

// ErrTooManyAttempts is returned once a Login has used all of its attempts.
var ErrTooManyAttempts = errors.New("maximum login attempts reached")

// HashSource looks up the stored credential hash for an employee.
// core.EmployeeHandler satisfies it.
type HashSource interface {
	Hash(ctx context.Context, id int) (string, error)
}

// Login counts attempts for one interactive session.
type Login struct {
	mu       sync.Mutex
	hashes   HashSource
	verifier domain.Authenticator
	max      int
	used     int
}

// NewLogin builds a limiter. A non-positive maxAttempts uses DefaultMaxAttempts.
func NewLogin(hashes HashSource, verifier domain.Authenticator, maxAttempts int) *Login {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Login{hashes: hashes, verifier: verifier, max: maxAttempts}
}

// Attempt checks a password for an employee id. An unknown id is a failed
// attempt, not an error. Store errors propagate and still consume the attempt.
func (l *Login) Attempt(ctx context.Context, id int, password string) (bool, error) {
	l.mu.Lock()
	if l.used >= l.max {
		l.mu.Unlock()
		return false, ErrTooManyAttempts
	}
	l.used++
	l.mu.Unlock()

	hash, err := l.hashes.Hash(ctx, id)
	if domain.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return l.verifier.Verify(hash, password), nil
}

// Used returns the number of attempts consumed.
func (l *Login) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}

// Remaining returns the number of attempts left.
func (l *Login) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.max - l.used
}

// Max returns the attempt limit.
func (l *Login) Max() int { return l.max }
