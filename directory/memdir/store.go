// Package memdir is an in-memory [authcore.Directory] for tests, examples,
// and load generation. Not intended for production use: state is lost on
// restart and never shared across processes.
package memdir

import (
	"context"
	"sync"
	"time"

	authcore "github.com/tradegate/authcore"
)

type key struct {
	id    string
	class authcore.AccountClass
}

// Store defines a public type used by authcore APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	mu       sync.Mutex
	accounts map[key]*authcore.Account
}

// New describes the new operation and its observable behavior.
func New() *Store {
	return &Store{accounts: make(map[key]*authcore.Account)}
}

// Put adds or replaces an account. The email is canonicalized on insert.
func (s *Store) Put(account *authcore.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *account
	clone.Email = authcore.CanonicalEmail(account.Email)
	s.accounts[key{id: account.ID, class: account.Class}] = &clone
}

// FindByEmail describes the findbyemail operation and its observable behavior.
//
// FindByEmail may return an error when input validation, dependency calls, or security checks fail.
// FindByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) FindByEmail(_ context.Context, email string, class authcore.AccountClass) (*authcore.Account, error) {
	email = authcore.CanonicalEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, account := range s.accounts {
		if k.class == class && account.Email == email {
			clone := *account
			return &clone, nil
		}
	}
	return nil, authcore.ErrAccountNotFound
}

// GetByID describes the getbyid operation and its observable behavior.
//
// GetByID may return an error when input validation, dependency calls, or security checks fail.
// GetByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) GetByID(_ context.Context, id string, class authcore.AccountClass) (*authcore.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[key{id: id, class: class}]
	if !ok {
		return nil, authcore.ErrAccountNotFound
	}

	clone := *account
	return &clone, nil
}

// RecordFailure describes the recordfailure operation and its observable behavior.
//
// RecordFailure may return an error when input validation, dependency calls, or security checks fail.
// RecordFailure does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) RecordFailure(_ context.Context, id string, class authcore.AccountClass, threshold int, lockFor time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[key{id: id, class: class}]
	if !ok {
		return 0, time.Time{}, authcore.ErrAccountNotFound
	}

	account.FailedAttempts++
	if account.FailedAttempts >= threshold {
		account.LockedUntil = time.Now().Add(lockFor)
	}

	return account.FailedAttempts, account.LockedUntil, nil
}

// ClearFailures describes the clearfailures operation and its observable behavior.
//
// ClearFailures may return an error when input validation, dependency calls, or security checks fail.
// ClearFailures does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) ClearFailures(_ context.Context, id string, class authcore.AccountClass) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[key{id: id, class: class}]
	if !ok {
		return authcore.ErrAccountNotFound
	}

	account.FailedAttempts = 0
	account.LockedUntil = time.Time{}
	return nil
}

// UpdatePasswordHash describes the updatepasswordhash operation and its observable behavior.
//
// UpdatePasswordHash may return an error when input validation, dependency calls, or security checks fail.
// UpdatePasswordHash does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) UpdatePasswordHash(_ context.Context, id string, class authcore.AccountClass, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[key{id: id, class: class}]
	if !ok {
		return authcore.ErrAccountNotFound
	}

	account.PasswordHash = newHash
	return nil
}

// TouchLastLogin describes the touchlastlogin operation and its observable behavior.
//
// TouchLastLogin may return an error when input validation, dependency calls, or security checks fail.
// TouchLastLogin does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) TouchLastLogin(_ context.Context, id string, class authcore.AccountClass, login authcore.LoginContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[key{id: id, class: class}]
	if !ok {
		return authcore.ErrAccountNotFound
	}

	at := login.At
	if at.IsZero() {
		at = time.Now()
	}
	account.LastLoginAt = at
	account.LastLoginIP = login.IP
	account.LastLoginUA = login.UserAgent
	return nil
}
