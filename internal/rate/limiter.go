// Package rate implements sliding-window request budgets keyed by client
// address. Counting and recording are separate steps so that a request
// refused by one check (for example a lockout) can still be charged against
// the window.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited reports that the budget for an operation is exhausted.
	ErrRateLimited = errors.New("rate: limit exceeded")
	// ErrStoreUnavailable reports a backend failure while counting or
	// recording attempts.
	ErrStoreUnavailable = errors.New("rate: store unavailable")
)

// Op identifies a rate-limited operation. Each op has an independent window
// and budget; exhausting one never affects the others.
type Op string

const (
	OpLogin         Op = "login"
	OpStrictLogin   Op = "strict_login"
	OpRegistration  Op = "registration"
	OpPasswordReset Op = "password_reset"
)

// Budget is a sliding window and the number of attempts permitted inside it.
type Budget struct {
	Window      time.Duration
	MaxAttempts int
}

// Config carries one budget per operation.
type Config struct {
	Login         Budget
	StrictLogin   Budget
	Registration  Budget
	PasswordReset Budget
}

// Store persists attempt timestamps per key. Implementations must be safe
// for concurrent use.
type Store interface {
	// CountSince returns the number of recorded attempts at or after since.
	CountSince(ctx context.Context, key string, since time.Time) (int, error)
	// Record appends an attempt at the given instant. retain hints how long
	// the entry must survive; stores may drop older entries freely.
	Record(ctx context.Context, key string, at time.Time, retain time.Duration) error
	// Clear drops all recorded attempts for the key.
	Clear(ctx context.Context, key string) error
}

// Limiter evaluates budgets against a Store.
type Limiter struct {
	cfg   Config
	store Store
}

// NewLimiter describes the newlimiter operation and its observable behavior.
//
// NewLimiter may return an error when input validation, dependency calls, or security checks fail.
func NewLimiter(cfg Config, store Store) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("rate: store is required")
	}
	for _, b := range []Budget{cfg.Login, cfg.StrictLogin, cfg.Registration, cfg.PasswordReset} {
		if b.Window <= 0 || b.MaxAttempts <= 0 {
			return nil, errors.New("rate: every budget needs a positive window and max attempts")
		}
	}
	return &Limiter{cfg: cfg, store: store}, nil
}

func (l *Limiter) budget(op Op) (Budget, error) {
	switch op {
	case OpLogin:
		return l.cfg.Login, nil
	case OpStrictLogin:
		return l.cfg.StrictLogin, nil
	case OpRegistration:
		return l.cfg.Registration, nil
	case OpPasswordReset:
		return l.cfg.PasswordReset, nil
	default:
		return Budget{}, fmt.Errorf("rate: unknown op %q", op)
	}
}

func key(op Op, addr string) string {
	return string(op) + ":" + addr
}

// Check reports whether addr still has budget for op. It never records an
// attempt; callers decide separately whether the request counts.
func (l *Limiter) Check(ctx context.Context, op Op, addr string) error {
	b, err := l.budget(op)
	if err != nil {
		return err
	}

	count, err := l.store.CountSince(ctx, key(op, addr), time.Now().Add(-b.Window))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if count >= b.MaxAttempts {
		return ErrRateLimited
	}

	return nil
}

// RecordFailure charges one attempt against addr's budget for op.
func (l *Limiter) RecordFailure(ctx context.Context, op Op, addr string) error {
	b, err := l.budget(op)
	if err != nil {
		return err
	}

	if err := l.store.Record(ctx, key(op, addr), time.Now(), b.Window); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Reset clears addr's history for op. Successful logins call this so prior
// failed attempts from the same address stop counting.
func (l *Limiter) Reset(ctx context.Context, op Op, addr string) error {
	if err := l.store.Clear(ctx, key(op, addr)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
