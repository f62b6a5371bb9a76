package authcore

import "time"

// LockoutDecision is the outcome of evaluating an account's lockout state at
// a point in time.
type LockoutDecision struct {
	Locked    bool
	Remaining time.Duration
}

// RemainingMinutes describes the remainingminutes operation and its observable behavior.
//
// RemainingMinutes does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d LockoutDecision) RemainingMinutes() int {
	if !d.Locked || d.Remaining <= 0 {
		return 0
	}

	mins := int(d.Remaining / time.Minute)
	if d.Remaining%time.Minute != 0 {
		mins++
	}
	return mins
}

// EvaluateLockout decides whether an account is locked at now. An account is
// locked only while its lock expiry lies in the future; an elapsed expiry is
// treated as unlocked regardless of the stored failure counter, so locks
// expire lazily with no background job.
func EvaluateLockout(failedAttempts int, lockedUntil time.Time, threshold int, now time.Time) LockoutDecision {
	if lockedUntil.IsZero() || !lockedUntil.After(now) {
		return LockoutDecision{}
	}

	// A future expiry locks the account even when the counter sits below
	// threshold: operators may set locks manually.
	return LockoutDecision{Locked: true, Remaining: lockedUntil.Sub(now)}
}
