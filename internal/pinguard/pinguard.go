package pinguard

import (
	"fmt"
	"time"

	"github.com/pinvault/pinvault/internal/store"
)

// Step maps a cumulative failed-attempt count to a lockout duration.
type Step struct {
	Attempts uint32
	Lockout  time.Duration
}

// Policy is the escalation table consulted after every failed attempt.
// Steps must be ordered by ascending Attempts with non-decreasing
// Lockout durations.
type Policy struct {
	Steps []Step
}

// DefaultPolicy returns the standard escalation table:
// 5 failures -> 5 min, 10 -> 15 min, 15 or more -> 60 min.
func DefaultPolicy() Policy {
	return Policy{Steps: []Step{
		{Attempts: 5, Lockout: 5 * time.Minute},
		{Attempts: 10, Lockout: 15 * time.Minute},
		{Attempts: 15, Lockout: 60 * time.Minute},
	}}
}

// Validate checks the table is ascending in attempts and monotonically
// non-decreasing in lockout duration.
func (p Policy) Validate() error {
	for i, step := range p.Steps {
		if step.Attempts == 0 {
			return fmt.Errorf("lockout step %d: attempts must be positive", i)
		}
		if step.Lockout <= 0 {
			return fmt.Errorf("lockout step %d: duration must be positive", i)
		}
		if i > 0 {
			if step.Attempts <= p.Steps[i-1].Attempts {
				return fmt.Errorf("lockout step %d: attempts must be ascending", i)
			}
			if step.Lockout < p.Steps[i-1].Lockout {
				return fmt.Errorf("lockout step %d: duration must not decrease", i)
			}
		}
	}
	return nil
}

// LockoutFor returns the lockout duration for a cumulative failure count,
// or 0 if the count has not reached the first step.
func (p Policy) LockoutFor(failed uint32) time.Duration {
	var d time.Duration
	for _, step := range p.Steps {
		if failed >= step.Attempts {
			d = step.Lockout
		}
	}
	return d
}

// Guard applies a Policy to credential state. All transitions are pure:
// value in, value out, no I/O - persisting the result is the caller's job.
type Guard struct {
	Policy Policy
}

// NewGuard creates a guard with the given policy
func NewGuard(policy Policy) Guard {
	return Guard{Policy: policy}
}

// CanAttempt reports whether a PIN attempt is currently allowed.
// Lockouts are wall-clock based and re-checked here on every attempt;
// there are no background timers and no terminal state.
func (g Guard) CanAttempt(cred store.Credential, now time.Time) bool {
	return cred.LockoutUntil == nil || !now.Before(*cred.LockoutUntil)
}

// Remaining returns how long until the current lockout expires, or 0
func (g Guard) Remaining(cred store.Credential, now time.Time) time.Duration {
	if cred.LockoutUntil == nil {
		return 0
	}
	remaining := cred.LockoutUntil.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordFailure increments the failure count and, if the policy yields a
// lockout for the new count, stamps the lockout deadline.
func (g Guard) RecordFailure(cred store.Credential, now time.Time) store.Credential {
	cred.FailedAttempts++
	cred.LastActivityAt = now
	if d := g.Policy.LockoutFor(cred.FailedAttempts); d > 0 {
		until := now.Add(d)
		cred.LockoutUntil = &until
	} else {
		cred.LockoutUntil = nil
	}
	return cred
}

// RecordSuccess resets the failure count and clears any lockout
func (g Guard) RecordSuccess(cred store.Credential, now time.Time) store.Credential {
	cred.FailedAttempts = 0
	cred.LockoutUntil = nil
	cred.LastActivityAt = now
	return cred
}
