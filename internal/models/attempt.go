package models

import (
	"math"
	"time"
)

// AttemptRecord tracks consecutive login failures for a single identifier.
// A record exists only while there is something to remember: it is created on
// the first failure, cleared on a successful login, and normalized back to
// zero once a lockout expires naturally.
type AttemptRecord struct {
	Identifier     string
	FailureCount   int
	FirstFailureAt time.Time
	LastFailureAt  time.Time
	LockedUntil    *time.Time
	// LockoutCount counts consecutive lockouts and drives escalation. It
	// survives a natural lockout expiry but not a successful login.
	LockoutCount int
}

// Locked reports whether the record is locked at the given instant.
// A request arriving exactly at LockedUntil is treated as unlocked.
func (r AttemptRecord) Locked(now time.Time) bool {
	return r.LockedUntil != nil && now.Before(*r.LockedUntil)
}

// Remaining returns the time left on an active lockout, zero otherwise.
func (r AttemptRecord) Remaining(now time.Time) time.Duration {
	if !r.Locked(now) {
		return 0
	}
	return r.LockedUntil.Sub(now)
}

// LockoutState is the caller-facing view of an identifier's standing.
type LockoutState struct {
	Locked           bool `json:"locked"`
	RemainingSeconds int  `json:"remaining_seconds"`
	FailureCount     int  `json:"failure_count"`
}

// StateFor converts a record into the caller-facing state at the given instant.
func (r AttemptRecord) StateFor(now time.Time) LockoutState {
	state := LockoutState{FailureCount: r.FailureCount}
	if r.Locked(now) {
		state.Locked = true
		state.RemainingSeconds = int(math.Ceil(r.Remaining(now).Seconds()))
		if state.RemainingSeconds < 1 {
			state.RemainingSeconds = 1
		}
	}
	return state
}

// LockoutPolicy holds the tunable lockout constants. All attempt stores apply
// the same policy so the state machine behaves identically regardless of
// which backend holds the counters.
type LockoutPolicy struct {
	MaxFailedAttempts int           // lockout triggers when FailureCount reaches this value
	Window            time.Duration // failures further apart than this do not accumulate
	BaseDuration      time.Duration // first lockout length
	Multiplier        float64       // escalation factor per consecutive lockout
	MaxDuration       time.Duration // cap on escalated lockouts
}

// DurationFor returns the lockout length for the nth consecutive lockout
// (1-based), escalating geometrically and capped at MaxDuration.
func (p LockoutPolicy) DurationFor(lockoutCount int) time.Duration {
	d := p.BaseDuration
	if lockoutCount > 1 && p.Multiplier > 1 {
		d = time.Duration(float64(p.BaseDuration) * math.Pow(p.Multiplier, float64(lockoutCount-1)))
	}
	if p.MaxDuration > 0 && d > p.MaxDuration {
		d = p.MaxDuration
	}
	return d
}

// Normalize applies passive expiry to a record: an elapsed lockout resets the
// counter to zero (keeping the escalation count), and failures older than the
// tracking window stop accumulating.
func (p LockoutPolicy) Normalize(rec AttemptRecord, now time.Time) AttemptRecord {
	if rec.LockedUntil != nil && !now.Before(*rec.LockedUntil) {
		rec.LockedUntil = nil
		rec.FailureCount = 0
		rec.FirstFailureAt = time.Time{}
		rec.LastFailureAt = time.Time{}
	}
	if rec.FailureCount > 0 && now.Sub(rec.LastFailureAt) > p.Window {
		rec.FailureCount = 0
		rec.FirstFailureAt = time.Time{}
		rec.LastFailureAt = time.Time{}
	}
	return rec
}

// ApplyFailure records one failed attempt and applies the threshold
// transition. Callers must hold whatever lock makes the read-modify-write
// atomic for this identifier. A record that is already locked is returned
// unchanged; the lockout gate rejects those attempts before verification.
func (p LockoutPolicy) ApplyFailure(rec AttemptRecord, now time.Time) AttemptRecord {
	if rec.Locked(now) {
		return rec
	}
	rec = p.Normalize(rec, now)

	if rec.FailureCount == 0 {
		rec.FirstFailureAt = now
	}
	rec.FailureCount++
	rec.LastFailureAt = now

	if rec.FailureCount >= p.MaxFailedAttempts {
		rec.LockoutCount++
		until := now.Add(p.DurationFor(rec.LockoutCount))
		rec.LockedUntil = &until
	}
	return rec
}
