// Package memory holds login-attempt counters in a process-local map. It is
// only safe for single-instance deployments; multi-instance deployments must
// use the postgres or redis store so increment-and-check stays atomic across
// processes.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hachizeus/anzia-auth/internal/models"
)

type Store struct {
	mu      sync.Mutex
	records map[string]models.AttemptRecord
	policy  models.LockoutPolicy

	// retention bounds how long an idle record (including its escalation
	// count) is kept before the background sweep evicts it.
	retention time.Duration

	now func() time.Time
}

func New(policy models.LockoutPolicy) *Store {
	return &Store{
		records:   make(map[string]models.AttemptRecord),
		policy:    policy,
		retention: policy.Window + policy.MaxDuration,
		now:       time.Now,
	}
}

// Increment records one failure and applies the threshold transition under
// the store lock, making the read-modify-write atomic per process.
func (s *Store) Increment(ctx context.Context, identifier string) (models.AttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[identifier]
	rec.Identifier = identifier
	rec = s.policy.ApplyFailure(rec, s.now())
	s.records[identifier] = rec
	return rec, nil
}

// Get returns the record with passive expiry applied. Normalization is
// written back so the stored state always matches what callers observed.
func (s *Store) Get(ctx context.Context, identifier string) (models.AttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[identifier]
	if !ok {
		return models.AttemptRecord{Identifier: identifier}, nil
	}

	normalized := s.policy.Normalize(rec, s.now())
	if normalized != rec {
		s.records[identifier] = normalized
	}
	return normalized, nil
}

// Reset removes the record entirely, escalation count included.
func (s *Store) Reset(ctx context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, identifier)
	return nil
}

// DeleteExpired evicts records idle past the retention horizon. This is
// resource hygiene only; correctness relies on the lazy expiry in Get.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var deleted int64
	for identifier, rec := range s.records {
		if rec.Locked(now) {
			continue
		}
		idleSince := rec.LastFailureAt
		if rec.LockedUntil != nil && rec.LockedUntil.After(idleSince) {
			idleSince = *rec.LockedUntil
		}
		if now.Sub(idleSince) > s.retention {
			delete(s.records, identifier)
			deleted++
		}
	}
	return deleted, nil
}
