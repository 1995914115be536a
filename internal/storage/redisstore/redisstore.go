// Package redisstore keeps login-attempt counters in Redis so every instance
// of the service sees the same lockout state. The failure increment and the
// threshold check run inside a single Lua script, which gives the required
// atomic increment-and-check without holding any application-side lock.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/hachizeus/anzia-auth/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	failureKeyPrefix = "auth:attempts:"
	lockKeyPrefix    = "auth:lockout:"
	lockoutsPrefix   = "auth:lockouts:"
)

// incrScript increments the failure counter, refreshes the inactivity window
// and, when the threshold is reached, installs the (escalated) lockout key.
// Returns {failureCount, lockRemainingMs, lockoutCount}.
var incrScript = redis.NewScript(`
local lockTTL = redis.call('PTTL', KEYS[2])
if lockTTL > 0 then
	local fails = tonumber(redis.call('GET', KEYS[2]) or '0')
	local n = tonumber(redis.call('GET', KEYS[3]) or '0')
	return {fails, lockTTL, n}
end

local fails = redis.call('INCR', KEYS[1])
redis.call('PEXPIRE', KEYS[1], ARGV[1])

if fails >= tonumber(ARGV[2]) then
	local n = redis.call('INCR', KEYS[3])
	redis.call('PEXPIRE', KEYS[3], ARGV[5])

	local dur = tonumber(ARGV[3])
	for i = 2, n do
		dur = dur * tonumber(ARGV[4])
	end
	if dur > tonumber(ARGV[6]) then
		dur = tonumber(ARGV[6])
	end
	dur = math.floor(dur)

	redis.call('SET', KEYS[2], fails, 'PX', dur)
	redis.call('DEL', KEYS[1])
	return {fails, dur, n}
end

return {fails, 0, 0}
`)

type Store struct {
	client *redis.Client
	policy models.LockoutPolicy
}

func New(addr, password string, db int, policy models.LockoutPolicy) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Store{client: client, policy: policy}
}

func (s *Store) Increment(ctx context.Context, identifier string) (models.AttemptRecord, error) {
	const op = "storage.redisstore.Increment"

	escalationTTL := s.policy.Window + s.policy.MaxDuration

	res, err := incrScript.Run(ctx, s.client,
		[]string{failureKey(identifier), lockKey(identifier), lockoutsKey(identifier)},
		s.policy.Window.Milliseconds(),
		s.policy.MaxFailedAttempts,
		s.policy.BaseDuration.Milliseconds(),
		s.policy.Multiplier,
		escalationTTL.Milliseconds(),
		s.policy.MaxDuration.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return models.AttemptRecord{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(res) != 3 {
		return models.AttemptRecord{}, fmt.Errorf("%s: unexpected script reply", op)
	}

	return s.record(identifier, res[0], res[1], res[2]), nil
}

func (s *Store) Get(ctx context.Context, identifier string) (models.AttemptRecord, error) {
	const op = "storage.redisstore.Get"

	lockTTL, err := s.client.PTTL(ctx, lockKey(identifier)).Result()
	if err != nil {
		return models.AttemptRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	if lockTTL > 0 {
		fails, err := s.client.Get(ctx, lockKey(identifier)).Int64()
		if err != nil && err != redis.Nil {
			return models.AttemptRecord{}, fmt.Errorf("%s: %w", op, err)
		}
		return s.record(identifier, fails, lockTTL.Milliseconds(), 0), nil
	}

	fails, err := s.client.Get(ctx, failureKey(identifier)).Int64()
	if err == redis.Nil {
		return models.AttemptRecord{Identifier: identifier}, nil
	}
	if err != nil {
		return models.AttemptRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	return s.record(identifier, fails, 0, 0), nil
}

func (s *Store) Reset(ctx context.Context, identifier string) error {
	const op = "storage.redisstore.Reset"

	err := s.client.Del(ctx, failureKey(identifier), lockKey(identifier), lockoutsKey(identifier)).Err()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteExpired is a no-op: every key carries a TTL, Redis evicts them itself.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) record(identifier string, fails, lockMs, lockouts int64) models.AttemptRecord {
	rec := models.AttemptRecord{
		Identifier:   identifier,
		FailureCount: int(fails),
		LockoutCount: int(lockouts),
	}
	if lockMs > 0 {
		until := time.Now().Add(time.Duration(lockMs) * time.Millisecond)
		rec.LockedUntil = &until
	}
	return rec
}

func failureKey(identifier string) string {
	return failureKeyPrefix + identifier
}

func lockKey(identifier string) string {
	return lockKeyPrefix + identifier
}

func lockoutsKey(identifier string) string {
	return lockoutsPrefix + identifier
}
