package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// reserveScript atomically adds a weight to a machine's daily counter unless
// the result would exceed the capacity. Returns 1 when the weight was
// reserved, 0 when the deposit would overflow (counter left untouched).
const reserveScript = `
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local weight = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
if current + weight > capacity then
  return 0
end
redis.call("INCRBYFLOAT", KEYS[1], weight)
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return 1
`

// GuardStore implements the fraud guard's ephemeral keyed state on Redis:
// SETNX fingerprints for duplicate detection and a Lua check-and-reserve
// for per-machine daily capacity. All keys are TTL-scoped; the state is
// advisory and safe to lose.
type GuardStore struct {
	client  *redis.Client
	reserve *redis.Script
}

// NewGuardStore creates a GuardStore wrapping the given Redis client.
func NewGuardStore(client *redis.Client) *GuardStore {
	return &GuardStore{
		client:  client,
		reserve: redis.NewScript(reserveScript),
	}
}

// MarkFingerprint records a submission fingerprint for the dedup window.
// Returns false when an identical fingerprint is already present.
func (s *GuardStore) MarkFingerprint(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark fingerprint: %w", err)
	}
	return ok, nil
}

// ReserveMachineWeight adds weightKg to the machine's daily counter unless
// that would push it over capacityKg. Returns false when over capacity.
func (s *GuardStore) ReserveMachineWeight(ctx context.Context, key string, weightKg, capacityKg decimal.Decimal, ttl time.Duration) (bool, error) {
	res, err := s.reserve.Run(ctx, s.client, []string{key},
		weightKg.String(),
		capacityKg.String(),
		int64(ttl/time.Millisecond),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("reserve machine weight: %w", err)
	}
	return res == 1, nil
}
