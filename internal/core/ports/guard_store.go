package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// GuardStore is the ephemeral keyed store backing the fraud/capacity guard.
// It is an injected capability: Redis in production, an in-memory map in
// tests. Its state is TTL-scoped and advisory: losing it degrades fraud
// protection but can never corrupt the ledger or aggregates.
type GuardStore interface {
	// MarkFingerprint records a submission fingerprint with the given TTL.
	// It returns false when the fingerprint was already present (an
	// identical submission inside the dedup window).
	MarkFingerprint(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// ReserveMachineWeight atomically adds weightKg to the machine's daily
	// counter unless the result would exceed capacityKg. Returns false,
	// without incrementing, when the deposit would overflow the capacity.
	ReserveMachineWeight(ctx context.Context, key string, weightKg, capacityKg decimal.Decimal, ttl time.Duration) (bool, error)
}
