package shared

import (
	"context"
	"time"
)

// DefaultIdempotencyTTL bounds how long a processed event ID is remembered.
// It only needs to outlive the outbox retry window.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers which event IDs a handler has already applied.
// At-least-once dispatch makes duplicate delivery normal operation, so the
// store is consulted before every handler invocation.
type IdempotencyStore interface {
	// MarkProcessed records an event as processed for ttl. It reports false
	// when the event was already recorded, which is the duplicate signal.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether the event was already applied.
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close releases the store's resources.
	Close() error
}

// IdempotencyConfig tunes duplicate detection for wrapped handlers.
type IdempotencyConfig struct {
	// TTL is how long processed event IDs are retained.
	TTL time.Duration

	// Enabled turns the duplicate check off entirely when false.
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     DefaultIdempotencyTTL,
		Enabled: true,
	}
}
