package finance

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/shared"
)

const (
	// concurrencyRetryAttempts bounds the optimistic-concurrency retry loop.
	// A conflict after the last attempt is surfaced to the caller.
	concurrencyRetryAttempts = 3
	concurrencyRetryBaseWait = 25 * time.Millisecond
)

// Actor identifies who issued a command. The HTTP layer fills it from the
// authenticated request; every raised event is stamped with it.
type Actor struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
}

// CommandResult reports the aggregate a command touched and its stream
// version after the command's events were appended.
type CommandResult struct {
	AggregateID uuid.UUID `json:"aggregate_id"`
	NewVersion  int       `json:"new_version"`
}

// withConcurrencyRetry runs fn, retrying on ErrConcurrencyConflict with
// jittered backoff. fn must reload the aggregate on each attempt so the
// retry validates against fresh state.
func withConcurrencyRetry(ctx context.Context, logger *zap.Logger, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= concurrencyRetryAttempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		if attempt == concurrencyRetryAttempts {
			break
		}

		wait := concurrencyRetryBaseWait << (attempt - 1)
		wait += time.Duration(rand.Int63n(int64(concurrencyRetryBaseWait)))
		logger.Debug("concurrent write detected, retrying command",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	logger.Warn("command exhausted concurrency retries",
		zap.String("operation", op),
		zap.Int("attempts", concurrencyRetryAttempts),
	)
	return err
}

// actorSetter is implemented by every event via BaseDomainEvent
type actorSetter interface {
	SetActor(userID, correlationID uuid.UUID)
}

// stampActor records the acting user and a fresh correlation ID on the
// aggregate's uncommitted events, linking the events of one command.
func stampActor(agg shared.AggregateRoot, actor Actor) {
	correlationID := uuid.New()
	for _, event := range agg.GetUncommittedEvents() {
		if s, ok := event.(actorSetter); ok {
			s.SetActor(actor.UserID, correlationID)
		}
	}
}
