package shared

import (
	"context"

	"github.com/google/uuid"
)

// EventStore is the append-only persistence contract for aggregate streams.
// Streams are tenant scoped; events within one stream are strictly ordered by
// stream version and that order is authoritative for replay.
type EventStore interface {
	// AppendToStream appends events to the aggregate's stream, guarded by the
	// expected version (the stream version the aggregate was loaded at).
	// Returns ErrConcurrencyConflict if another writer appended since the load.
	// The append is atomic: either every event is written or none is.
	AppendToStream(ctx context.Context, tenantID, aggregateID uuid.UUID, expectedVersion int, events []DomainEvent) error

	// LoadStream returns the ordered event stream for an aggregate.
	// Returns ErrAggregateNotFound if the stream is empty.
	LoadStream(ctx context.Context, tenantID, aggregateID uuid.UUID) ([]DomainEvent, error)

	// StreamVersion returns the current version (event count) of a stream,
	// zero for a non-existent stream.
	StreamVersion(ctx context.Context, tenantID, aggregateID uuid.UUID) (int, error)

	// LoadAllByAggregateType returns every event of one aggregate type across
	// all streams of a tenant, in global commit order. Used for projection
	// rebuilds only, never for command handling.
	LoadAllByAggregateType(ctx context.Context, tenantID uuid.UUID, aggregateType string) ([]DomainEvent, error)
}
