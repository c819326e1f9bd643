package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents a fact that occurred in the domain.
// Events are immutable once created; the ordered sequence of events for one
// aggregate ID is the sole source of truth for that aggregate's state.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
	UserID() uuid.UUID
	CorrelationID() uuid.UUID
}

// VersionedEvent extends DomainEvent with schema versioning support.
// Events should implement this interface when they need backward-compatible
// schema evolution (adding/removing fields, changing field types, etc.)
type VersionedEvent interface {
	DomainEvent
	// SchemaVersion returns the version of the event schema (e.g., 1, 2, 3)
	// Default should be 1 for events that don't explicitly set a version
	SchemaVersion() int
}

// BaseDomainEvent provides common fields for all domain events
type BaseDomainEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggID         uuid.UUID `json:"aggregate_id"`
	AggType       string    `json:"aggregate_type"`
	TenantIDValue uuid.UUID `json:"tenant_id"`
	UserIDValue   uuid.UUID `json:"user_id,omitempty"`
	CorrID        uuid.UUID `json:"correlation_id,omitempty"`
	Version       int       `json:"schema_version,omitempty"` // Event schema version for backward compatibility
}

// EventID returns the unique event identifier
func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type of the event
func (e *BaseDomainEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred
func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the ID of the aggregate that produced this event
func (e *BaseDomainEvent) AggregateID() uuid.UUID {
	return e.AggID
}

// AggregateType returns the type of the aggregate
func (e *BaseDomainEvent) AggregateType() string {
	return e.AggType
}

// TenantID returns the tenant ID
func (e *BaseDomainEvent) TenantID() uuid.UUID {
	return e.TenantIDValue
}

// UserID returns the ID of the user who issued the command, if known
func (e *BaseDomainEvent) UserID() uuid.UUID {
	return e.UserIDValue
}

// CorrelationID returns the correlation ID linking events of one command, if set
func (e *BaseDomainEvent) CorrelationID() uuid.UUID {
	return e.CorrID
}

// SchemaVersion returns the schema version of the event
// Returns 1 if no version is set (backward compatibility with unversioned events)
func (e *BaseDomainEvent) SchemaVersion() int {
	if e.Version == 0 {
		return 1
	}
	return e.Version
}

// SetActor records the user and correlation ID on the event.
// Called by the command service before the event is appended to the stream.
func (e *BaseDomainEvent) SetActor(userID, correlationID uuid.UUID) {
	e.UserIDValue = userID
	e.CorrID = correlationID
}

// NewBaseDomainEvent creates a new base domain event with default schema version 1.
// occurredAt comes from the injected clock of the command handler, never from a
// wall-clock read inside the aggregate, so replay stays deterministic.
func NewBaseDomainEvent(eventType, aggType string, aggID, tenantID uuid.UUID, occurredAt time.Time) BaseDomainEvent {
	return BaseDomainEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     occurredAt,
		AggID:         aggID,
		AggType:       aggType,
		TenantIDValue: tenantID,
		Version:       1,
	}
}

// NewVersionedBaseDomainEvent creates a new base domain event with explicit schema version
// If schemaVersion is less than 1, it defaults to 1 for safety
func NewVersionedBaseDomainEvent(eventType, aggType string, aggID, tenantID uuid.UUID, occurredAt time.Time, schemaVersion int) BaseDomainEvent {
	if schemaVersion < 1 {
		schemaVersion = 1
	}
	e := NewBaseDomainEvent(eventType, aggType, aggID, tenantID, occurredAt)
	e.Version = schemaVersion
	return e
}
