package shared

import (
	"github.com/google/uuid"
)

// EventApplier applies a single event to aggregate state.
// Implementations must be pure state transitions: deterministic and free of
// side effects (no I/O, no randomness, no wall-clock reads), because the same
// code path runs during replay.
type EventApplier interface {
	ApplyEvent(event DomainEvent) error
}

// AggregateRoot is the base interface for all event-sourced aggregate roots
type AggregateRoot interface {
	EventApplier
	GetID() uuid.UUID
	GetTenantID() uuid.UUID
	GetVersion() int
	GetUncommittedEvents() []DomainEvent
	MarkEventsAsCommitted()
	LoadFromHistory(events []DomainEvent) error
}

// BaseAggregateRoot provides event bookkeeping for aggregate roots.
// Version is the number of events in the committed stream at load time plus
// any uncommitted events raised since; the repository uses the loaded version
// as the expected version for the optimistic-concurrency append.
type BaseAggregateRoot struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Version     int
	uncommitted []DomainEvent
}

// GetID returns the aggregate identity
func (a *BaseAggregateRoot) GetID() uuid.UUID {
	return a.ID
}

// GetTenantID returns the owning tenant
func (a *BaseAggregateRoot) GetTenantID() uuid.UUID {
	return a.TenantID
}

// GetVersion returns the aggregate version for optimistic concurrency
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// GetUncommittedEvents returns events raised since the last load/save
func (a *BaseAggregateRoot) GetUncommittedEvents() []DomainEvent {
	return a.uncommitted
}

// MarkEventsAsCommitted clears the uncommitted events after a successful save
func (a *BaseAggregateRoot) MarkEventsAsCommitted() {
	a.uncommitted = nil
}

// CommittedVersion returns the stream version the aggregate was loaded at,
// i.e. the expected version for the next append.
func (a *BaseAggregateRoot) CommittedVersion() int {
	return a.Version - len(a.uncommitted)
}

// Raise applies a new event through the aggregate's own applier and records
// it as uncommitted. All command methods go through Raise so that applied
// state is always the product of events alone.
func (a *BaseAggregateRoot) Raise(applier EventApplier, event DomainEvent) error {
	if err := applier.ApplyEvent(event); err != nil {
		return err
	}
	a.Version++
	a.uncommitted = append(a.uncommitted, event)
	return nil
}

// Replay rehydrates aggregate state from an ordered event history.
// Used by the repository; leaves no uncommitted events behind.
func (a *BaseAggregateRoot) Replay(applier EventApplier, events []DomainEvent) error {
	for _, event := range events {
		if err := applier.ApplyEvent(event); err != nil {
			return err
		}
		a.Version++
	}
	return nil
}
