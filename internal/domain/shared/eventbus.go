package shared

import "context"

// EventHandler consumes domain events off the bus. Delivery is at-least-once,
// so a handler must tolerate seeing the same event twice.
type EventHandler interface {
	// Handle applies one event.
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event types the handler wants. Empty means all.
	EventTypes() []string
}

// EventPublisher puts events on the bus. Publish returns a non-nil error
// when any handler failed to apply an event, so dispatchers can retry.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber manages handler registrations.
type EventSubscriber interface {
	// Subscribe registers a handler for eventTypes; with none given, the
	// handler's own EventTypes decide.
	Subscribe(handler EventHandler, eventTypes ...string)
	// Unsubscribe removes every registration of the handler.
	Unsubscribe(handler EventHandler)
}

// EventBus is the full in-process dispatch surface with lifecycle control.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// DispatchOutboxSaver saves committed events to the dispatch outbox within a
// transaction. Repositories use it so the stream append and the for-dispatch
// copy commit or roll back together.
type DispatchOutboxSaver interface {
	// SaveEvents writes outbox rows inside the caller's transaction. The
	// txProvider is the active *gorm.DB transaction.
	SaveEvents(ctx context.Context, txProvider interface{}, events ...DomainEvent) error
}
