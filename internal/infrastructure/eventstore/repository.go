package eventstore

import (
	"context"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository is a generic event-sourced repository. Load replays the stream
// into a fresh aggregate; Save appends the uncommitted events guarded by the
// version the aggregate was loaded at.
type Repository[T shared.AggregateRoot] struct {
	store    shared.EventStore
	newEmpty func() T
}

// NewRepository creates a repository for one aggregate type
func NewRepository[T shared.AggregateRoot](store shared.EventStore, newEmpty func() T) *Repository[T] {
	return &Repository[T]{store: store, newEmpty: newEmpty}
}

// Load rehydrates an aggregate from its event stream.
// Returns shared.ErrAggregateNotFound for an empty stream.
func (r *Repository[T]) Load(ctx context.Context, tenantID, aggregateID uuid.UUID) (T, error) {
	var zero T
	events, err := r.store.LoadStream(ctx, tenantID, aggregateID)
	if err != nil {
		return zero, err
	}
	agg := r.newEmpty()
	if err := agg.LoadFromHistory(events); err != nil {
		return zero, err
	}
	return agg, nil
}

// Save appends the aggregate's uncommitted events and clears them on
// success. A save with no uncommitted events is a no-op, which makes
// retried command handlers harmless. Returns shared.ErrConcurrencyConflict
// when another writer appended since the load.
func (r *Repository[T]) Save(ctx context.Context, agg T) error {
	events := agg.GetUncommittedEvents()
	if len(events) == 0 {
		return nil
	}
	expectedVersion := agg.GetVersion() - len(events)
	if err := r.store.AppendToStream(ctx, agg.GetTenantID(), agg.GetID(), expectedVersion, events); err != nil {
		return err
	}
	agg.MarkEventsAsCommitted()
	return nil
}

// NewInvoiceRepository creates the event-sourced invoice repository
func NewInvoiceRepository(store shared.EventStore) finance.InvoiceRepository {
	return NewRepository(store, finance.NewEmptyInvoice)
}

// NewPaymentRepository creates the event-sourced payment repository
func NewPaymentRepository(store shared.EventStore) finance.PaymentRepository {
	return NewRepository(store, finance.NewEmptyPayment)
}

// NewJournalEntryRepository creates the event-sourced journal repository
func NewJournalEntryRepository(store shared.EventStore) finance.JournalEntryRepository {
	return NewRepository(store, finance.NewEmptyJournalEntry)
}
