package finance

import (
	"context"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceRepository loads and saves Invoice aggregates through the event store
type InvoiceRepository interface {
	// Load replays the invoice's event stream into a fresh aggregate.
	// Returns shared.ErrAggregateNotFound for an empty stream.
	Load(ctx context.Context, tenantID, invoiceID uuid.UUID) (*Invoice, error)
	// Save appends the aggregate's uncommitted events, guarded by the
	// version the aggregate was loaded at. Returns
	// shared.ErrConcurrencyConflict if another writer appended since.
	Save(ctx context.Context, invoice *Invoice) error
}

// PaymentRepository loads and saves Payment aggregates through the event store
type PaymentRepository interface {
	Load(ctx context.Context, tenantID, paymentID uuid.UUID) (*Payment, error)
	Save(ctx context.Context, payment *Payment) error
}

// JournalEntryRepository loads and saves JournalEntry aggregates through the
// event store
type JournalEntryRepository interface {
	Load(ctx context.Context, tenantID, journalID uuid.UUID) (*JournalEntry, error)
	Save(ctx context.Context, entry *JournalEntry) error
}

// InvoiceFilter narrows invoice read-model list queries
type InvoiceFilter struct {
	shared.Filter
	Status       InvoiceStatus
	CustomerID   uuid.UUID
	VendorID     uuid.UUID
	FiscalPeriod FiscalPeriod
}

// PaymentFilter narrows payment read-model list queries
type PaymentFilter struct {
	shared.Filter
	Status    PaymentStatus
	InvoiceID uuid.UUID
}

// JournalEntryFilter narrows journal read-model list queries
type JournalEntryFilter struct {
	shared.Filter
	Status       JournalStatus
	JournalType  JournalType
	FiscalPeriod FiscalPeriod
}
