package finance

import (
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice event type names
const (
	EventTypeInvoiceCreated         = "InvoiceCreated"
	EventTypeInvoiceLineItemAdded   = "InvoiceLineItemAdded"
	EventTypeInvoiceLineItemRemoved = "InvoiceLineItemRemoved"
	EventTypeInvoiceSubmitted       = "InvoiceSubmitted"
	EventTypeInvoiceApproved        = "InvoiceApproved"
	EventTypeInvoicePaymentReceived = "InvoicePaymentReceived"
	EventTypeInvoiceCancelled       = "InvoiceCancelled"
)

// InvoiceCreatedSchemaVersion is the current schema version of InvoiceCreated.
// v1 payloads lack the fiscal_period field; an upcaster derives it from the
// invoice date on read.
const InvoiceCreatedSchemaVersion = 2

// CreatedLine pairs a generated line ID with its input so that replay
// reproduces identical line identities
type CreatedLine struct {
	LineID uuid.UUID     `json:"line_id"`
	Input  LineItemInput `json:"input"`
}

// InvoiceCreatedEvent is raised when a new invoice is created in DRAFT
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber     string               `json:"invoice_number"`
	VendorID          uuid.UUID            `json:"vendor_id"`
	CustomerID        uuid.UUID            `json:"customer_id"`
	Currency          valueobject.Currency `json:"currency"`
	Lines             []CreatedLine        `json:"lines"`
	InvoiceDate       time.Time            `json:"invoice_date"`
	DueDate           time.Time            `json:"due_date"`
	TaxDocumentNumber string               `json:"tax_document_number,omitempty"`
	FiscalPeriod      FiscalPeriod         `json:"fiscal_period"`
}

// EventType returns the event type name
func (e *InvoiceCreatedEvent) EventType() string {
	return EventTypeInvoiceCreated
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(invoiceID, tenantID uuid.UUID, input CreateInvoiceInput, now time.Time) *InvoiceCreatedEvent {
	lines := make([]CreatedLine, 0, len(input.LineItems))
	for _, l := range input.LineItems {
		lines = append(lines, CreatedLine{LineID: uuid.New(), Input: l})
	}
	return &InvoiceCreatedEvent{
		BaseDomainEvent:   shared.NewVersionedBaseDomainEvent(EventTypeInvoiceCreated, InvoiceAggregateType, invoiceID, tenantID, now, InvoiceCreatedSchemaVersion),
		InvoiceNumber:     input.InvoiceNumber,
		VendorID:          input.VendorID,
		CustomerID:        input.CustomerID,
		Currency:          input.Currency,
		Lines:             lines,
		InvoiceDate:       input.InvoiceDate,
		DueDate:           input.DueDate,
		TaxDocumentNumber: input.TaxDocumentNumber,
		FiscalPeriod:      FiscalPeriodOf(input.InvoiceDate),
	}
}

// InvoiceLineItemAddedEvent is raised when a line is added to a DRAFT invoice
type InvoiceLineItemAddedEvent struct {
	shared.BaseDomainEvent
	LineID uuid.UUID     `json:"line_id"`
	Line   LineItemInput `json:"line"`
}

// EventType returns the event type name
func (e *InvoiceLineItemAddedEvent) EventType() string {
	return EventTypeInvoiceLineItemAdded
}

// NewInvoiceLineItemAddedEvent creates a new InvoiceLineItemAddedEvent
func NewInvoiceLineItemAddedEvent(inv *Invoice, lineID uuid.UUID, line LineItemInput, now time.Time) *InvoiceLineItemAddedEvent {
	return &InvoiceLineItemAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceLineItemAdded, InvoiceAggregateType, inv.ID, inv.TenantID, now),
		LineID:          lineID,
		Line:            line,
	}
}

// InvoiceLineItemRemovedEvent is raised when a line is removed from a DRAFT invoice
type InvoiceLineItemRemovedEvent struct {
	shared.BaseDomainEvent
	LineID uuid.UUID `json:"line_id"`
}

// EventType returns the event type name
func (e *InvoiceLineItemRemovedEvent) EventType() string {
	return EventTypeInvoiceLineItemRemoved
}

// NewInvoiceLineItemRemovedEvent creates a new InvoiceLineItemRemovedEvent
func NewInvoiceLineItemRemovedEvent(inv *Invoice, lineID uuid.UUID, now time.Time) *InvoiceLineItemRemovedEvent {
	return &InvoiceLineItemRemovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceLineItemRemoved, InvoiceAggregateType, inv.ID, inv.TenantID, now),
		LineID:          lineID,
	}
}

// InvoiceSubmittedEvent is raised when a DRAFT invoice is submitted for approval
type InvoiceSubmittedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

// EventType returns the event type name
func (e *InvoiceSubmittedEvent) EventType() string {
	return EventTypeInvoiceSubmitted
}

// NewInvoiceSubmittedEvent creates a new InvoiceSubmittedEvent
func NewInvoiceSubmittedEvent(inv *Invoice, now time.Time) *InvoiceSubmittedEvent {
	return &InvoiceSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceSubmitted, InvoiceAggregateType, inv.ID, inv.TenantID, now),
		InvoiceNumber:   inv.InvoiceNumber,
		GrandTotal:      inv.GrandTotal,
	}
}

// InvoiceApprovedEvent is raised when a pending invoice is approved.
// External subscribers (notification, document generation) consume this
// through the event bus; this core never calls them synchronously.
type InvoiceApprovedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

// EventType returns the event type name
func (e *InvoiceApprovedEvent) EventType() string {
	return EventTypeInvoiceApproved
}

// NewInvoiceApprovedEvent creates a new InvoiceApprovedEvent
func NewInvoiceApprovedEvent(inv *Invoice, now time.Time) *InvoiceApprovedEvent {
	return &InvoiceApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceApproved, InvoiceAggregateType, inv.ID, inv.TenantID, now),
		InvoiceNumber:   inv.InvoiceNumber,
		GrandTotal:      inv.GrandTotal,
	}
}

// InvoicePaymentReceivedEvent is raised when a payment is applied to the invoice
type InvoicePaymentReceivedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *InvoicePaymentReceivedEvent) EventType() string {
	return EventTypeInvoicePaymentReceived
}

// NewInvoicePaymentReceivedEvent creates a new InvoicePaymentReceivedEvent
func NewInvoicePaymentReceivedEvent(inv *Invoice, paymentID uuid.UUID, amount decimal.Decimal, now time.Time) *InvoicePaymentReceivedEvent {
	return &InvoicePaymentReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaymentReceived, InvoiceAggregateType, inv.ID, inv.TenantID, now),
		PaymentID:       paymentID,
		Amount:          amount,
	}
}

// InvoiceCancelledEvent is raised when a non-terminal invoice is cancelled
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	Reason string `json:"reason"`
}

// EventType returns the event type name
func (e *InvoiceCancelledEvent) EventType() string {
	return EventTypeInvoiceCancelled
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice, reason string, now time.Time) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCancelled, InvoiceAggregateType, inv.ID, inv.TenantID, now),
		Reason:          reason,
	}
}
