package finance

import (
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment event type names
const (
	EventTypePaymentInitiated  = "PaymentInitiated"
	EventTypePaymentCompleted  = "PaymentCompleted"
	EventTypePaymentFailed     = "PaymentFailed"
	EventTypePaymentReconciled = "PaymentReconciled"
	EventTypePaymentReversed   = "PaymentReversed"
)

// PaymentInitiatedEvent is raised when a new payment is created in PENDING
type PaymentInitiatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID   uuid.UUID            `json:"invoice_id"`
	Amount      decimal.Decimal      `json:"amount"`
	Currency    valueobject.Currency `json:"currency"`
	Method      PaymentMethod        `json:"method"`
	PaymentDate time.Time            `json:"payment_date"`
	Reference   string               `json:"reference,omitempty"`
}

// EventType returns the event type name
func (e *PaymentInitiatedEvent) EventType() string {
	return EventTypePaymentInitiated
}

// NewPaymentInitiatedEvent creates a new PaymentInitiatedEvent
func NewPaymentInitiatedEvent(paymentID, tenantID uuid.UUID, input CreatePaymentInput, now time.Time) *PaymentInitiatedEvent {
	return &PaymentInitiatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentInitiated, PaymentAggregateType, paymentID, tenantID, now),
		InvoiceID:       input.InvoiceID,
		Amount:          input.Amount.Amount(),
		Currency:        input.Amount.Currency(),
		Method:          input.Method,
		PaymentDate:     input.PaymentDate,
		Reference:       input.Reference,
	}
}

// PaymentCompletedEvent is raised when a pending payment completes
type PaymentCompletedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *PaymentCompletedEvent) EventType() string {
	return EventTypePaymentCompleted
}

// NewPaymentCompletedEvent creates a new PaymentCompletedEvent
func NewPaymentCompletedEvent(p *Payment, now time.Time) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCompleted, PaymentAggregateType, p.ID, p.TenantID, now),
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
	}
}

// PaymentFailedEvent is raised when a pending payment fails
type PaymentFailedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID `json:"invoice_id"`
	Reason    string    `json:"reason"`
}

// EventType returns the event type name
func (e *PaymentFailedEvent) EventType() string {
	return EventTypePaymentFailed
}

// NewPaymentFailedEvent creates a new PaymentFailedEvent
func NewPaymentFailedEvent(p *Payment, reason string, now time.Time) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentFailed, PaymentAggregateType, p.ID, p.TenantID, now),
		InvoiceID:       p.InvoiceID,
		Reason:          reason,
	}
}

// PaymentReconciledEvent is raised when a completed payment is matched
// against a bank statement line
type PaymentReconciledEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID `json:"invoice_id"`
	Reference string    `json:"reference"`
}

// EventType returns the event type name
func (e *PaymentReconciledEvent) EventType() string {
	return EventTypePaymentReconciled
}

// NewPaymentReconciledEvent creates a new PaymentReconciledEvent
func NewPaymentReconciledEvent(p *Payment, reference string, now time.Time) *PaymentReconciledEvent {
	return &PaymentReconciledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentReconciled, PaymentAggregateType, p.ID, p.TenantID, now),
		InvoiceID:       p.InvoiceID,
		Reference:       reference,
	}
}

// PaymentReversedEvent is raised when a completed payment is reversed
type PaymentReversedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

// EventType returns the event type name
func (e *PaymentReversedEvent) EventType() string {
	return EventTypePaymentReversed
}

// NewPaymentReversedEvent creates a new PaymentReversedEvent
func NewPaymentReversedEvent(p *Payment, reason string, now time.Time) *PaymentReversedEvent {
	return &PaymentReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentReversed, PaymentAggregateType, p.ID, p.TenantID, now),
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
		Reason:          reason,
	}
}
