package finance

import (
	"fmt"
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentAggregateType is the aggregate type name used in event streams
const PaymentAggregateType = "Payment"

// PaymentStatus represents the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusReconciled PaymentStatus = "RECONCILED"
	PaymentStatusReversed   PaymentStatus = "REVERSED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed,
		PaymentStatusReconciled, PaymentStatusReversed:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminal returns true once no further transition is allowed
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusFailed || s == PaymentStatusReversed || s == PaymentStatusReconciled
}

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCheque       PaymentMethod = "CHEQUE"
	PaymentMethodMobile       PaymentMethod = "MOBILE"
	PaymentMethodCard         PaymentMethod = "CARD"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheque,
		PaymentMethodMobile, PaymentMethodCard:
		return true
	}
	return false
}

// Payment is an event-sourced aggregate recording one payment against an
// invoice. The invoice is referenced, not owned. The amount is immutable
// after creation; a reversal raises a new event instead of rewriting history.
type Payment struct {
	shared.BaseAggregateRoot
	InvoiceID      uuid.UUID
	Amount         decimal.Decimal
	Currency       valueobject.Currency
	Method         PaymentMethod
	Status         PaymentStatus
	PaymentDate    time.Time
	Reference      string
	FailureReason  string
	ReconciledAt   *time.Time
	ReconciledRef  string
	ReversedAt     *time.Time
	ReversalReason string
}

// NewEmptyPayment returns an uninitialized payment for replay
func NewEmptyPayment() *Payment {
	return &Payment{}
}

// CreatePaymentInput carries the fields of the create command
type CreatePaymentInput struct {
	InvoiceID   uuid.UUID
	Amount      valueobject.Money
	Method      PaymentMethod
	PaymentDate time.Time
	Reference   string
}

// NewPayment validates the create command and emits PaymentInitiated.
// The new payment starts in PENDING.
func NewPayment(tenantID uuid.UUID, input CreatePaymentInput, now time.Time) (*Payment, error) {
	var verr shared.ValidationError

	if input.InvoiceID == uuid.Nil {
		verr.Add("invoice_id", "cannot be empty")
	}
	if !input.Amount.IsPositive() {
		verr.Add("amount", "must be positive")
	}
	if !input.Amount.Currency().IsValid() {
		verr.Add("currency", fmt.Sprintf("unknown currency code %q", input.Amount.Currency()))
	}
	if !input.Method.IsValid() {
		verr.Add("payment_method", fmt.Sprintf("unknown payment method %q", input.Method))
	}
	if input.PaymentDate.IsZero() {
		verr.Add("payment_date", "cannot be empty")
	}
	if err := verr.ErrOrNil(); err != nil {
		return nil, err
	}

	p := NewEmptyPayment()
	event := NewPaymentInitiatedEvent(uuid.New(), tenantID, input, now)
	if err := p.Raise(p, event); err != nil {
		return nil, err
	}
	return p, nil
}

// Complete moves a PENDING payment to COMPLETED
func (p *Payment) Complete(now time.Time) error {
	if p.Status != PaymentStatusPending {
		return shared.NewInvalidStateTransition(PaymentAggregateType, "complete", p.Status.String())
	}
	return p.Raise(p, NewPaymentCompletedEvent(p, now))
}

// Fail moves a PENDING payment to FAILED. A failed payment never
// transitions further.
func (p *Payment) Fail(reason string, now time.Time) error {
	if p.Status != PaymentStatusPending {
		return shared.NewInvalidStateTransition(PaymentAggregateType, "fail", p.Status.String())
	}
	if reason == "" {
		var verr shared.ValidationError
		verr.Add("reason", "failure reason cannot be empty")
		return &verr
	}
	return p.Raise(p, NewPaymentFailedEvent(p, reason, now))
}

// Reconcile moves a COMPLETED payment to RECONCILED with a bank reference
func (p *Payment) Reconcile(reference string, now time.Time) error {
	if p.Status != PaymentStatusCompleted {
		return shared.NewInvalidStateTransition(PaymentAggregateType, "reconcile", p.Status.String())
	}
	return p.Raise(p, NewPaymentReconciledEvent(p, reference, now))
}

// Reverse moves a COMPLETED payment to REVERSED. The original events stay
// untouched; the reversal is a new appended fact.
func (p *Payment) Reverse(reason string, now time.Time) error {
	if p.Status != PaymentStatusCompleted {
		return shared.NewInvalidStateTransition(PaymentAggregateType, "reverse", p.Status.String())
	}
	if reason == "" {
		var verr shared.ValidationError
		verr.Add("reason", "reversal reason cannot be empty")
		return &verr
	}
	return p.Raise(p, NewPaymentReversedEvent(p, reason, now))
}

// LoadFromHistory rehydrates the payment by replaying its event stream
func (p *Payment) LoadFromHistory(events []shared.DomainEvent) error {
	return p.Replay(p, events)
}

// ApplyEvent is the pure state transition of the Payment aggregate
func (p *Payment) ApplyEvent(event shared.DomainEvent) error {
	switch e := event.(type) {
	case *PaymentInitiatedEvent:
		p.ID = e.AggregateID()
		p.TenantID = e.TenantID()
		p.InvoiceID = e.InvoiceID
		p.Amount = e.Amount
		p.Currency = e.Currency
		p.Method = e.Method
		p.PaymentDate = e.PaymentDate
		p.Reference = e.Reference
		p.Status = PaymentStatusPending
	case *PaymentCompletedEvent:
		p.Status = PaymentStatusCompleted
	case *PaymentFailedEvent:
		p.Status = PaymentStatusFailed
		p.FailureReason = e.Reason
	case *PaymentReconciledEvent:
		p.Status = PaymentStatusReconciled
		p.ReconciledRef = e.Reference
		at := e.OccurredAt()
		p.ReconciledAt = &at
	case *PaymentReversedEvent:
		p.Status = PaymentStatusReversed
		p.ReversalReason = e.Reason
		at := e.OccurredAt()
		p.ReversedAt = &at
	default:
		return fmt.Errorf("payment cannot apply event type %s", event.EventType())
	}
	return nil
}

// AmountMoney returns the payment amount as a Money value object
func (p *Payment) AmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(p.Amount, p.Currency)
	return m
}

// Ensure Payment implements AggregateRoot
var _ shared.AggregateRoot = (*Payment)(nil)
