package finance

import (
	"fmt"
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceAggregateType is the aggregate type name used in event streams
const InvoiceAggregateType = "Invoice"

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft           InvoiceStatus = "DRAFT"
	InvoiceStatusPendingApproval InvoiceStatus = "PENDING_APPROVAL"
	InvoiceStatusApproved        InvoiceStatus = "APPROVED"
	InvoiceStatusPartiallyPaid   InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid            InvoiceStatus = "PAID"
	InvoiceStatusCancelled       InvoiceStatus = "CANCELLED"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusPendingApproval, InvoiceStatusApproved,
		InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the invoice is in a terminal state.
// Cancellation is a state, not a deletion: invoices are never physically
// removed, the event history stays intact.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// CanReceivePayment returns true if payments can be applied in this status
func (s InvoiceStatus) CanReceivePayment() bool {
	return s == InvoiceStatusApproved || s == InvoiceStatusPartiallyPaid
}

// LineItemInput is the caller-supplied part of a line item. Monetary amounts
// derived from it (VAT, duty, AIT) are always recomputed, never accepted
// from the caller.
type LineItemInput struct {
	Description           string          `json:"description"`
	Quantity              decimal.Decimal `json:"quantity"`
	UnitPrice             decimal.Decimal `json:"unit_price"`
	VATCategory           string          `json:"vat_category"`
	VATRate               decimal.Decimal `json:"vat_rate"`
	SupplementaryDutyRate decimal.Decimal `json:"supplementary_duty_rate"`
	AdvanceIncomeTaxRate  decimal.Decimal `json:"advance_income_tax_rate"`
}

// LineItem is one priced line of an invoice with its computed tax amounts
type LineItem struct {
	ID                      uuid.UUID       `json:"id"`
	Description             string          `json:"description"`
	Quantity                decimal.Decimal `json:"quantity"`
	UnitPrice               decimal.Decimal `json:"unit_price"`
	VATCategory             string          `json:"vat_category"`
	VATRate                 decimal.Decimal `json:"vat_rate"`
	VATAmount               decimal.Decimal `json:"vat_amount"`
	SupplementaryDutyRate   decimal.Decimal `json:"supplementary_duty_rate"`
	SupplementaryDutyAmount decimal.Decimal `json:"supplementary_duty_amount"`
	AdvanceIncomeTaxRate    decimal.Decimal `json:"advance_income_tax_rate"`
	AdvanceIncomeTaxAmount  decimal.Decimal `json:"advance_income_tax_amount"`
	LineTotal               decimal.Decimal `json:"line_total"`
}

// Invoice is an event-sourced aggregate root. State is a pure function of its
// event stream; every monetary total is recomputed deterministically from the
// line items whenever they change and is never mutated directly.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber     string
	VendorID          uuid.UUID
	CustomerID        uuid.UUID
	Currency          valueobject.Currency
	LineItems         []LineItem
	Subtotal          decimal.Decimal
	VATAmount         decimal.Decimal
	SupplementaryDuty decimal.Decimal
	AdvanceIncomeTax  decimal.Decimal
	GrandTotal        decimal.Decimal
	PaidAmount        decimal.Decimal
	Status            InvoiceStatus
	FiscalYear        string
	FiscalPeriod      FiscalPeriod
	InvoiceDate       time.Time
	DueDate           time.Time
	TaxDocumentNumber string
	CancelReason      string
	CancelledAt       *time.Time

	appliedPayments map[uuid.UUID]bool
}

// NewEmptyInvoice returns an uninitialized invoice for replay.
// Used by the event-sourced repository only.
func NewEmptyInvoice() *Invoice {
	return &Invoice{}
}

// CreateInvoiceInput carries the fields of the create command
type CreateInvoiceInput struct {
	InvoiceNumber     string
	VendorID          uuid.UUID
	CustomerID        uuid.UUID
	Currency          valueobject.Currency
	LineItems         []LineItemInput
	InvoiceDate       time.Time
	DueDate           time.Time
	TaxDocumentNumber string
}

// NewInvoice validates the create command and emits InvoiceCreated. Every
// violated field is reported, not just the first. The new invoice starts in
// DRAFT with totals computed from its line items.
func NewInvoice(tenantID uuid.UUID, input CreateInvoiceInput, now time.Time) (*Invoice, error) {
	var verr shared.ValidationError

	if input.InvoiceNumber == "" {
		verr.Add("invoice_number", "cannot be empty")
	}
	if len(input.InvoiceNumber) > 50 {
		verr.Add("invoice_number", "cannot exceed 50 characters")
	}
	if input.VendorID == uuid.Nil {
		verr.Add("vendor_id", "cannot be empty")
	}
	if input.CustomerID == uuid.Nil {
		verr.Add("customer_id", "cannot be empty")
	}
	if !input.Currency.IsValid() {
		verr.Add("currency", fmt.Sprintf("unknown currency code %q", input.Currency))
	}
	if len(input.LineItems) == 0 {
		verr.Add("line_items", "at least one line item is required")
	}
	for i, line := range input.LineItems {
		validateLineItemInput(&verr, fmt.Sprintf("line_items[%d]", i), line)
	}
	if input.InvoiceDate.IsZero() {
		verr.Add("invoice_date", "cannot be empty")
	}
	if !input.DueDate.IsZero() && input.DueDate.Before(input.InvoiceDate) {
		verr.Add("due_date", "cannot be before invoice date")
	}
	if err := verr.ErrOrNil(); err != nil {
		return nil, err
	}

	inv := NewEmptyInvoice()
	event := NewInvoiceCreatedEvent(uuid.New(), tenantID, input, now)
	if err := inv.Raise(inv, event); err != nil {
		return nil, err
	}
	return inv, nil
}

func validateLineItemInput(verr *shared.ValidationError, field string, line LineItemInput) {
	if line.Description == "" {
		verr.Add(field+".description", "cannot be empty")
	}
	if !line.Quantity.IsPositive() {
		verr.Add(field+".quantity", "must be positive")
	}
	if line.UnitPrice.IsNegative() {
		verr.Add(field+".unit_price", "cannot be negative")
	}
	if line.VATRate.IsNegative() {
		verr.Add(field+".vat_rate", "cannot be negative")
	}
	if line.SupplementaryDutyRate.IsNegative() {
		verr.Add(field+".supplementary_duty_rate", "cannot be negative")
	}
	if line.AdvanceIncomeTaxRate.IsNegative() {
		verr.Add(field+".advance_income_tax_rate", "cannot be negative")
	}
}

// AddLineItem adds a line while the invoice is in DRAFT and recalculates
// totals. Any other state fails with InvalidStateTransition.
func (inv *Invoice) AddLineItem(line LineItemInput, now time.Time) error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewInvalidStateTransition(InvoiceAggregateType, "add line item to", inv.Status.String())
	}
	var verr shared.ValidationError
	validateLineItemInput(&verr, "line_item", line)
	if err := verr.ErrOrNil(); err != nil {
		return err
	}
	return inv.Raise(inv, NewInvoiceLineItemAddedEvent(inv, uuid.New(), line, now))
}

// RemoveLineItem removes a line while the invoice is in DRAFT and
// recalculates totals
func (inv *Invoice) RemoveLineItem(lineID uuid.UUID, now time.Time) error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewInvalidStateTransition(InvoiceAggregateType, "remove line item from", inv.Status.String())
	}
	if inv.findLine(lineID) < 0 {
		return shared.NewDomainError("LINE_ITEM_NOT_FOUND", "Line item not found on invoice")
	}
	return inv.Raise(inv, NewInvoiceLineItemRemovedEvent(inv, lineID, now))
}

// Submit moves a DRAFT invoice to PENDING_APPROVAL. Requires at least one
// line item; lines may have been removed since creation.
func (inv *Invoice) Submit(now time.Time) error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewInvalidStateTransition(InvoiceAggregateType, "submit", inv.Status.String())
	}
	if len(inv.LineItems) == 0 {
		var verr shared.ValidationError
		verr.Add("line_items", "at least one line item is required to submit")
		return &verr
	}
	return inv.Raise(inv, NewInvoiceSubmittedEvent(inv, now))
}

// Approve moves a PENDING_APPROVAL invoice to APPROVED
func (inv *Invoice) Approve(now time.Time) error {
	if inv.Status != InvoiceStatusPendingApproval {
		return shared.NewInvalidStateTransition(InvoiceAggregateType, "approve", inv.Status.String())
	}
	return inv.Raise(inv, NewInvoiceApprovedEvent(inv, now))
}

// ReceivePayment applies a payment to an APPROVED or PARTIALLY_PAID invoice.
// A full payment moves the invoice to PAID, a partial one to PARTIALLY_PAID.
func (inv *Invoice) ReceivePayment(paymentID uuid.UUID, amount valueobject.Money, now time.Time) error {
	if !inv.Status.CanReceivePayment() {
		return shared.NewInvalidStateTransition(InvoiceAggregateType, "receive payment for", inv.Status.String())
	}
	if inv.appliedPayments[paymentID] {
		return ErrPaymentAlreadyApplied
	}
	if amount.Currency() != inv.Currency {
		return &valueobject.InvalidCurrencyOperationError{Op: "apply payment", Left: inv.Currency, Right: amount.Currency()}
	}
	if !amount.IsPositive() {
		var verr shared.ValidationError
		verr.Add("amount", "must be positive")
		return &verr
	}
	outstanding := inv.GrandTotal.Sub(inv.PaidAmount)
	if amount.Amount().GreaterThan(outstanding) {
		return shared.NewDomainError("PAYMENT_EXCEEDS_OUTSTANDING",
			fmt.Sprintf("payment %s exceeds outstanding amount %s", amount.Amount().String(), outstanding.String()))
	}
	return inv.Raise(inv, NewInvoicePaymentReceivedEvent(inv, paymentID, amount.Amount(), now))
}

// Cancel moves any non-terminal invoice to CANCELLED. The history is
// preserved; cancellation is a state transition, not a deletion.
func (inv *Invoice) Cancel(reason string, now time.Time) error {
	if inv.Status.IsTerminal() {
		return shared.NewInvalidStateTransition(InvoiceAggregateType, "cancel", inv.Status.String())
	}
	if reason == "" {
		var verr shared.ValidationError
		verr.Add("reason", "cancel reason cannot be empty")
		return &verr
	}
	return inv.Raise(inv, NewInvoiceCancelledEvent(inv, reason, now))
}

// OutstandingAmount returns the unpaid remainder of the grand total
func (inv *Invoice) OutstandingAmount() decimal.Decimal {
	return inv.GrandTotal.Sub(inv.PaidAmount)
}

// LoadFromHistory rehydrates the invoice by replaying its event stream
func (inv *Invoice) LoadFromHistory(events []shared.DomainEvent) error {
	return inv.Replay(inv, events)
}

// ApplyEvent is the pure state transition of the Invoice aggregate. It must
// stay deterministic and side-effect free: no I/O, no randomness, no clock
// reads, because the same path runs during replay.
func (inv *Invoice) ApplyEvent(event shared.DomainEvent) error {
	switch e := event.(type) {
	case *InvoiceCreatedEvent:
		inv.applyCreated(e)
	case *InvoiceLineItemAddedEvent:
		inv.LineItems = append(inv.LineItems, buildLineItem(e.LineID, e.Line, inv.Currency))
		inv.recalculateTotals()
	case *InvoiceLineItemRemovedEvent:
		if i := inv.findLine(e.LineID); i >= 0 {
			inv.LineItems = append(inv.LineItems[:i], inv.LineItems[i+1:]...)
		}
		inv.recalculateTotals()
	case *InvoiceSubmittedEvent:
		inv.Status = InvoiceStatusPendingApproval
	case *InvoiceApprovedEvent:
		inv.Status = InvoiceStatusApproved
	case *InvoicePaymentReceivedEvent:
		if inv.appliedPayments == nil {
			inv.appliedPayments = make(map[uuid.UUID]bool)
		}
		inv.appliedPayments[e.PaymentID] = true
		inv.PaidAmount = inv.PaidAmount.Add(e.Amount)
		if inv.PaidAmount.GreaterThanOrEqual(inv.GrandTotal) {
			inv.Status = InvoiceStatusPaid
		} else {
			inv.Status = InvoiceStatusPartiallyPaid
		}
	case *InvoiceCancelledEvent:
		inv.Status = InvoiceStatusCancelled
		inv.CancelReason = e.Reason
		at := e.OccurredAt()
		inv.CancelledAt = &at
	default:
		return fmt.Errorf("invoice cannot apply event type %s", event.EventType())
	}
	return nil
}

func (inv *Invoice) applyCreated(e *InvoiceCreatedEvent) {
	inv.ID = e.AggregateID()
	inv.TenantID = e.TenantID()
	inv.InvoiceNumber = e.InvoiceNumber
	inv.VendorID = e.VendorID
	inv.CustomerID = e.CustomerID
	inv.Currency = e.Currency
	inv.InvoiceDate = e.InvoiceDate
	inv.DueDate = e.DueDate
	inv.TaxDocumentNumber = e.TaxDocumentNumber
	inv.FiscalPeriod = e.FiscalPeriod
	if inv.FiscalPeriod == "" {
		// v1 payloads predate the fiscal_period field
		inv.FiscalPeriod = FiscalPeriodOf(e.InvoiceDate)
	}
	inv.FiscalYear = string(inv.FiscalPeriod)[:11]
	inv.Status = InvoiceStatusDraft
	inv.PaidAmount = decimal.Zero
	inv.LineItems = make([]LineItem, 0, len(e.Lines))
	for _, l := range e.Lines {
		inv.LineItems = append(inv.LineItems, buildLineItem(l.LineID, l.Input, inv.Currency))
	}
	inv.recalculateTotals()
}

func (inv *Invoice) findLine(lineID uuid.UUID) int {
	for i, l := range inv.LineItems {
		if l.ID == lineID {
			return i
		}
	}
	return -1
}

// buildLineItem derives the computed tax amounts of a line from its input.
// All rate multiplications round to the currency's minor units with banker's
// rounding via Money.MultiplyRate.
func buildLineItem(id uuid.UUID, in LineItemInput, currency valueobject.Currency) LineItem {
	baseAmount := in.Quantity.Mul(in.UnitPrice).RoundBank(currency.Exponent())
	base, _ := valueobject.NewMoney(baseAmount, currency)

	vat := base.MultiplyRate(in.VATRate)
	duty := base.MultiplyRate(in.SupplementaryDutyRate)
	ait := base.MultiplyRate(in.AdvanceIncomeTaxRate)

	return LineItem{
		ID:                      id,
		Description:             in.Description,
		Quantity:                in.Quantity,
		UnitPrice:               in.UnitPrice,
		VATCategory:             in.VATCategory,
		VATRate:                 in.VATRate,
		VATAmount:               vat.Amount(),
		SupplementaryDutyRate:   in.SupplementaryDutyRate,
		SupplementaryDutyAmount: duty.Amount(),
		AdvanceIncomeTaxRate:    in.AdvanceIncomeTaxRate,
		AdvanceIncomeTaxAmount:  ait.Amount(),
		LineTotal:               baseAmount,
	}
}

// recalculateTotals recomputes every invoice total from the line items.
// grandTotal = subtotal + vat + supplementaryDuty - advanceIncomeTax.
func (inv *Invoice) recalculateTotals() {
	subtotal, vat, duty, ait := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, l := range inv.LineItems {
		subtotal = subtotal.Add(l.LineTotal)
		vat = vat.Add(l.VATAmount)
		duty = duty.Add(l.SupplementaryDutyAmount)
		ait = ait.Add(l.AdvanceIncomeTaxAmount)
	}
	inv.Subtotal = subtotal
	inv.VATAmount = vat
	inv.SupplementaryDuty = duty
	inv.AdvanceIncomeTax = ait
	inv.GrandTotal = subtotal.Add(vat).Add(duty).Sub(ait)
}

// Ensure Invoice implements AggregateRoot
var _ shared.AggregateRoot = (*Invoice)(nil)
