package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
)

// InvoiceCommandService handles invoice commands. State transitions are
// retried on concurrency conflicts; creation is not, because a fresh stream
// can only conflict on a duplicate aggregate ID.
//
// Commands are not idempotent against event count: a caller that times out
// and blindly resubmits a transition may append a second event. Callers that
// need exactly-once creation must supply their own idempotency key.
type InvoiceCommandService struct {
	invoices finance.InvoiceRepository
	clock    shared.Clock
	logger   *zap.Logger
}

// NewInvoiceCommandService creates a new InvoiceCommandService
func NewInvoiceCommandService(invoices finance.InvoiceRepository, clock shared.Clock, logger *zap.Logger) *InvoiceCommandService {
	return &InvoiceCommandService{
		invoices: invoices,
		clock:    clock,
		logger:   logger.Named("invoice-commands"),
	}
}

// Create validates the input, raises InvoiceCreated and persists the new stream
func (s *InvoiceCommandService) Create(ctx context.Context, actor Actor, input finance.CreateInvoiceInput) (CommandResult, error) {
	inv, err := finance.NewInvoice(actor.TenantID, input, s.clock.Now())
	if err != nil {
		return CommandResult{}, err
	}
	stampActor(inv, actor)

	if err := s.invoices.Save(ctx, inv); err != nil {
		return CommandResult{}, err
	}

	s.logger.Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("tenant_id", actor.TenantID.String()),
	)
	return CommandResult{AggregateID: inv.ID, NewVersion: inv.GetVersion()}, nil
}

// AddLineItem appends a line to a draft invoice and recalculates totals
func (s *InvoiceCommandService) AddLineItem(ctx context.Context, actor Actor, invoiceID uuid.UUID, line finance.LineItemInput) (CommandResult, error) {
	return s.transition(ctx, actor, invoiceID, "invoice.add_line_item",
		func(inv *finance.Invoice, now time.Time) error {
			return inv.AddLineItem(line, now)
		})
}

// RemoveLineItem removes a line from a draft invoice and recalculates totals
func (s *InvoiceCommandService) RemoveLineItem(ctx context.Context, actor Actor, invoiceID, lineID uuid.UUID) (CommandResult, error) {
	return s.transition(ctx, actor, invoiceID, "invoice.remove_line_item",
		func(inv *finance.Invoice, now time.Time) error {
			return inv.RemoveLineItem(lineID, now)
		})
}

// Submit moves a draft invoice to PENDING_APPROVAL
func (s *InvoiceCommandService) Submit(ctx context.Context, actor Actor, invoiceID uuid.UUID) (CommandResult, error) {
	return s.transition(ctx, actor, invoiceID, "invoice.submit",
		func(inv *finance.Invoice, now time.Time) error {
			return inv.Submit(now)
		})
}

// Approve moves a pending invoice to APPROVED
func (s *InvoiceCommandService) Approve(ctx context.Context, actor Actor, invoiceID uuid.UUID) (CommandResult, error) {
	return s.transition(ctx, actor, invoiceID, "invoice.approve",
		func(inv *finance.Invoice, now time.Time) error {
			return inv.Approve(now)
		})
}

// ReceivePayment applies a completed payment to the invoice balance
func (s *InvoiceCommandService) ReceivePayment(ctx context.Context, actor Actor, invoiceID, paymentID uuid.UUID, amount valueobject.Money) (CommandResult, error) {
	return s.transition(ctx, actor, invoiceID, "invoice.receive_payment",
		func(inv *finance.Invoice, now time.Time) error {
			return inv.ReceivePayment(paymentID, amount, now)
		})
}

// Cancel cancels a non-terminal invoice with a reason
func (s *InvoiceCommandService) Cancel(ctx context.Context, actor Actor, invoiceID uuid.UUID, reason string) (CommandResult, error) {
	return s.transition(ctx, actor, invoiceID, "invoice.cancel",
		func(inv *finance.Invoice, now time.Time) error {
			return inv.Cancel(reason, now)
		})
}

func (s *InvoiceCommandService) transition(ctx context.Context, actor Actor, invoiceID uuid.UUID, op string, mutate func(*finance.Invoice, time.Time) error) (CommandResult, error) {
	var result CommandResult
	err := withConcurrencyRetry(ctx, s.logger, op, func() error {
		inv, err := s.invoices.Load(ctx, actor.TenantID, invoiceID)
		if err != nil {
			return err
		}
		if err := mutate(inv, s.clock.Now()); err != nil {
			return err
		}
		stampActor(inv, actor)
		if err := s.invoices.Save(ctx, inv); err != nil {
			return err
		}
		result = CommandResult{AggregateID: inv.ID, NewVersion: inv.GetVersion()}
		return nil
	})
	return result, err
}
