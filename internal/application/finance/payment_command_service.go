package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
)

// PaymentCommandService handles payment commands
type PaymentCommandService struct {
	payments finance.PaymentRepository
	clock    shared.Clock
	logger   *zap.Logger
}

// NewPaymentCommandService creates a new PaymentCommandService
func NewPaymentCommandService(payments finance.PaymentRepository, clock shared.Clock, logger *zap.Logger) *PaymentCommandService {
	return &PaymentCommandService{
		payments: payments,
		clock:    clock,
		logger:   logger.Named("payment-commands"),
	}
}

// Create initiates a payment against an invoice
func (s *PaymentCommandService) Create(ctx context.Context, actor Actor, input finance.CreatePaymentInput) (CommandResult, error) {
	p, err := finance.NewPayment(actor.TenantID, input, s.clock.Now())
	if err != nil {
		return CommandResult{}, err
	}
	stampActor(p, actor)

	if err := s.payments.Save(ctx, p); err != nil {
		return CommandResult{}, err
	}

	s.logger.Info("payment initiated",
		zap.String("payment_id", p.ID.String()),
		zap.String("invoice_id", p.InvoiceID.String()),
		zap.String("amount", p.Amount.String()),
	)
	return CommandResult{AggregateID: p.ID, NewVersion: p.GetVersion()}, nil
}

// Complete marks a pending payment as completed. The invoice balance is
// updated asynchronously by the PaymentCompleted process handler.
func (s *PaymentCommandService) Complete(ctx context.Context, actor Actor, paymentID uuid.UUID) (CommandResult, error) {
	return s.transition(ctx, actor, paymentID, "payment.complete",
		func(p *finance.Payment, now time.Time) error {
			return p.Complete(now)
		})
}

// Fail marks a pending payment as failed with a reason
func (s *PaymentCommandService) Fail(ctx context.Context, actor Actor, paymentID uuid.UUID, reason string) (CommandResult, error) {
	return s.transition(ctx, actor, paymentID, "payment.fail",
		func(p *finance.Payment, now time.Time) error {
			return p.Fail(reason, now)
		})
}

// Reconcile matches a completed payment against a bank statement reference
func (s *PaymentCommandService) Reconcile(ctx context.Context, actor Actor, paymentID uuid.UUID, reference string) (CommandResult, error) {
	return s.transition(ctx, actor, paymentID, "payment.reconcile",
		func(p *finance.Payment, now time.Time) error {
			return p.Reconcile(reference, now)
		})
}

// Reverse reverses a completed or reconciled payment
func (s *PaymentCommandService) Reverse(ctx context.Context, actor Actor, paymentID uuid.UUID, reason string) (CommandResult, error) {
	return s.transition(ctx, actor, paymentID, "payment.reverse",
		func(p *finance.Payment, now time.Time) error {
			return p.Reverse(reason, now)
		})
}

func (s *PaymentCommandService) transition(ctx context.Context, actor Actor, paymentID uuid.UUID, op string, mutate func(*finance.Payment, time.Time) error) (CommandResult, error) {
	var result CommandResult
	err := withConcurrencyRetry(ctx, s.logger, op, func() error {
		p, err := s.payments.Load(ctx, actor.TenantID, paymentID)
		if err != nil {
			return err
		}
		if err := mutate(p, s.clock.Now()); err != nil {
			return err
		}
		stampActor(p, actor)
		if err := s.payments.Save(ctx, p); err != nil {
			return err
		}
		result = CommandResult{AggregateID: p.ID, NewVersion: p.GetVersion()}
		return nil
	})
	return result, err
}
