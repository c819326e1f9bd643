package finance

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/infrastructure/persistence"
	"github.com/finledger/backend/internal/infrastructure/persistence/models"
)

// PaymentProjection maintains the payment read model
type PaymentProjection struct {
	payments finance.PaymentRepository
	reads    persistence.PaymentReadRepository
	logger   *zap.Logger
}

// NewPaymentProjection creates a new PaymentProjection
func NewPaymentProjection(payments finance.PaymentRepository, reads persistence.PaymentReadRepository, logger *zap.Logger) *PaymentProjection {
	return &PaymentProjection{
		payments: payments,
		reads:    reads,
		logger:   logger.Named("payment-projection"),
	}
}

// EventTypes returns the event types this projection is interested in
func (p *PaymentProjection) EventTypes() []string {
	return []string{
		finance.EventTypePaymentInitiated,
		finance.EventTypePaymentCompleted,
		finance.EventTypePaymentFailed,
		finance.EventTypePaymentReconciled,
		finance.EventTypePaymentReversed,
	}
}

// Handle refreshes the payment's read-model row from its event stream
func (p *PaymentProjection) Handle(ctx context.Context, event shared.DomainEvent) error {
	payment, err := p.payments.Load(ctx, event.TenantID(), event.AggregateID())
	if err != nil {
		return fmt.Errorf("failed to rehydrate payment %s: %w", event.AggregateID(), err)
	}

	occurred := event.OccurredAt()
	row := &models.PaymentReadModel{
		ReadModelBase: models.ReadModelBase{
			ID:                 payment.ID,
			TenantID:           payment.TenantID,
			LastAppliedVersion: payment.GetVersion(),
			CreatedAt:          occurred,
			UpdatedAt:          occurred,
		},
		InvoiceID:      payment.InvoiceID,
		Amount:         payment.Amount,
		Currency:       string(payment.Currency),
		Method:         string(payment.Method),
		Status:         string(payment.Status),
		PaymentDate:    payment.PaymentDate,
		Reference:      payment.Reference,
		FailureReason:  payment.FailureReason,
		ReconciledAt:   payment.ReconciledAt,
		ReconciledRef:  payment.ReconciledRef,
		ReversedAt:     payment.ReversedAt,
		ReversalReason: payment.ReversalReason,
	}
	if err := p.reads.Upsert(ctx, row); err != nil {
		return err
	}

	p.logger.Debug("payment read model updated",
		zap.String("payment_id", payment.ID.String()),
		zap.Int("version", row.LastAppliedVersion),
	)
	return nil
}

var _ shared.EventHandler = (*PaymentProjection)(nil)
