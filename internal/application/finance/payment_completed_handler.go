package finance

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
)

// PaymentCompletedHandler applies completed payments to their invoice,
// moving it towards PARTIALLY_PAID or PAID. It runs on the event bus behind
// the dispatch outbox, so the invoice update is eventually consistent with
// the payment stream.
type PaymentCompletedHandler struct {
	payments        finance.PaymentRepository
	invoiceCommands *InvoiceCommandService
	logger          *zap.Logger
}

// NewPaymentCompletedHandler creates a new handler for payment completed events
func NewPaymentCompletedHandler(payments finance.PaymentRepository, invoiceCommands *InvoiceCommandService, logger *zap.Logger) *PaymentCompletedHandler {
	return &PaymentCompletedHandler{
		payments:        payments,
		invoiceCommands: invoiceCommands,
		logger:          logger.Named("payment-completed-handler"),
	}
}

// EventTypes returns the event types this handler is interested in
func (h *PaymentCompletedHandler) EventTypes() []string {
	return []string{finance.EventTypePaymentCompleted}
}

// Handle applies the completed payment's amount to the invoice balance.
// The invoice rejects a payment ID it has already recorded, which makes the
// duplicate delivery case a clean no-op here.
func (h *PaymentCompletedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	completed, ok := event.(*finance.PaymentCompletedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			finance.EventTypePaymentCompleted, event.EventType())
	}

	payment, err := h.payments.Load(ctx, event.TenantID(), event.AggregateID())
	if err != nil {
		return fmt.Errorf("failed to load payment %s: %w", event.AggregateID(), err)
	}

	actor := Actor{TenantID: event.TenantID(), UserID: event.UserID()}
	_, err = h.invoiceCommands.ReceivePayment(ctx, actor, completed.InvoiceID, payment.ID, payment.AmountMoney())
	if errors.Is(err, finance.ErrPaymentAlreadyApplied) {
		h.logger.Debug("payment already applied to invoice",
			zap.String("payment_id", payment.ID.String()),
			zap.String("invoice_id", completed.InvoiceID.String()),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to apply payment %s to invoice %s: %w",
			payment.ID, completed.InvoiceID, err)
	}

	h.logger.Info("payment applied to invoice",
		zap.String("payment_id", payment.ID.String()),
		zap.String("invoice_id", completed.InvoiceID.String()),
		zap.String("amount", payment.Amount.String()),
	)
	return nil
}

var _ shared.EventHandler = (*PaymentCompletedHandler)(nil)
