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

// InvoiceProjection maintains the invoice read model. On every invoice event
// it replays the aggregate and upserts the denormalized row; the row's
// last-applied-version column makes duplicate and out-of-order delivery
// harmless. It writes only its own table, never the event log.
type InvoiceProjection struct {
	invoices finance.InvoiceRepository
	reads    persistence.InvoiceReadRepository
	logger   *zap.Logger
}

// NewInvoiceProjection creates a new InvoiceProjection
func NewInvoiceProjection(invoices finance.InvoiceRepository, reads persistence.InvoiceReadRepository, logger *zap.Logger) *InvoiceProjection {
	return &InvoiceProjection{
		invoices: invoices,
		reads:    reads,
		logger:   logger.Named("invoice-projection"),
	}
}

// EventTypes returns the event types this projection is interested in
func (p *InvoiceProjection) EventTypes() []string {
	return []string{
		finance.EventTypeInvoiceCreated,
		finance.EventTypeInvoiceLineItemAdded,
		finance.EventTypeInvoiceLineItemRemoved,
		finance.EventTypeInvoiceSubmitted,
		finance.EventTypeInvoiceApproved,
		finance.EventTypeInvoicePaymentReceived,
		finance.EventTypeInvoiceCancelled,
	}
}

// Handle refreshes the invoice's read-model row from its event stream
func (p *InvoiceProjection) Handle(ctx context.Context, event shared.DomainEvent) error {
	inv, err := p.invoices.Load(ctx, event.TenantID(), event.AggregateID())
	if err != nil {
		return fmt.Errorf("failed to rehydrate invoice %s: %w", event.AggregateID(), err)
	}

	row := invoiceReadRow(inv, event)
	if err := p.reads.Upsert(ctx, row); err != nil {
		return err
	}

	p.logger.Debug("invoice read model updated",
		zap.String("invoice_id", inv.ID.String()),
		zap.Int("version", row.LastAppliedVersion),
	)
	return nil
}

func invoiceReadRow(inv *finance.Invoice, event shared.DomainEvent) *models.InvoiceReadModel {
	occurred := event.OccurredAt()
	return &models.InvoiceReadModel{
		ReadModelBase: models.ReadModelBase{
			ID:                 inv.ID,
			TenantID:           inv.TenantID,
			LastAppliedVersion: inv.GetVersion(),
			CreatedAt:          occurred,
			UpdatedAt:          occurred,
		},
		InvoiceNumber:     inv.InvoiceNumber,
		VendorID:          inv.VendorID,
		CustomerID:        inv.CustomerID,
		Currency:          string(inv.Currency),
		LineItems:         models.LineItems(inv.LineItems),
		Subtotal:          inv.Subtotal,
		VATAmount:         inv.VATAmount,
		SupplementaryDuty: inv.SupplementaryDuty,
		AdvanceIncomeTax:  inv.AdvanceIncomeTax,
		GrandTotal:        inv.GrandTotal,
		PaidAmount:        inv.PaidAmount,
		Status:            string(inv.Status),
		FiscalYear:        inv.FiscalYear,
		FiscalPeriod:      string(inv.FiscalPeriod),
		InvoiceDate:       inv.InvoiceDate,
		DueDate:           inv.DueDate,
		TaxDocumentNumber: inv.TaxDocumentNumber,
		CancelReason:      inv.CancelReason,
		CancelledAt:       inv.CancelledAt,
	}
}

var _ shared.EventHandler = (*InvoiceProjection)(nil)
