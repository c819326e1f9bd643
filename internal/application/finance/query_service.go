package finance

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/infrastructure/persistence"
	"github.com/finledger/backend/internal/infrastructure/persistence/models"
)

// InvoiceQueryService serves invoice lookups from the read model. Reads never
// touch the event store; they observe whatever the projections have applied
// so far.
type InvoiceQueryService struct {
	reads  persistence.InvoiceReadRepository
	logger *zap.Logger
}

// NewInvoiceQueryService creates a new InvoiceQueryService
func NewInvoiceQueryService(reads persistence.InvoiceReadRepository, logger *zap.Logger) *InvoiceQueryService {
	return &InvoiceQueryService{reads: reads, logger: logger.Named("invoice-queries")}
}

// Get returns a single invoice row scoped to the tenant
func (s *InvoiceQueryService) Get(ctx context.Context, tenantID, invoiceID uuid.UUID) (*models.InvoiceReadModel, error) {
	return s.reads.Get(ctx, tenantID, invoiceID)
}

// List returns a page of invoices matching the filter. An ill-formed fiscal
// period filter is rejected here rather than matched against nothing.
func (s *InvoiceQueryService) List(ctx context.Context, tenantID uuid.UUID, filter finance.InvoiceFilter) (shared.Paginated[models.InvoiceReadModel], error) {
	if err := validateFiscalPeriodFilter(filter.FiscalPeriod); err != nil {
		return shared.Paginated[models.InvoiceReadModel]{}, err
	}
	return s.reads.List(ctx, tenantID, filter)
}

// PaymentQueryService serves payment lookups from the read model
type PaymentQueryService struct {
	reads  persistence.PaymentReadRepository
	logger *zap.Logger
}

// NewPaymentQueryService creates a new PaymentQueryService
func NewPaymentQueryService(reads persistence.PaymentReadRepository, logger *zap.Logger) *PaymentQueryService {
	return &PaymentQueryService{reads: reads, logger: logger.Named("payment-queries")}
}

// Get returns a single payment row scoped to the tenant
func (s *PaymentQueryService) Get(ctx context.Context, tenantID, paymentID uuid.UUID) (*models.PaymentReadModel, error) {
	return s.reads.Get(ctx, tenantID, paymentID)
}

// List returns a page of payments matching the filter
func (s *PaymentQueryService) List(ctx context.Context, tenantID uuid.UUID, filter finance.PaymentFilter) (shared.Paginated[models.PaymentReadModel], error) {
	return s.reads.List(ctx, tenantID, filter)
}

// JournalQueryService serves journal entry lookups from the read model
type JournalQueryService struct {
	reads  persistence.JournalReadRepository
	logger *zap.Logger
}

// NewJournalQueryService creates a new JournalQueryService
func NewJournalQueryService(reads persistence.JournalReadRepository, logger *zap.Logger) *JournalQueryService {
	return &JournalQueryService{reads: reads, logger: logger.Named("journal-queries")}
}

// Get returns one journal entry header with its lines in posting order
func (s *JournalQueryService) Get(ctx context.Context, tenantID, entryID uuid.UUID) (*models.JournalEntryReadModel, []models.JournalLineReadModel, error) {
	return s.reads.Get(ctx, tenantID, entryID)
}

// List returns a page of journal entry headers matching the filter
func (s *JournalQueryService) List(ctx context.Context, tenantID uuid.UUID, filter finance.JournalEntryFilter) (shared.Paginated[models.JournalEntryReadModel], error) {
	if err := validateFiscalPeriodFilter(filter.FiscalPeriod); err != nil {
		return shared.Paginated[models.JournalEntryReadModel]{}, err
	}
	return s.reads.List(ctx, tenantID, filter)
}

// validateFiscalPeriodFilter allows an empty filter and rejects a malformed
// one before it reaches the storage layer
func validateFiscalPeriodFilter(fp finance.FiscalPeriod) error {
	if fp == "" || fp.IsValid() {
		return nil
	}
	verr := &shared.ValidationError{}
	verr.Add("fiscal_period", "must match FYyyyy-yyyy-Pnn")
	return verr
}
