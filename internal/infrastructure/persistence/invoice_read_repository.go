package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/infrastructure/persistence/models"
)

// InvoiceReadRepository maintains and queries the invoice read model. Upsert
// is called only by the invoice projection; the query side is read-only.
type InvoiceReadRepository interface {
	Upsert(ctx context.Context, row *models.InvoiceReadModel) error
	Get(ctx context.Context, tenantID, invoiceID uuid.UUID) (*models.InvoiceReadModel, error)
	List(ctx context.Context, tenantID uuid.UUID, filter finance.InvoiceFilter) (shared.Paginated[models.InvoiceReadModel], error)
	DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error
	Truncate(ctx context.Context) error
}

// GormInvoiceReadRepository implements InvoiceReadRepository using GORM
type GormInvoiceReadRepository struct {
	db *gorm.DB
}

// NewGormInvoiceReadRepository creates a new GormInvoiceReadRepository
func NewGormInvoiceReadRepository(db *gorm.DB) *GormInvoiceReadRepository {
	return &GormInvoiceReadRepository{db: db}
}

var invoiceUpsertColumns = []string{
	"last_applied_version", "updated_at", "invoice_number", "vendor_id",
	"customer_id", "currency", "line_items", "subtotal", "vat_amount",
	"supplementary_duty", "advance_income_tax", "grand_total", "paid_amount",
	"status", "fiscal_year", "fiscal_period", "invoice_date", "due_date",
	"tax_document_number", "cancel_reason", "cancelled_at",
}

// Upsert writes the row unless the stored row already reflects the same or a
// later stream version. Duplicate or out-of-order delivery therefore leaves
// the read model unchanged.
func (r *GormInvoiceReadRepository) Upsert(ctx context.Context, row *models.InvoiceReadModel) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(invoiceUpsertColumns),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("invoice_read_models.last_applied_version < excluded.last_applied_version"),
		}},
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert invoice read model %s: %w", row.ID, err)
	}
	return nil
}

// Get finds an invoice read model by ID within a tenant
func (r *GormInvoiceReadRepository) Get(ctx context.Context, tenantID, invoiceID uuid.UUID) (*models.InvoiceReadModel, error) {
	var row models.InvoiceReadModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, invoiceID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// List returns a page of invoice read models within a tenant
func (r *GormInvoiceReadRepository) List(ctx context.Context, tenantID uuid.UUID, filter finance.InvoiceFilter) (shared.Paginated[models.InvoiceReadModel], error) {
	query := r.db.WithContext(ctx).
		Model(&models.InvoiceReadModel{}).
		Where("tenant_id = ?", tenantID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != uuid.Nil {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.VendorID != uuid.Nil {
		query = query.Where("vendor_id = ?", filter.VendorID)
	}
	if filter.FiscalPeriod != "" {
		query = query.Where("fiscal_period = ?", filter.FiscalPeriod)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return shared.Paginated[models.InvoiceReadModel]{}, err
	}

	orderBy := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var rows []models.InvoiceReadModel
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return shared.Paginated[models.InvoiceReadModel]{}, err
	}

	return shared.NewPaginated(rows, total, filter.Page, filter.Limit()), nil
}

// DeleteByTenant removes one tenant's invoice read-model rows. The projection
// rebuild calls this immediately before replaying the tenant's event log.
func (r *GormInvoiceReadRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&models.InvoiceReadModel{}).Error
}

// Truncate removes every invoice read-model row across all tenants
func (r *GormInvoiceReadRepository) Truncate(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.InvoiceReadModel{}).Error
}
