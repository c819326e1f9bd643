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

// PaymentReadRepository maintains and queries the payment read model
type PaymentReadRepository interface {
	Upsert(ctx context.Context, row *models.PaymentReadModel) error
	Get(ctx context.Context, tenantID, paymentID uuid.UUID) (*models.PaymentReadModel, error)
	List(ctx context.Context, tenantID uuid.UUID, filter finance.PaymentFilter) (shared.Paginated[models.PaymentReadModel], error)
	DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error
	Truncate(ctx context.Context) error
}

// GormPaymentReadRepository implements PaymentReadRepository using GORM
type GormPaymentReadRepository struct {
	db *gorm.DB
}

// NewGormPaymentReadRepository creates a new GormPaymentReadRepository
func NewGormPaymentReadRepository(db *gorm.DB) *GormPaymentReadRepository {
	return &GormPaymentReadRepository{db: db}
}

var paymentUpsertColumns = []string{
	"last_applied_version", "updated_at", "invoice_id", "amount", "currency",
	"method", "status", "payment_date", "reference", "failure_reason",
	"reconciled_at", "reconciled_ref", "reversed_at", "reversal_reason",
}

// Upsert writes the row unless the stored row already reflects the same or a
// later stream version.
func (r *GormPaymentReadRepository) Upsert(ctx context.Context, row *models.PaymentReadModel) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(paymentUpsertColumns),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("payment_read_models.last_applied_version < excluded.last_applied_version"),
		}},
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert payment read model %s: %w", row.ID, err)
	}
	return nil
}

// Get finds a payment read model by ID within a tenant
func (r *GormPaymentReadRepository) Get(ctx context.Context, tenantID, paymentID uuid.UUID) (*models.PaymentReadModel, error) {
	var row models.PaymentReadModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, paymentID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// List returns a page of payment read models within a tenant
func (r *GormPaymentReadRepository) List(ctx context.Context, tenantID uuid.UUID, filter finance.PaymentFilter) (shared.Paginated[models.PaymentReadModel], error) {
	query := r.db.WithContext(ctx).
		Model(&models.PaymentReadModel{}).
		Where("tenant_id = ?", tenantID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.InvoiceID != uuid.Nil {
		query = query.Where("invoice_id = ?", filter.InvoiceID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return shared.Paginated[models.PaymentReadModel]{}, err
	}

	orderBy := ValidateSortField(filter.OrderBy, PaymentSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var rows []models.PaymentReadModel
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return shared.Paginated[models.PaymentReadModel]{}, err
	}

	return shared.NewPaginated(rows, total, filter.Page, filter.Limit()), nil
}

// DeleteByTenant removes one tenant's payment read-model rows
func (r *GormPaymentReadRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&models.PaymentReadModel{}).Error
}

// Truncate removes every payment read-model row across all tenants
func (r *GormPaymentReadRepository) Truncate(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.PaymentReadModel{}).Error
}
