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

// JournalReadRepository maintains and queries the journal entry read model.
// The header row and its line rows are written together; the trial balance
// aggregates the line table directly.
type JournalReadRepository interface {
	Upsert(ctx context.Context, row *models.JournalEntryReadModel, lines []models.JournalLineReadModel) error
	Get(ctx context.Context, tenantID, entryID uuid.UUID) (*models.JournalEntryReadModel, []models.JournalLineReadModel, error)
	List(ctx context.Context, tenantID uuid.UUID, filter finance.JournalEntryFilter) (shared.Paginated[models.JournalEntryReadModel], error)
	TrialBalance(ctx context.Context, tenantID uuid.UUID, fiscalPeriod finance.FiscalPeriod) ([]models.TrialBalanceRow, error)
	DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error
	Truncate(ctx context.Context) error
}

// GormJournalReadRepository implements JournalReadRepository using GORM
type GormJournalReadRepository struct {
	db *gorm.DB
}

// NewGormJournalReadRepository creates a new GormJournalReadRepository
func NewGormJournalReadRepository(db *gorm.DB) *GormJournalReadRepository {
	return &GormJournalReadRepository{db: db}
}

var journalUpsertColumns = []string{
	"last_applied_version", "updated_at", "journal_number", "journal_date",
	"journal_type", "description", "currency", "fiscal_period", "status",
	"total_debit", "total_credit", "posted_at", "reversal_of_id",
	"reversed_by_id", "reversal_reason",
}

// Upsert writes the header row and replaces its lines in one transaction,
// unless the stored header already reflects the same or a later stream
// version, in which case neither table is touched.
func (r *GormJournalReadRepository) Upsert(ctx context.Context, row *models.JournalEntryReadModel, lines []models.JournalLineReadModel) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(journalUpsertColumns),
			Where: clause.Where{Exprs: []clause.Expression{
				gorm.Expr("journal_entry_read_models.last_applied_version < excluded.last_applied_version"),
			}},
		}).Create(row)
		if res.Error != nil {
			return fmt.Errorf("failed to upsert journal read model %s: %w", row.ID, res.Error)
		}
		// Zero rows affected means the stored row is newer; skip the lines
		// too or a duplicate delivery would clobber them.
		if res.RowsAffected == 0 {
			return nil
		}

		if err := tx.Where("entry_id = ?", row.ID).
			Delete(&models.JournalLineReadModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear journal lines for %s: %w", row.ID, err)
		}
		if len(lines) == 0 {
			return nil
		}
		if err := tx.Create(&lines).Error; err != nil {
			return fmt.Errorf("failed to insert journal lines for %s: %w", row.ID, err)
		}
		return nil
	})
}

// Get finds a journal entry read model and its lines by ID within a tenant
func (r *GormJournalReadRepository) Get(ctx context.Context, tenantID, entryID uuid.UUID) (*models.JournalEntryReadModel, []models.JournalLineReadModel, error) {
	var row models.JournalEntryReadModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, entryID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, shared.ErrNotFound
		}
		return nil, nil, err
	}

	var lines []models.JournalLineReadModel
	if err := r.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("position ASC").
		Find(&lines).Error; err != nil {
		return nil, nil, err
	}
	return &row, lines, nil
}

// List returns a page of journal entry read models within a tenant
func (r *GormJournalReadRepository) List(ctx context.Context, tenantID uuid.UUID, filter finance.JournalEntryFilter) (shared.Paginated[models.JournalEntryReadModel], error) {
	query := r.db.WithContext(ctx).
		Model(&models.JournalEntryReadModel{}).
		Where("tenant_id = ?", tenantID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.JournalType != "" {
		query = query.Where("journal_type = ?", filter.JournalType)
	}
	if filter.FiscalPeriod != "" {
		query = query.Where("fiscal_period = ?", filter.FiscalPeriod)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return shared.Paginated[models.JournalEntryReadModel]{}, err
	}

	orderBy := ValidateSortField(filter.OrderBy, JournalSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var rows []models.JournalEntryReadModel
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return shared.Paginated[models.JournalEntryReadModel]{}, err
	}

	return shared.NewPaginated(rows, total, filter.Page, filter.Limit()), nil
}

// TrialBalance reports per-account debit and credit totals over the lines of
// posted journal entries within one fiscal period.
func (r *GormJournalReadRepository) TrialBalance(ctx context.Context, tenantID uuid.UUID, fiscalPeriod finance.FiscalPeriod) ([]models.TrialBalanceRow, error) {
	var rows []models.TrialBalanceRow
	err := r.db.WithContext(ctx).
		Model(&models.JournalLineReadModel{}).
		Select("account_id, SUM(debit_amount) AS total_debit, SUM(credit_amount) AS total_credit").
		Where("tenant_id = ? AND fiscal_period = ? AND entry_status = ?",
			tenantID, fiscalPeriod, finance.JournalStatusPosted).
		Group("account_id").
		Order("account_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute trial balance for %s: %w", fiscalPeriod, err)
	}
	return rows, nil
}

// DeleteByTenant removes one tenant's journal read-model rows, lines included
func (r *GormJournalReadRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ?", tenantID).
			Delete(&models.JournalLineReadModel{}).Error; err != nil {
			return err
		}
		return tx.Where("tenant_id = ?", tenantID).
			Delete(&models.JournalEntryReadModel{}).Error
	})
}

// Truncate removes every journal read-model row across all tenants
func (r *GormJournalReadRepository) Truncate(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&models.JournalLineReadModel{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&models.JournalEntryReadModel{}).Error
	})
}
