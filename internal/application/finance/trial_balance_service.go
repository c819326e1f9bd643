package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/infrastructure/persistence"
	"github.com/finledger/backend/internal/infrastructure/persistence/models"
)

// TrialBalanceReport lists every account touched by posted journal entries in
// one fiscal period, with its debit and credit totals. A ledger in good
// standing always balances; Difference is kept in the report so an unbalanced
// period shows how far off it is instead of just failing.
type TrialBalanceReport struct {
	FiscalPeriod finance.FiscalPeriod     `json:"fiscal_period"`
	Rows         []models.TrialBalanceRow `json:"rows"`
	TotalDebit   decimal.Decimal          `json:"total_debit"`
	TotalCredit  decimal.Decimal          `json:"total_credit"`
	Balanced     bool                     `json:"balanced"`
	Difference   decimal.Decimal          `json:"difference"`
}

// TrialBalanceService builds trial balance reports from the journal line read
// model. Only lines of posted entries participate; drafts and their lines are
// excluded by the storage query.
type TrialBalanceService struct {
	reads  persistence.JournalReadRepository
	logger *zap.Logger
}

// NewTrialBalanceService creates a new TrialBalanceService
func NewTrialBalanceService(reads persistence.JournalReadRepository, logger *zap.Logger) *TrialBalanceService {
	return &TrialBalanceService{reads: reads, logger: logger.Named("trial-balance")}
}

// Report aggregates the period's posted journal lines per account. A period
// with no posted entries yields an empty, balanced report.
func (s *TrialBalanceService) Report(ctx context.Context, tenantID uuid.UUID, fiscalPeriod finance.FiscalPeriod) (*TrialBalanceReport, error) {
	if !fiscalPeriod.IsValid() {
		verr := &shared.ValidationError{}
		verr.Add("fiscal_period", "must match FYyyyy-yyyy-Pnn")
		return nil, verr
	}

	rows, err := s.reads.TrialBalance(ctx, tenantID, fiscalPeriod)
	if err != nil {
		return nil, err
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, row := range rows {
		totalDebit = totalDebit.Add(row.TotalDebit)
		totalCredit = totalCredit.Add(row.TotalCredit)
	}
	diff := totalDebit.Sub(totalCredit)

	if !diff.IsZero() {
		s.logger.Warn("trial balance does not balance",
			zap.String("tenant_id", tenantID.String()),
			zap.String("fiscal_period", fiscalPeriod.String()),
			zap.String("difference", diff.String()))
	}

	return &TrialBalanceReport{
		FiscalPeriod: fiscalPeriod,
		Rows:         rows,
		TotalDebit:   totalDebit,
		TotalCredit:  totalCredit,
		Balanced:     diff.IsZero(),
		Difference:   diff,
	}, nil
}
