package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/infrastructure/persistence/models"
)

func journalRow(tenantID uuid.UUID, version int, status finance.JournalStatus) *models.JournalEntryReadModel {
	now := time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC)
	return &models.JournalEntryReadModel{
		ReadModelBase: models.ReadModelBase{
			ID:                 uuid.New(),
			TenantID:           tenantID,
			LastAppliedVersion: version,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		JournalNumber: "JE-5001",
		JournalDate:   now,
		JournalType:   string(finance.JournalTypeSales),
		Description:   "August sales",
		Currency:      "BDT",
		FiscalPeriod:  "FY2025-2026-P02",
		Status:        string(status),
		TotalDebit:    decimal.NewFromInt(500),
		TotalCredit:   decimal.NewFromInt(500),
	}
}

func journalLines(row *models.JournalEntryReadModel, debitAccount, creditAccount uuid.UUID, amount decimal.Decimal) []models.JournalLineReadModel {
	return []models.JournalLineReadModel{
		{
			ID:           uuid.New(),
			EntryID:      row.ID,
			TenantID:     row.TenantID,
			FiscalPeriod: row.FiscalPeriod,
			EntryStatus:  row.Status,
			AccountID:    debitAccount,
			Position:     0,
			DebitAmount:  amount,
			CreditAmount: decimal.Zero,
			CreatedAt:    row.CreatedAt,
			UpdatedAt:    row.CreatedAt,
		},
		{
			ID:           uuid.New(),
			EntryID:      row.ID,
			TenantID:     row.TenantID,
			FiscalPeriod: row.FiscalPeriod,
			EntryStatus:  row.Status,
			AccountID:    creditAccount,
			Position:     1,
			DebitAmount:  decimal.Zero,
			CreditAmount: amount,
			CreatedAt:    row.CreatedAt.Add(time.Second),
			UpdatedAt:    row.CreatedAt.Add(time.Second),
		},
	}
}

func TestJournalUpsertWritesHeaderAndLines(t *testing.T) {
	db := setupReadDB(t)
	repo := NewGormJournalReadRepository(db)
	tenantID := uuid.New()
	row := journalRow(tenantID, 2, finance.JournalStatusPosted)
	lines := journalLines(row, uuid.New(), uuid.New(), decimal.NewFromInt(500))

	require.NoError(t, repo.Upsert(context.Background(), row, lines))

	got, gotLines, err := repo.Get(context.Background(), tenantID, row.ID)
	require.NoError(t, err)
	assert.Equal(t, "JE-5001", got.JournalNumber)
	require.Len(t, gotLines, 2)
	assert.True(t, gotLines[0].DebitAmount.Equal(decimal.NewFromInt(500)))
	assert.True(t, gotLines[1].CreditAmount.Equal(decimal.NewFromInt(500)))
}

func TestJournalUpsertReplacesLinesOnNewerVersion(t *testing.T) {
	db := setupReadDB(t)
	repo := NewGormJournalReadRepository(db)
	tenantID := uuid.New()
	row := journalRow(tenantID, 1, finance.JournalStatusDraft)
	require.NoError(t, repo.Upsert(context.Background(), row,
		journalLines(row, uuid.New(), uuid.New(), decimal.NewFromInt(300))))

	posted := *row
	posted.LastAppliedVersion = 2
	posted.Status = string(finance.JournalStatusPosted)
	newLines := journalLines(&posted, uuid.New(), uuid.New(), decimal.NewFromInt(500))
	require.NoError(t, repo.Upsert(context.Background(), &posted, newLines))

	got, gotLines, err := repo.Get(context.Background(), tenantID, row.ID)
	require.NoError(t, err)
	assert.Equal(t, string(finance.JournalStatusPosted), got.Status)
	require.Len(t, gotLines, 2)
	assert.True(t, gotLines[0].DebitAmount.Equal(decimal.NewFromInt(500)))
}

func TestJournalUpsertStaleDeliveryKeepsLines(t *testing.T) {
	db := setupReadDB(t)
	repo := NewGormJournalReadRepository(db)
	tenantID := uuid.New()
	row := journalRow(tenantID, 2, finance.JournalStatusPosted)
	lines := journalLines(row, uuid.New(), uuid.New(), decimal.NewFromInt(500))
	require.NoError(t, repo.Upsert(context.Background(), row, lines))

	stale := *row
	stale.LastAppliedVersion = 1
	stale.Status = string(finance.JournalStatusDraft)
	require.NoError(t, repo.Upsert(context.Background(), &stale,
		journalLines(&stale, uuid.New(), uuid.New(), decimal.NewFromInt(300))))

	got, gotLines, err := repo.Get(context.Background(), tenantID, row.ID)
	require.NoError(t, err)
	assert.Equal(t, string(finance.JournalStatusPosted), got.Status)
	require.Len(t, gotLines, 2)
	assert.True(t, gotLines[0].DebitAmount.Equal(decimal.NewFromInt(500)))
}

func TestJournalListFiltersByTypeAndPeriod(t *testing.T) {
	db := setupReadDB(t)
	repo := NewGormJournalReadRepository(db)
	tenantID := uuid.New()

	sales := journalRow(tenantID, 1, finance.JournalStatusPosted)
	require.NoError(t, repo.Upsert(context.Background(), sales, nil))

	adj := journalRow(tenantID, 1, finance.JournalStatusDraft)
	adj.JournalType = string(finance.JournalTypeAdjustment)
	adj.FiscalPeriod = "FY2025-2026-P03"
	require.NoError(t, repo.Upsert(context.Background(), adj, nil))

	page, err := repo.List(context.Background(), tenantID, finance.JournalEntryFilter{
		Filter:      shared.DefaultFilter(),
		JournalType: finance.JournalTypeSales,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = repo.List(context.Background(), tenantID, finance.JournalEntryFilter{
		Filter:       shared.DefaultFilter(),
		FiscalPeriod: "FY2025-2026-P03",
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, string(finance.JournalTypeAdjustment), page.Items[0].JournalType)
}

func TestTrialBalanceAggregatesPostedLinesPerAccount(t *testing.T) {
	db := setupReadDB(t)
	repo := NewGormJournalReadRepository(db)
	tenantID := uuid.New()
	cash := uuid.New()
	revenue := uuid.New()

	first := journalRow(tenantID, 2, finance.JournalStatusPosted)
	require.NoError(t, repo.Upsert(context.Background(), first,
		journalLines(first, cash, revenue, decimal.NewFromInt(500))))

	second := journalRow(tenantID, 2, finance.JournalStatusPosted)
	second.JournalNumber = "JE-5002"
	require.NoError(t, repo.Upsert(context.Background(), second,
		journalLines(second, cash, revenue, decimal.NewFromInt(250))))

	// Draft entries must not contribute.
	draft := journalRow(tenantID, 1, finance.JournalStatusDraft)
	draft.JournalNumber = "JE-5003"
	require.NoError(t, repo.Upsert(context.Background(), draft,
		journalLines(draft, cash, revenue, decimal.NewFromInt(999))))

	rows, err := repo.TrialBalance(context.Background(), tenantID, "FY2025-2026-P02")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	totals := map[uuid.UUID]models.TrialBalanceRow{}
	var debits, credits decimal.Decimal
	for _, r := range rows {
		totals[r.AccountID] = r
		debits = debits.Add(r.TotalDebit)
		credits = credits.Add(r.TotalCredit)
	}
	assert.True(t, totals[cash].TotalDebit.Equal(decimal.NewFromInt(750)))
	assert.True(t, totals[cash].TotalCredit.IsZero())
	assert.True(t, totals[revenue].TotalCredit.Equal(decimal.NewFromInt(750)))
	assert.True(t, debits.Equal(credits))
}

func TestTrialBalanceIsTenantAndPeriodScoped(t *testing.T) {
	db := setupReadDB(t)
	repo := NewGormJournalReadRepository(db)
	tenantID := uuid.New()

	entry := journalRow(tenantID, 2, finance.JournalStatusPosted)
	require.NoError(t, repo.Upsert(context.Background(), entry,
		journalLines(entry, uuid.New(), uuid.New(), decimal.NewFromInt(500))))

	other := journalRow(uuid.New(), 2, finance.JournalStatusPosted)
	require.NoError(t, repo.Upsert(context.Background(), other,
		journalLines(other, uuid.New(), uuid.New(), decimal.NewFromInt(100))))

	rows, err := repo.TrialBalance(context.Background(), tenantID, "FY2025-2026-P02")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = repo.TrialBalance(context.Background(), tenantID, "FY2025-2026-P09")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestJournalTruncateClearsBothTables(t *testing.T) {
	db := setupReadDB(t)
	repo := NewGormJournalReadRepository(db)
	row := journalRow(uuid.New(), 2, finance.JournalStatusPosted)
	require.NoError(t, repo.Upsert(context.Background(), row,
		journalLines(row, uuid.New(), uuid.New(), decimal.NewFromInt(500))))

	require.NoError(t, repo.Truncate(context.Background()))

	var headers, lines int64
	require.NoError(t, db.Model(&models.JournalEntryReadModel{}).Count(&headers).Error)
	require.NoError(t, db.Model(&models.JournalLineReadModel{}).Count(&lines).Error)
	assert.Zero(t, headers)
	assert.Zero(t, lines)
}
