package finance

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
)

func TestInvoiceQueryService_GetAndList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := testActor()
	queries := NewInvoiceQueryService(env.invoiceReads, zap.NewNop())

	created, err := env.invoiceCommands.Create(ctx, actor, invoiceInput())
	require.NoError(t, err)
	env.project(t, ctx)

	row, err := queries.Get(ctx, actor.TenantID, created.AggregateID)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-0001", row.InvoiceNumber)

	page, err := queries.List(ctx, actor.TenantID, finance.InvoiceFilter{
		Filter: shared.DefaultFilter(),
		Status: finance.InvoiceStatusDraft,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	_, err = queries.Get(ctx, uuid.New(), created.AggregateID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestInvoiceQueryService_RejectsMalformedFiscalPeriod(t *testing.T) {
	env := newTestEnv(t)
	queries := NewInvoiceQueryService(env.invoiceReads, zap.NewNop())

	_, err := queries.List(context.Background(), uuid.New(), finance.InvoiceFilter{
		Filter:       shared.DefaultFilter(),
		FiscalPeriod: finance.FiscalPeriod("2025-P02"),
	})

	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "fiscal_period", verr.Violations[0].Field)
}

func TestJournalQueryService_GetReturnsLines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := testActor()
	queries := NewJournalQueryService(env.journalReads, zap.NewNop())

	amount := decimal.NewFromInt(500)
	created, err := env.journalCommands.Create(ctx, actor,
		journalInput(uuid.New(), uuid.New(), amount, amount))
	require.NoError(t, err)
	env.project(t, ctx)

	header, lines, err := queries.Get(ctx, actor.TenantID, created.AggregateID)
	require.NoError(t, err)
	assert.Equal(t, "JE-2025-0001", header.JournalNumber)
	assert.Len(t, lines, 2)
}

func TestTrialBalanceService_BalancedPeriod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := testActor()
	service := NewTrialBalanceService(env.journalReads, zap.NewNop())

	cashAccount := uuid.New()
	revenueAccount := uuid.New()
	amount := decimal.NewFromInt(750)
	created, err := env.journalCommands.Create(ctx, actor,
		journalInput(cashAccount, revenueAccount, amount, amount))
	require.NoError(t, err)
	_, err = env.journalCommands.Post(ctx, actor, created.AggregateID)
	require.NoError(t, err)
	env.project(t, ctx)

	report, err := service.Report(ctx, actor.TenantID, finance.FiscalPeriod("FY2025-2026-P02"))
	require.NoError(t, err)
	assert.True(t, report.Balanced)
	assert.True(t, report.Difference.IsZero())
	assert.True(t, report.TotalDebit.Equal(amount))
	assert.True(t, report.TotalCredit.Equal(amount))
	require.Len(t, report.Rows, 2)
}

func TestTrialBalanceService_ExcludesDrafts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := testActor()
	service := NewTrialBalanceService(env.journalReads, zap.NewNop())

	amount := decimal.NewFromInt(300)
	_, err := env.journalCommands.Create(ctx, actor,
		journalInput(uuid.New(), uuid.New(), amount, amount))
	require.NoError(t, err)
	env.project(t, ctx)

	report, err := service.Report(ctx, actor.TenantID, finance.FiscalPeriod("FY2025-2026-P02"))
	require.NoError(t, err)
	assert.Empty(t, report.Rows)
	assert.True(t, report.Balanced, "an empty period balances trivially")
}

func TestTrialBalanceService_RejectsMalformedPeriod(t *testing.T) {
	env := newTestEnv(t)
	service := NewTrialBalanceService(env.journalReads, zap.NewNop())

	_, err := service.Report(context.Background(), uuid.New(), finance.FiscalPeriod("FY2025-P13"))

	var verr *shared.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestProjectionRebuildService_RebuildTenant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := testActor()
	other := testActor()

	invoice, err := env.invoiceCommands.Create(ctx, actor, invoiceInput())
	require.NoError(t, err)
	_, err = env.invoiceCommands.Submit(ctx, actor, invoice.AggregateID)
	require.NoError(t, err)

	amount := decimal.NewFromInt(500)
	journal, err := env.journalCommands.Create(ctx, actor,
		journalInput(uuid.New(), uuid.New(), amount, amount))
	require.NoError(t, err)
	_, err = env.journalCommands.Post(ctx, actor, journal.AggregateID)
	require.NoError(t, err)

	payment, err := env.paymentCommands.Create(ctx, actor, paymentInput(invoice.AggregateID, "230.00"))
	require.NoError(t, err)

	otherInvoice, err := env.invoiceCommands.Create(ctx, other, invoiceInput())
	require.NoError(t, err)
	env.project(t, ctx)

	// Corrupt the tenant's rows so the rebuild has something to repair.
	require.NoError(t, env.db.Table("invoice_read_models").
		Where("tenant_id = ?", actor.TenantID).
		Updates(map[string]interface{}{"status": "BOGUS", "last_applied_version": 999}).Error)

	rebuild := NewProjectionRebuildService(
		env.store,
		env.invoiceReads, env.paymentReads, env.journalReads,
		env.invoiceProjection, env.paymentProjection, env.journalProjection,
		zap.NewNop(),
	)
	require.NoError(t, rebuild.RebuildTenant(ctx, actor.TenantID))

	row, err := env.invoiceReads.Get(ctx, actor.TenantID, invoice.AggregateID)
	require.NoError(t, err)
	assert.Equal(t, string(finance.InvoiceStatusPendingApproval), row.Status)
	assert.Equal(t, 2, row.LastAppliedVersion)

	paymentRow, err := env.paymentReads.Get(ctx, actor.TenantID, payment.AggregateID)
	require.NoError(t, err)
	assert.Equal(t, string(finance.PaymentStatusPending), paymentRow.Status)

	header, lines, err := env.journalReads.Get(ctx, actor.TenantID, journal.AggregateID)
	require.NoError(t, err)
	assert.Equal(t, string(finance.JournalStatusPosted), header.Status)
	assert.Len(t, lines, 2)

	// The other tenant's rows are untouched.
	otherRow, err := env.invoiceReads.Get(ctx, other.TenantID, otherInvoice.AggregateID)
	require.NoError(t, err)
	assert.Equal(t, string(finance.InvoiceStatusDraft), otherRow.Status)
}
