package finance

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
)

func TestInvoiceCommands_CreateComputesTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := testActor()

	result, err := env.invoiceCommands.Create(ctx, actor, invoiceInput())
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewVersion)

	inv, err := env.invoices.Load(ctx, actor.TenantID, result.AggregateID)
	require.NoError(t, err)
	assert.Equal(t, finance.InvoiceStatusDraft, inv.Status)
	assert.True(t, inv.Subtotal.Equal(decimal.NewFromInt(200)), "subtotal %s", inv.Subtotal)
	assert.True(t, inv.VATAmount.Equal(decimal.NewFromInt(30)), "vat %s", inv.VATAmount)
	assert.True(t, inv.GrandTotal.Equal(decimal.NewFromInt(230)), "grand total %s", inv.GrandTotal)
	assert.Equal(t, finance.FiscalPeriod("FY2025-2026-P02"), inv.FiscalPeriod)
}

func TestInvoiceCommands_CreateRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)

	input := invoiceInput()
	input.InvoiceNumber = ""
	input.LineItems[0].Quantity = decimal.Zero

	_, err := env.invoiceCommands.Create(context.Background(), testActor(), input)

	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Violations, 2)
}

func TestInvoiceCommands_ApproveCancelledInvoice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := testActor()

	created, err := env.invoiceCommands.Create(ctx, actor, invoiceInput())
	require.NoError(t, err)
	_, err = env.invoiceCommands.Cancel(ctx, actor, created.AggregateID, "duplicate entry")
	require.NoError(t, err)

	_, err = env.invoiceCommands.Approve(ctx, actor, created.AggregateID)

	var transition *shared.InvalidStateTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, string(finance.InvoiceStatusCancelled), transition.CurrentState)
}

func TestInvoiceCommands_TenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := testActor()

	created, err := env.invoiceCommands.Create(ctx, owner, invoiceInput())
	require.NoError(t, err)

	_, err = env.invoiceCommands.Submit(ctx, testActor(), created.AggregateID)
	assert.ErrorIs(t, err, shared.ErrAggregateNotFound)
}

func TestJournalCommands_PostBalancedEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := testActor()

	amount := decimal.NewFromInt(500)
	created, err := env.journalCommands.Create(ctx, actor,
		journalInput(uuid.New(), uuid.New(), amount, amount))
	require.NoError(t, err)

	_, err = env.journalCommands.Post(ctx, actor, created.AggregateID)
	require.NoError(t, err)

	je, err := env.journals.Load(ctx, actor.TenantID, created.AggregateID)
	require.NoError(t, err)
	assert.Equal(t, finance.JournalStatusPosted, je.Status)
}

func TestJournalCommands_PostUnbalancedEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := testActor()

	created, err := env.journalCommands.Create(ctx, actor,
		journalInput(uuid.New(), uuid.New(), decimal.NewFromInt(500), decimal.NewFromInt(400)))
	require.NoError(t, err)

	_, err = env.journalCommands.Post(ctx, actor, created.AggregateID)

	var unbalanced *finance.UnbalancedJournalError
	require.ErrorAs(t, err, &unbalanced)
	assert.True(t, unbalanced.Delta().Equal(decimal.NewFromInt(100)), "delta %s", unbalanced.Delta())

	je, err := env.journals.Load(ctx, actor.TenantID, created.AggregateID)
	require.NoError(t, err)
	assert.Equal(t, finance.JournalStatusDraft, je.Status, "failed post leaves the entry in DRAFT")
}

func TestJournalCommands_ReversePostedEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := testActor()

	debitAccount := uuid.New()
	creditAccount := uuid.New()
	amount := decimal.NewFromInt(750)
	created, err := env.journalCommands.Create(ctx, actor,
		journalInput(debitAccount, creditAccount, amount, amount))
	require.NoError(t, err)
	_, err = env.journalCommands.Post(ctx, actor, created.AggregateID)
	require.NoError(t, err)

	originalVersionBefore, err := env.store.StreamVersion(ctx, actor.TenantID, created.AggregateID)
	require.NoError(t, err)

	result, err := env.journalCommands.Reverse(ctx, actor, created.AggregateID,
		ReverseJournalEntryInput{JournalNumber: "JE-2025-0001-REV", Reason: "posted to wrong account"})
	require.NoError(t, err)

	original, err := env.journals.Load(ctx, actor.TenantID, created.AggregateID)
	require.NoError(t, err)
	assert.Equal(t, finance.JournalStatusReversed, original.Status)
	require.NotNil(t, original.ReversedByID)
	assert.Equal(t, result.ReversingID, *original.ReversedByID)

	reversing, err := env.journals.Load(ctx, actor.TenantID, result.ReversingID)
	require.NoError(t, err)
	assert.Equal(t, finance.JournalStatusPosted, reversing.Status)
	assert.Equal(t, finance.JournalTypeAdjustment, reversing.JournalType)
	require.NotNil(t, reversing.ReversalOfID)
	assert.Equal(t, created.AggregateID, *reversing.ReversalOfID)

	// Debits and credits are swapped per account.
	require.Len(t, reversing.Lines, 2)
	assert.Equal(t, debitAccount, reversing.Lines[0].AccountID)
	assert.True(t, reversing.Lines[0].CreditAmount.Equal(amount))
	assert.True(t, reversing.Lines[0].DebitAmount.IsZero())
	assert.Equal(t, creditAccount, reversing.Lines[1].AccountID)
	assert.True(t, reversing.Lines[1].DebitAmount.Equal(amount))

	// The original stream gains only the reversal marker.
	originalVersionAfter, err := env.store.StreamVersion(ctx, actor.TenantID, created.AggregateID)
	require.NoError(t, err)
	assert.Equal(t, originalVersionBefore+1, originalVersionAfter)
}

func TestJournalCommands_ReverseDraftEntryRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := testActor()

	amount := decimal.NewFromInt(100)
	created, err := env.journalCommands.Create(ctx, actor,
		journalInput(uuid.New(), uuid.New(), amount, amount))
	require.NoError(t, err)

	_, err = env.journalCommands.Reverse(ctx, actor, created.AggregateID,
		ReverseJournalEntryInput{JournalNumber: "JE-REV", Reason: "oops"})

	var transition *shared.InvalidStateTransitionError
	assert.ErrorAs(t, err, &transition)
}

func TestPaymentCommands_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := testActor()

	created, err := env.paymentCommands.Create(ctx, actor, paymentInput(uuid.New(), "230.00"))
	require.NoError(t, err)

	_, err = env.paymentCommands.Complete(ctx, actor, created.AggregateID)
	require.NoError(t, err)
	_, err = env.paymentCommands.Reconcile(ctx, actor, created.AggregateID, "STMT-2025-08")
	require.NoError(t, err)

	payment, err := env.payments.Load(ctx, actor.TenantID, created.AggregateID)
	require.NoError(t, err)
	assert.Equal(t, finance.PaymentStatusReconciled, payment.Status)
}

func TestPaymentCommands_CompleteFailedPaymentRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := testActor()

	created, err := env.paymentCommands.Create(ctx, actor, paymentInput(uuid.New(), "50.00"))
	require.NoError(t, err)
	_, err = env.paymentCommands.Fail(ctx, actor, created.AggregateID, "insufficient funds")
	require.NoError(t, err)

	_, err = env.paymentCommands.Complete(ctx, actor, created.AggregateID)

	var transition *shared.InvalidStateTransitionError
	assert.ErrorAs(t, err, &transition)
}

// conflictingInvoiceRepo fails the first saves with a concurrency conflict,
// standing in for a competing writer that appends between load and save.
type conflictingInvoiceRepo struct {
	finance.InvoiceRepository
	conflicts int
}

func (r *conflictingInvoiceRepo) Save(ctx context.Context, inv *finance.Invoice) error {
	if r.conflicts > 0 {
		r.conflicts--
		return shared.ErrConcurrencyConflict
	}
	return r.InvoiceRepository.Save(ctx, inv)
}

func TestInvoiceCommands_RetriesOnConcurrencyConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := testActor()

	created, err := env.invoiceCommands.Create(ctx, actor, invoiceInput())
	require.NoError(t, err)

	flaky := &conflictingInvoiceRepo{InvoiceRepository: env.invoices, conflicts: 2}
	commands := NewInvoiceCommandService(flaky, shared.FixedClock{Instant: testNow}, zap.NewNop())

	result, err := commands.Submit(ctx, actor, created.AggregateID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.NewVersion)
	assert.Zero(t, flaky.conflicts, "all injected conflicts consumed")
}

func TestInvoiceCommands_RetriesExhausted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := testActor()

	created, err := env.invoiceCommands.Create(ctx, actor, invoiceInput())
	require.NoError(t, err)

	flaky := &conflictingInvoiceRepo{InvoiceRepository: env.invoices, conflicts: concurrencyRetryAttempts}
	commands := NewInvoiceCommandService(flaky, shared.FixedClock{Instant: testNow}, zap.NewNop())

	_, err = commands.Submit(ctx, actor, created.AggregateID)
	assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
}
