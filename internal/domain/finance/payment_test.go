package finance

import (
	"testing"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestPayment(t *testing.T) *Payment {
	t.Helper()
	amount, err := valueobject.NewMoneyBDTFromString("230.00")
	require.NoError(t, err)

	p, err := NewPayment(uuid.New(), CreatePaymentInput{
		InvoiceID:   uuid.New(),
		Amount:      amount,
		Method:      PaymentMethodBankTransfer,
		PaymentDate: testNow,
		Reference:   "TRX-001",
	}, testNow)
	require.NoError(t, err)
	return p
}

func TestNewPayment(t *testing.T) {
	p := createTestPayment(t)
	assert.Equal(t, PaymentStatusPending, p.Status)
	assert.True(t, p.Amount.Equal(dec(t, "230.00")))
	assert.Equal(t, valueobject.BDT, p.Currency)
	assert.Len(t, p.GetUncommittedEvents(), 1)
}

func TestNewPayment_Validation(t *testing.T) {
	_, err := NewPayment(uuid.New(), CreatePaymentInput{
		Amount: valueobject.ZeroBDT(),
		Method: PaymentMethod("IOU"),
	}, testNow)
	require.Error(t, err)

	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make(map[string]bool)
	for _, v := range verr.Violations {
		fields[v.Field] = true
	}
	assert.True(t, fields["invoice_id"])
	assert.True(t, fields["amount"])
	assert.True(t, fields["payment_method"])
	assert.True(t, fields["payment_date"])
}

func TestPayment_CompleteAndReconcile(t *testing.T) {
	p := createTestPayment(t)

	require.NoError(t, p.Complete(testNow))
	assert.Equal(t, PaymentStatusCompleted, p.Status)

	require.NoError(t, p.Reconcile("STMT-2025-08-15", testNow))
	assert.Equal(t, PaymentStatusReconciled, p.Status)
	assert.Equal(t, "STMT-2025-08-15", p.ReconciledRef)
	require.NotNil(t, p.ReconciledAt)
}

func TestPayment_Fail(t *testing.T) {
	p := createTestPayment(t)
	require.NoError(t, p.Fail("insufficient funds", testNow))
	assert.Equal(t, PaymentStatusFailed, p.Status)
	assert.Equal(t, "insufficient funds", p.FailureReason)

	// FAILED never transitions further
	var transErr *shared.InvalidStateTransitionError
	assert.ErrorAs(t, p.Complete(testNow), &transErr)
	assert.ErrorAs(t, p.Reconcile("x", testNow), &transErr)
	assert.ErrorAs(t, p.Reverse("x", testNow), &transErr)
}

func TestPayment_Reverse(t *testing.T) {
	p := createTestPayment(t)
	require.NoError(t, p.Complete(testNow))
	require.NoError(t, p.Reverse("duplicate entry", testNow))

	assert.Equal(t, PaymentStatusReversed, p.Status)
	assert.Equal(t, "duplicate entry", p.ReversalReason)
	require.NotNil(t, p.ReversedAt)

	// REVERSED never transitions further
	var transErr *shared.InvalidStateTransitionError
	assert.ErrorAs(t, p.Reconcile("x", testNow), &transErr)
	assert.ErrorAs(t, p.Reverse("again", testNow), &transErr)
}

func TestPayment_IllegalTransitions(t *testing.T) {
	t.Run("reconcile pending", func(t *testing.T) {
		p := createTestPayment(t)
		var transErr *shared.InvalidStateTransitionError
		assert.ErrorAs(t, p.Reconcile("x", testNow), &transErr)
	})

	t.Run("reverse pending", func(t *testing.T) {
		p := createTestPayment(t)
		var transErr *shared.InvalidStateTransitionError
		assert.ErrorAs(t, p.Reverse("x", testNow), &transErr)
	})

	t.Run("fail without reason", func(t *testing.T) {
		p := createTestPayment(t)
		var verr *shared.ValidationError
		assert.ErrorAs(t, p.Fail("", testNow), &verr)
	})
}

func TestPayment_ReplayDeterminism(t *testing.T) {
	p := createTestPayment(t)
	require.NoError(t, p.Complete(testNow))
	require.NoError(t, p.Reconcile("STMT-1", testNow))

	history := p.GetUncommittedEvents()

	first := NewEmptyPayment()
	require.NoError(t, first.LoadFromHistory(history))
	second := NewEmptyPayment()
	require.NoError(t, second.LoadFromHistory(history))

	assert.Equal(t, first.Status, second.Status)
	assert.True(t, first.Amount.Equal(second.Amount))
	assert.Equal(t, first.GetVersion(), second.GetVersion())
	assert.Equal(t, p.Status, first.Status)
	assert.Empty(t, first.GetUncommittedEvents())
}
