package finance

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestJournalEntry(t *testing.T, lines ...JournalLineInput) *JournalEntry {
	t.Helper()
	je, err := NewJournalEntry(uuid.New(), CreateJournalEntryInput{
		JournalNumber: "JV-2025-001",
		JournalDate:   testNow,
		JournalType:   JournalTypeGeneral,
		Description:   "Test entry",
		Currency:      valueobject.BDT,
		Lines:         lines,
	}, testNow)
	require.NoError(t, err)
	return je
}

func debitLine(t *testing.T, amount string) JournalLineInput {
	t.Helper()
	return JournalLineInput{AccountID: uuid.New(), DebitAmount: dec(t, amount)}
}

func creditLine(t *testing.T, amount string) JournalLineInput {
	t.Helper()
	return JournalLineInput{AccountID: uuid.New(), CreditAmount: dec(t, amount)}
}

func TestNewJournalEntry(t *testing.T) {
	je := createTestJournalEntry(t)
	assert.Equal(t, JournalStatusDraft, je.Status)
	assert.Equal(t, FiscalPeriod("FY2025-2026-P02"), je.FiscalPeriod)
	assert.Empty(t, je.Lines)
}

func TestNewJournalEntry_Validation(t *testing.T) {
	_, err := NewJournalEntry(uuid.New(), CreateJournalEntryInput{
		JournalType: JournalType("BOGUS"),
		Lines: []JournalLineInput{
			{AccountID: uuid.Nil, DebitAmount: dec(t, "10"), CreditAmount: dec(t, "10")},
		},
	}, testNow)
	require.Error(t, err)

	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make(map[string]bool)
	for _, v := range verr.Violations {
		fields[v.Field] = true
	}
	assert.True(t, fields["journal_number"])
	assert.True(t, fields["journal_date"])
	assert.True(t, fields["journal_type"])
	assert.True(t, fields["lines[0].account_id"])
	assert.True(t, fields["lines[0]"], "both sides set must be rejected")
}

func TestJournalEntry_PostBalanced(t *testing.T) {
	je := createTestJournalEntry(t, debitLine(t, "500.00"), creditLine(t, "500.00"))

	require.NoError(t, je.Post(testNow))
	assert.Equal(t, JournalStatusPosted, je.Status)
	require.NotNil(t, je.PostedAt)
}

func TestJournalEntry_PostUnbalanced(t *testing.T) {
	je := createTestJournalEntry(t, debitLine(t, "500.00"), creditLine(t, "400.00"))

	err := je.Post(testNow)
	require.Error(t, err)

	var uerr *UnbalancedJournalError
	require.ErrorAs(t, err, &uerr)
	assert.True(t, uerr.Delta().Equal(dec(t, "100.00")), "delta %s", uerr.Delta())
	assert.True(t, uerr.TotalDebits.Equal(dec(t, "500.00")))
	assert.True(t, uerr.TotalCredits.Equal(dec(t, "400.00")))
	assert.Equal(t, JournalStatusDraft, je.Status, "failed post must not change state")
}

func TestJournalEntry_PostRequiresLines(t *testing.T) {
	je := createTestJournalEntry(t)
	var verr *shared.ValidationError
	assert.ErrorAs(t, je.Post(testNow), &verr)
}

func TestJournalEntry_IncrementalLines(t *testing.T) {
	je := createTestJournalEntry(t)

	require.NoError(t, je.AddLine(debitLine(t, "300.00"), testNow))
	assert.False(t, je.IsBalanced())

	require.NoError(t, je.AddLine(creditLine(t, "200.00"), testNow))
	require.NoError(t, je.AddLine(creditLine(t, "100.00"), testNow))
	assert.True(t, je.IsBalanced())

	require.NoError(t, je.Post(testNow))
	assert.Equal(t, JournalStatusPosted, je.Status)
}

func TestJournalEntry_AddLineAfterPostFails(t *testing.T) {
	je := createTestJournalEntry(t, debitLine(t, "50.00"), creditLine(t, "50.00"))
	require.NoError(t, je.Post(testNow))

	var transErr *shared.InvalidStateTransitionError
	assert.ErrorAs(t, je.AddLine(debitLine(t, "1.00"), testNow), &transErr)
}

func TestJournalEntry_PostTwiceFails(t *testing.T) {
	je := createTestJournalEntry(t, debitLine(t, "50.00"), creditLine(t, "50.00"))
	require.NoError(t, je.Post(testNow))

	var transErr *shared.InvalidStateTransitionError
	assert.ErrorAs(t, je.Post(testNow), &transErr)
}

// Posting succeeds if and only if debits equal credits, for randomly
// generated line sets.
func TestJournalEntry_PostBalanceProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			lines := make([]JournalLineInput, 0, 8)
			debits, credits := decimal.Zero, decimal.Zero
			n := 1 + rng.Intn(7)
			for j := 0; j < n; j++ {
				amount := decimal.NewFromInt(int64(1 + rng.Intn(100000))).Div(decimal.NewFromInt(100))
				if rng.Intn(2) == 0 {
					lines = append(lines, JournalLineInput{AccountID: uuid.New(), DebitAmount: amount})
					debits = debits.Add(amount)
				} else {
					lines = append(lines, JournalLineInput{AccountID: uuid.New(), CreditAmount: amount})
					credits = credits.Add(amount)
				}
			}
			// Half the cases are forced to balance with a closing line
			forcedBalance := rng.Intn(2) == 0
			if forcedBalance {
				diff := debits.Sub(credits)
				if diff.IsPositive() {
					lines = append(lines, JournalLineInput{AccountID: uuid.New(), CreditAmount: diff})
					credits = credits.Add(diff)
				} else if diff.IsNegative() {
					lines = append(lines, JournalLineInput{AccountID: uuid.New(), DebitAmount: diff.Neg()})
					debits = debits.Add(diff.Neg())
				}
			}

			je := createTestJournalEntry(t, lines...)
			err := je.Post(testNow)
			if debits.Equal(credits) {
				require.NoError(t, err)
				assert.Equal(t, JournalStatusPosted, je.Status)
			} else {
				var uerr *UnbalancedJournalError
				require.ErrorAs(t, err, &uerr)
				assert.True(t, uerr.Delta().Equal(debits.Sub(credits)))
				assert.Equal(t, JournalStatusDraft, je.Status)
			}
		})
	}
}

func TestJournalEntry_Reversal(t *testing.T) {
	original := createTestJournalEntry(t, debitLine(t, "500.00"), creditLine(t, "500.00"))
	require.NoError(t, original.Post(testNow))
	originalEventCount := len(original.GetUncommittedEvents())

	reversing, err := NewReversingEntry(original, "JV-2025-002", "posted to wrong period", testNow)
	require.NoError(t, err)
	require.NoError(t, original.Reverse(reversing.ID, "posted to wrong period", testNow))

	assert.Equal(t, JournalStatusReversed, original.Status)
	require.NotNil(t, original.ReversedByID)
	assert.Equal(t, reversing.ID, *original.ReversedByID)

	assert.Equal(t, JournalStatusPosted, reversing.Status)
	require.NotNil(t, reversing.ReversalOfID)
	assert.Equal(t, original.ID, *reversing.ReversalOfID)

	// Amounts swapped, same accounts
	require.Len(t, reversing.Lines, 2)
	assert.Equal(t, original.Lines[0].AccountID, reversing.Lines[0].AccountID)
	assert.True(t, reversing.Lines[0].CreditAmount.Equal(original.Lines[0].DebitAmount))
	assert.True(t, reversing.Lines[1].DebitAmount.Equal(original.Lines[1].CreditAmount))
	assert.True(t, reversing.IsBalanced())

	// Original history is appended to, never rewritten
	events := original.GetUncommittedEvents()
	assert.Len(t, events, originalEventCount+1)
	assert.Equal(t, EventTypeJournalEntryReversed, events[len(events)-1].EventType())
}

func TestJournalEntry_ReverseDraftFails(t *testing.T) {
	je := createTestJournalEntry(t, debitLine(t, "10.00"), creditLine(t, "10.00"))
	var transErr *shared.InvalidStateTransitionError
	assert.ErrorAs(t, je.Reverse(uuid.New(), "nope", testNow), &transErr)
	_, err := NewReversingEntry(je, "JV-X", "nope", testNow)
	assert.ErrorAs(t, err, &transErr)
}

func TestJournalEntry_ReplayDeterminism(t *testing.T) {
	je := createTestJournalEntry(t)
	require.NoError(t, je.AddLine(debitLine(t, "250.00"), testNow))
	require.NoError(t, je.AddLine(creditLine(t, "250.00"), testNow))
	require.NoError(t, je.Post(testNow))

	history := je.GetUncommittedEvents()

	first := NewEmptyJournalEntry()
	require.NoError(t, first.LoadFromHistory(history))
	second := NewEmptyJournalEntry()
	require.NoError(t, second.LoadFromHistory(history))

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.GetVersion(), second.GetVersion())
	assert.Equal(t, len(first.Lines), len(second.Lines))
	assert.Equal(t, je.Status, first.Status)
	d1, c1 := first.Totals()
	d2, c2 := second.Totals()
	assert.True(t, d1.Equal(d2))
	assert.True(t, c1.Equal(c2))
}
