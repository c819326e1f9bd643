package finance

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finledger/backend/internal/domain/shared"
)

// ErrPaymentAlreadyApplied is returned when a payment ID the invoice has
// already recorded is applied a second time. Process handlers treat it as a
// duplicate-delivery no-op.
var ErrPaymentAlreadyApplied = shared.NewDomainError("PAYMENT_ALREADY_APPLIED",
	"payment has already been applied to this invoice")

// UnbalancedJournalError is returned when a journal entry is posted with
// unequal debit and credit totals. Carries the exact delta for diagnostics;
// this error must always be loud.
type UnbalancedJournalError struct {
	TotalDebits  decimal.Decimal `json:"total_debits"`
	TotalCredits decimal.Decimal `json:"total_credits"`
}

// Delta returns debits minus credits
func (e *UnbalancedJournalError) Delta() decimal.Decimal {
	return e.TotalDebits.Sub(e.TotalCredits)
}

// Error implements the error interface
func (e *UnbalancedJournalError) Error() string {
	return fmt.Sprintf("journal entry does not balance: debits %s, credits %s, delta %s",
		e.TotalDebits.String(), e.TotalCredits.String(), e.Delta().String())
}
