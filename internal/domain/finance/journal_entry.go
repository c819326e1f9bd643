package finance

import (
	"fmt"
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalEntryAggregateType is the aggregate type name used in event streams
const JournalEntryAggregateType = "JournalEntry"

// JournalStatus represents the lifecycle state of a journal entry
type JournalStatus string

const (
	JournalStatusDraft    JournalStatus = "DRAFT"
	JournalStatusPosted   JournalStatus = "POSTED"
	JournalStatusReversed JournalStatus = "REVERSED"
)

// IsValid checks if the status is a valid JournalStatus
func (s JournalStatus) IsValid() bool {
	return s == JournalStatusDraft || s == JournalStatusPosted || s == JournalStatusReversed
}

// String returns the string representation of JournalStatus
func (s JournalStatus) String() string {
	return string(s)
}

// JournalType classifies the origin of a journal entry
type JournalType string

const (
	JournalTypeGeneral    JournalType = "GENERAL"
	JournalTypeSales      JournalType = "SALES"
	JournalTypePurchase   JournalType = "PURCHASE"
	JournalTypeReceipt    JournalType = "RECEIPT"
	JournalTypePayment    JournalType = "PAYMENT"
	JournalTypeAdjustment JournalType = "ADJUSTMENT"
)

// IsValid checks if the journal type is valid
func (t JournalType) IsValid() bool {
	switch t {
	case JournalTypeGeneral, JournalTypeSales, JournalTypePurchase,
		JournalTypeReceipt, JournalTypePayment, JournalTypeAdjustment:
		return true
	}
	return false
}

// JournalLineInput is the caller-supplied form of a journal line
type JournalLineInput struct {
	AccountID    uuid.UUID       `json:"account_id"`
	DebitAmount  decimal.Decimal `json:"debit_amount"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
	Description  string          `json:"description,omitempty"`
}

// JournalLine is one side of a double-entry posting. Exactly one of
// DebitAmount and CreditAmount is non-zero.
type JournalLine struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	DebitAmount  decimal.Decimal `json:"debit_amount"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
	Description  string          `json:"description,omitempty"`
}

// JournalEntry is an event-sourced aggregate enforcing the double-entry
// invariant: an entry may transition to POSTED only when the sum of debits
// equals the sum of credits. The balance is checked at posting time, not at
// creation, since lines are added incrementally while the entry is DRAFT.
type JournalEntry struct {
	shared.BaseAggregateRoot
	JournalNumber    string
	JournalDate      time.Time
	JournalType      JournalType
	Description      string
	Currency         valueobject.Currency
	Lines            []JournalLine
	FiscalPeriod     FiscalPeriod
	Status           JournalStatus
	PostedAt         *time.Time
	ReversalOfID     *uuid.UUID // set on a reversing entry, links back to the original
	ReversedByID     *uuid.UUID // set on the original once reversed
	ReversalReason   string
}

// NewEmptyJournalEntry returns an uninitialized entry for replay
func NewEmptyJournalEntry() *JournalEntry {
	return &JournalEntry{}
}

// CreateJournalEntryInput carries the fields of the create command
type CreateJournalEntryInput struct {
	JournalNumber string
	JournalDate   time.Time
	JournalType   JournalType
	Description   string
	Currency      valueobject.Currency
	Lines         []JournalLineInput
}

// NewJournalEntry validates the create command and emits JournalEntryCreated.
// Lines are optional at creation; balance is only enforced at posting.
func NewJournalEntry(tenantID uuid.UUID, input CreateJournalEntryInput, now time.Time) (*JournalEntry, error) {
	var verr shared.ValidationError

	if input.JournalNumber == "" {
		verr.Add("journal_number", "cannot be empty")
	}
	if len(input.JournalNumber) > 50 {
		verr.Add("journal_number", "cannot exceed 50 characters")
	}
	if input.JournalDate.IsZero() {
		verr.Add("journal_date", "cannot be empty")
	}
	if !input.JournalType.IsValid() {
		verr.Add("journal_type", fmt.Sprintf("unknown journal type %q", input.JournalType))
	}
	if input.Currency == "" {
		input.Currency = valueobject.DefaultCurrency
	}
	if !input.Currency.IsValid() {
		verr.Add("currency", fmt.Sprintf("unknown currency code %q", input.Currency))
	}
	for i, line := range input.Lines {
		validateJournalLineInput(&verr, fmt.Sprintf("lines[%d]", i), line)
	}
	if err := verr.ErrOrNil(); err != nil {
		return nil, err
	}

	je := NewEmptyJournalEntry()
	event := NewJournalEntryCreatedEvent(uuid.New(), tenantID, input, nil, now)
	if err := je.Raise(je, event); err != nil {
		return nil, err
	}
	return je, nil
}

func validateJournalLineInput(verr *shared.ValidationError, field string, line JournalLineInput) {
	if line.AccountID == uuid.Nil {
		verr.Add(field+".account_id", "cannot be empty")
	}
	if line.DebitAmount.IsNegative() || line.CreditAmount.IsNegative() {
		verr.Add(field, "debit and credit amounts cannot be negative")
	}
	debitSet := line.DebitAmount.IsPositive()
	creditSet := line.CreditAmount.IsPositive()
	if debitSet == creditSet {
		verr.Add(field, "exactly one of debit_amount and credit_amount must be non-zero")
	}
}

// AddLine adds a journal line while the entry is DRAFT
func (je *JournalEntry) AddLine(line JournalLineInput, now time.Time) error {
	if je.Status != JournalStatusDraft {
		return shared.NewInvalidStateTransition(JournalEntryAggregateType, "add line to", je.Status.String())
	}
	var verr shared.ValidationError
	validateJournalLineInput(&verr, "line", line)
	if err := verr.ErrOrNil(); err != nil {
		return err
	}
	return je.Raise(je, NewJournalLineAddedEvent(je, uuid.New(), line, now))
}

// Post transitions a DRAFT entry to POSTED. Fails with UnbalancedJournalError
// unless the double-entry invariant holds: sum(debits) == sum(credits) with
// at least one line present.
func (je *JournalEntry) Post(now time.Time) error {
	if je.Status != JournalStatusDraft {
		return shared.NewInvalidStateTransition(JournalEntryAggregateType, "post", je.Status.String())
	}
	if len(je.Lines) == 0 {
		var verr shared.ValidationError
		verr.Add("lines", "at least one line is required to post")
		return &verr
	}
	debits, credits := je.Totals()
	if !debits.Equal(credits) {
		return &UnbalancedJournalError{TotalDebits: debits, TotalCredits: credits}
	}
	return je.Raise(je, NewJournalEntryPostedEvent(je, debits, credits, now))
}

// Reverse marks a POSTED entry as REVERSED, linked to the reversing entry.
// The original entry's events are never modified; the reversal is an
// appended fact, preserving the append-only audit trail.
func (je *JournalEntry) Reverse(reversingEntryID uuid.UUID, reason string, now time.Time) error {
	if je.Status != JournalStatusPosted {
		return shared.NewInvalidStateTransition(JournalEntryAggregateType, "reverse", je.Status.String())
	}
	if reversingEntryID == uuid.Nil {
		var verr shared.ValidationError
		verr.Add("reversing_entry_id", "cannot be empty")
		return &verr
	}
	return je.Raise(je, NewJournalEntryReversedEvent(je, reversingEntryID, reason, now))
}

// NewReversingEntry builds and posts the linked reversing entry for a POSTED
// original: same accounts, debit and credit amounts swapped. The caller saves
// both aggregates; Reverse on the original records the link.
func NewReversingEntry(original *JournalEntry, journalNumber string, reason string, now time.Time) (*JournalEntry, error) {
	if original.Status != JournalStatusPosted {
		return nil, shared.NewInvalidStateTransition(JournalEntryAggregateType, "reverse", original.Status.String())
	}
	lines := make([]JournalLineInput, 0, len(original.Lines))
	for _, l := range original.Lines {
		lines = append(lines, JournalLineInput{
			AccountID:    l.AccountID,
			DebitAmount:  l.CreditAmount,
			CreditAmount: l.DebitAmount,
			Description:  l.Description,
		})
	}
	input := CreateJournalEntryInput{
		JournalNumber: journalNumber,
		JournalDate:   now,
		JournalType:   JournalTypeAdjustment,
		Description:   fmt.Sprintf("Reversal of %s: %s", original.JournalNumber, reason),
		Currency:      original.Currency,
		Lines:         lines,
	}

	je := NewEmptyJournalEntry()
	originalID := original.ID
	event := NewJournalEntryCreatedEvent(uuid.New(), original.TenantID, input, &originalID, now)
	if err := je.Raise(je, event); err != nil {
		return nil, err
	}
	if err := je.Post(now); err != nil {
		return nil, err
	}
	return je, nil
}

// Totals returns the debit and credit sums across all lines
func (je *JournalEntry) Totals() (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, l := range je.Lines {
		debits = debits.Add(l.DebitAmount)
		credits = credits.Add(l.CreditAmount)
	}
	return debits, credits
}

// IsBalanced reports whether the double-entry invariant currently holds
func (je *JournalEntry) IsBalanced() bool {
	debits, credits := je.Totals()
	return debits.Equal(credits)
}

// LoadFromHistory rehydrates the entry by replaying its event stream
func (je *JournalEntry) LoadFromHistory(events []shared.DomainEvent) error {
	return je.Replay(je, events)
}

// ApplyEvent is the pure state transition of the JournalEntry aggregate
func (je *JournalEntry) ApplyEvent(event shared.DomainEvent) error {
	switch e := event.(type) {
	case *JournalEntryCreatedEvent:
		je.ID = e.AggregateID()
		je.TenantID = e.TenantID()
		je.JournalNumber = e.JournalNumber
		je.JournalDate = e.JournalDate
		je.JournalType = e.JournalType
		je.Description = e.Description
		je.Currency = e.Currency
		je.FiscalPeriod = e.FiscalPeriod
		je.ReversalOfID = e.ReversalOfID
		je.Status = JournalStatusDraft
		je.Lines = make([]JournalLine, 0, len(e.Lines))
		for _, l := range e.Lines {
			je.Lines = append(je.Lines, JournalLine{
				ID:           l.LineID,
				AccountID:    l.AccountID,
				DebitAmount:  l.DebitAmount,
				CreditAmount: l.CreditAmount,
				Description:  l.Description,
			})
		}
	case *JournalLineAddedEvent:
		je.Lines = append(je.Lines, JournalLine{
			ID:           e.LineID,
			AccountID:    e.AccountID,
			DebitAmount:  e.DebitAmount,
			CreditAmount: e.CreditAmount,
			Description:  e.LineDescription,
		})
	case *JournalEntryPostedEvent:
		je.Status = JournalStatusPosted
		at := e.OccurredAt()
		je.PostedAt = &at
	case *JournalEntryReversedEvent:
		je.Status = JournalStatusReversed
		reversedBy := e.ReversingEntryID
		je.ReversedByID = &reversedBy
		je.ReversalReason = e.Reason
	default:
		return fmt.Errorf("journal entry cannot apply event type %s", event.EventType())
	}
	return nil
}

// Ensure JournalEntry implements AggregateRoot
var _ shared.AggregateRoot = (*JournalEntry)(nil)
