package finance

import (
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalEntry event type names
const (
	EventTypeJournalEntryCreated  = "JournalEntryCreated"
	EventTypeJournalLineAdded     = "JournalLineAdded"
	EventTypeJournalEntryPosted   = "JournalEntryPosted"
	EventTypeJournalEntryReversed = "JournalEntryReversed"
)

// CreatedJournalLine pairs a generated line ID with the line data so that
// replay reproduces identical line identities
type CreatedJournalLine struct {
	LineID       uuid.UUID       `json:"line_id"`
	AccountID    uuid.UUID       `json:"account_id"`
	DebitAmount  decimal.Decimal `json:"debit_amount"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
	Description  string          `json:"description,omitempty"`
}

// JournalEntryCreatedEvent is raised when a new journal entry is created in DRAFT
type JournalEntryCreatedEvent struct {
	shared.BaseDomainEvent
	JournalNumber string               `json:"journal_number"`
	JournalDate   time.Time            `json:"journal_date"`
	JournalType   JournalType          `json:"journal_type"`
	Description   string               `json:"description,omitempty"`
	Currency      valueobject.Currency `json:"currency"`
	FiscalPeriod  FiscalPeriod         `json:"fiscal_period"`
	Lines         []CreatedJournalLine `json:"lines"`
	ReversalOfID  *uuid.UUID           `json:"reversal_of_id,omitempty"`
}

// EventType returns the event type name
func (e *JournalEntryCreatedEvent) EventType() string {
	return EventTypeJournalEntryCreated
}

// NewJournalEntryCreatedEvent creates a new JournalEntryCreatedEvent.
// reversalOfID is non-nil only for reversing entries.
func NewJournalEntryCreatedEvent(journalID, tenantID uuid.UUID, input CreateJournalEntryInput, reversalOfID *uuid.UUID, now time.Time) *JournalEntryCreatedEvent {
	lines := make([]CreatedJournalLine, 0, len(input.Lines))
	for _, l := range input.Lines {
		lines = append(lines, CreatedJournalLine{
			LineID:       uuid.New(),
			AccountID:    l.AccountID,
			DebitAmount:  l.DebitAmount,
			CreditAmount: l.CreditAmount,
			Description:  l.Description,
		})
	}
	return &JournalEntryCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalEntryCreated, JournalEntryAggregateType, journalID, tenantID, now),
		JournalNumber:   input.JournalNumber,
		JournalDate:     input.JournalDate,
		JournalType:     input.JournalType,
		Description:     input.Description,
		Currency:        input.Currency,
		FiscalPeriod:    FiscalPeriodOf(input.JournalDate),
		Lines:           lines,
		ReversalOfID:    reversalOfID,
	}
}

// JournalLineAddedEvent is raised when a line is added to a DRAFT entry
type JournalLineAddedEvent struct {
	shared.BaseDomainEvent
	LineID          uuid.UUID       `json:"line_id"`
	AccountID       uuid.UUID       `json:"account_id"`
	DebitAmount     decimal.Decimal `json:"debit_amount"`
	CreditAmount    decimal.Decimal `json:"credit_amount"`
	LineDescription string          `json:"line_description,omitempty"`
}

// EventType returns the event type name
func (e *JournalLineAddedEvent) EventType() string {
	return EventTypeJournalLineAdded
}

// NewJournalLineAddedEvent creates a new JournalLineAddedEvent
func NewJournalLineAddedEvent(je *JournalEntry, lineID uuid.UUID, line JournalLineInput, now time.Time) *JournalLineAddedEvent {
	return &JournalLineAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalLineAdded, JournalEntryAggregateType, je.ID, je.TenantID, now),
		LineID:          lineID,
		AccountID:       line.AccountID,
		DebitAmount:     line.DebitAmount,
		CreditAmount:    line.CreditAmount,
		LineDescription: line.Description,
	}
}

// JournalEntryPostedEvent is raised when a balanced entry transitions to POSTED
type JournalEntryPostedEvent struct {
	shared.BaseDomainEvent
	JournalNumber string          `json:"journal_number"`
	FiscalPeriod  FiscalPeriod    `json:"fiscal_period"`
	TotalDebits   decimal.Decimal `json:"total_debits"`
	TotalCredits  decimal.Decimal `json:"total_credits"`
}

// EventType returns the event type name
func (e *JournalEntryPostedEvent) EventType() string {
	return EventTypeJournalEntryPosted
}

// NewJournalEntryPostedEvent creates a new JournalEntryPostedEvent
func NewJournalEntryPostedEvent(je *JournalEntry, debits, credits decimal.Decimal, now time.Time) *JournalEntryPostedEvent {
	return &JournalEntryPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalEntryPosted, JournalEntryAggregateType, je.ID, je.TenantID, now),
		JournalNumber:   je.JournalNumber,
		FiscalPeriod:    je.FiscalPeriod,
		TotalDebits:     debits,
		TotalCredits:    credits,
	}
}

// JournalEntryReversedEvent is raised on the original entry when a reversing
// entry is created. The original lines stay untouched.
type JournalEntryReversedEvent struct {
	shared.BaseDomainEvent
	ReversingEntryID uuid.UUID `json:"reversing_entry_id"`
	Reason           string    `json:"reason,omitempty"`
}

// EventType returns the event type name
func (e *JournalEntryReversedEvent) EventType() string {
	return EventTypeJournalEntryReversed
}

// NewJournalEntryReversedEvent creates a new JournalEntryReversedEvent
func NewJournalEntryReversedEvent(je *JournalEntry, reversingEntryID uuid.UUID, reason string, now time.Time) *JournalEntryReversedEvent {
	return &JournalEntryReversedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeJournalEntryReversed, JournalEntryAggregateType, je.ID, je.TenantID, now),
		ReversingEntryID: reversingEntryID,
		Reason:           reason,
	}
}
