package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finledger/backend/internal/domain/finance"
)

// LineItems is a slice of finance.LineItem that implements GORM Scanner/Valuer
// for JSONB storage. The invoice read model keeps its lines denormalized in one
// column; nothing queries individual invoice lines.
type LineItems []finance.LineItem

// Value implements driver.Valuer for GORM to write to JSONB
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for GORM to read from JSONB
func (l *LineItems) Scan(value interface{}) error {
	if value == nil {
		*l = LineItems{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan LineItems: unsupported type")
	}

	if len(bytes) == 0 {
		*l = LineItems{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// InvoiceReadModel is the denormalized invoice row maintained by the invoice
// projection. It mirrors the aggregate's current state and is never written
// by anything except the projection handler.
type InvoiceReadModel struct {
	ReadModelBase
	InvoiceNumber     string          `gorm:"type:varchar(50);not null;index:idx_invoice_rm_tenant_number,priority:2"`
	VendorID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Currency          string          `gorm:"type:varchar(3);not null"`
	LineItems         LineItems       `gorm:"type:jsonb;default:'[]'"`
	Subtotal          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	VATAmount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SupplementaryDuty decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AdvanceIncomeTax  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	GrandTotal        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PaidAmount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status            string          `gorm:"type:varchar(20);not null;index"`
	FiscalYear        string          `gorm:"type:varchar(20);not null"`
	FiscalPeriod      string          `gorm:"type:varchar(20);not null;index"`
	InvoiceDate       time.Time       `gorm:"not null"`
	DueDate           time.Time       `gorm:"not null"`
	TaxDocumentNumber string          `gorm:"type:varchar(50)"`
	CancelReason      string          `gorm:"type:varchar(500)"`
	CancelledAt       *time.Time
}

// TableName returns the table name for GORM
func (InvoiceReadModel) TableName() string {
	return "invoice_read_models"
}

// PaymentReadModel is the denormalized payment row maintained by the payment
// projection.
type PaymentReadModel struct {
	ReadModelBase
	InvoiceID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	Method         string          `gorm:"type:varchar(20);not null"`
	Status         string          `gorm:"type:varchar(20);not null;index"`
	PaymentDate    time.Time       `gorm:"not null"`
	Reference      string          `gorm:"type:varchar(100)"`
	FailureReason  string          `gorm:"type:varchar(500)"`
	ReconciledAt   *time.Time
	ReconciledRef  string `gorm:"type:varchar(100)"`
	ReversedAt     *time.Time
	ReversalReason string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PaymentReadModel) TableName() string {
	return "payment_read_models"
}

// JournalEntryReadModel is the denormalized journal header row. Its lines live
// in journal_line_read_models so the trial balance can aggregate them in SQL.
type JournalEntryReadModel struct {
	ReadModelBase
	JournalNumber  string          `gorm:"type:varchar(50);not null;index:idx_journal_rm_tenant_number,priority:2"`
	JournalDate    time.Time       `gorm:"not null"`
	JournalType    string          `gorm:"type:varchar(20);not null;index"`
	Description    string          `gorm:"type:varchar(500)"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	FiscalPeriod   string          `gorm:"type:varchar(20);not null;index"`
	Status         string          `gorm:"type:varchar(20);not null;index"`
	TotalDebit     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalCredit    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PostedAt       *time.Time
	ReversalOfID   *uuid.UUID `gorm:"type:uuid;index"`
	ReversedByID   *uuid.UUID `gorm:"type:uuid"`
	ReversalReason string     `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (JournalEntryReadModel) TableName() string {
	return "journal_entry_read_models"
}

// JournalLineReadModel is one journal line, denormalized with the fields the
// trial balance groups on so the report is a single aggregate query.
type JournalLineReadModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	EntryID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	TenantID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_journal_line_rm_scope,priority:1"`
	FiscalPeriod string          `gorm:"type:varchar(20);not null;index:idx_journal_line_rm_scope,priority:2"`
	EntryStatus  string          `gorm:"type:varchar(20);not null;index:idx_journal_line_rm_scope,priority:3"`
	AccountID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position     int             `gorm:"not null"`
	DebitAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreditAmount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Description  string          `gorm:"type:varchar(500)"`
	CreatedAt    time.Time       `gorm:"not null"`
	UpdatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (JournalLineReadModel) TableName() string {
	return "journal_line_read_models"
}

// TrialBalanceRow is one account's totals within a fiscal period, aggregated
// over the lines of posted journal entries.
type TrialBalanceRow struct {
	AccountID   uuid.UUID       `json:"account_id"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
}
