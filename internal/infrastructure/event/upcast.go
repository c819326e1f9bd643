package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/finledger/backend/internal/domain/finance"
)

// MapUpcaster implements Upcaster with a map-level transform. Working on
// map[string]any keeps the transform independent of the Go structs, so an
// upcaster keeps working even after the old struct version is deleted.
type MapUpcaster struct {
	source    int
	target    int
	transform func(doc map[string]any) (map[string]any, error)
}

// NewMapUpcaster creates an upcaster from sourceVersion to sourceVersion+1
func NewMapUpcaster(sourceVersion int, transform func(doc map[string]any) (map[string]any, error)) *MapUpcaster {
	return &MapUpcaster{source: sourceVersion, target: sourceVersion + 1, transform: transform}
}

func (u *MapUpcaster) SourceVersion() int { return u.source }
func (u *MapUpcaster) TargetVersion() int { return u.target }

func (u *MapUpcaster) Upcast(payload []byte) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	doc, err := u.transform(doc)
	if err != nil {
		return nil, err
	}
	doc["schema_version"] = u.target
	return json.Marshal(doc)
}

// InvoiceCreatedV1ToV2 upgrades InvoiceCreated payloads written before the
// fiscal_period field existed. The period is derived from invoice_date, the
// same rule the aggregate applies when creating new invoices.
func InvoiceCreatedV1ToV2() Upcaster {
	return NewMapUpcaster(1, func(doc map[string]any) (map[string]any, error) {
		if _, ok := doc["fiscal_period"]; ok {
			return doc, nil
		}
		raw, ok := doc["invoice_date"].(string)
		if !ok {
			return nil, fmt.Errorf("invoice_date missing or not a string")
		}
		invoiceDate, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("parse invoice_date: %w", err)
		}
		doc["fiscal_period"] = string(finance.FiscalPeriodOf(invoiceDate))
		return doc, nil
	})
}

// RegisterLedgerEvents registers every ledger domain event with the
// serializer. Both the stream store and the outbox processor need this to
// rehydrate payloads.
func RegisterLedgerEvents(s *Serializer) error {
	if err := s.RegisterVersioned(
		finance.EventTypeInvoiceCreated,
		finance.InvoiceCreatedSchemaVersion,
		&finance.InvoiceCreatedEvent{},
		InvoiceCreatedV1ToV2(),
	); err != nil {
		return err
	}

	s.Register(finance.EventTypeInvoiceLineItemAdded, &finance.InvoiceLineItemAddedEvent{})
	s.Register(finance.EventTypeInvoiceLineItemRemoved, &finance.InvoiceLineItemRemovedEvent{})
	s.Register(finance.EventTypeInvoiceSubmitted, &finance.InvoiceSubmittedEvent{})
	s.Register(finance.EventTypeInvoiceApproved, &finance.InvoiceApprovedEvent{})
	s.Register(finance.EventTypeInvoicePaymentReceived, &finance.InvoicePaymentReceivedEvent{})
	s.Register(finance.EventTypeInvoiceCancelled, &finance.InvoiceCancelledEvent{})

	s.Register(finance.EventTypePaymentInitiated, &finance.PaymentInitiatedEvent{})
	s.Register(finance.EventTypePaymentCompleted, &finance.PaymentCompletedEvent{})
	s.Register(finance.EventTypePaymentFailed, &finance.PaymentFailedEvent{})
	s.Register(finance.EventTypePaymentReconciled, &finance.PaymentReconciledEvent{})
	s.Register(finance.EventTypePaymentReversed, &finance.PaymentReversedEvent{})

	s.Register(finance.EventTypeJournalEntryCreated, &finance.JournalEntryCreatedEvent{})
	s.Register(finance.EventTypeJournalLineAdded, &finance.JournalLineAddedEvent{})
	s.Register(finance.EventTypeJournalEntryPosted, &finance.JournalEntryPostedEvent{})
	s.Register(finance.EventTypeJournalEntryReversed, &finance.JournalEntryReversedEvent{})

	return nil
}
