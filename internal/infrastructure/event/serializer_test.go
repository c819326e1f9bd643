package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializer_RoundTrip(t *testing.T) {
	s := NewSerializer()
	s.Register("TestEvent", &testEvent{})

	original := newTestEvent("TestEvent", uuid.New())
	payload, err := s.Serialize(original)
	require.NoError(t, err)

	decoded, err := s.Deserialize("TestEvent", payload)
	require.NoError(t, err)

	restored, ok := decoded.(*testEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), restored.EventID())
	assert.Equal(t, original.TenantID(), restored.TenantID())
	assert.Equal(t, "test data", restored.Data)
}

func TestSerializer_UnknownType(t *testing.T) {
	s := NewSerializer()
	_, err := s.Deserialize("Mystery", []byte(`{}`))
	assert.Error(t, err)
}

func TestSerializer_RegisterVersionedRejectsGaps(t *testing.T) {
	s := NewSerializer()
	err := s.RegisterVersioned("TestEvent", 3, &testEvent{}, NewMapUpcaster(1, func(doc map[string]any) (map[string]any, error) {
		return doc, nil
	}))
	assert.Error(t, err, "missing the 2 -> 3 upcaster")
}

func TestPayloadSchemaVersion(t *testing.T) {
	assert.Equal(t, 1, PayloadSchemaVersion([]byte(`{"type":"X"}`)))
	assert.Equal(t, 1, PayloadSchemaVersion([]byte(`not json`)))
	assert.Equal(t, 2, PayloadSchemaVersion([]byte(`{"schema_version":2}`)))
}

func TestInvoiceCreatedV1ToV2_DerivesFiscalPeriod(t *testing.T) {
	s := NewSerializer()
	require.NoError(t, RegisterLedgerEvents(s))

	// A v1 payload: no schema_version, no fiscal_period. August 2025 falls
	// in P02 of the July-June fiscal year.
	v1 := map[string]any{
		"id":             uuid.New().String(),
		"type":           finance.EventTypeInvoiceCreated,
		"timestamp":      "2025-08-15T10:00:00Z",
		"aggregate_id":   uuid.New().String(),
		"aggregate_type": finance.InvoiceAggregateType,
		"tenant_id":      uuid.New().String(),
		"invoice_number": "INV-1001",
		"vendor_id":      uuid.New().String(),
		"customer_id":    uuid.New().String(),
		"currency":       "BDT",
		"lines":          []any{},
		"invoice_date":   "2025-08-15T00:00:00Z",
		"due_date":       "2025-09-15T00:00:00Z",
	}
	payload, err := json.Marshal(v1)
	require.NoError(t, err)

	decoded, err := s.Deserialize(finance.EventTypeInvoiceCreated, payload)
	require.NoError(t, err)

	created, ok := decoded.(*finance.InvoiceCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, finance.FiscalPeriod("FY2025-2026-P02"), created.FiscalPeriod)
}

func TestInvoiceCreatedV1ToV2_LeavesExistingPeriodAlone(t *testing.T) {
	up := InvoiceCreatedV1ToV2()
	payload := []byte(`{"invoice_date":"2025-08-15T00:00:00Z","fiscal_period":"FY2024-2025-P11"}`)

	out, err := up.Upcast(payload)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "FY2024-2025-P11", doc["fiscal_period"])
	assert.EqualValues(t, 2, doc["schema_version"])
}

func TestInvoiceCreatedV1ToV2_MissingDate(t *testing.T) {
	up := InvoiceCreatedV1ToV2()
	_, err := up.Upcast([]byte(`{"invoice_number":"INV-1"}`))
	assert.Error(t, err)
}

func TestRegisterLedgerEvents_CurrentEventsRoundTrip(t *testing.T) {
	s := NewSerializer()
	require.NoError(t, RegisterLedgerEvents(s))

	now := time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	tenantID := uuid.New()

	unitPrice, err := valueobject.NewMoney(decimal.NewFromInt(100), valueobject.BDT)
	require.NoError(t, err)

	inv, err := finance.NewInvoice(tenantID, finance.CreateInvoiceInput{
		InvoiceNumber: "INV-2001",
		VendorID:      uuid.New(),
		CustomerID:    uuid.New(),
		Currency:      valueobject.BDT,
		LineItems: []finance.LineItemInput{{
			Description: "Consulting",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   unitPrice.Amount(),
			VATRate:     decimal.NewFromInt(15),
		}},
		InvoiceDate: now,
		DueDate:     now.AddDate(0, 1, 0),
	}, now)
	require.NoError(t, err)

	created := inv.GetUncommittedEvents()[0]
	payload, err := s.Serialize(created)
	require.NoError(t, err)

	// Current payloads carry schema_version 2 and skip the upcaster.
	assert.Equal(t, finance.InvoiceCreatedSchemaVersion, PayloadSchemaVersion(payload))

	decoded, err := s.Deserialize(created.EventType(), payload)
	require.NoError(t, err)

	restored, ok := decoded.(*finance.InvoiceCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, created.EventID(), restored.EventID())
	assert.Len(t, restored.Lines, 1)
	assert.Equal(t, finance.FiscalPeriod("FY2025-2026-P02"), restored.FiscalPeriod)

	// Replaying the decoded event reproduces the aggregate.
	replayed := finance.NewEmptyInvoice()
	require.NoError(t, replayed.LoadFromHistory([]shared.DomainEvent{restored}))
	assert.Equal(t, inv.Subtotal.String(), replayed.Subtotal.String())
	assert.Equal(t, inv.GrandTotal.String(), replayed.GrandTotal.String())
}
