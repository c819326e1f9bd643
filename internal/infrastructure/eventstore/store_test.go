package eventstore

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/finledger/backend/internal/infrastructure/event"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)

func setupStoreDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&StoredEvent{}))
	return db
}

func newTestSerializer(t *testing.T) *event.Serializer {
	t.Helper()
	s := event.NewSerializer()
	require.NoError(t, event.RegisterLedgerEvents(s))
	return s
}

// capturedSaver records the events the store hands to the outbox inside the
// append transaction.
type capturedSaver struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (c *capturedSaver) SaveEvents(ctx context.Context, txProvider interface{}, events ...shared.DomainEvent) error {
	if _, ok := txProvider.(*gorm.DB); !ok {
		panic("expected a *gorm.DB transaction")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
	return nil
}

func newDraftInvoice(t *testing.T, tenantID uuid.UUID) *finance.Invoice {
	t.Helper()
	inv, err := finance.NewInvoice(tenantID, finance.CreateInvoiceInput{
		InvoiceNumber: "INV-3001",
		VendorID:      uuid.New(),
		CustomerID:    uuid.New(),
		Currency:      valueobject.BDT,
		LineItems: []finance.LineItemInput{{
			Description: "Audit services",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(500),
			VATRate:     decimal.NewFromInt(15),
		}},
		InvoiceDate: testNow,
		DueDate:     testNow.AddDate(0, 1, 0),
	}, testNow)
	require.NoError(t, err)
	return inv
}

func TestGormEventStore_AppendAndLoad(t *testing.T) {
	db := setupStoreDB(t)
	store := NewGormEventStore(db, newTestSerializer(t), nil)
	ctx := context.Background()

	tenantID := uuid.New()
	inv := newDraftInvoice(t, tenantID)
	require.NoError(t, inv.Submit(testNow))

	events := inv.GetUncommittedEvents()
	require.Len(t, events, 2)
	require.NoError(t, store.AppendToStream(ctx, tenantID, inv.GetID(), 0, events))

	loaded, err := store.LoadStream(ctx, tenantID, inv.GetID())
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, finance.EventTypeInvoiceCreated, loaded[0].EventType())
	assert.Equal(t, finance.EventTypeInvoiceSubmitted, loaded[1].EventType())
	assert.Equal(t, events[0].EventID(), loaded[0].EventID())

	version, err := store.StreamVersion(ctx, tenantID, inv.GetID())
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestGormEventStore_EmptyStreamNotFound(t *testing.T) {
	db := setupStoreDB(t)
	store := NewGormEventStore(db, newTestSerializer(t), nil)

	_, err := store.LoadStream(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrAggregateNotFound)

	version, err := store.StreamVersion(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestGormEventStore_StaleExpectedVersionConflicts(t *testing.T) {
	db := setupStoreDB(t)
	store := NewGormEventStore(db, newTestSerializer(t), nil)
	ctx := context.Background()

	tenantID := uuid.New()
	inv := newDraftInvoice(t, tenantID)
	require.NoError(t, store.AppendToStream(ctx, tenantID, inv.GetID(), 0, inv.GetUncommittedEvents()))

	// A second writer still at version 0 must lose.
	stale := newDraftInvoice(t, tenantID)
	err := store.AppendToStream(ctx, tenantID, inv.GetID(), 0, stale.GetUncommittedEvents())
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	// The losing append must not have written anything.
	version, err := store.StreamVersion(ctx, tenantID, inv.GetID())
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestGormEventStore_AppendIsAtomicWithOutbox(t *testing.T) {
	db := setupStoreDB(t)
	saver := &capturedSaver{}
	store := NewGormEventStore(db, newTestSerializer(t), saver)
	ctx := context.Background()

	tenantID := uuid.New()
	inv := newDraftInvoice(t, tenantID)
	events := inv.GetUncommittedEvents()
	require.NoError(t, store.AppendToStream(ctx, tenantID, inv.GetID(), 0, events))

	require.Len(t, saver.events, len(events))
	assert.Equal(t, events[0].EventID(), saver.events[0].EventID())
}

func TestGormEventStore_AppendNothingIsNoop(t *testing.T) {
	db := setupStoreDB(t)
	store := NewGormEventStore(db, newTestSerializer(t), nil)

	require.NoError(t, store.AppendToStream(context.Background(), uuid.New(), uuid.New(), 0, nil))
}

func TestGormEventStore_TenantIsolation(t *testing.T) {
	db := setupStoreDB(t)
	store := NewGormEventStore(db, newTestSerializer(t), nil)
	ctx := context.Background()

	tenantA := uuid.New()
	tenantB := uuid.New()
	inv := newDraftInvoice(t, tenantA)
	require.NoError(t, store.AppendToStream(ctx, tenantA, inv.GetID(), 0, inv.GetUncommittedEvents()))

	_, err := store.LoadStream(ctx, tenantB, inv.GetID())
	assert.ErrorIs(t, err, shared.ErrAggregateNotFound)
}

func TestGormEventStore_LoadAllByAggregateType(t *testing.T) {
	db := setupStoreDB(t)
	store := NewGormEventStore(db, newTestSerializer(t), nil)
	ctx := context.Background()

	tenantID := uuid.New()
	first := newDraftInvoice(t, tenantID)
	require.NoError(t, store.AppendToStream(ctx, tenantID, first.GetID(), 0, first.GetUncommittedEvents()))

	second := newDraftInvoice(t, tenantID)
	require.NoError(t, store.AppendToStream(ctx, tenantID, second.GetID(), 0, second.GetUncommittedEvents()))

	// A payment stream must not leak into the invoice rebuild feed.
	amount, err := valueobject.NewMoney(decimal.NewFromInt(100), valueobject.BDT)
	require.NoError(t, err)
	payment, err := finance.NewPayment(tenantID, finance.CreatePaymentInput{
		InvoiceID:   first.GetID(),
		Amount:      amount,
		Method:      finance.PaymentMethodBankTransfer,
		PaymentDate: testNow,
	}, testNow)
	require.NoError(t, err)
	require.NoError(t, store.AppendToStream(ctx, tenantID, payment.GetID(), 0, payment.GetUncommittedEvents()))

	all, err := store.LoadAllByAggregateType(ctx, tenantID, finance.InvoiceAggregateType)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.GetID(), all[0].AggregateID(), "commit order preserved")
	assert.Equal(t, second.GetID(), all[1].AggregateID())
}

func TestGormEventStore_UpcastsStalePayloadOnLoad(t *testing.T) {
	db := setupStoreDB(t)
	store := NewGormEventStore(db, newTestSerializer(t), nil)
	ctx := context.Background()

	tenantID := uuid.New()
	aggregateID := uuid.New()

	// Insert a raw v1 row the way a pre-upgrade deployment would have
	// written it: no schema_version, no fiscal_period.
	v1 := map[string]any{
		"id":             uuid.New().String(),
		"type":           finance.EventTypeInvoiceCreated,
		"timestamp":      testNow.Format(time.RFC3339),
		"aggregate_id":   aggregateID.String(),
		"aggregate_type": finance.InvoiceAggregateType,
		"tenant_id":      tenantID.String(),
		"invoice_number": "INV-OLD-1",
		"vendor_id":      uuid.New().String(),
		"customer_id":    uuid.New().String(),
		"currency":       "BDT",
		"lines":          []any{},
		"invoice_date":   "2025-02-10T00:00:00Z",
		"due_date":       "2025-03-10T00:00:00Z",
	}
	payload, err := json.Marshal(v1)
	require.NoError(t, err)

	row := &StoredEvent{
		TenantID:      tenantID,
		AggregateID:   aggregateID,
		AggregateType: finance.InvoiceAggregateType,
		StreamVersion: 1,
		EventID:       uuid.New(),
		EventType:     finance.EventTypeInvoiceCreated,
		SchemaVersion: 1,
		Payload:       payload,
		OccurredAt:    testNow,
	}
	require.NoError(t, db.Create(row).Error)

	loaded, err := store.LoadStream(ctx, tenantID, aggregateID)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	created, ok := loaded[0].(*finance.InvoiceCreatedEvent)
	require.True(t, ok)
	// February belongs to P08 of the prior-year fiscal year.
	assert.Equal(t, finance.FiscalPeriod("FY2024-2025-P08"), created.FiscalPeriod)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.False(t, isUniqueViolation(context.Canceled))
}
