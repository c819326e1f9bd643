package finance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/finledger/backend/internal/infrastructure/event"
	"github.com/finledger/backend/internal/infrastructure/eventstore"
	"github.com/finledger/backend/internal/infrastructure/persistence"
	"github.com/finledger/backend/internal/infrastructure/persistence/models"
)

var testNow = time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)

// committedRecorder collects events in commit order so tests can feed them to
// projection handlers the way the outbox processor would.
type committedRecorder struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (r *committedRecorder) SaveEvents(_ context.Context, _ interface{}, events ...shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

// Drain returns and forgets everything recorded so far
func (r *committedRecorder) Drain() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

// testEnv wires the full command/projection/query path against a single
// in-memory database.
type testEnv struct {
	db       *gorm.DB
	store    *eventstore.GormEventStore
	recorder *committedRecorder

	invoices finance.InvoiceRepository
	payments finance.PaymentRepository
	journals finance.JournalEntryRepository

	invoiceReads persistence.InvoiceReadRepository
	paymentReads persistence.PaymentReadRepository
	journalReads persistence.JournalReadRepository

	invoiceCommands *InvoiceCommandService
	paymentCommands *PaymentCommandService
	journalCommands *JournalCommandService

	invoiceProjection *InvoiceProjection
	paymentProjection *PaymentProjection
	journalProjection *JournalProjection
	paymentCompleted  *PaymentCompletedHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&eventstore.StoredEvent{},
		&models.InvoiceReadModel{},
		&models.PaymentReadModel{},
		&models.JournalEntryReadModel{},
		&models.JournalLineReadModel{},
	))

	serializer := event.NewSerializer()
	require.NoError(t, event.RegisterLedgerEvents(serializer))

	recorder := &committedRecorder{}
	store := eventstore.NewGormEventStore(db, serializer, recorder)

	env := &testEnv{
		db:       db,
		store:    store,
		recorder: recorder,

		invoices: eventstore.NewInvoiceRepository(store),
		payments: eventstore.NewPaymentRepository(store),
		journals: eventstore.NewJournalEntryRepository(store),

		invoiceReads: persistence.NewGormInvoiceReadRepository(db),
		paymentReads: persistence.NewGormPaymentReadRepository(db),
		journalReads: persistence.NewGormJournalReadRepository(db),
	}

	clock := shared.FixedClock{Instant: testNow}
	logger := zap.NewNop()

	env.invoiceCommands = NewInvoiceCommandService(env.invoices, clock, logger)
	env.paymentCommands = NewPaymentCommandService(env.payments, clock, logger)
	env.journalCommands = NewJournalCommandService(env.journals, clock, logger)

	env.invoiceProjection = NewInvoiceProjection(env.invoices, env.invoiceReads, logger)
	env.paymentProjection = NewPaymentProjection(env.payments, env.paymentReads, logger)
	env.journalProjection = NewJournalProjection(env.journals, env.journalReads, logger)
	env.paymentCompleted = NewPaymentCompletedHandler(env.payments, env.invoiceCommands, logger)

	return env
}

// project routes every recorded event to its projection handler, simulating
// in-order outbox delivery. The payment process handler is not included;
// tests drive it explicitly.
func (env *testEnv) project(t *testing.T, ctx context.Context) {
	t.Helper()
	for _, ev := range env.recorder.Drain() {
		var err error
		switch ev.AggregateType() {
		case finance.InvoiceAggregateType:
			err = env.invoiceProjection.Handle(ctx, ev)
		case finance.PaymentAggregateType:
			err = env.paymentProjection.Handle(ctx, ev)
		case finance.JournalEntryAggregateType:
			err = env.journalProjection.Handle(ctx, ev)
		}
		require.NoError(t, err)
	}
}

func testActor() Actor {
	return Actor{TenantID: uuid.New(), UserID: uuid.New()}
}

func invoiceInput() finance.CreateInvoiceInput {
	return finance.CreateInvoiceInput{
		InvoiceNumber: "INV-2025-0001",
		VendorID:      uuid.New(),
		CustomerID:    uuid.New(),
		Currency:      valueobject.BDT,
		LineItems: []finance.LineItemInput{{
			Description: "Consulting services",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.NewFromInt(100),
			VATRate:     decimal.NewFromInt(15),
		}},
		InvoiceDate: testNow,
		DueDate:     testNow.AddDate(0, 1, 0),
	}
}

func journalInput(debitAccount, creditAccount uuid.UUID, debit, credit decimal.Decimal) finance.CreateJournalEntryInput {
	return finance.CreateJournalEntryInput{
		JournalNumber: "JE-2025-0001",
		JournalDate:   testNow,
		JournalType:   finance.JournalTypeGeneral,
		Description:   "Monthly accrual",
		Currency:      valueobject.BDT,
		Lines: []finance.JournalLineInput{
			{AccountID: debitAccount, DebitAmount: debit},
			{AccountID: creditAccount, CreditAmount: credit},
		},
	}
}

func paymentInput(invoiceID uuid.UUID, amount string) finance.CreatePaymentInput {
	money, err := valueobject.NewMoneyBDTFromString(amount)
	if err != nil {
		panic(err)
	}
	return finance.CreatePaymentInput{
		InvoiceID:   invoiceID,
		Amount:      money,
		Method:      finance.PaymentMethodBankTransfer,
		PaymentDate: testNow,
		Reference:   "TRX-001",
	}
}
