package event

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func outboxRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "event_id", "event_type", "aggregate_id", "aggregate_type",
		"payload", "status", "retry_count", "max_retries", "last_error",
		"next_retry_at", "processed_at", "created_at", "updated_at",
	})
}

func addOutboxRow(rows *sqlmock.Rows, entry *shared.OutboxEntry) {
	rows.AddRow(
		entry.ID, entry.TenantID, entry.EventID, entry.EventType, entry.AggregateID,
		entry.AggregateType, entry.Payload, entry.Status, entry.RetryCount,
		entry.MaxRetries, entry.LastError, entry.NextRetryAt, entry.ProcessedAt,
		entry.CreatedAt, entry.UpdatedAt,
	)
}

func TestGormOutboxRepository_Save(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)

	tenantID := uuid.New()
	ev := newTestEvent("InvoiceCreated", tenantID)
	entry := shared.NewOutboxEntry(tenantID, ev, []byte(`{"ok":true}`))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "outbox_events"`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(entry.CreatedAt, entry.UpdatedAt))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_SaveNothing(t *testing.T) {
	db, _ := setupMockDB(t)
	repo := NewGormOutboxRepository(db)

	require.NoError(t, repo.Save(context.Background()))
}

func TestGormOutboxRepository_FindPending(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)

	tenantID := uuid.New()
	ev := newTestEvent("InvoiceCreated", tenantID)
	entry := shared.NewOutboxEntry(tenantID, ev, []byte(`{}`))
	rows := outboxRows()
	addOutboxRow(rows, entry)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events" WHERE status = $1 ORDER BY created_at ASC LIMIT $2`)).
		WithArgs(shared.OutboxStatusPending, 10).
		WillReturnRows(rows)

	found, err := repo.FindPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, entry.ID, found[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_FindRetryable(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events" WHERE status = $1 AND next_retry_at <= $2 ORDER BY next_retry_at ASC LIMIT $3`)).
		WithArgs(shared.OutboxStatusFailed, now, 5).
		WillReturnRows(outboxRows())

	found, err := repo.FindRetryable(context.Background(), now, 5)
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_CountByStatus(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, count(*) as count FROM "outbox_events" GROUP BY "status"`)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("PENDING", 3).
			AddRow("DEAD", 1))

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, counts[shared.OutboxStatusPending])
	assert.EqualValues(t, 1, counts[shared.OutboxStatusDead])
	assert.NoError(t, mock.ExpectationsWereMet())
}
