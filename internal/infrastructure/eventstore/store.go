package eventstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/infrastructure/event"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// StoredEvent is one row of the append-only stream table. The unique index
// on (tenant_id, aggregate_id, stream_version) is the concurrency guard: two
// writers racing from the same loaded version collide on it and exactly one
// append wins. Sequence gives global commit order for projection rebuilds.
type StoredEvent struct {
	Sequence      int64     `gorm:"primaryKey;autoIncrement"`
	TenantID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_stream_version;index:ix_tenant_agg_type,priority:1"`
	AggregateID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_stream_version"`
	AggregateType string    `gorm:"size:64;not null;index:ix_tenant_agg_type,priority:2"`
	StreamVersion int       `gorm:"not null;uniqueIndex:ux_stream_version"`
	EventID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	EventType     string    `gorm:"size:128;not null"`
	SchemaVersion int       `gorm:"not null;default:1"`
	Payload       []byte    `gorm:"type:jsonb;not null"`
	OccurredAt    time.Time `gorm:"not null"`
	RecordedAt    time.Time `gorm:"not null;autoCreateTime"`
	UserID        uuid.UUID `gorm:"type:uuid"`
	CorrelationID uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the stream table name
func (StoredEvent) TableName() string { return "event_streams" }

// GormEventStore persists aggregate event streams with GORM. Appends run in
// a transaction together with the dispatch outbox write, so the stream and
// the for-dispatch copy commit atomically.
type GormEventStore struct {
	db          *gorm.DB
	serializer  *event.Serializer
	outboxSaver shared.DispatchOutboxSaver
}

// NewGormEventStore creates an event store. The outbox saver may be nil for
// tooling that only reads streams.
func NewGormEventStore(db *gorm.DB, serializer *event.Serializer, outboxSaver shared.DispatchOutboxSaver) *GormEventStore {
	return &GormEventStore{db: db, serializer: serializer, outboxSaver: outboxSaver}
}

// AppendToStream appends events guarded by the expected stream version.
// Returns ErrConcurrencyConflict when another writer got there first. The
// version check catches the common case; the unique index catches the race
// where both writers pass the check before either commits.
func (s *GormEventStore) AppendToStream(ctx context.Context, tenantID, aggregateID uuid.UUID, expectedVersion int, events []shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current int
		if err := tx.Model(&StoredEvent{}).
			Where("tenant_id = ? AND aggregate_id = ?", tenantID, aggregateID).
			Select("COALESCE(MAX(stream_version), 0)").
			Scan(&current).Error; err != nil {
			return fmt.Errorf("read stream version: %w", err)
		}
		if current != expectedVersion {
			return shared.ErrConcurrencyConflict
		}

		rows := make([]*StoredEvent, 0, len(events))
		for i, ev := range events {
			payload, err := s.serializer.Serialize(ev)
			if err != nil {
				return fmt.Errorf("serialize %s: %w", ev.EventType(), err)
			}
			rows = append(rows, &StoredEvent{
				TenantID:      tenantID,
				AggregateID:   aggregateID,
				AggregateType: ev.AggregateType(),
				StreamVersion: expectedVersion + i + 1,
				EventID:       ev.EventID(),
				EventType:     ev.EventType(),
				SchemaVersion: schemaVersionOf(ev),
				Payload:       payload,
				OccurredAt:    ev.OccurredAt(),
				UserID:        ev.UserID(),
				CorrelationID: ev.CorrelationID(),
			})
		}

		if err := tx.Create(rows).Error; err != nil {
			if isUniqueViolation(err) {
				return shared.ErrConcurrencyConflict
			}
			return fmt.Errorf("append events: %w", err)
		}

		if s.outboxSaver != nil {
			if err := s.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("save outbox entries: %w", err)
			}
		}
		return nil
	})

	return err
}

// LoadStream returns the ordered event stream for one aggregate
func (s *GormEventStore) LoadStream(ctx context.Context, tenantID, aggregateID uuid.UUID) ([]shared.DomainEvent, error) {
	var rows []StoredEvent
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND aggregate_id = ?", tenantID, aggregateID).
		Order("stream_version ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load stream: %w", err)
	}
	if len(rows) == 0 {
		return nil, shared.ErrAggregateNotFound
	}
	return s.rehydrate(rows)
}

// StreamVersion returns the current version of a stream, zero when absent
func (s *GormEventStore) StreamVersion(ctx context.Context, tenantID, aggregateID uuid.UUID) (int, error) {
	var version int
	err := s.db.WithContext(ctx).Model(&StoredEvent{}).
		Where("tenant_id = ? AND aggregate_id = ?", tenantID, aggregateID).
		Select("COALESCE(MAX(stream_version), 0)").
		Scan(&version).Error
	if err != nil {
		return 0, fmt.Errorf("read stream version: %w", err)
	}
	return version, nil
}

// LoadAllByAggregateType returns every event of one aggregate type for a
// tenant in global commit order. Projection rebuilds only; command handling
// always goes through LoadStream.
func (s *GormEventStore) LoadAllByAggregateType(ctx context.Context, tenantID uuid.UUID, aggregateType string) ([]shared.DomainEvent, error) {
	var rows []StoredEvent
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND aggregate_type = ?", tenantID, aggregateType).
		Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load events by aggregate type: %w", err)
	}
	return s.rehydrate(rows)
}

func (s *GormEventStore) rehydrate(rows []StoredEvent) ([]shared.DomainEvent, error) {
	events := make([]shared.DomainEvent, 0, len(rows))
	for _, row := range rows {
		ev, err := s.serializer.Deserialize(row.EventType, row.Payload)
		if err != nil {
			return nil, fmt.Errorf("rehydrate event %s (%s): %w", row.EventID, row.EventType, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func schemaVersionOf(ev shared.DomainEvent) int {
	if versioned, ok := ev.(shared.VersionedEvent); ok {
		return versioned.SchemaVersion()
	}
	return 1
}

// isUniqueViolation recognises unique constraint errors from postgres and
// from the sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ shared.EventStore = (*GormEventStore)(nil)
