package event

import (
	"context"
	"fmt"

	"github.com/finledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxSaver writes the for-dispatch copy of committed events inside the
// same transaction as the stream append. An event can therefore never commit
// without its outbox entry, and vice versa.
type OutboxSaver struct {
	serializer *Serializer
}

// NewOutboxSaver creates an outbox saver using the given serializer
func NewOutboxSaver(serializer *Serializer) *OutboxSaver {
	return &OutboxSaver{serializer: serializer}
}

// SaveEvents persists events to the outbox table using the caller's
// transaction. The txProvider must be a *gorm.DB.
func (s *OutboxSaver) SaveEvents(ctx context.Context, txProvider interface{}, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return fmt.Errorf("txProvider must be a *gorm.DB, got %T", txProvider)
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, ev := range events {
		payload, err := s.serializer.Serialize(ev)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", ev.EventType(), err)
		}
		entries = append(entries, shared.NewOutboxEntry(ev.TenantID(), ev, payload))
	}

	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

var _ shared.DispatchOutboxSaver = (*OutboxSaver)(nil)
