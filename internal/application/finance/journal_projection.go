package finance

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/infrastructure/persistence"
	"github.com/finledger/backend/internal/infrastructure/persistence/models"
)

// JournalProjection maintains the journal entry read model: the header row
// plus one line row per journal line, denormalized with status and fiscal
// period so the trial balance is a single aggregate query.
type JournalProjection struct {
	journals finance.JournalEntryRepository
	reads    persistence.JournalReadRepository
	logger   *zap.Logger
}

// NewJournalProjection creates a new JournalProjection
func NewJournalProjection(journals finance.JournalEntryRepository, reads persistence.JournalReadRepository, logger *zap.Logger) *JournalProjection {
	return &JournalProjection{
		journals: journals,
		reads:    reads,
		logger:   logger.Named("journal-projection"),
	}
}

// EventTypes returns the event types this projection is interested in
func (p *JournalProjection) EventTypes() []string {
	return []string{
		finance.EventTypeJournalEntryCreated,
		finance.EventTypeJournalLineAdded,
		finance.EventTypeJournalEntryPosted,
		finance.EventTypeJournalEntryReversed,
	}
}

// Handle refreshes the journal entry's header and line rows from its stream
func (p *JournalProjection) Handle(ctx context.Context, event shared.DomainEvent) error {
	je, err := p.journals.Load(ctx, event.TenantID(), event.AggregateID())
	if err != nil {
		return fmt.Errorf("failed to rehydrate journal entry %s: %w", event.AggregateID(), err)
	}

	row, lines := journalReadRows(je, event)
	if err := p.reads.Upsert(ctx, row, lines); err != nil {
		return err
	}

	p.logger.Debug("journal read model updated",
		zap.String("journal_id", je.ID.String()),
		zap.Int("version", row.LastAppliedVersion),
		zap.Int("lines", len(lines)),
	)
	return nil
}

func journalReadRows(je *finance.JournalEntry, event shared.DomainEvent) (*models.JournalEntryReadModel, []models.JournalLineReadModel) {
	occurred := event.OccurredAt()
	debits, credits := je.Totals()

	row := &models.JournalEntryReadModel{
		ReadModelBase: models.ReadModelBase{
			ID:                 je.ID,
			TenantID:           je.TenantID,
			LastAppliedVersion: je.GetVersion(),
			CreatedAt:          occurred,
			UpdatedAt:          occurred,
		},
		JournalNumber:  je.JournalNumber,
		JournalDate:    je.JournalDate,
		JournalType:    string(je.JournalType),
		Description:    je.Description,
		Currency:       string(je.Currency),
		FiscalPeriod:   string(je.FiscalPeriod),
		Status:         string(je.Status),
		TotalDebit:     debits,
		TotalCredit:    credits,
		PostedAt:       je.PostedAt,
		ReversalOfID:   je.ReversalOfID,
		ReversedByID:   je.ReversedByID,
		ReversalReason: je.ReversalReason,
	}

	lines := make([]models.JournalLineReadModel, 0, len(je.Lines))
	for i, l := range je.Lines {
		lines = append(lines, models.JournalLineReadModel{
			ID:           l.ID,
			EntryID:      je.ID,
			TenantID:     je.TenantID,
			FiscalPeriod: string(je.FiscalPeriod),
			EntryStatus:  string(je.Status),
			AccountID:    l.AccountID,
			Position:     i,
			DebitAmount:  l.DebitAmount,
			CreditAmount: l.CreditAmount,
			Description:  l.Description,
			CreatedAt:    occurred,
			UpdatedAt:    occurred,
		})
	}
	return row, lines
}

var _ shared.EventHandler = (*JournalProjection)(nil)
