package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
)

// ReverseJournalEntryInput carries the reversing entry's own journal number
// and the reason recorded on both entries.
type ReverseJournalEntryInput struct {
	JournalNumber string
	Reason        string
}

// ReverseJournalEntryResult reports both sides of a reversal
type ReverseJournalEntryResult struct {
	OriginalID      uuid.UUID `json:"original_id"`
	OriginalVersion int       `json:"original_version"`
	ReversingID     uuid.UUID `json:"reversing_id"`
}

// JournalCommandService handles journal entry commands
type JournalCommandService struct {
	journals finance.JournalEntryRepository
	clock    shared.Clock
	logger   *zap.Logger
}

// NewJournalCommandService creates a new JournalCommandService
func NewJournalCommandService(journals finance.JournalEntryRepository, clock shared.Clock, logger *zap.Logger) *JournalCommandService {
	return &JournalCommandService{
		journals: journals,
		clock:    clock,
		logger:   logger.Named("journal-commands"),
	}
}

// Create validates the input and persists a new draft journal entry
func (s *JournalCommandService) Create(ctx context.Context, actor Actor, input finance.CreateJournalEntryInput) (CommandResult, error) {
	je, err := finance.NewJournalEntry(actor.TenantID, input, s.clock.Now())
	if err != nil {
		return CommandResult{}, err
	}
	stampActor(je, actor)

	if err := s.journals.Save(ctx, je); err != nil {
		return CommandResult{}, err
	}

	s.logger.Info("journal entry created",
		zap.String("journal_id", je.ID.String()),
		zap.String("journal_number", je.JournalNumber),
	)
	return CommandResult{AggregateID: je.ID, NewVersion: je.GetVersion()}, nil
}

// AddLine appends a line to a draft journal entry
func (s *JournalCommandService) AddLine(ctx context.Context, actor Actor, journalID uuid.UUID, line finance.JournalLineInput) (CommandResult, error) {
	return s.transition(ctx, actor, journalID, "journal.add_line",
		func(je *finance.JournalEntry, now time.Time) error {
			return je.AddLine(line, now)
		})
}

// Post posts a balanced draft entry to the ledger. An unbalanced entry is
// rejected with the exact debit-credit delta.
func (s *JournalCommandService) Post(ctx context.Context, actor Actor, journalID uuid.UUID) (CommandResult, error) {
	return s.transition(ctx, actor, journalID, "journal.post",
		func(je *finance.JournalEntry, now time.Time) error {
			return je.Post(now)
		})
}

// Reverse creates a posted adjustment entry with debits and credits swapped,
// then marks the original as REVERSED with a link to the reversing entry.
// The original's events are never modified.
//
// The two streams cannot share a transaction. The reversing entry commits
// first; linking the original is retried, so a crash between the two appends
// leaves a posted reversing entry whose back-link can be re-established by
// reissuing the command.
func (s *JournalCommandService) Reverse(ctx context.Context, actor Actor, journalID uuid.UUID, input ReverseJournalEntryInput) (ReverseJournalEntryResult, error) {
	now := s.clock.Now()

	original, err := s.journals.Load(ctx, actor.TenantID, journalID)
	if err != nil {
		return ReverseJournalEntryResult{}, err
	}

	reversing, err := finance.NewReversingEntry(original, input.JournalNumber, input.Reason, now)
	if err != nil {
		return ReverseJournalEntryResult{}, err
	}
	stampActor(reversing, actor)
	if err := s.journals.Save(ctx, reversing); err != nil {
		return ReverseJournalEntryResult{}, err
	}

	var result ReverseJournalEntryResult
	err = withConcurrencyRetry(ctx, s.logger, "journal.reverse", func() error {
		fresh, err := s.journals.Load(ctx, actor.TenantID, journalID)
		if err != nil {
			return err
		}
		if err := fresh.Reverse(reversing.ID, input.Reason, now); err != nil {
			return err
		}
		stampActor(fresh, actor)
		if err := s.journals.Save(ctx, fresh); err != nil {
			return err
		}
		result = ReverseJournalEntryResult{
			OriginalID:      fresh.ID,
			OriginalVersion: fresh.GetVersion(),
			ReversingID:     reversing.ID,
		}
		return nil
	})
	if err != nil {
		return ReverseJournalEntryResult{}, err
	}

	s.logger.Info("journal entry reversed",
		zap.String("original_id", result.OriginalID.String()),
		zap.String("reversing_id", result.ReversingID.String()),
	)
	return result, nil
}

func (s *JournalCommandService) transition(ctx context.Context, actor Actor, journalID uuid.UUID, op string, mutate func(*finance.JournalEntry, time.Time) error) (CommandResult, error) {
	var result CommandResult
	err := withConcurrencyRetry(ctx, s.logger, op, func() error {
		je, err := s.journals.Load(ctx, actor.TenantID, journalID)
		if err != nil {
			return err
		}
		if err := mutate(je, s.clock.Now()); err != nil {
			return err
		}
		stampActor(je, actor)
		if err := s.journals.Save(ctx, je); err != nil {
			return err
		}
		result = CommandResult{AggregateID: je.ID, NewVersion: je.GetVersion()}
		return nil
	})
	return result, err
}
