package models

import (
	"time"

	"github.com/google/uuid"
)

// ReadModelBase provides common persistence fields for projection read models.
// LastAppliedVersion records the stream version of the last event folded into
// the row; projection writers must never apply an older or equal version, which
// makes duplicate delivery a no-op.
type ReadModelBase struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID           uuid.UUID `gorm:"type:uuid;not null;index"`
	LastAppliedVersion int       `gorm:"not null;default:0"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}
