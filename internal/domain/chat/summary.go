package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IntentHistorySummary is append-only; the newest row per (uid, intent) wins.
type IntentHistorySummary struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UID       string         `gorm:"column:uid;type:text;not null;index:idx_summary_uid_intent,priority:1" json:"uid"`
	Intent    string         `gorm:"type:text;not null;index:idx_summary_uid_intent,priority:2" json:"intent"`
	Summary   datatypes.JSON `gorm:"type:jsonb;not null" json:"summary"`
	UpdatedAt time.Time      `gorm:"not null;index:idx_summary_uid_intent,priority:3" json:"updated_at"`
}

func (IntentHistorySummary) TableName() string { return "intent_history_summary" }

func (s *IntentHistorySummary) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
