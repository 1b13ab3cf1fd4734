package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChatHistoryDetailed is one saved exchange between a parent and an agent.
// It is the source table for the timeline ETL and the history summarizer.
type ChatHistoryDetailed struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UID           string         `gorm:"column:uid;type:text;not null;index:idx_chat_history_uid_ts,priority:1" json:"uid"`
	Question      string         `gorm:"type:text;not null;default:''" json:"question"`
	Intent        string         `gorm:"type:text;index" json:"intent"`
	ParsedSymptom datatypes.JSON `gorm:"type:jsonb" json:"parsed_symptom"`
	Response      string         `gorm:"type:text;not null;default:''" json:"response"`
	Timestamp     time.Time      `gorm:"column:timestamp;not null;index;index:idx_chat_history_uid_ts,priority:2" json:"timestamp"`
}

func (ChatHistoryDetailed) TableName() string { return "chat_history_detailed" }

func (c *ChatHistoryDetailed) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ChatETLStatus holds the high-water mark of a batch job.
type ChatETLStatus struct {
	JobName   string    `gorm:"column:job_name;type:text;primaryKey" json:"job_name"`
	LastRunAt time.Time `gorm:"column:last_run_at;not null" json:"last_run_at"`
}

func (ChatETLStatus) TableName() string { return "chat_etl_status" }
