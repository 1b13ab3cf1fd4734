package chat

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ChildSymptomTimeline is a pediatric exchange flattened for charting.
// SourceID points back at the chat_history_detailed row it came from.
type ChildSymptomTimeline struct {
	ID                 uuid.UUID   `gorm:"type:uuid;primaryKey" json:"-"`
	UID                string      `gorm:"column:uid;type:text;not null;index:idx_timeline_uid_ts,priority:1" json:"-"`
	Timestamp          time.Time   `gorm:"column:timestamp;not null;index:idx_timeline_uid_ts,priority:2" json:"timestamp"`
	Intent             string      `gorm:"type:text" json:"intent"`
	Symptom            string      `gorm:"type:text" json:"symptom"`
	Age                string      `gorm:"type:text" json:"age"`
	Severity           string      `gorm:"type:text" json:"severity"`
	Duration           string      `gorm:"type:text" json:"duration"`
	AssociatedSymptoms StringArray `gorm:"column:associated_symptoms" json:"associated_symptoms"`
	Summary            string      `gorm:"type:text" json:"-"`
	SourceID           uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
}

func (ChildSymptomTimeline) TableName() string { return "child_symptom_timeline" }

func (t *ChildSymptomTimeline) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// StringArray is a text[] on Postgres and its literal form elsewhere.
type StringArray []string

func (StringArray) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return pq.StringArray{}.Value()
	}
	return pq.StringArray(a).Value()
}

func (a *StringArray) Scan(src any) error {
	var tmp pq.StringArray
	if err := tmp.Scan(src); err != nil {
		return err
	}
	*a = StringArray(tmp)
	return nil
}
