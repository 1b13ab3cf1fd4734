package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/babycare-backend/internal/domain/chat"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&chat.ChatHistoryDetailed{},
		&chat.ChildSymptomTimeline{},
		&chat.ChatETLStatus{},
		&chat.IntentHistorySummary{},
	)
}
