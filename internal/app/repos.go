package app

import (
	"gorm.io/gorm"

	chatrepo "github.com/yungbote/babycare-backend/internal/data/repos/chat"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type Repos struct {
	History   chatrepo.HistoryRepo
	Timeline  chatrepo.TimelineRepo
	Summary   chatrepo.SummaryRepo
	ETLStatus chatrepo.ETLStatusRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		History:   chatrepo.NewHistoryRepo(db, log),
		Timeline:  chatrepo.NewTimelineRepo(db, log),
		Summary:   chatrepo.NewSummaryRepo(db, log),
		ETLStatus: chatrepo.NewETLStatusRepo(db, log),
	}
}
