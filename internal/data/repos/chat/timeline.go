package chat

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/babycare-backend/internal/domain/chat"
	"github.com/yungbote/babycare-backend/internal/pkg/dbctx"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type TimelineRepo interface {
	// Create inserts rows and skips any whose source_id already exists. It
	// returns the number of rows actually written.
	Create(dbc dbctx.Context, rows []*types.ChildSymptomTimeline) (int64, error)
	ListByUID(dbc dbctx.Context, uid string) ([]*types.ChildSymptomTimeline, error)
}

type timelineRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTimelineRepo(db *gorm.DB, log *logger.Logger) TimelineRepo {
	return &timelineRepo{
		db:  db,
		log: log.With("repo", "TimelineRepo"),
	}
}

func (r *timelineRepo) Create(dbc dbctx.Context, rows []*types.ChildSymptomTimeline) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	for _, row := range rows {
		row.Timestamp = row.Timestamp.UTC()
		if row.AssociatedSymptoms == nil {
			row.AssociatedSymptoms = types.StringArray{}
		}
	}
	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "source_id"}}, DoNothing: true}).
		Create(&rows)
	return res.RowsAffected, res.Error
}

func (r *timelineRepo) ListByUID(dbc dbctx.Context, uid string) ([]*types.ChildSymptomTimeline, error) {
	if uid == "" {
		return nil, fmt.Errorf("missing uid")
	}
	var out []*types.ChildSymptomTimeline
	if err := dbc.DB(r.db).
		Model(&types.ChildSymptomTimeline{}).
		Where("uid = ? AND intent IS NOT NULL AND symptom IS NOT NULL AND symptom <> ''", uid).
		Order(`"timestamp" ASC`).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
