package chat

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/babycare-backend/internal/domain/chat"
	"github.com/yungbote/babycare-backend/internal/pkg/dbctx"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type ETLStatusRepo interface {
	// LastRun returns the stored watermark for job, or def when none exists.
	LastRun(dbc dbctx.Context, job string, def time.Time) (time.Time, error)
	SetLastRun(dbc dbctx.Context, job string, at time.Time) error
}

type etlStatusRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewETLStatusRepo(db *gorm.DB, log *logger.Logger) ETLStatusRepo {
	return &etlStatusRepo{
		db:  db,
		log: log.With("repo", "ETLStatusRepo"),
	}
}

func (r *etlStatusRepo) LastRun(dbc dbctx.Context, job string, def time.Time) (time.Time, error) {
	if job == "" {
		return time.Time{}, fmt.Errorf("missing job name")
	}
	var row types.ChatETLStatus
	err := dbc.DB(r.db).
		Where("job_name = ?", job).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return def.UTC(), nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return row.LastRunAt.UTC(), nil
}

func (r *etlStatusRepo) SetLastRun(dbc dbctx.Context, job string, at time.Time) error {
	if job == "" {
		return fmt.Errorf("missing job name")
	}
	row := types.ChatETLStatus{JobName: job, LastRunAt: at.UTC()}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_run_at"}),
		}).
		Create(&row).Error
}
