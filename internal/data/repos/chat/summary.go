package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/babycare-backend/internal/domain/chat"
	"github.com/yungbote/babycare-backend/internal/pkg/dbctx"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type SummaryRepo interface {
	// Latest returns the newest summary list for (uid, intent). A missing row
	// or an unreadable one yields an empty list.
	Latest(dbc dbctx.Context, uid, intent string) ([]string, error)
	Append(dbc dbctx.Context, uid, intent string, summary []string, at time.Time) error
}

type summaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSummaryRepo(db *gorm.DB, log *logger.Logger) SummaryRepo {
	return &summaryRepo{
		db:  db,
		log: log.With("repo", "SummaryRepo"),
	}
}

func (r *summaryRepo) Latest(dbc dbctx.Context, uid, intent string) ([]string, error) {
	var row types.IntentHistorySummary
	err := dbc.DB(r.db).
		Where("uid = ? AND intent = ?", uid, intent).
		Order("updated_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	if err := json.Unmarshal(row.Summary, &out); err != nil || out == nil {
		r.log.Warn("unreadable summary row", "id", row.ID, "error", err)
		return []string{}, nil
	}
	return out, nil
}

func (r *summaryRepo) Append(dbc dbctx.Context, uid, intent string, summary []string, at time.Time) error {
	if uid == "" || intent == "" {
		return fmt.Errorf("missing uid or intent")
	}
	if summary == nil {
		summary = []string{}
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return dbc.DB(r.db).Create(&types.IntentHistorySummary{
		UID:       uid,
		Intent:    intent,
		Summary:   datatypes.JSON(raw),
		UpdatedAt: at.UTC(),
	}).Error
}
