package chat

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/babycare-backend/internal/domain/chat"
	"github.com/yungbote/babycare-backend/internal/pkg/dbctx"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type HistoryRepo interface {
	Create(dbc dbctx.Context, row *types.ChatHistoryDetailed) error
	Recent(dbc dbctx.Context, uid string, limit int) ([]*types.ChatHistoryDetailed, error)
	// ListSince returns rows newer than since in timestamp order. An empty
	// intent matches every row that has one.
	ListSince(dbc dbctx.Context, intent string, since time.Time) ([]*types.ChatHistoryDetailed, error)
}

type historyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHistoryRepo(db *gorm.DB, log *logger.Logger) HistoryRepo {
	return &historyRepo{
		db:  db,
		log: log.With("repo", "HistoryRepo"),
	}
}

func (r *historyRepo) Create(dbc dbctx.Context, row *types.ChatHistoryDetailed) error {
	if row == nil {
		return fmt.Errorf("nil chat row")
	}
	if strings.TrimSpace(row.UID) == "" {
		return fmt.Errorf("missing uid")
	}
	if row.Timestamp.IsZero() {
		row.Timestamp = time.Now()
	}
	row.Timestamp = row.Timestamp.UTC()
	return dbc.DB(r.db).Create(row).Error
}

func (r *historyRepo) Recent(dbc dbctx.Context, uid string, limit int) ([]*types.ChatHistoryDetailed, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, fmt.Errorf("missing uid")
	}
	if limit <= 0 {
		limit = 5
	}
	var out []*types.ChatHistoryDetailed
	if err := dbc.DB(r.db).
		Model(&types.ChatHistoryDetailed{}).
		Where("uid = ?", uid).
		Order(`"timestamp" DESC`).
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *historyRepo) ListSince(dbc dbctx.Context, intent string, since time.Time) ([]*types.ChatHistoryDetailed, error) {
	q := dbc.DB(r.db).
		Model(&types.ChatHistoryDetailed{}).
		Where(`"timestamp" > ?`, since.UTC())
	if intent != "" {
		q = q.Where("intent = ?", intent)
	} else {
		q = q.Where("intent IS NOT NULL AND intent <> '' AND uid <> ''")
	}
	var out []*types.ChatHistoryDetailed
	if err := q.Order(`"timestamp" ASC`).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
