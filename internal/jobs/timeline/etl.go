// Package timeline flattens pediatric chats into child_symptom_timeline.
package timeline

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	chatrepo "github.com/yungbote/babycare-backend/internal/data/repos/chat"
	types "github.com/yungbote/babycare-backend/internal/domain/chat"
	"github.com/yungbote/babycare-backend/internal/jobs"
	"github.com/yungbote/babycare-backend/internal/pkg/dbctx"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

const SourceIntent = "Pediatrician"

var DefaultWatermark = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type ETL struct {
	log      *logger.Logger
	db       *gorm.DB
	history  chatrepo.HistoryRepo
	timeline chatrepo.TimelineRepo
	status   chatrepo.ETLStatusRepo
}

func New(log *logger.Logger, db *gorm.DB, history chatrepo.HistoryRepo, timeline chatrepo.TimelineRepo, status chatrepo.ETLStatusRepo) *ETL {
	return &ETL{
		log:      log.With("service", "TimelineETL"),
		db:       db,
		history:  history,
		timeline: timeline,
		status:   status,
	}
}

func (e *ETL) Type() string { return jobs.TimelineETL }

// Run copies every pediatric chat newer than the watermark into the timeline
// and advances the watermark, all in one transaction.
func (e *ETL) Run(ctx context.Context) (jobs.Result, error) {
	var res jobs.Result
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.New(ctx).WithTx(tx)

		since, err := e.status.LastRun(dbc, jobs.TimelineETL, DefaultWatermark)
		if err != nil {
			return err
		}
		rows, err := e.history.ListSince(dbc, SourceIntent, since)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			res = jobs.Result{Status: jobs.StatusNoNewData}
			return nil
		}

		watermark := since
		out := make([]*types.ChildSymptomTimeline, 0, len(rows))
		for _, row := range rows {
			if row.Timestamp.After(watermark) {
				watermark = row.Timestamp
			}
			entry, ok := FromChat(row)
			if !ok {
				e.log.Warn("skipping chat without primary_symptom", "id", row.ID)
				continue
			}
			out = append(out, entry)
		}

		n, err := e.timeline.Create(dbc, out)
		if err != nil {
			return err
		}
		if err := e.status.SetLastRun(dbc, jobs.TimelineETL, watermark); err != nil {
			return err
		}
		res = jobs.Result{Status: jobs.StatusSuccess, RowsInserted: int(n)}
		return nil
	})
	if err != nil {
		return jobs.Result{}, err
	}
	return res, nil
}

// FromChat maps a saved chat onto a timeline row. ok is false when the
// parsed symptom is unreadable or names no primary symptom.
func FromChat(row *types.ChatHistoryDetailed) (*types.ChildSymptomTimeline, bool) {
	var sym map[string]any
	if len(row.ParsedSymptom) > 0 {
		if err := json.Unmarshal(row.ParsedSymptom, &sym); err != nil {
			return nil, false
		}
	}
	primary := text(sym["primary_symptom"])
	if primary == "" {
		return nil, false
	}
	return &types.ChildSymptomTimeline{
		UID:                row.UID,
		Timestamp:          row.Timestamp,
		Intent:             row.Intent,
		Symptom:            primary,
		Age:                text(sym["age"]),
		Severity:           text(sym["severity"]),
		Duration:           text(sym["duration"]),
		AssociatedSymptoms: list(sym["associated_symptoms"]),
		Summary:            Summary(row.Response),
		SourceID:           row.ID,
	}, true
}

// Summary keeps the text of the first numbered point of a guidance reply:
// whatever follows the last "1. " up to the first "2.".
func Summary(response string) string {
	parts := strings.Split(response, "1. ")
	s, _, _ := strings.Cut(parts[len(parts)-1], "2.")
	return strings.TrimSpace(s)
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		raw, _ := json.Marshal(t)
		return string(raw)
	}
}

func list(v any) types.StringArray {
	out := types.StringArray{}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s := text(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" && !strings.EqualFold(s, "none") {
			out = append(out, s)
		}
	}
	return out
}
