// Package summarizer keeps a rolling, per-intent summary of each parent's
// conversations.
package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	chatrepo "github.com/yungbote/babycare-backend/internal/data/repos/chat"
	"github.com/yungbote/babycare-backend/internal/jobs"
	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/pkg/dbctx"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

const SchemaName = "summary_merge"

const systemPrompt = "You are an assistant helping track parent conversations about their child. " +
	"Each entry in the summary should be a 1-2 sentence summary of a recent conversation, " +
	"prefixed with the date/time it occurred (ISO format). " +
	"Combine the old summary list and new conversations into a new summary list, keeping it chronological " +
	"and under 2000 tokens total. Remove redundant entries if necessary. " +
	`Respond with {"summary": [<entries>]}.`

var mergeSchema = oracle.Schema{
	Name: SchemaName,
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required":             []any{"summary"},
		"additionalProperties": false,
	},
}

type Summarizer struct {
	log         *logger.Logger
	db          *gorm.DB
	oracle      oracle.Oracle
	history     chatrepo.HistoryRepo
	summaries   chatrepo.SummaryRepo
	status      chatrepo.ETLStatusRepo
	concurrency int
	now         func() time.Time
}

func New(log *logger.Logger, db *gorm.DB, o oracle.Oracle, history chatrepo.HistoryRepo, summaries chatrepo.SummaryRepo, status chatrepo.ETLStatusRepo, concurrency int) *Summarizer {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Summarizer{
		log:         log.With("service", "HistorySummarizer"),
		db:          db,
		oracle:      o,
		history:     history,
		summaries:   summaries,
		status:      status,
		concurrency: concurrency,
		now:         time.Now,
	}
}

func (s *Summarizer) Type() string { return jobs.HistorySummarizer }

type group struct {
	uid, intent string
	lines       []string
	summary     []string
}

// Run merges chats stamped after the watermark into the latest summary of each
// (uid, intent). A failed merge stores an error entry instead of aborting.
func (s *Summarizer) Run(ctx context.Context) (jobs.Result, error) {
	runStart := s.now().UTC()

	since, err := s.status.LastRun(dbctx.New(ctx), jobs.HistorySummarizer, time.Unix(0, 0))
	if err != nil {
		return jobs.Result{}, err
	}
	rows, err := s.history.ListSince(dbctx.New(ctx), "", since)
	if err != nil {
		return jobs.Result{}, err
	}

	// The watermark tracks row timestamps, not the run clock.
	watermark := since
	var groups []*group
	index := map[[2]string]*group{}
	for _, row := range rows {
		if row.Timestamp.After(watermark) {
			watermark = row.Timestamp.UTC()
		}
		key := [2]string{row.UID, row.Intent}
		g, ok := index[key]
		if !ok {
			g = &group{uid: row.UID, intent: row.Intent}
			index[key] = g
			groups = append(groups, g)
		}
		g.lines = append(g.lines, fmt.Sprintf("%s, user asked: %s | agent replied: %s",
			row.Timestamp.UTC().Format(time.RFC3339), row.Question, row.Response))
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)
	for _, g := range groups {
		eg.Go(func() error {
			old, err := s.summaries.Latest(dbctx.New(egctx), g.uid, g.intent)
			if err != nil {
				return fmt.Errorf("load summary uid=%s intent=%s: %w", g.uid, g.intent, err)
			}
			merged, err := s.merge(egctx, old, g.lines)
			if err != nil {
				s.log.Warn("summary merge failed", "uid", g.uid, "intent", g.intent, "error", err)
				merged = []string{"Error updating summary: " + err.Error()}
			}
			g.summary = merged
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return jobs.Result{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.New(ctx).WithTx(tx)
		for _, g := range groups {
			if err := s.summaries.Append(dbc, g.uid, g.intent, g.summary, runStart); err != nil {
				return err
			}
		}
		return s.status.SetLastRun(dbc, jobs.HistorySummarizer, watermark)
	})
	if err != nil {
		return jobs.Result{}, err
	}

	if len(groups) == 0 {
		return jobs.Result{Status: jobs.StatusNoNewData}, nil
	}
	return jobs.Result{Status: jobs.StatusSuccess, RowsInserted: len(groups)}, nil
}

func (s *Summarizer) merge(ctx context.Context, old, lines []string) ([]string, error) {
	payload, err := json.MarshalIndent(map[string]any{
		"old_summary_list":  old,
		"new_conversations": lines,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	obj, err := s.oracle.Extract(ctx, []oracle.Message{
		oracle.System(systemPrompt),
		oracle.User(string(payload)),
	}, mergeSchema, oracle.Options{Tier: oracle.TierFast, Temperature: oracle.Float(0.3)})
	if err != nil {
		return nil, err
	}
	raw, ok := obj["summary"].([]any)
	if !ok {
		return nil, &oracle.SchemaViolationError{Schema: SchemaName, Err: errors.New("summary is not a list")}
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		str, ok := item.(string)
		if !ok {
			return nil, &oracle.SchemaViolationError{Schema: SchemaName, Err: errors.New("summary entry is not a string")}
		}
		if str = strings.TrimSpace(str); str != "" {
			out = append(out, str)
		}
	}
	return out, nil
}
