package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	chatrepo "github.com/yungbote/babycare-backend/internal/data/repos/chat"
	"github.com/yungbote/babycare-backend/internal/data/repos/testutil"
	types "github.com/yungbote/babycare-backend/internal/domain/chat"
	"github.com/yungbote/babycare-backend/internal/jobs"
	"github.com/yungbote/babycare-backend/internal/oracle"
	"github.com/yungbote/babycare-backend/internal/oracle/mock"
	"github.com/yungbote/babycare-backend/internal/pkg/dbctx"
)

type fixture struct {
	sum       *Summarizer
	history   chatrepo.HistoryRepo
	summaries chatrepo.SummaryRepo
	status    chatrepo.ETLStatusRepo
}

func newFixture(t *testing.T, o oracle.Oracle) fixture {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	f := fixture{
		history:   chatrepo.NewHistoryRepo(db, log),
		summaries: chatrepo.NewSummaryRepo(db, log),
		status:    chatrepo.NewETLStatusRepo(db, log),
	}
	f.sum = New(log, db, o, f.history, f.summaries, f.status, 2)
	return f
}

func (f fixture) chat(t *testing.T, uid, intent, q string, ts time.Time) {
	t.Helper()
	require.NoError(t, f.history.Create(dbctx.New(context.Background()), &types.ChatHistoryDetailed{
		UID: uid, Intent: intent, Question: q, Response: "answer to " + q, Timestamp: ts,
	}))
}

// echoMerge appends every new conversation line to the old list.
func echoMerge(_ context.Context, msgs []oracle.Message) (map[string]any, error) {
	var in struct {
		Old []string `json:"old_summary_list"`
		New []string `json:"new_conversations"`
	}
	if err := json.Unmarshal([]byte(mock.LastUser(msgs)), &in); err != nil {
		return nil, err
	}
	out := []any{}
	for _, s := range append(in.Old, in.New...) {
		out = append(out, s)
	}
	return map[string]any{"summary": out}, nil
}

func TestRunGroupsByUIDAndIntent(t *testing.T) {
	o := mock.New().OnExtract(SchemaName, echoMerge)
	f := newFixture(t, o)
	ctx := context.Background()
	runAt := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	f.sum.now = func() time.Time { return runAt }

	base := time.Date(2025, 6, 30, 9, 0, 0, 0, time.UTC)
	f.chat(t, "u1", "Nutritionist", "picky eater", base)
	f.chat(t, "u1", "Nutritionist", "snacks", base.Add(time.Minute))
	f.chat(t, "u1", "Sleep Consultant", "naps", base.Add(2*time.Minute))
	f.chat(t, "u2", "Nutritionist", "allergies", base.Add(3*time.Minute))
	f.chat(t, "u3", "", "no intent", base.Add(4*time.Minute))

	res, err := f.sum.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, jobs.Result{Status: jobs.StatusSuccess, RowsInserted: 3}, res)
	require.Equal(t, 3, o.Count("extract", SchemaName))

	got, err := f.summaries.Latest(dbctx.New(ctx), "u1", "Nutritionist")
	require.NoError(t, err)
	require.Equal(t, []string{
		"2025-06-30T09:00:00Z, user asked: picky eater | agent replied: answer to picky eater",
		"2025-06-30T09:01:00Z, user asked: snacks | agent replied: answer to snacks",
	}, got)

	mark, err := f.status.LastRun(dbctx.New(ctx), jobs.HistorySummarizer, time.Time{})
	require.NoError(t, err)
	require.True(t, mark.Equal(base.Add(3*time.Minute)), "watermark=%s", mark)

	// A second run sees nothing new and leaves the watermark alone.
	f.sum.now = func() time.Time { return runAt.Add(time.Hour) }
	res, err = f.sum.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, jobs.StatusNoNewData, res.Status)
	require.Equal(t, 3, o.Count("extract", SchemaName))
	mark, err = f.status.LastRun(dbctx.New(ctx), jobs.HistorySummarizer, time.Time{})
	require.NoError(t, err)
	require.True(t, mark.Equal(base.Add(3*time.Minute)), "watermark=%s", mark)

	// New chats merge on top of the stored list.
	f.chat(t, "u1", "Nutritionist", "vitamins", runAt.Add(2*time.Hour))
	f.sum.now = func() time.Time { return runAt.Add(3 * time.Hour) }
	_, err = f.sum.Run(ctx)
	require.NoError(t, err)
	got, err = f.summaries.Latest(dbctx.New(ctx), "u1", "Nutritionist")
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestRunStoresErrorEntryOnFailure(t *testing.T) {
	o := mock.New().OnExtract(SchemaName, mock.FailExtract(oracle.Unavailable(errors.New("timeout"))))
	f := newFixture(t, o)
	ctx := context.Background()
	f.chat(t, "u1", "Pediatrician", "fever", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	res, err := f.sum.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.RowsInserted)

	got, err := f.summaries.Latest(dbctx.New(ctx), "u1", "Pediatrician")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Contains(t, got[0], "Error updating summary: ")
	require.Contains(t, got[0], "timeout")
}

func TestRunRejectsNonListSummary(t *testing.T) {
	o := mock.New().OnExtract(SchemaName, mock.Object(map[string]any{"summary": "just text"}))
	f := newFixture(t, o)
	ctx := context.Background()
	f.chat(t, "u1", "Parenting Coach", "tantrums", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	_, err := f.sum.Run(ctx)
	require.NoError(t, err)
	got, err := f.summaries.Latest(dbctx.New(ctx), "u1", "Parenting Coach")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Contains(t, got[0], "summary is not a list")
}

func TestRunHonorsConcurrencyLimit(t *testing.T) {
	var inflight, peak atomic.Int32
	o := mock.New().OnExtract(SchemaName, func(ctx context.Context, msgs []oracle.Message) (map[string]any, error) {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inflight.Add(-1)
		return map[string]any{"summary": []any{"ok"}}, nil
	})
	f := newFixture(t, o)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, uid := range []string{"a", "b", "c", "d", "e"} {
		f.chat(t, uid, "Montessori Coach", "q", base.Add(time.Duration(i)*time.Second))
	}

	res, err := f.sum.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, res.RowsInserted)
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunPicksUpLateRowStampedBeforeRun(t *testing.T) {
	o := mock.New().OnExtract(SchemaName, echoMerge)
	f := newFixture(t, o)
	ctx := context.Background()
	runAt := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	f.sum.now = func() time.Time { return runAt }

	f.chat(t, "u1", "Nutritionist", "picky eater", runAt.Add(-2*time.Hour))
	_, err := f.sum.Run(ctx)
	require.NoError(t, err)

	// Committed after the first run finished, but stamped before it started.
	f.chat(t, "u1", "Nutritionist", "snacks", runAt.Add(-time.Minute))
	f.sum.now = func() time.Time { return runAt.Add(time.Hour) }
	res, err := f.sum.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, jobs.StatusSuccess, res.Status)

	got, err := f.summaries.Latest(dbctx.New(ctx), "u1", "Nutritionist")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Contains(t, got[1], "snacks")
}
