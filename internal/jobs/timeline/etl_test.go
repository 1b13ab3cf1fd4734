package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	chatrepo "github.com/yungbote/babycare-backend/internal/data/repos/chat"
	"github.com/yungbote/babycare-backend/internal/data/repos/testutil"
	types "github.com/yungbote/babycare-backend/internal/domain/chat"
	"github.com/yungbote/babycare-backend/internal/jobs"
	"github.com/yungbote/babycare-backend/internal/pkg/dbctx"
)

func TestSummary(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Intro\n1. Give fluids often.\n2. See a doctor if worse.", "Give fluids often."},
		{"no numbering at all", "no numbering at all"},
		{"1. first 1. second\n2. third", "second"},
		{"  1. only one point  ", "only one point"},
	}
	for _, tt := range tests {
		if got := Summary(tt.in); got != tt.want {
			t.Fatalf("Summary(%q): want=%q got=%q", tt.in, tt.want, got)
		}
	}
}

func TestFromChat(t *testing.T) {
	row := &types.ChatHistoryDetailed{
		ID:            uuid.New(),
		UID:           "u1",
		Intent:        "Pediatrician",
		ParsedSymptom: datatypes.JSON(`{"primary_symptom":"fever","age":3,"severity":"mild","duration":"2 days","associated_symptoms":["cough","none",""]}`),
		Response:      "1. Rest.\n2. Fluids.",
		Timestamp:     time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	got, ok := FromChat(row)
	require.True(t, ok)
	require.Equal(t, "fever", got.Symptom)
	require.Equal(t, "3", got.Age)
	require.Equal(t, types.StringArray{"cough", "none"}, got.AssociatedSymptoms)
	require.Equal(t, "Rest.", got.Summary)
	require.Equal(t, row.ID, got.SourceID)

	for _, raw := range []string{``, `{}`, `{"primary_symptom":""}`, `not json`} {
		_, ok := FromChat(&types.ChatHistoryDetailed{ParsedSymptom: datatypes.JSON(raw)})
		require.False(t, ok, "parsed_symptom=%q", raw)
	}
}

func seed(t *testing.T, repo chatrepo.HistoryRepo, uid, intent, parsed string, ts time.Time) {
	t.Helper()
	require.NoError(t, repo.Create(dbctx.New(context.Background()), &types.ChatHistoryDetailed{
		UID:           uid,
		Question:      "q",
		Intent:        intent,
		ParsedSymptom: datatypes.JSON(parsed),
		Response:      "Overview 1. Keep hydrated. 2. Monitor temperature.",
		Timestamp:     ts,
	}))
}

func TestETLRun(t *testing.T) {
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	history := chatrepo.NewHistoryRepo(db, log)
	timeline := chatrepo.NewTimelineRepo(db, log)
	status := chatrepo.NewETLStatusRepo(db, log)
	etl := New(log, db, history, timeline, status)
	ctx := context.Background()

	res, err := etl.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, jobs.Result{Status: jobs.StatusNoNewData}, res)

	old := DefaultWatermark.Add(-time.Hour)
	t1 := DefaultWatermark.Add(24 * time.Hour)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)
	seed(t, history, "u1", "Pediatrician", `{"primary_symptom":"fever"}`, old)
	seed(t, history, "u1", "Pediatrician", `{"primary_symptom":"fever","associated_symptoms":["cough"]}`, t1)
	seed(t, history, "u1", "Sleep Consultant", `{"primary_symptom":"night waking"}`, t2)
	seed(t, history, "u1", "Pediatrician", `{}`, t3)

	res, err = etl.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, jobs.Result{Status: jobs.StatusSuccess, RowsInserted: 1}, res)

	rows, err := timeline.ListByUID(dbctx.New(ctx), "u1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "fever", rows[0].Symptom)
	require.Equal(t, "Keep hydrated.", rows[0].Summary)
	require.Equal(t, types.StringArray{"cough"}, rows[0].AssociatedSymptoms)

	mark, err := status.LastRun(dbctx.New(ctx), jobs.TimelineETL, DefaultWatermark)
	require.NoError(t, err)
	require.True(t, mark.Equal(t3), "watermark=%s", mark)

	res, err = etl.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, jobs.StatusNoNewData, res.Status)
}

func TestETLRerunIsIdempotent(t *testing.T) {
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	history := chatrepo.NewHistoryRepo(db, log)
	timeline := chatrepo.NewTimelineRepo(db, log)
	status := chatrepo.NewETLStatusRepo(db, log)
	etl := New(log, db, history, timeline, status)
	ctx := context.Background()

	seed(t, history, "u2", "Pediatrician", `{"primary_symptom":"rash"}`, DefaultWatermark.Add(time.Hour))
	res, err := etl.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.RowsInserted)

	// Rewind the watermark; the same chat must not be inserted twice.
	require.NoError(t, status.SetLastRun(dbctx.New(ctx), jobs.TimelineETL, DefaultWatermark))
	res, err = etl.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, jobs.Result{Status: jobs.StatusSuccess, RowsInserted: 0}, res)

	rows, err := timeline.ListByUID(dbctx.New(ctx), "u2")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
