package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yungbote/babycare-backend/internal/jobs/bus"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type fakeJob struct {
	name  string
	runs  atomic.Int32
	block chan struct{}
	res   Result
	err   error
	panic bool
}

func (f *fakeJob) Type() string { return f.name }

func (f *fakeJob) Run(ctx context.Context) (Result, error) {
	f.runs.Add(1)
	if f.block != nil {
		<-f.block
	}
	if f.panic {
		panic("boom")
	}
	return f.res, f.err
}

type observed struct {
	job, status string
	rows        int
}

func newRunner(t *testing.T, jobs ...Handler) (*Runner, *[]observed) {
	t.Helper()
	reg := NewRegistry()
	for _, j := range jobs {
		if err := reg.Register(j); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	var seen []observed
	r := NewRunner(logger.Nop(), reg, func(job, status string, rows int, _ time.Duration) {
		seen = append(seen, observed{job, status, rows})
	})
	return r, &seen
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&fakeJob{name: "a"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(&fakeJob{name: "a"}); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if err := reg.Register(&fakeJob{}); err == nil {
		t.Fatalf("expected empty type error")
	}
	if err := reg.Register(nil); err == nil {
		t.Fatalf("expected nil handler error")
	}
	_ = reg.Register(&fakeJob{name: "0"})
	if diff := cmp.Diff([]string{"0", "a"}, reg.Names()); diff != "" {
		t.Fatalf("Names (-want +got):\n%s", diff)
	}
}

func TestRunnerRunsAndObserves(t *testing.T) {
	ok := &fakeJob{name: TimelineETL, res: Result{Status: StatusSuccess, RowsInserted: 3}}
	bad := &fakeJob{name: HistorySummarizer, err: errors.New("db down")}
	r, seen := newRunner(t, ok, bad)

	res, err := r.Run(context.Background(), TimelineETL)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RowsInserted != 3 {
		t.Fatalf("rows: want=3 got=%d", res.RowsInserted)
	}
	if _, err := r.Run(context.Background(), HistorySummarizer); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := r.Run(context.Background(), "nope"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("want ErrUnknownJob got %v", err)
	}

	want := []observed{{TimelineETL, StatusSuccess, 3}, {HistorySummarizer, "error", 0}}
	if diff := cmp.Diff(want, *seen, cmp.AllowUnexported(observed{})); diff != "" {
		t.Fatalf("observed (-want +got):\n%s", diff)
	}
}

func TestRunnerRecoversPanic(t *testing.T) {
	r, _ := newRunner(t, &fakeJob{name: "p", panic: true})
	if _, err := r.Run(context.Background(), "p"); err == nil {
		t.Fatalf("expected panic to surface as error")
	}
	if !r.acquire("p") {
		t.Fatalf("lock not released after panic")
	}
}

func TestRunnerRejectsOverlap(t *testing.T) {
	slow := &fakeJob{name: TimelineETL, block: make(chan struct{}), res: Result{Status: StatusSuccess}}
	r, _ := newRunner(t, slow)

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), TimelineETL)
		done <- err
	}()
	for slow.runs.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	if _, err := r.Run(context.Background(), TimelineETL); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("want ErrAlreadyRunning got %v", err)
	}
	close(slow.block)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestRunnerListen(t *testing.T) {
	job := &fakeJob{name: TimelineETL, res: Result{Status: StatusNoNewData}}
	r, _ := newRunner(t, job)
	b := bus.NewMemoryBus(logger.Nop())
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Listen(ctx, b); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	_ = b.Publish(ctx, bus.Trigger{Job: "unknown"})
	_ = b.Publish(ctx, bus.Trigger{Job: TimelineETL, Source: "test"})

	deadline := time.Now().Add(2 * time.Second)
	for job.runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("trigger did not run the job")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
