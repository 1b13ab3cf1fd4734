package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/babycare-backend/internal/jobs/bus"
	"github.com/yungbote/babycare-backend/internal/observability"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

// ObserveFunc receives one record per finished run.
type ObserveFunc func(job, status string, rows int, dur time.Duration)

// Runner executes registered jobs, at most one run per job at a time.
type Runner struct {
	log      *logger.Logger
	registry *Registry
	observe  ObserveFunc

	mu      sync.Mutex
	running map[string]bool
}

func NewRunner(log *logger.Logger, registry *Registry, observe ObserveFunc) *Runner {
	return &Runner{
		log:      log.With("service", "JobRunner"),
		registry: registry,
		observe:  observe,
		running:  map[string]bool{},
	}
}

func (r *Runner) Known(name string) bool {
	_, ok := r.registry.Get(name)
	return ok
}

func (r *Runner) Run(ctx context.Context, name string) (res Result, err error) {
	h, ok := r.registry.Get(name)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if !r.acquire(name) {
		return Result{}, fmt.Errorf("%w: %s", ErrAlreadyRunning, name)
	}
	defer r.release(name)

	ctx, span := observability.Tracer("jobs").Start(ctx, "job."+name)
	defer span.End()

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panicked: %v", name, p)
		}
		status := res.Status
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.log.Error("job failed", "job", name, "error", err, "duration_ms", time.Since(start).Milliseconds())
		} else {
			span.SetAttributes(attribute.Int("job.rows_inserted", res.RowsInserted))
			r.log.Info("job finished", "job", name, "status", res.Status, "rows_inserted", res.RowsInserted, "duration_ms", time.Since(start).Milliseconds())
		}
		if r.observe != nil {
			r.observe(name, status, res.RowsInserted, time.Since(start))
		}
	}()

	return h.Run(ctx)
}

func (r *Runner) acquire(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running[name] {
		return false
	}
	r.running[name] = true
	return true
}

func (r *Runner) release(name string) {
	r.mu.Lock()
	delete(r.running, name)
	r.mu.Unlock()
}

// Listen runs every trigger that arrives on b until ctx ends. Runs happen
// on the forwarder goroutine, so triggers for a busy runner queue up.
func (r *Runner) Listen(ctx context.Context, b bus.Bus) error {
	return b.StartForwarder(ctx, func(t bus.Trigger) {
		observability.Current().IncJobTrigger(t.Job, t.Source)
		if !r.Known(t.Job) {
			r.log.Warn("ignoring trigger for unknown job", "job", t.Job)
			return
		}
		log := r.log.With("job", t.Job, "request_id", t.RequestID)
		log.Info("job trigger received", "source", t.Source)
		if _, err := r.Run(ctx, t.Job); err != nil {
			log.Warn("triggered run did not complete", "error", err)
		}
	})
}
