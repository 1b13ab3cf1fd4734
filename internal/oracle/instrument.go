package oracle

import (
	"context"
	"errors"
	"time"
)

// ObserveFunc receives one record per oracle call. status is "ok",
// "unavailable", "schema_violation" or "error".
type ObserveFunc func(backend, op, status string, dur time.Duration)

type instrumented struct {
	next    Oracle
	backend string
	observe ObserveFunc
}

// Instrument wraps o so every call is reported to observe.
func Instrument(o Oracle, backend string, observe ObserveFunc) Oracle {
	if observe == nil {
		return o
	}
	return &instrumented{next: o, backend: backend, observe: observe}
}

func (i *instrumented) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	start := time.Now()
	out, err := i.next.Complete(ctx, messages, opts)
	i.observe(i.backend, "complete", StatusOf(err), time.Since(start))
	return out, err
}

func (i *instrumented) Extract(ctx context.Context, messages []Message, schema Schema, opts Options) (map[string]any, error) {
	start := time.Now()
	out, err := i.next.Extract(ctx, messages, schema, opts)
	i.observe(i.backend, "extract", StatusOf(err), time.Since(start))
	return out, err
}

func StatusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrRejected):
		return "rejected"
	case IsSchemaViolation(err):
		return "schema_violation"
	default:
		return "error"
	}
}
