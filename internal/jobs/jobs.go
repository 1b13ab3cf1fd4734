// Package jobs runs the batch jobs that derive the symptom timeline and the
// per-intent history summaries from saved chats.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

const (
	TimelineETL       = "timeline_etl"
	HistorySummarizer = "history_summarizer"
)

const (
	StatusSuccess   = "success"
	StatusNoNewData = "no new data"
)

var (
	ErrUnknownJob     = errors.New("unknown job")
	ErrAlreadyRunning = errors.New("job already running")
)

type Result struct {
	Status       string `json:"status"`
	RowsInserted int    `json:"rows_inserted"`
}

type Handler interface {
	Type() string
	Run(ctx context.Context) (Result, error)
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	t := h.Type()
	if t == "" {
		return fmt.Errorf("handler Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler already registered for job=%s", t)
	}
	r.handlers[t] = h
	return nil
}

func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
