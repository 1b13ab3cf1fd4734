// Package bus carries job triggers between processes.
package bus

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/babycare-backend/internal/config"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

var ErrClosed = errors.New("job bus closed")

// Trigger asks whichever process is listening to run Job once.
type Trigger struct {
	Job         string    `json:"job"`
	Source      string    `json:"source,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

type Bus interface {
	Publish(ctx context.Context, t Trigger) error
	// StartForwarder delivers triggers to onMsg on its own goroutine until
	// ctx ends or the bus is closed.
	StartForwarder(ctx context.Context, onMsg func(t Trigger)) error
	Close() error
}

// New returns a Redis pub/sub bus when an address is configured and an
// in-process bus otherwise.
func New(log *logger.Logger, cfg config.RedisConfig) (Bus, error) {
	if cfg.Addr == "" {
		log.Info("REDIS_ADDR not set, using in-process job bus")
		return NewMemoryBus(log), nil
	}
	return NewRedisBus(log, cfg.Addr, cfg.Channel)
}
