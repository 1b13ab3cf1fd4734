package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

const memoryBuffer = 16

type memoryBus struct {
	log *logger.Logger

	mu     sync.Mutex
	subs   map[int]chan Trigger
	nextID int
	closed bool
	wg     sync.WaitGroup
}

func NewMemoryBus(log *logger.Logger) Bus {
	return &memoryBus{
		log:  log.With("service", "MemoryJobBus"),
		subs: map[int]chan Trigger{},
	}
}

// Publish never blocks; a subscriber with a full buffer misses the trigger.
func (b *memoryBus) Publish(ctx context.Context, t Trigger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for id, ch := range b.subs {
		select {
		case ch <- t:
		default:
			b.log.Warn("job trigger dropped, subscriber busy", "job", t.Job, "subscriber", id)
		}
	}
	return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onMsg func(t Trigger)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	id := b.nextID
	b.nextID++
	ch := make(chan Trigger, memoryBuffer)
	b.subs[id] = ch
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		defer b.unsubscribe(id)
		for {
			select {
			case <-ctx.Done():
				return
			case t, ok := <-ch:
				if !ok {
					return
				}
				onMsg(t)
			}
		}
	}()
	return nil
}

func (b *memoryBus) unsubscribe(id int) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// Close stops every forwarder and waits for them to return.
func (b *memoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
	b.mu.Unlock()
	b.wg.Wait()
	return nil
}
