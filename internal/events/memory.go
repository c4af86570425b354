package events

import (
	"context"
	"errors"
	"sync"
)

// MemoryBus is an in-process bus for tests. Published events queue up until a
// test drains them into a handler, mimicking at-least-once delivery: a failed
// handler leaves the event queued for redelivery.
type MemoryBus struct {
	mu     sync.Mutex
	queued []DepositReceived
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

var _ Publisher = (*MemoryBus)(nil)

// Ready always succeeds; the in-memory bus has no broker to lose.
func (b *MemoryBus) Ready() error { return nil }

// PublishDepositReceived appends the event to the queue.
func (b *MemoryBus) PublishDepositReceived(_ context.Context, event DepositReceived) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queued = append(b.queued, event)
	return nil
}

// Pending returns the number of undelivered events.
func (b *MemoryBus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queued)
}

// Deliver hands the oldest queued event to the handler. Success or ErrSkip
// removes it; any other error leaves it queued and returns the error.
func (b *MemoryBus) Deliver(ctx context.Context, handler Handler) error {
	b.mu.Lock()
	if len(b.queued) == 0 {
		b.mu.Unlock()
		return nil
	}
	event := b.queued[0]
	b.mu.Unlock()

	if err := handler(ctx, event); err != nil && !errors.Is(err, ErrSkip) {
		return err
	}

	b.mu.Lock()
	b.queued = b.queued[1:]
	b.mu.Unlock()
	return nil
}
