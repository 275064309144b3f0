package attachment

import (
	"context"
	"sync"
)

// OwnerDeleted announces that an owning task or subtask was removed
// from its record store. The attachment subsystem subscribes to it for
// cascade cleanup, keeping the two stores loosely coupled.
type OwnerDeleted struct {
	Type OwnerType
	ID   string
}

// OwnerEventBus fans owner-deleted events out to subscribers.
// Dispatch is synchronous, so a publisher observes cascade cleanup as
// completed when Publish returns.
type OwnerEventBus struct {
	mu       sync.RWMutex
	handlers []func(ctx context.Context, event OwnerDeleted)
}

func NewOwnerEventBus() *OwnerEventBus {
	return &OwnerEventBus{}
}

// Subscribe registers a handler for owner-deleted events.
func (b *OwnerEventBus) Subscribe(handler func(ctx context.Context, event OwnerDeleted)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Publish delivers the event to every subscriber.
func (b *OwnerEventBus) Publish(ctx context.Context, event OwnerDeleted) {
	b.mu.RLock()
	handlers := make([]func(ctx context.Context, event OwnerDeleted), len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(ctx, event)
	}
}
