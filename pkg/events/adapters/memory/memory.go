// Package memory implements an in-process events.Bus: handlers registered
// for a topic are invoked synchronously, in subscription order, on
// Publish.
package memory

import (
	"context"
	"sync"

	"github.com/chris-alexander-pop/system-design-library/pkg/events"
)

// Bus is the in-memory events.Bus implementation.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]events.Handler
	closed   bool
}

// New returns an empty, ready-to-use Bus.
func New() *Bus {
	return &Bus{handlers: make(map[string][]events.Handler)}
}

// Subscribe registers handler for topic. Order of registration is the
// order handlers are invoked in on Publish.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler events.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
	return nil
}

// Publish invokes every handler subscribed to topic, synchronously. The
// first handler error is returned; remaining handlers still run.
func (b *Bus) Publish(ctx context.Context, topic string, event events.Event) error {
	b.mu.RLock()
	handlers := make([]events.Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	b.mu.RUnlock()

	var firstErr error
	for _, h := range handlers {
		if err := h(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close releases all subscriptions. The Bus is unusable afterward.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = nil
	return nil
}
