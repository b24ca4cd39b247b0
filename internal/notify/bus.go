// Package notify provides the in-process notification bus for ephemeral
// status toasts. The bus is an injected instance, not a package global, so
// tests can create and discard isolated buses.
package notify

import (
	"sync"
	"time"
)

// ToastType classifies a notification for presentation.
type ToastType string

const (
	TypeError   ToastType = "error"
	TypeSuccess ToastType = "success"
	TypeInfo    ToastType = "info"
	TypeWarning ToastType = "warning"
)

// Toast is one ephemeral notification. Duration 0 means the toast never
// auto-dismisses. Toasts are never persisted.
type Toast struct {
	ID       int64
	Type     ToastType
	Message  string
	Duration time.Duration
}

// Handler receives published toasts. Handlers must not block: fan-out is
// synchronous and runs on the publisher's goroutine.
type Handler func(Toast)

// Bus fans published toasts out to every live subscriber, in publish order,
// each toast carrying a monotonically increasing id.
type Bus struct {
	mu       sync.RWMutex // guards the subscriber set
	pubMu    sync.Mutex   // serializes id assignment and delivery
	nextID   int64
	nextSub  int
	handlers map[int]Handler
}

// NewBus creates an empty notification bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers a handler and returns its unsubscribe function.
func (b *Bus) Subscribe(fn Handler) func() {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.handlers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Publish delivers a toast to all current subscribers. Publishes are
// serialized end to end: the id is assigned and delivered under one dispatch
// lock, so concurrent publishers cannot reach a subscriber out of id order.
func (b *Bus) Publish(message string, kind ToastType, duration time.Duration) Toast {
	if kind == "" {
		kind = TypeInfo
	}

	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	// Copy handlers so a subscriber can unsubscribe from inside its callback.
	b.mu.RLock()
	targets := make([]Handler, 0, len(b.handlers))
	for _, fn := range b.handlers {
		targets = append(targets, fn)
	}
	b.mu.RUnlock()

	b.nextID++
	toast := Toast{
		ID:       b.nextID,
		Type:     kind,
		Message:  message,
		Duration: duration,
	}

	for _, fn := range targets {
		fn(toast)
	}
	return toast
}
