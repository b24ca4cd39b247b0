package notify

import (
	"sync"
	"time"
)

// DefaultRetention is the number of toasts a queue keeps before dropping the
// oldest one.
const DefaultRetention = 5

// ToastQueue is a bus subscriber that keeps a bounded list of active toasts.
// Each toast with a positive duration gets its own expiry timer; a toast with
// duration 0 stays until dismissed. Closing the queue cancels all timers and
// unsubscribes from the bus, so no expiry fires after Close.
type ToastQueue struct {
	mu          sync.Mutex
	active      []Toast
	timers      map[int64]*time.Timer
	retention   int
	unsubscribe func()
	closed      bool
}

// NewToastQueue subscribes a new queue to the bus.
func NewToastQueue(bus *Bus, retention int) *ToastQueue {
	if retention <= 0 {
		retention = DefaultRetention
	}
	q := &ToastQueue{
		timers:    make(map[int64]*time.Timer),
		retention: retention,
	}
	q.unsubscribe = bus.Subscribe(q.add)
	return q
}

func (q *ToastQueue) add(t Toast) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}

	q.active = append(q.active, t)
	for len(q.active) > q.retention {
		q.removeLocked(q.active[0].ID)
	}

	if t.Duration > 0 {
		id := t.ID
		q.timers[id] = time.AfterFunc(t.Duration, func() {
			q.Dismiss(id)
		})
	}
}

// Active returns a snapshot of the toasts currently shown.
func (q *ToastQueue) Active() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Toast, len(q.active))
	copy(out, q.active)
	return out
}

// Dismiss removes a toast early and cancels its expiry timer.
func (q *ToastQueue) Dismiss(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(id)
}

func (q *ToastQueue) removeLocked(id int64) {
	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}
	for i, t := range q.active {
		if t.ID == id {
			q.active = append(q.active[:i], q.active[i+1:]...)
			break
		}
	}
}

// Close unsubscribes from the bus and cancels every pending timer.
func (q *ToastQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.unsubscribe()
	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
	q.active = nil
}
