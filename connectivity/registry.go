package connectivity

import (
	"context"
	"slices"
	"sync"
)

// Handle identifies a registered callback. Handles are allocated
// monotonically starting at 1 and are never reused, so removing a
// handle twice or removing an unknown handle is a silent no-op.
type Handle int64

// Callback is invoked when a connectivity event fires. Callbacks run
// synchronously on the goroutine that detected the event, in the order
// they were registered.
type Callback func(ctx context.Context)

// HandlerRegistry stores callbacks for one connectivity event.
// It is safe for concurrent use.
type HandlerRegistry struct {
	// mu protects next, order and entries
	mu      sync.RWMutex
	next    Handle
	order   []Handle // Deterministic iteration order
	entries map[Handle]Callback
}

// NewHandlerRegistry creates an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		next:    1,
		entries: make(map[Handle]Callback),
	}
}

// Add registers a callback and returns its handle. The first handle
// issued by a registry is 1.
func (r *HandlerRegistry) Add(cb Callback) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.next
	r.next++
	r.order = append(r.order, h)
	r.entries[h] = cb
	return h
}

// Remove unregisters the callback for the given handle. Unknown or
// already-removed handles are ignored.
func (r *HandlerRegistry) Remove(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[h]; !ok {
		return
	}
	delete(r.entries, h)
	if i := slices.Index(r.order, h); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
}

// Len returns the number of registered callbacks.
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// snapshot returns the registered callbacks in registration order.
// Callbacks registered or removed after the snapshot do not affect an
// in-flight notification round.
func (r *HandlerRegistry) snapshot() []Callback {
	r.mu.RLock()
	defer r.mu.RUnlock()

	callbacks := make([]Callback, 0, len(r.order))
	for _, h := range r.order {
		if cb := r.entries[h]; cb != nil {
			callbacks = append(callbacks, cb)
		}
	}
	return callbacks
}
