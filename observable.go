package corenostr

import "sync"

// Observable is a last-write-wins cell with subscribe-to-changes semantics,
// per spec §9's "observable values" design note. It generalises the
// callback-registration pattern the teacher uses for relay status and
// NIP-11 info notifications (Pool.SetOnStatusChange / SetOnRelayInfo) into
// a reusable, typed primitive shared by the pool, subscription, and profile
// packages.
type Observable[T any] struct {
	mu        sync.RWMutex
	value     T
	listeners map[int]func(T)
	nextID    int
}

// NewObservable creates an observable cell holding the given initial value.
func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{value: initial, listeners: make(map[int]func(T))}
}

// Get returns the current value.
func (o *Observable[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Set stores a new value and notifies every subscriber.
// Notification happens without holding the lock so a listener may safely
// call back into the observable (e.g. to unsubscribe itself).
func (o *Observable[T]) Set(v T) {
	o.mu.Lock()
	o.value = v
	listeners := make([]func(T), 0, len(o.listeners))
	for _, l := range o.listeners {
		listeners = append(listeners, l)
	}
	o.mu.Unlock()

	for _, l := range listeners {
		l(v)
	}
}

// Subscribe registers a listener invoked on every future Set call and
// returns an unsubscribe function. It does not replay the current value.
func (o *Observable[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}
