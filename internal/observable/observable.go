// Package observable provides publish/subscribe fields for UI state.
//
// A Value holds current state and notifies subscribers on every Set.
// An Event is a one-shot signal: it stays pending after Emit until the
// consumer acknowledges it, and subscribers hear about each Emit once.
package observable

import "sync"

// Readable is the read-only view of a Value.
type Readable[T any] interface {
	Get() T
	Subscribe(fn func(T)) (cancel func())
}

// Signal is the read-only view of an Event.
type Signal[T any] interface {
	Pending() (T, bool)
	Subscribe(fn func(T)) (cancel func())
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// subscribers keeps registrations in subscription order.
type subscribers[T any] struct {
	mu     sync.Mutex
	nextID int
	list   []subscriber[T]
}

func (s *subscribers[T]) add(fn func(T)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.list = append(s.list, subscriber[T]{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.list {
				if sub.id == id {
					s.list = append(s.list[:i:i], s.list[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *subscribers[T]) notify(v T) {
	s.mu.Lock()
	list := append([]subscriber[T](nil), s.list...)
	s.mu.Unlock()
	for _, sub := range list {
		sub.fn(v)
	}
}

// Value is a mutable field observers can read and subscribe to.
type Value[T any] struct {
	mu   sync.RWMutex
	v    T
	subs subscribers[T]
}

// NewValue returns a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.v
}

// Set stores x and notifies subscribers synchronously, on the caller's
// goroutine. Subscribers may start controller operations; they must not
// block on the consumer they forward to.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	v.v = x
	v.mu.Unlock()
	v.subs.notify(x)
}

// Subscribe registers fn for future changes.
func (v *Value[T]) Subscribe(fn func(T)) (cancel func()) {
	return v.subs.add(fn)
}

// Map derives a Value recomputed from src on every change of src.
func Map[T, U any](src Readable[T], fn func(T) U) *Value[U] {
	out := NewValue(fn(src.Get()))
	src.Subscribe(func(x T) {
		out.Set(fn(x))
	})
	return out
}

// Event is a one-shot signal that must be acknowledged after use.
type Event[T any] struct {
	mu      sync.RWMutex
	v       T
	pending bool
	subs    subscribers[T]
}

// NewEvent returns an Event at rest.
func NewEvent[T any]() *Event[T] {
	return &Event[T]{}
}

// Emit makes x pending and notifies subscribers once.
func (e *Event[T]) Emit(x T) {
	e.mu.Lock()
	e.v = x
	e.pending = true
	e.mu.Unlock()
	e.subs.notify(x)
}

// Pending returns the unacknowledged value, if any.
func (e *Event[T]) Pending() (T, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.v, e.pending
}

// Acknowledge returns the event to rest. It reports whether a value was pending.
func (e *Event[T]) Acknowledge() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	was := e.pending
	var zero T
	e.v = zero
	e.pending = false
	return was
}

// Subscribe registers fn for future emits.
func (e *Event[T]) Subscribe(fn func(T)) (cancel func()) {
	return e.subs.add(fn)
}
