// Package state provides small observable containers used by the managers to
// expose their state. Listeners are notified synchronously on every mutation,
// outside of the container lock, and are invoked once with the current value
// when they subscribe.
package state

import "sync"

// Readable is the read side of a container.
type Readable[T any] interface {
	Get() T
	// Subscribe registers a listener and immediately calls it with the current
	// value. The returned function removes the listener; calling it twice is safe.
	Subscribe(listener func(T)) (unsubscribe func())
}

// Writable is a mutable container. The zero value is not usable, use NewWritable.
type Writable[T any] struct {
	mu     sync.RWMutex
	value  T
	nextID int
	// listeners in subscription order.
	listeners []listener[T]
}

type listener[T any] struct {
	id int
	fn func(T)
}

func NewWritable[T any](initial T) *Writable[T] {
	return &Writable[T]{value: initial}
}

func (w *Writable[T]) Get() T {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.value
}

func (w *Writable[T]) Set(value T) {
	w.mu.Lock()
	w.value = value
	listeners := w.snapshot()
	w.mu.Unlock()

	for _, l := range listeners {
		l(value)
	}
}

// Update replaces the value with fn(current). fn runs under the container lock
// and must not touch the same container.
func (w *Writable[T]) Update(fn func(T) T) {
	w.mu.Lock()
	w.value = fn(w.value)
	value := w.value
	listeners := w.snapshot()
	w.mu.Unlock()

	for _, l := range listeners {
		l(value)
	}
}

func (w *Writable[T]) Subscribe(fn func(T)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.listeners = append(w.listeners, listener[T]{id: id, fn: fn})
	value := w.value
	w.mu.Unlock()

	fn(value)

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			for i, l := range w.listeners {
				if l.id == id {
					w.listeners = append(w.listeners[:i:i], w.listeners[i+1:]...)
					break
				}
			}
			w.mu.Unlock()
		})
	}
}

// ReadOnly hides the write side of w.
func (w *Writable[T]) ReadOnly() Readable[T] {
	return readOnly[T]{w}
}

func (w *Writable[T]) snapshot() []func(T) {
	out := make([]func(T), len(w.listeners))
	for i, l := range w.listeners {
		out[i] = l.fn
	}
	return out
}

type readOnly[T any] struct {
	w *Writable[T]
}

func (r readOnly[T]) Get() T                     { return r.w.Get() }
func (r readOnly[T]) Subscribe(l func(T)) func() { return r.w.Subscribe(l) }
