// Package eventdispatch provides buffered, non-blocking event delivery to
// application consumers.
package eventdispatch

import "sync"

// Dispatcher fans events out to a buffered channel. Sends never block: a
// slow or absent consumer costs dropped events, not stalled I/O paths.
type Dispatcher[T any] struct {
	events  chan T
	mu      sync.Mutex
	closed  bool
	dropped uint64
}

// New creates a dispatcher with the given buffer size.
func New[T any](bufferSize int) *Dispatcher[T] {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Dispatcher[T]{
		events: make(chan T, bufferSize),
	}
}

// Emit delivers an event. If the buffer is full the event is dropped and
// counted.
func (d *Dispatcher[T]) Emit(event T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	select {
	case d.events <- event:
	default:
		d.dropped++
	}
}

// Events returns the channel the application consumes. The channel is
// closed when the dispatcher is closed.
func (d *Dispatcher[T]) Events() <-chan T {
	return d.events
}

// Dropped returns the number of events discarded because the buffer was
// full.
func (d *Dispatcher[T]) Dropped() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Close closes the events channel. Safe to call multiple times.
func (d *Dispatcher[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.closed {
		d.closed = true
		close(d.events)
	}
}

// IsClosed returns true if the dispatcher has been closed.
func (d *Dispatcher[T]) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
