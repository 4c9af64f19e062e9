// Package flow bounds the number of queries in flight on one connection.
package flow

import (
	"context"
	"errors"
	"sync"
)

// DefaultLimit is the in-flight query limit used when none is configured.
const DefaultLimit = 1024

// ErrClosed is returned by Acquire after the limiter has been closed.
var ErrClosed = errors.New("flow: limiter is closed")

// Limiter blocks new queries once the in-flight count reaches the limit.
// Blocked callers are released in a burst when the count drops back to the
// resume threshold, a fraction of the limit, so the limiter does not
// oscillate around the boundary.
// All methods are safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	limit    int
	resumeAt int
	inflight int
	blocked  bool
	closed   bool

	// resume is closed to wake every blocked Acquire, then replaced.
	resume chan struct{}

	onBlocked func()
}

// NewLimiter creates a limiter allowing up to limit queries in flight.
// If limit <= 0, DefaultLimit is used.
func NewLimiter(limit int) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	resumeAt := limit / 2
	if resumeAt < 1 {
		resumeAt = 1
	}

	return &Limiter{
		limit:    limit,
		resumeAt: resumeAt,
		resume:   make(chan struct{}),
	}
}

// SetBlockedCallback sets a callback invoked each time the limiter starts
// blocking new queries.
func (l *Limiter) SetBlockedCallback(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onBlocked = fn
}

// Acquire reserves one in-flight slot. When the limit is reached it blocks
// until enough queries complete or the context is done. Returns ErrClosed
// after Close.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()

		if l.closed {
			l.mu.Unlock()
			return ErrClosed
		}

		if !l.blocked {
			l.inflight++
			if l.inflight >= l.limit {
				l.blocked = true
				if l.onBlocked != nil {
					l.onBlocked()
				}
			}
			l.mu.Unlock()
			return nil
		}

		wait := l.resume
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wait:
		}
	}
}

// Release returns one in-flight slot. Call it once per successful Acquire,
// whatever the outcome of the query.
func (l *Limiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.inflight > 0 {
		l.inflight--
	}
	if l.closed {
		return
	}

	if l.blocked && l.inflight <= l.resumeAt {
		l.blocked = false
		close(l.resume)
		l.resume = make(chan struct{})
	}
}

// InFlight returns the current number of reserved slots.
func (l *Limiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inflight
}

// IsBlocked reports whether new Acquire calls currently block.
func (l *Limiter) IsBlocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.blocked
}

// Close releases every blocked Acquire with ErrClosed. Idempotent.
func (l *Limiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	close(l.resume)
}
