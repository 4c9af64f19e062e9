// Package querytrack maintains the table of in-flight queries awaiting
// answers, keyed by the random identifier echoed back by the peer.
package querytrack

import (
	"crypto/rand"
	"fmt"
	"sync"
)

// IDSize is the size of a query correlation identifier in bytes.
const IDSize = 32

// Result is the outcome delivered to a waiting caller.
type Result struct {
	// Data is the answer payload on success.
	Data []byte

	// Err is the failure cause when the query could not complete.
	Err error
}

// Tracker is the pending-query table. Entries are created when a query is
// sent and removed when matched by an incoming answer, failed, or
// cancelled by timeout.
//
// Tracker is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	pending map[[IDSize]byte]chan Result
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{
		pending: make(map[[IDSize]byte]chan Result),
	}
}

// Register creates a pending entry under a fresh random 256-bit identifier
// and returns the identifier together with the channel its result will be
// delivered on. The channel is buffered; delivery never blocks.
func (t *Tracker) Register() ([]byte, <-chan Result, error) {
	var id [IDSize]byte
	if _, err := rand.Read(id[:]); err != nil {
		return nil, nil, fmt.Errorf("failed to generate query id: %w", err)
	}

	ch := make(chan Result, 1)

	t.mu.Lock()
	t.pending[id] = ch
	t.mu.Unlock()

	return id[:], ch, nil
}

// Resolve delivers an answer payload to the waiter registered under id.
// It returns false when no entry matches, which callers report and discard:
// a late answer for an expired query is not an error.
func (t *Tracker) Resolve(id, data []byte) bool {
	ch, ok := t.take(id)
	if !ok {
		return false
	}
	ch <- Result{Data: data}
	return true
}

// Fail delivers an error to the waiter registered under id.
func (t *Tracker) Fail(id []byte, err error) bool {
	ch, ok := t.take(id)
	if !ok {
		return false
	}
	ch <- Result{Err: err}
	return true
}

// Cancel removes the entry for id without delivering anything. The caller
// abandoning the wait (timeout, context cancellation) uses this so a late
// answer becomes an unmatched miss.
func (t *Tracker) Cancel(id []byte) {
	t.take(id)
}

// FailAll fails every pending query with err. Used when the connection
// carrying them closes.
func (t *Tracker) FailAll(err error) {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[[IDSize]byte]chan Result)
	t.mu.Unlock()

	for _, ch := range pending {
		ch <- Result{Err: err}
	}
}

// Len returns the number of in-flight queries.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// take removes and returns the channel for id.
func (t *Tracker) take(id []byte) (chan Result, bool) {
	if len(id) != IDSize {
		return nil, false
	}
	var key [IDSize]byte
	copy(key[:], id)

	t.mu.Lock()
	defer t.mu.Unlock()

	ch, ok := t.pending[key]
	if ok {
		delete(t.pending, key)
	}
	return ch, ok
}
