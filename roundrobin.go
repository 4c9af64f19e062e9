package adnl

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Dzeta-tech/adnl/internal/eventdispatch"
)

// RoundRobin is the multi-server engine. It owns one single-connection
// client per configured server and dispatches the k-th call to client
// index k mod N.
//
// There is no health tracking and no failover: a failing server's error
// surfaces directly to the caller of that dispatch.
type RoundRobin struct {
	clients []*Client
	next    atomic.Uint64

	dispatcher *eventdispatch.Dispatcher[Event]

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewRoundRobin creates one client per configured server. Connections are
// dialed lazily, per client, on first use.
func NewRoundRobin(cfg *Config) (*RoundRobin, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.applyDefaults()

	rr := &RoundRobin{
		clients:    make([]*Client, 0, len(cfg.Servers)),
		dispatcher: eventdispatch.New[Event](cfg.EventBufferSize),
	}
	for _, server := range cfg.Servers {
		rr.clients = append(rr.clients, newClient(cfg, server))
	}

	// Funnel every client's events into one channel.
	for _, client := range rr.clients {
		rr.wg.Add(1)
		go rr.forwardEvents(client)
	}
	return rr, nil
}

// Len returns the number of servers in rotation.
func (r *RoundRobin) Len() int {
	return len(r.clients)
}

// Clients returns the underlying single-connection clients, in server
// order.
func (r *RoundRobin) Clients() []*Client {
	out := make([]*Client, len(r.clients))
	copy(out, r.clients)
	return out
}

// Events returns the merged event channel of all clients. The channel is
// closed by Close.
func (r *RoundRobin) Events() <-chan Event {
	return r.dispatcher.Events()
}

// Query dispatches one query to the next client in rotation.
func (r *RoundRobin) Query(ctx context.Context, request []byte) ([]byte, error) {
	return r.pick().Query(ctx, request)
}

// Ping pings the next client in rotation.
func (r *RoundRobin) Ping(ctx context.Context) error {
	return r.pick().Ping(ctx)
}

// Stats returns a snapshot per client, in server order.
func (r *RoundRobin) Stats() []Stats {
	out := make([]Stats, 0, len(r.clients))
	for _, client := range r.clients {
		out = append(out, client.Stats())
	}
	return out
}

// Close shuts down every client and the merged event channel. Idempotent.
func (r *RoundRobin) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	for _, client := range r.clients {
		client.Close()
	}
	r.wg.Wait()
	r.dispatcher.Close()
}

// pick selects the client for the next dispatch.
func (r *RoundRobin) pick() *Client {
	k := r.next.Add(1) - 1
	return r.clients[k%uint64(len(r.clients))]
}

// forwardEvents copies one client's events into the merged channel until
// that client closes.
func (r *RoundRobin) forwardEvents(client *Client) {
	defer r.wg.Done()
	for e := range client.Events() {
		r.dispatcher.Emit(e)
	}
}
