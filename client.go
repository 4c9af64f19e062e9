package adnl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Dzeta-tech/adnl/internal/eventdispatch"
	"github.com/Dzeta-tech/adnl/internal/flow"
	"github.com/Dzeta-tech/adnl/internal/querytrack"
	"github.com/Dzeta-tech/adnl/pkg/connection"
	"github.com/Dzeta-tech/adnl/pkg/packet"
	"github.com/Dzeta-tech/adnl/pkg/tl"
)

// Client is the single-connection engine. It owns one connection to one
// server and the table of queries in flight on it: it connects lazily on
// first use, reconnects on demand when the connection is not ready, and
// correlates answers to callers by the echoed query id.
//
// All public methods are safe for concurrent use.
type Client struct {
	config *Config
	server ServerDescriptor

	log     Logger
	metrics Metrics
	tracer  Tracer

	dispatcher *eventdispatch.Dispatcher[Event]
	tracker    *querytrack.Tracker
	limiter    *flow.Limiter
	stats      *statsCounters

	// connectMu serializes dial attempts so concurrent callers finding a
	// dead connection produce one reconnect, not a thundering herd.
	connectMu sync.Mutex

	mu     sync.Mutex
	conn   *connection.Conn
	closed bool

	pingMu sync.Mutex
	pings  map[int64]chan struct{}
}

// NewClient creates a client for the first configured server. The
// connection is not dialed until the first query, ping, or explicit
// Connect.
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.applyDefaults()
	return newClient(cfg, cfg.Servers[0]), nil
}

// newClient wires a client for one specific server. The configuration
// must already be validated and defaulted.
func newClient(cfg *Config, server ServerDescriptor) *Client {
	c := &Client{
		config:     cfg,
		server:     server,
		log:        cfg.Logger,
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
		dispatcher: eventdispatch.New[Event](cfg.EventBufferSize),
		tracker:    querytrack.New(),
		limiter:    flow.NewLimiter(cfg.MaxInFlight),
		stats:      newStatsCounters(),
		pings:      make(map[int64]chan struct{}),
	}
	c.limiter.SetBlockedCallback(func() {
		c.log.Warn("in-flight query limit reached", "server", server.Addr(),
			"limit", cfg.MaxInFlight)
	})
	return c
}

// Server returns the descriptor of the server this client talks to.
func (c *Client) Server() ServerDescriptor {
	return c.server
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return StateClosed
	}
	return conn.State()
}

// Events returns the client's event channel. Lifecycle changes, stray
// inbound data, and failures all arrive here, tagged by type. The channel
// is closed by Close.
func (c *Client) Events() <-chan Event {
	return c.dispatcher.Events()
}

// Connect establishes the connection eagerly. Queries connect lazily, so
// calling Connect is optional.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.ensureReady(ctx)
	return err
}

// Query sends an encoded request and blocks until the matching answer
// arrives, the context is done, or the query timeout elapses. The
// connection is dialed first if it is not ready.
//
// A timeout fails only this query; the connection stays usable for
// others.
func (c *Client) Query(ctx context.Context, request []byte) ([]byte, error) {
	conn, err := c.ensureReady(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.StartQuery(ctx, c.server.Addr(), len(request))
	result, err := c.query(ctx, conn, request)
	span.End(err)
	return result, err
}

func (c *Client) query(ctx context.Context, conn *connection.Conn, request []byte) ([]byte, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, flow.ErrClosed) {
			return nil, NewError(ErrCodeClientClosed, "client is closed")
		}
		return nil, NewServerError(ErrCodeQueryTimeout, "wait for in-flight slot expired", c.server.Addr(), err)
	}
	defer c.limiter.Release()

	id, answer, err := c.tracker.Register()
	if err != nil {
		return nil, err
	}

	payload, err := buildQueryEnvelope(id, request)
	if err != nil {
		c.tracker.Cancel(id)
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); !ok || deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.QueryTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := conn.Write(ctx, payload); err != nil {
		c.tracker.Cancel(id)
		c.metrics.QueryResult("failure")
		return nil, c.wrapTransportError("failed to send query", err)
	}
	c.metrics.QuerySent(c.server.Addr(), len(payload))
	c.stats.querySent(len(payload))

	select {
	case res := <-answer:
		if res.Err != nil {
			c.metrics.QueryResult("failure")
			return nil, res.Err
		}
		c.metrics.QueryResult("success")
		c.metrics.QueryDuration(time.Since(start).Seconds())
		c.stats.answerReceived(len(res.Data))
		return res.Data, nil
	case <-ctx.Done():
		// The entry is removed here so a late answer becomes an
		// unmatched miss instead of resolving a dead waiter.
		c.tracker.Cancel(id)
		c.metrics.QueryResult("timeout")
		c.stats.queryTimedOut()
		return nil, NewServerError(ErrCodeQueryTimeout, "query timed out", c.server.Addr(), ctx.Err())
	case <-conn.Done():
		c.tracker.Cancel(id)
		c.metrics.QueryResult("failure")
		return nil, c.connectionLost(conn)
	}
}

// Ping sends a keep-alive ping and blocks until the matching pong arrives
// or the context is done.
func (c *Client) Ping(ctx context.Context) error {
	conn, err := c.ensureReady(ctx)
	if err != nil {
		return err
	}

	ctx, span := c.tracer.StartPing(ctx, c.server.Addr())
	err = c.ping(ctx, conn)
	span.End(err)
	return err
}

func (c *Client) ping(ctx context.Context, conn *connection.Conn) error {
	payload, value, err := buildPing()
	if err != nil {
		return err
	}

	pong := make(chan struct{}, 1)
	c.pingMu.Lock()
	c.pings[value] = pong
	c.pingMu.Unlock()
	defer func() {
		c.pingMu.Lock()
		delete(c.pings, value)
		c.pingMu.Unlock()
	}()

	if deadline, ok := ctx.Deadline(); !ok || deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.QueryTimeout)
		defer cancel()
	}

	if err := conn.Write(ctx, payload); err != nil {
		return c.wrapTransportError("failed to send ping", err)
	}
	c.metrics.PingSent()

	select {
	case <-pong:
		return nil
	case <-ctx.Done():
		return NewServerError(ErrCodeQueryTimeout, "ping timed out", c.server.Addr(), ctx.Err())
	case <-conn.Done():
		return c.connectionLost(conn)
	}
}

// Close shuts the client down: pending queries are failed, the connection
// is torn down, and the event channel is closed. Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.limiter.Close()
	c.tracker.FailAll(ErrClientClosed)
	if conn != nil {
		conn.Close()
	}
	c.dispatcher.Close()
}

// ensureReady returns a ready connection, dialing a fresh one when the
// current connection is absent or no longer ready.
func (c *Client) ensureReady(ctx context.Context) (*connection.Conn, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, NewError(ErrCodeClientClosed, "client is closed")
	}
	conn := c.conn
	c.mu.Unlock()

	if conn != nil && conn.State() == StateReady {
		return conn, nil
	}

	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	// Another caller may have reconnected while this one waited.
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, NewError(ErrCodeClientClosed, "client is closed")
	}
	conn = c.conn
	c.mu.Unlock()
	if conn != nil && conn.State() == StateReady {
		return conn, nil
	}
	if conn != nil {
		conn.Close()
	}

	return c.connect(ctx)
}

// connect dials and handshakes one fresh connection. Caller holds
// connectMu.
func (c *Client) connect(ctx context.Context) (*connection.Conn, error) {
	conn, err := connection.New(connection.Config{
		Addr:             c.server.Addr(),
		PeerPublic:       c.server.PublicKey,
		ConnectTimeout:   c.config.ConnectTimeout,
		HandshakeTimeout: c.config.HandshakeTimeout,
		FrameBuffer:      c.config.FrameBufferSize,
		OnEvent:          c.onConnEvent,
	})
	if err != nil {
		return nil, NewServerError(ErrCodeInvalidConfig, "invalid server descriptor", c.server.Addr(), err)
	}

	c.log.Info("connecting", "server", c.server.Addr())
	ctx, span := c.tracer.StartConnect(ctx, c.server.Addr())
	start := time.Now()
	err = conn.Connect(ctx)
	span.End(err)

	if err != nil {
		c.metrics.ConnectionAttempt("failure")
		if errors.Is(err, connection.ErrHandshakeTimeout) {
			c.metrics.HandshakeResult("timeout")
			return nil, NewServerError(ErrCodeHandshakeTimeout, "handshake timed out", c.server.Addr(), err)
		}
		c.metrics.HandshakeResult("failure")
		c.log.Error("connect failed", "server", c.server.Addr(), "error", err)
		return nil, NewServerError(ErrCodeConnectionFailed, "connect failed", c.server.Addr(), err)
	}

	c.metrics.ConnectionAttempt("success")
	c.metrics.HandshakeResult("success")
	c.metrics.HandshakeDuration(time.Since(start).Seconds())
	c.stats.connected()
	c.log.Info("connection ready", "server", c.server.Addr(),
		"handshake", time.Since(start))

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return nil, NewError(ErrCodeClientClosed, "client is closed")
	}
	c.conn = conn
	c.mu.Unlock()

	go c.consumeFrames(conn)
	if c.config.KeepAliveInterval > 0 {
		go c.keepAlive(conn)
	}
	return conn, nil
}

// consumeFrames routes decrypted frames from one connection until it
// closes, then fails the queries still waiting on it.
func (c *Client) consumeFrames(conn *connection.Conn) {
	for {
		select {
		case frame := <-conn.Frames():
			c.handleFrame(conn, frame.Payload)
		case <-conn.Done():
			c.tracker.FailAll(c.connectionLost(conn))
			return
		}
	}
}

// handleFrame classifies one inbound payload by its leading constructor
// tag: answer, pong, or application data.
func (c *Client) handleFrame(conn *connection.Conn, payload []byte) {
	c.metrics.FrameReceived(len(payload))
	c.stats.frameReceived(len(payload))

	r := tl.NewReader(payload)
	tag, err := r.ReadTag()
	if err != nil {
		c.log.Warn("discarding undersized frame", "size", len(payload))
		return
	}

	switch tag {
	case tagAnswer:
		id, result, err := parseAnswer(r)
		if err != nil {
			// A truncated answer means the stream can no longer be
			// trusted.
			c.log.Error("malformed answer frame", "error", err)
			conn.Close()
			return
		}
		c.metrics.AnswerReceived(c.server.Addr(), len(result))
		if !c.tracker.Resolve(id, result) {
			c.metrics.UnmatchedAnswer()
			c.stats.unmatchedAnswer()
			c.log.Warn("answer matched no pending query", "server", c.server.Addr())
		}

	case tagPong:
		value, err := r.ReadInt64()
		if err != nil {
			c.log.Warn("malformed pong frame")
			return
		}
		c.metrics.PongReceived()
		c.pingMu.Lock()
		waiter := c.pings[value]
		c.pingMu.Unlock()
		if waiter != nil {
			select {
			case waiter <- struct{}{}:
			default:
			}
		}

	default:
		c.emit(Event{
			Type:      EventData,
			Server:    c.server.Addr(),
			Data:      payload,
			Timestamp: time.Now(),
		})
	}
}

// keepAlive pings the connection every KeepAliveInterval until it closes.
// Pongs are consumed by the frame classifier; the loop only sends.
func (c *Client) keepAlive(conn *connection.Conn) {
	ticker := time.NewTicker(c.config.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if conn.State() != StateReady {
				continue
			}
			payload, _, err := buildPing()
			if err != nil {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), c.config.KeepAliveInterval)
			err = conn.Write(ctx, payload)
			cancel()
			if err != nil {
				c.log.Debug("keep-alive write failed", "server", c.server.Addr(), "error", err)
				continue
			}
			c.metrics.PingSent()
		case <-conn.Done():
			return
		}
	}
}

// onConnEvent translates connection lifecycle transitions into client
// events and metrics.
func (c *Client) onConnEvent(e connection.Event) {
	switch e.State {
	case connection.StateHandshaking:
		c.emit(Event{Type: EventConnected, Server: c.server.Addr(), Timestamp: e.Timestamp})
	case connection.StateReady:
		c.metrics.ConnectionOpened(c.server.Addr())
		c.emit(Event{Type: EventReady, Server: c.server.Addr(), Timestamp: e.Timestamp})
	case connection.StateClosing:
		if e.Err != nil {
			if errors.Is(e.Err, packet.ErrChecksumMismatch) {
				c.metrics.IntegrityError()
			}
			c.emit(Event{Type: EventError, Server: c.server.Addr(), Err: e.Err, Timestamp: e.Timestamp})
		}
	case connection.StateClosed:
		c.metrics.ConnectionClosed(c.server.Addr())
		c.stats.disconnected()
		c.emit(Event{Type: EventClosed, Server: c.server.Addr(), Err: e.Err, Timestamp: e.Timestamp})
	}
}

// emit delivers an event through the dispatcher, recording drops.
func (c *Client) emit(e Event) {
	before := c.dispatcher.Dropped()
	c.dispatcher.Emit(e)
	c.metrics.EventEmitted(e.Type.String())
	if c.dispatcher.Dropped() > before {
		c.metrics.EventDropped()
	}
}

// connectionLost builds the error reported for operations interrupted by
// the connection going down.
func (c *Client) connectionLost(conn *connection.Conn) error {
	cause := conn.Err()
	if cause == nil {
		cause = ErrConnectionLost
	}
	return NewServerError(ErrCodeConnectionClosed, "connection lost", c.server.Addr(), cause)
}

// wrapTransportError classifies a send failure.
func (c *Client) wrapTransportError(msg string, err error) error {
	code := ErrCodeConnectionFailed
	if errors.Is(err, connection.ErrClosed) || errors.Is(err, connection.ErrNotReady) {
		code = ErrCodeConnectionClosed
	}
	e := NewServerError(code, msg, c.server.Addr(), err)
	e.Retriable = true
	return e
}
