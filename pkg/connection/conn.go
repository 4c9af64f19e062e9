package connection

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/Dzeta-tech/adnl/internal/pool"
	"github.com/Dzeta-tech/adnl/pkg/crypto"
	"github.com/Dzeta-tech/adnl/pkg/packet"
)

// Default timing values applied when the Config leaves them zero.
const (
	DefaultConnectTimeout   = 10 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
)

// Sentinel errors for connection operations.
var (
	// ErrNotReady indicates Write was called before the handshake completed.
	ErrNotReady = errors.New("connection is not ready")

	// ErrAlreadyConnected indicates Connect was called on a non-closed
	// connection. A programmer error, never retried internally.
	ErrAlreadyConnected = errors.New("connection is not closed")

	// ErrClosed indicates the connection has been closed.
	ErrClosed = errors.New("connection is closed")

	// ErrHandshakeTimeout indicates the acknowledgement did not arrive in
	// time. A half-completed handshake cannot be resumed, so this always
	// closes the connection.
	ErrHandshakeTimeout = errors.New("handshake timeout")

	// ErrProtocolViolation indicates the peer sent content that the
	// protocol forbids, such as a non-empty frame during the handshake.
	ErrProtocolViolation = errors.New("protocol violation")
)

// Event is a connection lifecycle notification.
type Event struct {
	// State is the state entered.
	State State

	// Err carries the failure cause for error-driven transitions, nil
	// otherwise.
	Err error

	// Timestamp is when the transition occurred.
	Timestamp time.Time
}

// Config describes the peer a Conn dials and how patiently it does so.
type Config struct {
	// Addr is the host:port of the peer.
	Addr string

	// PeerPublic is the peer's static Ed25519 public key. The handshake
	// authenticates the peer against this key; the client itself is not
	// authenticated.
	PeerPublic ed25519.PublicKey

	// ConnectTimeout bounds the TCP dial.
	ConnectTimeout time.Duration

	// HandshakeTimeout bounds the wait for the handshake acknowledgement
	// after the handshake packet is sent.
	HandshakeTimeout time.Duration

	// OnEvent, if non-nil, is invoked for every state transition. It must
	// not block; it is called with internal locks released but from
	// latency-sensitive paths.
	OnEvent func(Event)

	// FrameBuffer is the capacity of the inbound frame channel.
	FrameBuffer int
}

// Conn is one ADNL TCP connection. It owns exactly one socket and one pair
// of stream ciphers while not closed, and runs a single background loop
// that decrypts incoming bytes, reassembles frames, and drives the state
// machine on received data.
//
// All public methods are safe for concurrent use.
type Conn struct {
	cfg       Config
	peerKeyID []byte

	mu     sync.Mutex
	state  State
	sock   net.Conn
	send   *crypto.StreamCipher
	recv   *crypto.StreamCipher
	ready  chan struct{}
	done   chan struct{}
	reason error

	// writeMu serializes socket writes so concurrent frames do not
	// interleave. The send cipher's keystream position advances with
	// every frame, so write order and cipher order must agree.
	writeMu sync.Mutex

	frames chan packet.Frame
}

// New creates a connection in the Closed state. It validates the peer key
// eagerly: a malformed key is a configuration error, not a dial failure.
func New(cfg Config) (*Conn, error) {
	keyID, err := crypto.KeyID(cfg.PeerPublic)
	if err != nil {
		return nil, fmt.Errorf("invalid peer public key: %w", err)
	}
	if cfg.Addr == "" {
		return nil, errors.New("peer address is empty")
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.FrameBuffer <= 0 {
		cfg.FrameBuffer = 64
	}

	return &Conn{
		cfg:       cfg,
		peerKeyID: keyID,
		state:     StateClosed,
		done:      make(chan struct{}),
		frames:    make(chan packet.Frame, cfg.FrameBuffer),
	}, nil
}

// State returns the current connection state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Frames returns the channel of decrypted non-acknowledgement frames.
// The channel is never closed; consumers should also select on Done.
func (c *Conn) Frames() <-chan packet.Frame {
	return c.frames
}

// Done returns a channel closed when the connection reaches Closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that closed the connection, or nil for a clean
// Close.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Connect dials the peer, performs the encryption handshake, and blocks
// until the connection is Ready, the context is cancelled, or the
// handshake times out.
//
// Calling Connect on a connection that is not Closed is a state error.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateClosed {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: state is %s", ErrAlreadyConnected, state)
	}
	// A previous lifecycle may have consumed these channels.
	c.state = StateConnecting
	c.ready = make(chan struct{})
	c.done = make(chan struct{})
	c.reason = nil
	c.mu.Unlock()
	c.emit(StateConnecting, nil)

	dialer := net.Dialer{Timeout: c.cfg.ConnectTimeout}
	sock, err := dialer.DialContext(ctx, "tcp", c.cfg.Addr)
	if err != nil {
		c.closeWith(fmt.Errorf("connect failed: %w", err))
		return fmt.Errorf("connect failed: %w", err)
	}

	if err := c.beginHandshake(sock); err != nil {
		c.closeWith(err)
		return err
	}

	// Wait for the acknowledgement observed by the read loop.
	timer := time.NewTimer(c.cfg.HandshakeTimeout)
	defer timer.Stop()

	select {
	case <-c.ready:
		return nil
	case <-c.done:
		c.mu.Lock()
		reason := c.reason
		c.mu.Unlock()
		if reason == nil {
			reason = ErrClosed
		}
		return reason
	case <-ctx.Done():
		// A half-completed handshake cannot be resumed.
		c.closeWith(ctx.Err())
		return ctx.Err()
	case <-timer.C:
		c.closeWith(ErrHandshakeTimeout)
		return ErrHandshakeTimeout
	}
}

// beginHandshake derives and installs the session ciphers, sends the
// handshake packet, and starts the background read loop. Ciphers are
// installed before the packet is written so the very first response bytes
// are decryptable.
func (c *Conn) beginHandshake(sock net.Conn) error {
	eph, err := crypto.GenerateEphemeral()
	if err != nil {
		return fmt.Errorf("handshake failed: %w", err)
	}
	defer eph.Close()

	secret, err := eph.SharedWith(c.cfg.PeerPublic)
	if err != nil {
		return fmt.Errorf("handshake failed: %w", err)
	}
	defer crypto.SecureZero(secret)

	params, err := packet.GenerateSessionParams()
	if err != nil {
		return fmt.Errorf("handshake failed: %w", err)
	}
	defer params.Zero()

	send, recv, err := params.Ciphers()
	if err != nil {
		return fmt.Errorf("handshake failed: %w", err)
	}

	hs, err := packet.BuildHandshake(c.peerKeyID, eph.Public(), params, secret)
	if err != nil {
		send.Close()
		recv.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	c.mu.Lock()
	if err := c.state.ValidateTransition(StateHandshaking); err != nil {
		c.mu.Unlock()
		send.Close()
		recv.Close()
		return err
	}
	c.state = StateHandshaking
	c.sock = sock
	c.send = send
	c.recv = recv
	c.mu.Unlock()
	c.emit(StateHandshaking, nil)

	if _, err := sock.Write(hs); err != nil {
		return fmt.Errorf("failed to send handshake: %w", err)
	}

	go c.readLoop(sock, recv, c.done)
	return nil
}

// Write encrypts payload into one frame and writes it to the socket.
// It fails with a state error unless the connection is Ready.
func (c *Conn) Write(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	if c.state != StateReady {
		state := c.state
		c.mu.Unlock()
		if state == StateClosed || state == StateClosing {
			return ErrClosed
		}
		return fmt.Errorf("%w: state is %s", ErrNotReady, state)
	}
	sock := c.sock
	send := c.send
	c.mu.Unlock()

	frame, err := packet.Build(payload, nil)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := send.ProcessInPlace(frame); err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = sock.SetWriteDeadline(deadline)
		defer sock.SetWriteDeadline(time.Time{})
	}
	if _, err := sock.Write(frame); err != nil {
		err = fmt.Errorf("write failed: %w", err)
		c.closeWith(err)
		return err
	}
	return nil
}

// readLoop is the single background task owning decryption, frame
// reassembly, and data-driven state transitions. It runs from cipher
// installation until EOF, error, or close, then drives the connection to
// Closed.
func (c *Conn) readLoop(sock net.Conn, recv *crypto.StreamCipher, done chan struct{}) {
	var asm packet.Assembler

	buf := pool.Get(pool.DefaultBufferSize)
	defer pool.Put(buf)
	scratch := (*buf)[:pool.DefaultBufferSize]

	for {
		n, err := sock.Read(scratch)
		if n > 0 {
			chunk := scratch[:n]
			if derr := recv.ProcessInPlace(chunk); derr != nil {
				c.closeWith(derr)
				return
			}
			asm.Feed(chunk)

			if ok := c.drainFrames(&asm, done); !ok {
				return
			}
		}
		if err != nil {
			select {
			case <-done:
				// Teardown already in progress; the read error is a
				// consequence of the socket being closed.
			default:
				c.closeWith(fmt.Errorf("read failed: %w", err))
			}
			return
		}
	}
}

// drainFrames dispatches every complete frame buffered in the assembler.
// Returns false if the connection was closed.
func (c *Conn) drainFrames(asm *packet.Assembler, done chan struct{}) bool {
	for {
		frame, ok, err := asm.Next()
		if err != nil {
			// Integrity failure: the peer is corrupt or untrustworthy.
			c.closeWith(err)
			return false
		}
		if !ok {
			return true
		}

		if frame.IsAck() {
			// Completes the handshake when one is pending; empty frames
			// after Ready carry no content and are discarded.
			c.completeHandshake()
			continue
		}

		c.mu.Lock()
		state := c.state
		c.mu.Unlock()
		if state == StateHandshaking {
			c.closeWith(fmt.Errorf("%w: non-empty frame during handshake", ErrProtocolViolation))
			return false
		}

		select {
		case c.frames <- frame:
		case <-done:
			return false
		}
	}
}

// completeHandshake transitions Handshaking to Ready upon the
// acknowledgement frame. Returns false if the connection was not
// handshaking.
func (c *Conn) completeHandshake() bool {
	c.mu.Lock()
	if c.state != StateHandshaking {
		c.mu.Unlock()
		return false
	}
	c.state = StateReady
	ready := c.ready
	c.mu.Unlock()

	close(ready)
	c.emit(StateReady, nil)
	return true
}

// Close tears the connection down and releases the socket and cipher
// resources. It is idempotent.
func (c *Conn) Close() {
	c.closeWith(nil)
}

// closeWith drives the connection to Closed, recording cause as the reason
// when it is the first failure observed. Safe to call from any goroutine;
// duplicate calls are no-ops.
func (c *Conn) closeWith(cause error) {
	c.mu.Lock()
	if c.state == StateClosed || c.state == StateClosing {
		c.mu.Unlock()
		return
	}
	c.state = StateClosing
	c.reason = cause
	sock := c.sock
	send := c.send
	recv := c.recv
	c.sock = nil
	c.send = nil
	c.recv = nil
	c.mu.Unlock()
	c.emit(StateClosing, cause)

	if sock != nil {
		_ = sock.Close()
	}
	if send != nil {
		send.Close()
	}
	if recv != nil {
		recv.Close()
	}

	c.mu.Lock()
	c.state = StateClosed
	done := c.done
	c.mu.Unlock()

	close(done)
	c.emit(StateClosed, cause)
}

// emit delivers a lifecycle event to the configured handler.
func (c *Conn) emit(state State, err error) {
	if c.cfg.OnEvent == nil {
		return
	}
	c.cfg.OnEvent(Event{State: state, Err: err, Timestamp: time.Now()})
}
