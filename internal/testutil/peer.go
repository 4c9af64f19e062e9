// Package testutil provides an in-process scripted peer: a TCP listener
// that speaks the server side of the ADNL handshake and frame protocol,
// for exercising clients end to end without a real remote node.
package testutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/Dzeta-tech/adnl/pkg/crypto"
	"github.com/Dzeta-tech/adnl/pkg/packet"
)

// Handler processes one decrypted inbound frame payload and returns the
// payloads to send back. Returning an error closes the connection.
type Handler func(payload []byte) ([][]byte, error)

// EchoHandler replies to every frame with its own payload.
func EchoHandler(payload []byte) ([][]byte, error) {
	reply := make([]byte, len(payload))
	copy(reply, payload)
	return [][]byte{reply}, nil
}

// SilentHandler accepts frames and never replies.
func SilentHandler(payload []byte) ([][]byte, error) {
	return nil, nil
}

// Peer is a scripted ADNL server. Each accepted connection gets its own
// handshake, its own session ciphers, and its own handler loop.
type Peer struct {
	ln      net.Listener
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	keyID   []byte
	handler Handler

	// mute suppresses the handshake acknowledgement, leaving the client
	// stuck in its handshake wait.
	mute bool

	// ackExtra frames sent immediately after the acknowledgement,
	// unprompted.
	ackExtra [][]byte

	mu     sync.Mutex
	conns  []net.Conn
	closed bool
	wg     sync.WaitGroup
}

// PeerOption configures a scripted peer.
type PeerOption func(*Peer)

// WithHandler sets the frame handler. Defaults to EchoHandler.
func WithHandler(h Handler) PeerOption {
	return func(p *Peer) { p.handler = h }
}

// WithoutAck makes the peer accept handshakes but never acknowledge them.
func WithoutAck() PeerOption {
	return func(p *Peer) { p.mute = true }
}

// WithUnsolicited makes the peer push the given payloads right after the
// acknowledgement, before any client frame arrives.
func WithUnsolicited(payloads ...[]byte) PeerOption {
	return func(p *Peer) { p.ackExtra = payloads }
}

// NewPeer generates an identity, starts listening on a loopback port, and
// begins accepting connections.
func NewPeer(opts ...PeerOption) (*Peer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate peer identity: %w", err)
	}
	keyID, err := crypto.KeyID(pub)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	p := &Peer{
		ln:      ln,
		priv:    priv,
		pub:     pub,
		keyID:   keyID,
		handler: EchoHandler,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(1)
	go p.acceptLoop()
	return p, nil
}

// Addr returns the host:port the peer listens on.
func (p *Peer) Addr() string {
	return p.ln.Addr().String()
}

// PublicKey returns the peer's static Ed25519 public key.
func (p *Peer) PublicKey() ed25519.PublicKey {
	return p.pub
}

// Close stops the listener and tears down every live connection.
func (p *Peer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	conns := p.conns
	p.conns = nil
	p.mu.Unlock()

	_ = p.ln.Close()
	for _, c := range conns {
		_ = c.Close()
	}
	p.wg.Wait()
}

func (p *Peer) acceptLoop() {
	defer p.wg.Done()
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			_ = conn.Close()
			return
		}
		p.conns = append(p.conns, conn)
		p.mu.Unlock()

		p.wg.Add(1)
		go p.serve(conn)
	}
}

// serve runs the server side of one connection: handshake, then the
// decrypt/handle/reply loop.
func (p *Peer) serve(conn net.Conn) {
	defer p.wg.Done()
	defer conn.Close()

	send, recv, err := p.acceptHandshake(conn)
	if err != nil {
		return
	}
	defer send.Close()
	defer recv.Close()

	if p.mute {
		// Keep the socket open so the client times out rather than
		// seeing a reset.
		buf := make([]byte, 256)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}

	// Acknowledge with an empty frame.
	if err := p.writeFrame(conn, send, nil); err != nil {
		return
	}
	for _, extra := range p.ackExtra {
		if err := p.writeFrame(conn, send, extra); err != nil {
			return
		}
	}

	var asm packet.Assembler
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if derr := recv.ProcessInPlace(chunk); derr != nil {
				return
			}
			asm.Feed(chunk)

			for {
				frame, ok, ferr := asm.Next()
				if ferr != nil {
					return
				}
				if !ok {
					break
				}
				replies, herr := p.handler(frame.Payload)
				if herr != nil {
					return
				}
				for _, reply := range replies {
					if werr := p.writeFrame(conn, send, reply); werr != nil {
						return
					}
				}
			}
		}
		if err != nil {
			return
		}
	}
}

// acceptHandshake reads and verifies the 256-byte handshake and returns
// the server-side cipher pair.
func (p *Peer) acceptHandshake(conn net.Conn) (send, recv *crypto.StreamCipher, err error) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	raw := make([]byte, packet.HandshakeSize)
	if _, err := io.ReadFull(conn, raw); err != nil {
		return nil, nil, err
	}
	_ = conn.SetReadDeadline(time.Time{})

	h, err := packet.ParseHandshake(raw)
	if err != nil {
		return nil, nil, err
	}
	if string(h.PeerKeyID) != string(p.keyID) {
		return nil, nil, errors.New("handshake addressed to a different identity")
	}

	secret, err := crypto.SharedSecret(p.priv, h.ClientPublic)
	if err != nil {
		return nil, nil, err
	}
	defer crypto.SecureZero(secret)

	params, err := packet.DecryptSessionParams(secret, h)
	if err != nil {
		return nil, nil, err
	}
	defer params.Zero()

	return params.PeerCiphers()
}

// writeFrame encrypts payload into one frame and writes it out.
func (p *Peer) writeFrame(conn net.Conn, send *crypto.StreamCipher, payload []byte) error {
	frame, err := packet.Build(payload, nil)
	if err != nil {
		return err
	}
	if err := send.ProcessInPlace(frame); err != nil {
		return err
	}
	_, err = conn.Write(frame)
	return err
}
