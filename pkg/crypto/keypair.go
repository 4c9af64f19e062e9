package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"
)

// Ephemeral is a fresh Ed25519 key pair generated for a single connection
// attempt. It is never persisted; Close zeros the private material.
//
// Ephemeral is safe for concurrent use.
type Ephemeral struct {
	mu      sync.Mutex
	public  ed25519.PublicKey
	private ed25519.PrivateKey
	closed  bool
}

// GenerateEphemeral creates a new ephemeral key pair from crypto/rand.
func GenerateEphemeral() (*Ephemeral, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	return &Ephemeral{public: pub, private: priv}, nil
}

// NewEphemeralFromSeed creates an ephemeral key pair from a 32-byte seed.
// This is intended for tests that need deterministic handshake output.
func NewEphemeralFromSeed(seed []byte) (*Ephemeral, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid seed size: expected %d, got %d",
			ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Ephemeral{
		public:  priv.Public().(ed25519.PublicKey),
		private: priv,
	}, nil
}

// Public returns the ephemeral Ed25519 public key.
// The returned slice is a copy and safe to retain.
func (e *Ephemeral) Public() ed25519.PublicKey {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := make(ed25519.PublicKey, len(e.public))
	copy(result, e.public)
	return result
}

// SharedWith derives the 32-byte ECDH shared secret between this ephemeral
// key and the peer's Ed25519 public key.
func (e *Ephemeral) SharedWith(peerPublic ed25519.PublicKey) ([]byte, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, fmt.Errorf("ephemeral key is closed")
	}
	// Copy the private key while holding the lock so a concurrent Close
	// cannot zero it mid-computation.
	privCopy := make(ed25519.PrivateKey, len(e.private))
	copy(privCopy, e.private)
	e.mu.Unlock()

	defer SecureZero(privCopy)

	return SharedSecret(privCopy, peerPublic)
}

// Close zeros the private key material.
// It is safe to call Close multiple times.
func (e *Ephemeral) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	SecureZero(e.private)
	e.private = nil
}

// IsClosed returns true if the key pair has been closed.
func (e *Ephemeral) IsClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
