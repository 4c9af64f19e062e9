package packet

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/Dzeta-tech/adnl/pkg/crypto"
)

const (
	// SessionParamsSize is the size of the random session-parameter block.
	SessionParamsSize = 160

	// HandshakeSize is the exact size of the handshake packet:
	// peer key id (32) || ephemeral public key (32) ||
	// params checksum (32) || encrypted params (160).
	HandshakeSize = 32 + 32 + 32 + SessionParamsSize
)

// Session-parameter byte ranges. These offsets are wire contract with the
// peer implementation, not tunable defaults.
const (
	recvKeyOffset     = 0
	sendKeyOffset     = 32
	recvCounterOffset = 64
	sendCounterOffset = 80
	paddingOffset     = 96
)

// Handshake errors.
var (
	// ErrHandshakeSize indicates a handshake packet of the wrong length.
	ErrHandshakeSize = errors.New("invalid handshake packet size")

	// ErrParamsChecksum indicates the decrypted session parameters did not
	// match the advertised checksum.
	ErrParamsChecksum = errors.New("session parameters checksum mismatch")
)

// SessionParams is the 160-byte random block generated per handshake.
// It is sliced into the send/receive cipher keys and counters, and its raw
// bytes are also encrypted into the handshake packet so the peer can derive
// the mirrored cipher pair. Call Zero once the ciphers are installed.
type SessionParams struct {
	data [SessionParamsSize]byte
}

// GenerateSessionParams creates session parameters from crypto/rand.
func GenerateSessionParams() (*SessionParams, error) {
	p := &SessionParams{}
	if _, err := rand.Read(p.data[:]); err != nil {
		return nil, fmt.Errorf("failed to generate session parameters: %w", err)
	}
	return p, nil
}

// NewSessionParams creates session parameters from an existing 160-byte
// block. The peer side of a handshake uses this after decryption; tests use
// it for deterministic output.
func NewSessionParams(data []byte) (*SessionParams, error) {
	if len(data) != SessionParamsSize {
		return nil, fmt.Errorf("invalid session parameters size: expected %d, got %d",
			SessionParamsSize, len(data))
	}
	p := &SessionParams{}
	copy(p.data[:], data)
	return p, nil
}

// Bytes returns a copy of the raw parameter block.
func (p *SessionParams) Bytes() []byte {
	out := make([]byte, SessionParamsSize)
	copy(out, p.data[:])
	return out
}

// Checksum returns SHA-256 over the raw parameter block.
func (p *SessionParams) Checksum() []byte {
	sum := sha256.Sum256(p.data[:])
	return sum[:]
}

// Ciphers derives the two session stream ciphers from the parameter block:
// the receive cipher from [0,32)+[64,80), the send cipher from
// [32,64)+[80,96).
func (p *SessionParams) Ciphers() (send, recv *crypto.StreamCipher, err error) {
	recv, err = crypto.NewStreamCipher(
		p.data[recvKeyOffset:recvKeyOffset+32],
		p.data[recvCounterOffset:recvCounterOffset+16])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create receive cipher: %w", err)
	}

	send, err = crypto.NewStreamCipher(
		p.data[sendKeyOffset:sendKeyOffset+32],
		p.data[sendCounterOffset:sendCounterOffset+16])
	if err != nil {
		recv.Close()
		return nil, nil, fmt.Errorf("failed to create send cipher: %w", err)
	}

	return send, recv, nil
}

// PeerCiphers derives the cipher pair as seen from the other end of the
// connection: its send cipher is our receive cipher and vice versa.
func (p *SessionParams) PeerCiphers() (send, recv *crypto.StreamCipher, err error) {
	recv, send, err = p.Ciphers()
	return send, recv, err
}

// Zero wipes the parameter block.
func (p *SessionParams) Zero() {
	crypto.SecureZero(p.data[:])
}

// handshakeCipher builds the one-shot cipher protecting the session
// parameters inside the handshake packet. Key and counter are sliced from
// the ECDH secret and the params checksum; fixed wire contract.
func handshakeCipher(secret, checksum []byte) (*crypto.StreamCipher, error) {
	if len(secret) != crypto.SharedSecretSize {
		return nil, fmt.Errorf("invalid shared secret size: expected %d, got %d",
			crypto.SharedSecretSize, len(secret))
	}
	if len(checksum) != ChecksumSize {
		return nil, fmt.Errorf("invalid checksum size: expected %d, got %d",
			ChecksumSize, len(checksum))
	}

	key := make([]byte, 0, crypto.CipherKeySize)
	key = append(key, secret[:16]...)
	key = append(key, checksum[16:32]...)

	counter := make([]byte, 0, crypto.CounterSize)
	counter = append(counter, checksum[:4]...)
	counter = append(counter, secret[20:32]...)

	defer crypto.SecureZero(key)
	return crypto.NewStreamCipher(key, counter)
}

// BuildHandshake assembles the 256-byte handshake packet:
//
//	peerKeyID(32) || ephemeralPub(32) || sha256(params)(32) || encrypted params(160)
//
// secret is the ECDH shared secret between the ephemeral key and the peer's
// static key; it keys the cipher that protects the parameter block.
func BuildHandshake(peerKeyID []byte, ephemeralPub ed25519.PublicKey, params *SessionParams, secret []byte) ([]byte, error) {
	if len(peerKeyID) != crypto.KeyIDSize {
		return nil, fmt.Errorf("invalid peer key id size: expected %d, got %d",
			crypto.KeyIDSize, len(peerKeyID))
	}
	if len(ephemeralPub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid ephemeral public key size: expected %d, got %d",
			ed25519.PublicKeySize, len(ephemeralPub))
	}
	if params == nil {
		return nil, errors.New("session parameters are nil")
	}

	checksum := params.Checksum()

	cipher, err := handshakeCipher(secret, checksum)
	if err != nil {
		return nil, err
	}
	defer cipher.Close()

	encrypted := params.Bytes()
	if err := cipher.ProcessInPlace(encrypted); err != nil {
		return nil, fmt.Errorf("failed to encrypt session parameters: %w", err)
	}
	defer crypto.SecureZero(encrypted)

	out := make([]byte, 0, HandshakeSize)
	out = append(out, peerKeyID...)
	out = append(out, ephemeralPub...)
	out = append(out, checksum...)
	out = append(out, encrypted...)
	return out, nil
}

// ParsedHandshake is the field breakdown of a received handshake packet.
type ParsedHandshake struct {
	// PeerKeyID is the identity hash the client addressed (offset 0).
	PeerKeyID []byte

	// ClientPublic is the client's ephemeral Ed25519 public key (offset 32).
	ClientPublic ed25519.PublicKey

	// Checksum is SHA-256 of the plaintext session parameters (offset 64).
	Checksum []byte

	// EncryptedParams is the encrypted 160-byte parameter block (offset 96).
	EncryptedParams []byte
}

// ParseHandshake splits a 256-byte handshake packet into its fields.
// Used by the accepting side of a handshake.
func ParseHandshake(pkt []byte) (*ParsedHandshake, error) {
	if len(pkt) != HandshakeSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d",
			ErrHandshakeSize, HandshakeSize, len(pkt))
	}
	return &ParsedHandshake{
		PeerKeyID:       pkt[0:32],
		ClientPublic:    ed25519.PublicKey(pkt[32:64]),
		Checksum:        pkt[64:96],
		EncryptedParams: pkt[96:HandshakeSize],
	}, nil
}

// DecryptSessionParams recovers the session parameters from a parsed
// handshake using the ECDH secret, and verifies them against the advertised
// checksum.
func DecryptSessionParams(secret []byte, h *ParsedHandshake) (*SessionParams, error) {
	cipher, err := handshakeCipher(secret, h.Checksum)
	if err != nil {
		return nil, err
	}
	defer cipher.Close()

	plain, err := cipher.Process(h.EncryptedParams)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session parameters: %w", err)
	}

	sum := sha256.Sum256(plain)
	if !bytes.Equal(sum[:], h.Checksum) {
		crypto.SecureZero(plain)
		return nil, ErrParamsChecksum
	}

	params, err := NewSessionParams(plain)
	crypto.SecureZero(plain)
	if err != nil {
		return nil, err
	}
	return params, nil
}
