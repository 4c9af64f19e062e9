// Package packet implements the length-framed, integrity-checked record
// format carried over an ADNL TCP session, and the 256-byte handshake
// packet that bootstraps the session ciphers.
package packet

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// NonceSize is the size of the random nonce prefixing every frame.
	NonceSize = 32

	// ChecksumSize is the size of the trailing SHA-256 integrity hash.
	ChecksumSize = sha256.Size

	// SizeFieldLen is the length of the u32 size prefix.
	SizeFieldLen = 4

	// Overhead is the per-frame cost beyond the payload.
	Overhead = NonceSize + ChecksumSize

	// MaxPayloadSize bounds the accepted payload length. Frames declaring
	// more than this are treated as protocol violations rather than
	// buffered indefinitely.
	MaxPayloadSize = 1 << 24
)

// Framing errors.
var (
	// ErrChecksumMismatch indicates the frame integrity hash did not match.
	// This is the sole authentication check on received data; a mismatch
	// means a corrupted or untrustworthy peer.
	ErrChecksumMismatch = errors.New("frame checksum mismatch")

	// ErrFrameTooShort indicates a frame declared less than nonce+checksum.
	ErrFrameTooShort = errors.New("frame size below minimum")

	// ErrFrameTooLarge indicates a frame declared an excessive size.
	ErrFrameTooLarge = errors.New("frame size above maximum")
)

// Frame is one decoded unit of session traffic.
// A frame with an empty payload is the handshake-acknowledgement sentinel.
type Frame struct {
	// Nonce is the 32-byte random prefix.
	Nonce []byte

	// Payload is the frame content. May be empty.
	Payload []byte
}

// IsAck returns true if this is the zero-payload handshake acknowledgement.
func (f Frame) IsAck() bool {
	return len(f.Payload) == 0
}

// Build encodes payload into a frame:
//
//	u32-LE(32+len(payload)+32) || nonce(32) || payload || sha256(nonce||payload)
//
// A nil nonce is replaced with 32 random bytes; a supplied nonce must be
// exactly 32 bytes.
func Build(payload, nonce []byte) ([]byte, error) {
	if nonce == nil {
		nonce = make([]byte, NonceSize)
		if _, err := rand.Read(nonce); err != nil {
			return nil, fmt.Errorf("failed to generate nonce: %w", err)
		}
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("invalid nonce size: expected %d bytes, got %d",
			NonceSize, len(nonce))
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	size := Overhead + len(payload)
	out := make([]byte, SizeFieldLen+size)
	binary.LittleEndian.PutUint32(out, uint32(size))
	copy(out[SizeFieldLen:], nonce)
	copy(out[SizeFieldLen+NonceSize:], payload)

	h := sha256.New()
	h.Write(nonce)
	h.Write(payload)
	copy(out[SizeFieldLen+NonceSize+len(payload):], h.Sum(nil))

	return out, nil
}

// TryParse attempts to decode one frame from the front of buf, which may
// hold a partial frame or several concatenated frames.
//
// It returns the decoded frame and the number of bytes consumed. A zero
// consumed count with a nil error means the frame is incomplete and more
// bytes are needed. The frame's Nonce and Payload are copies and remain
// valid after buf is reused.
func TryParse(buf []byte) (Frame, int, error) {
	if len(buf) < SizeFieldLen {
		return Frame{}, 0, nil
	}

	size := int(binary.LittleEndian.Uint32(buf))
	if size < Overhead {
		return Frame{}, 0, fmt.Errorf("%w: declared %d bytes, minimum %d",
			ErrFrameTooShort, size, Overhead)
	}
	if size > Overhead+MaxPayloadSize {
		return Frame{}, 0, fmt.Errorf("%w: declared %d bytes", ErrFrameTooLarge, size)
	}
	if len(buf) < SizeFieldLen+size {
		return Frame{}, 0, nil
	}

	body := buf[SizeFieldLen : SizeFieldLen+size]
	nonce := body[:NonceSize]
	payload := body[NonceSize : size-ChecksumSize]
	checksum := body[size-ChecksumSize:]

	h := sha256.New()
	h.Write(nonce)
	h.Write(payload)
	if subtle.ConstantTimeCompare(h.Sum(nil), checksum) != 1 {
		return Frame{}, 0, ErrChecksumMismatch
	}

	f := Frame{
		Nonce:   make([]byte, NonceSize),
		Payload: make([]byte, len(payload)),
	}
	copy(f.Nonce, nonce)
	copy(f.Payload, payload)
	return f, SizeFieldLen + size, nil
}

// Assembler reassembles frames from a stream of decrypted bytes that may
// arrive in arbitrary chunks. It is not safe for concurrent use; the
// connection's read loop is its only caller.
type Assembler struct {
	buf []byte
}

// Feed appends decrypted stream bytes to the assembler.
func (a *Assembler) Feed(data []byte) {
	a.buf = append(a.buf, data...)
}

// Next returns the next complete frame, or ok=false if more bytes are
// needed. Errors are fatal to the stream: a malformed or corrupt frame
// leaves no way to resynchronize.
func (a *Assembler) Next() (Frame, bool, error) {
	f, consumed, err := TryParse(a.buf)
	if err != nil {
		return Frame{}, false, err
	}
	if consumed == 0 {
		return Frame{}, false, nil
	}

	// Shift out the consumed bytes, retaining capacity.
	n := copy(a.buf, a.buf[consumed:])
	a.buf = a.buf[:n]
	return f, true, nil
}

// Buffered returns the number of bytes awaiting a complete frame.
func (a *Assembler) Buffered() int {
	return len(a.buf)
}

// Reset discards buffered data.
func (a *Assembler) Reset() {
	a.buf = a.buf[:0]
}
