package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"sync"
)

const (
	// CipherKeySize is the required key size for the session stream cipher.
	CipherKeySize = 32

	// CounterSize is the size of the 128-bit counter block in bytes.
	CounterSize = 16
)

// StreamCipher is an AES-256 counter-mode stream cipher. Encryption and
// decryption are the same XOR operation, so a single Process method covers
// both directions.
//
// Keystream state persists across calls: a partially consumed keystream
// block left over from one Process call is used to start the next, so
// callers may stream arbitrarily sized chunks and get output identical to
// processing them as one chunk. A connection derives two independent
// instances, one for each traffic direction.
//
// StreamCipher is safe for concurrent use; the counter and keystream offset
// are guarded by an internal lock. Call Close when done to zero the counter
// and any buffered keystream.
type StreamCipher struct {
	mu     sync.Mutex
	block  cipher.Block
	ctr    [CounterSize]byte
	stream [CounterSize]byte
	offset int
	closed bool
}

// NewStreamCipher creates a stream cipher from a 32-byte key and a 16-byte
// big-endian initial counter value.
func NewStreamCipher(key, counter []byte) (*StreamCipher, error) {
	if len(key) != CipherKeySize {
		return nil, fmt.Errorf("invalid cipher key size: expected %d bytes, got %d",
			CipherKeySize, len(key))
	}
	if len(counter) != CounterSize {
		return nil, fmt.Errorf("invalid counter size: expected %d bytes, got %d",
			CounterSize, len(counter))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	c := &StreamCipher{
		block:  block,
		offset: CounterSize, // No keystream buffered yet
	}
	copy(c.ctr[:], counter)
	return c, nil
}

// Process XORs the input against the keystream and returns the result.
// The input slice is not modified.
func (c *StreamCipher) Process(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	if err := c.ProcessInPlace(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProcessInPlace XORs the keystream into data directly.
func (c *StreamCipher) ProcessInPlace(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("stream cipher is closed")
	}

	for i := range data {
		if c.offset == CounterSize {
			// Keystream exhausted: encrypt the counter for the next
			// block and advance it.
			c.block.Encrypt(c.stream[:], c.ctr[:])
			c.incrementCounter()
			c.offset = 0
		}
		data[i] ^= c.stream[c.offset]
		c.offset++
	}
	return nil
}

// incrementCounter performs a full 128-bit big-endian increment with carry.
func (c *StreamCipher) incrementCounter() {
	for i := CounterSize - 1; i >= 0; i-- {
		c.ctr[i]++
		if c.ctr[i] != 0 {
			break
		}
	}
}

// Close zeros the counter and any buffered keystream.
// After Close is called, the cipher should not be used.
//
// Note: the aes.Block retains an internal copy of the expanded key which
// cannot be zeroed from outside the standard library. Close zeros the state
// this package owns.
func (c *StreamCipher) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	SecureZero(c.ctr[:])
	SecureZero(c.stream[:])
	c.block = nil
}

// IsClosed returns true if the cipher has been closed.
func (c *StreamCipher) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
