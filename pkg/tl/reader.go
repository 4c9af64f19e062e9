package tl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

// Deserialization errors.
var (
	// ErrShortBuffer indicates the buffer ended before a complete value.
	ErrShortBuffer = errors.New("buffer too short")

	// ErrInvalidBool indicates a boolean field held neither magic constant.
	ErrInvalidBool = errors.New("invalid boolean constant")
)

// Reader decodes TL primitives from a byte buffer.
//
// Reader additionally exposes non-consuming peeks of the next byte or u32
// and an explicit skip, because protocol layers must branch on a leading
// constructor tag before choosing which decoder to apply to the remainder.
type Reader struct {
	buf []byte
	pos int
}

// NewReader creates a Reader over data. The reader does not copy data;
// the caller must not mutate it while decoding.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

// ReadUint8 consumes a single byte.
func (r *Reader) ReadUint8() (uint8, error) {
	if r.Remaining() < 1 {
		return 0, fmt.Errorf("%w: need 1 byte, have %d", ErrShortBuffer, r.Remaining())
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// ReadUint32 consumes a 32-bit little-endian integer.
func (r *Reader) ReadUint32() (uint32, error) {
	if r.Remaining() < 4 {
		return 0, fmt.Errorf("%w: need 4 bytes, have %d", ErrShortBuffer, r.Remaining())
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadInt32 consumes a 32-bit little-endian signed integer.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadUint64 consumes a 64-bit little-endian integer.
func (r *Reader) ReadUint64() (uint64, error) {
	if r.Remaining() < 8 {
		return 0, fmt.Errorf("%w: need 8 bytes, have %d", ErrShortBuffer, r.Remaining())
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadInt64 consumes a 64-bit little-endian signed integer.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadTag consumes a 32-bit constructor tag.
func (r *Reader) ReadTag() (uint32, error) {
	return r.ReadUint32()
}

// ReadBool consumes a boolean magic constant.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return false, err
	}
	switch v {
	case BoolTrue:
		return true, nil
	case BoolFalse:
		return false, nil
	default:
		return false, fmt.Errorf("%w: 0x%08x", ErrInvalidBool, v)
	}
}

// ReadInt128 consumes a 128-bit little-endian two's-complement integer.
func (r *Reader) ReadInt128() (*big.Int, error) {
	return r.readBigInt(Int128Size)
}

// ReadInt256 consumes a 256-bit little-endian two's-complement integer.
func (r *Reader) ReadInt256() (*big.Int, error) {
	return r.readBigInt(Int256Size)
}

// ReadInt256Bytes consumes a raw 32-byte value in wire order.
func (r *Reader) ReadInt256Bytes() ([]byte, error) {
	return r.ReadRaw(Int256Size)
}

// readBigInt consumes size bytes as a little-endian two's-complement value.
func (r *Reader) readBigInt(size int) (*big.Int, error) {
	le, err := r.ReadRaw(size)
	if err != nil {
		return nil, err
	}

	be := make([]byte, size)
	for i := 0; i < size; i++ {
		be[i] = le[size-1-i]
	}

	v := new(big.Int).SetBytes(be)
	// Negative if the sign bit of the most significant byte is set.
	if be[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(size*8)))
	}
	return v, nil
}

// ReadBytes consumes a length-prefixed buffer and its alignment padding,
// branching on the first byte exactly as WriteBytes encodes it.
// The returned slice is a copy.
func (r *Reader) ReadBytes() ([]byte, error) {
	first, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}

	header := 1
	length := int(first)
	if first == longLengthMarker {
		if r.Remaining() < 3 {
			return nil, fmt.Errorf("%w: need 3 length bytes, have %d",
				ErrShortBuffer, r.Remaining())
		}
		length = int(r.buf[r.pos]) | int(r.buf[r.pos+1])<<8 | int(r.buf[r.pos+2])<<16
		r.pos += 3
		header = 4
	}

	data, err := r.ReadRaw(length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, data)

	// Skip exactly the padding the encoder inserted.
	if pad := (4 - (header+length)%4) % 4; pad > 0 {
		if err := r.Skip(pad); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReadRaw consumes n bytes without a length prefix.
// The returned slice aliases the reader's buffer.
func (r *Reader) ReadRaw(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrShortBuffer, n)
	}
	if r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, n, r.Remaining())
	}
	data := r.buf[r.pos : r.pos+n]
	r.pos += n
	return data, nil
}

// PeekUint8 returns the next byte without consuming it.
func (r *Reader) PeekUint8() (uint8, error) {
	if r.Remaining() < 1 {
		return 0, fmt.Errorf("%w: need 1 byte, have %d", ErrShortBuffer, r.Remaining())
	}
	return r.buf[r.pos], nil
}

// PeekUint32 returns the next 32-bit little-endian integer without
// consuming it.
func (r *Reader) PeekUint32() (uint32, error) {
	if r.Remaining() < 4 {
		return 0, fmt.Errorf("%w: need 4 bytes, have %d", ErrShortBuffer, r.Remaining())
	}
	return binary.LittleEndian.Uint32(r.buf[r.pos:]), nil
}

// Skip advances the reader by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 || r.Remaining() < n {
		return fmt.Errorf("%w: cannot skip %d bytes, have %d", ErrShortBuffer, n, r.Remaining())
	}
	r.pos += n
	return nil
}

// ReadVector consumes a u32 count followed by that many elements decoded
// with fn.
func ReadVector[T any](r *Reader, fn func(*Reader) (T, error)) ([]T, error) {
	count, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	// Cap the preallocation; a hostile count must not OOM the decoder.
	items := make([]T, 0, min(int(count), 4096))
	for i := uint32(0); i < count; i++ {
		item, err := fn(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode vector element %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}
