// Package tl implements the TL binary wire serialization used by the ADNL
// protocol: little-endian fixed-width integers, length-prefixed buffers with
// 4-byte alignment padding, magic-constant booleans, and counted vectors.
//
// The encodings are a bit-exact wire contract with the peer implementation.
// Any deviation (padding, sentinel bytes, boolean constants) breaks
// interoperability.
package tl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

const (
	// Int128Size and Int256Size are the byte widths of the wide integer
	// encodings.
	Int128Size = 16
	Int256Size = 32

	// maxShortLength is the largest buffer length encodable with a
	// single-byte length header.
	maxShortLength = 253

	// longLengthMarker introduces the 3-byte little-endian length form.
	longLengthMarker = 0xfe

	// maxLongLength is the largest encodable buffer length (3 bytes).
	maxLongLength = 1<<24 - 1
)

// Boolean magic constants. Booleans are never encoded as 0/1.
const (
	BoolTrue  uint32 = 0x997275b5
	BoolFalse uint32 = 0xbc799737
)

// Serialization errors.
var (
	// ErrBufferTooLarge indicates a buffer exceeds the maximum encodable length.
	ErrBufferTooLarge = errors.New("buffer too large to encode")

	// ErrIntOutOfRange indicates a wide integer does not fit its encoding.
	ErrIntOutOfRange = errors.New("integer out of range for encoding")
)

// Writer encodes TL primitives into a growing byte buffer.
// The zero value is ready to use.
type Writer struct {
	buf []byte
}

// NewWriter creates a Writer with an empty buffer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the encoded buffer. The returned slice aliases the writer's
// internal storage; callers that keep writing should copy it first.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Reset discards all written data, retaining the underlying storage.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}

// WriteUint8 appends a single byte.
func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteUint32 appends a 32-bit little-endian integer.
func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteInt32 appends a 32-bit little-endian signed integer.
func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

// WriteUint64 appends a 64-bit little-endian integer.
func (w *Writer) WriteUint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// WriteInt64 appends a 64-bit little-endian signed integer.
func (w *Writer) WriteInt64(v int64) {
	w.WriteUint64(uint64(v))
}

// WriteTag appends a 32-bit constructor tag. Alias of WriteUint32, named for
// call sites that emit constructor ids.
func (w *Writer) WriteTag(tag uint32) {
	w.WriteUint32(tag)
}

// WriteBool appends one of the two boolean magic constants.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint32(BoolTrue)
	} else {
		w.WriteUint32(BoolFalse)
	}
}

// WriteInt128 appends a 128-bit little-endian two's-complement integer.
func (w *Writer) WriteInt128(v *big.Int) error {
	return w.writeBigInt(v, Int128Size)
}

// WriteInt256 appends a 256-bit little-endian two's-complement integer.
func (w *Writer) WriteInt256(v *big.Int) error {
	return w.writeBigInt(v, Int256Size)
}

// WriteInt256Bytes appends a raw 32-byte value already in wire order.
// Used for random identifiers and hashes that are carried as int256.
func (w *Writer) WriteInt256Bytes(b []byte) error {
	if len(b) != Int256Size {
		return fmt.Errorf("%w: int256 requires %d bytes, got %d",
			ErrIntOutOfRange, Int256Size, len(b))
	}
	w.buf = append(w.buf, b...)
	return nil
}

// writeBigInt appends v as a size-byte little-endian two's-complement value.
// Negative values fill unused high bytes with 0xFF.
func (w *Writer) writeBigInt(v *big.Int, size int) error {
	if v == nil {
		return fmt.Errorf("%w: nil integer", ErrIntOutOfRange)
	}

	// Range check: signed two's complement of size*8 bits.
	bits := size * 8
	min := new(big.Int).Lsh(big.NewInt(-1), uint(bits-1))
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)), big.NewInt(1))
	if v.Cmp(min) < 0 || v.Cmp(max) > 0 {
		return fmt.Errorf("%w: %s does not fit in %d bits", ErrIntOutOfRange, v, bits)
	}

	tv := new(big.Int).Set(v)
	if tv.Sign() < 0 {
		// Two's complement: v + 2^bits.
		tv.Add(tv, new(big.Int).Lsh(big.NewInt(1), uint(bits)))
	}

	be := make([]byte, size)
	tv.FillBytes(be)

	// FillBytes produces big-endian; the wire is little-endian.
	le := make([]byte, size)
	for i := 0; i < size; i++ {
		le[i] = be[size-1-i]
	}
	w.buf = append(w.buf, le...)
	return nil
}

// WriteBytes appends a length-prefixed buffer with alignment padding.
// Buffers up to 253 bytes use a single length byte; longer buffers use the
// 0xFE sentinel followed by a 3-byte little-endian length. Zero padding is
// appended so the header plus data is a multiple of 4.
func (w *Writer) WriteBytes(data []byte) error {
	header := 1
	if len(data) > maxShortLength {
		if len(data) > maxLongLength {
			return fmt.Errorf("%w: %d bytes exceeds maximum of %d",
				ErrBufferTooLarge, len(data), maxLongLength)
		}
		header = 4
		w.buf = append(w.buf, longLengthMarker,
			byte(len(data)), byte(len(data)>>8), byte(len(data)>>16))
	} else {
		w.buf = append(w.buf, byte(len(data)))
	}

	w.buf = append(w.buf, data...)

	// Pad (header + data) to a 4-byte boundary.
	for pad := (4 - (header+len(data))%4) % 4; pad > 0; pad-- {
		w.buf = append(w.buf, 0)
	}
	return nil
}

// WriteRaw appends data without any length prefix or padding.
func (w *Writer) WriteRaw(data []byte) {
	w.buf = append(w.buf, data...)
}

// WriteVector appends a u32 count followed by each element encoded with fn.
func WriteVector[T any](w *Writer, items []T, fn func(*Writer, T) error) error {
	w.WriteUint32(uint32(len(items)))
	for i, item := range items {
		if err := fn(w, item); err != nil {
			return fmt.Errorf("failed to encode vector element %d: %w", i, err)
		}
	}
	return nil
}
