package adnl

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/Dzeta-tech/adnl/internal/querytrack"
	"github.com/Dzeta-tech/adnl/pkg/tl"
)

// Constructor tags of the messages carried inside frames. Part of the wire
// contract; values are fixed by the peer implementation.
const (
	// tagQuery marks an id-correlated query envelope.
	tagQuery uint32 = 0x7af98bb4

	// tagAnswer marks an answer echoing a query id.
	tagAnswer uint32 = 0x1684ac0f

	// tagWrappedQuery marks the inner request buffer inside a query
	// envelope.
	tagWrappedQuery uint32 = 0xdf068c79

	// tagPing and tagPong are the keep-alive pair; a pong echoes the
	// ping's random value.
	tagPing uint32 = 0x4d082b9a
	tagPong uint32 = 0xdc69fb03
)

// buildQueryEnvelope wraps an encoded request into the correlated query
// envelope sent as one frame payload:
//
//	tag(query) ‖ id(32) ‖ bytes( tag(wrappedQuery) ‖ bytes(request) )
func buildQueryEnvelope(id, request []byte) ([]byte, error) {
	if len(id) != querytrack.IDSize {
		return nil, fmt.Errorf("query id must be %d bytes, got %d", querytrack.IDSize, len(id))
	}

	var inner tl.Writer
	inner.WriteTag(tagWrappedQuery)
	if err := inner.WriteBytes(request); err != nil {
		return nil, err
	}

	var w tl.Writer
	w.WriteTag(tagQuery)
	w.WriteRaw(id)
	if err := w.WriteBytes(inner.Bytes()); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// parseAnswer extracts the echoed id and result buffer from an answer
// payload. The leading tag has already been consumed by the caller.
func parseAnswer(r *tl.Reader) (id, result []byte, err error) {
	id, err = r.ReadInt256Bytes()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read answer id: %w", err)
	}
	result, err = r.ReadBytes()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read answer payload: %w", err)
	}
	return id, result, nil
}

// buildPing encodes a keep-alive ping and returns the payload together
// with the random value a pong must echo.
func buildPing() ([]byte, int64, error) {
	var raw [8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return nil, 0, fmt.Errorf("failed to generate ping value: %w", err)
	}
	value := int64(binary.LittleEndian.Uint64(raw[:]))

	var w tl.Writer
	w.WriteTag(tagPing)
	w.WriteInt64(value)
	return w.Bytes(), value, nil
}
