package adnl

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/Dzeta-tech/adnl/pkg/tl"
)

func randomQueryID(t *testing.T) []byte {
	t.Helper()
	id := make([]byte, 32)
	if _, err := rand.Read(id); err != nil {
		t.Fatalf("failed to generate id: %v", err)
	}
	return id
}

func TestBuildQueryEnvelope_Layout(t *testing.T) {
	id := randomQueryID(t)
	request := []byte("get masterchain info")

	payload, err := buildQueryEnvelope(id, request)
	if err != nil {
		t.Fatalf("buildQueryEnvelope failed: %v", err)
	}

	r := tl.NewReader(payload)
	tag, err := r.ReadTag()
	if err != nil {
		t.Fatalf("failed to read outer tag: %v", err)
	}
	if tag != tagQuery {
		t.Fatalf("outer tag = %#x, want %#x", tag, tagQuery)
	}

	gotID, err := r.ReadInt256Bytes()
	if err != nil {
		t.Fatalf("failed to read id: %v", err)
	}
	if !bytes.Equal(gotID, id) {
		t.Error("envelope id does not match")
	}

	wrapped, err := r.ReadBytes()
	if err != nil {
		t.Fatalf("failed to read wrapped buffer: %v", err)
	}
	if r.Remaining() != 0 {
		t.Errorf("%d bytes left after envelope", r.Remaining())
	}

	ir := tl.NewReader(wrapped)
	innerTag, err := ir.ReadTag()
	if err != nil {
		t.Fatalf("failed to read inner tag: %v", err)
	}
	if innerTag != tagWrappedQuery {
		t.Fatalf("inner tag = %#x, want %#x", innerTag, tagWrappedQuery)
	}
	gotRequest, err := ir.ReadBytes()
	if err != nil {
		t.Fatalf("failed to read request: %v", err)
	}
	if !bytes.Equal(gotRequest, request) {
		t.Errorf("request = %q, want %q", gotRequest, request)
	}
}

func TestBuildQueryEnvelope_BadID(t *testing.T) {
	if _, err := buildQueryEnvelope([]byte("short"), nil); err == nil {
		t.Error("buildQueryEnvelope should reject a short id")
	}
}

func TestParseAnswer_Roundtrip(t *testing.T) {
	id := randomQueryID(t)
	result := []byte("masterchain info payload")

	var w tl.Writer
	w.WriteTag(tagAnswer)
	w.WriteRaw(id)
	if err := w.WriteBytes(result); err != nil {
		t.Fatalf("WriteBytes failed: %v", err)
	}

	r := tl.NewReader(w.Bytes())
	if _, err := r.ReadTag(); err != nil {
		t.Fatalf("ReadTag failed: %v", err)
	}

	gotID, gotResult, err := parseAnswer(r)
	if err != nil {
		t.Fatalf("parseAnswer failed: %v", err)
	}
	if !bytes.Equal(gotID, id) {
		t.Error("answer id does not match")
	}
	if !bytes.Equal(gotResult, result) {
		t.Errorf("result = %q, want %q", gotResult, result)
	}
}

func TestParseAnswer_Truncated(t *testing.T) {
	r := tl.NewReader(make([]byte, 16))
	if _, _, err := parseAnswer(r); err == nil {
		t.Error("parseAnswer should fail on a truncated buffer")
	}
}

func TestBuildPing(t *testing.T) {
	payload, value, err := buildPing()
	if err != nil {
		t.Fatalf("buildPing failed: %v", err)
	}

	r := tl.NewReader(payload)
	tag, err := r.ReadTag()
	if err != nil {
		t.Fatalf("ReadTag failed: %v", err)
	}
	if tag != tagPing {
		t.Fatalf("tag = %#x, want %#x", tag, tagPing)
	}
	got, err := r.ReadInt64()
	if err != nil {
		t.Fatalf("ReadInt64 failed: %v", err)
	}
	if got != value {
		t.Errorf("ping value = %d, want %d", got, value)
	}
	if r.Remaining() != 0 {
		t.Errorf("%d bytes left after ping", r.Remaining())
	}
}
