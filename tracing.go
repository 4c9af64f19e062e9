package adnl

import "context"

// Span is one traced operation. End must be called exactly once; a non-nil
// err marks the span as failed.
type Span interface {
	End(err error)
}

// Tracer creates spans around client operations. Implementations must be
// safe for concurrent use. The otel subpackage provides an
// OpenTelemetry-backed implementation.
type Tracer interface {
	// StartConnect starts a span covering dial plus handshake.
	StartConnect(ctx context.Context, server string) (context.Context, Span)

	// StartQuery starts a span covering one query round trip.
	StartQuery(ctx context.Context, server string, requestBytes int) (context.Context, Span)

	// StartPing starts a span covering one keep-alive round trip.
	StartPing(ctx context.Context, server string) (context.Context, Span)
}

// NopTracer is a no-op tracer. It is the default when no tracer is
// configured.
type NopTracer struct{}

// Ensure NopTracer implements Tracer.
var _ Tracer = NopTracer{}

type nopSpan struct{}

func (nopSpan) End(err error) {}

// StartConnect implements Tracer.StartConnect (no-op).
func (NopTracer) StartConnect(ctx context.Context, server string) (context.Context, Span) {
	return ctx, nopSpan{}
}

// StartQuery implements Tracer.StartQuery (no-op).
func (NopTracer) StartQuery(ctx context.Context, server string, requestBytes int) (context.Context, Span) {
	return ctx, nopSpan{}
}

// StartPing implements Tracer.StartPing (no-op).
func (NopTracer) StartPing(ctx context.Context, server string) (context.Context, Span) {
	return ctx, nopSpan{}
}
