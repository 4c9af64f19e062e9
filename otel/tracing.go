// Package otel provides OpenTelemetry tracing integration for the client.
//
// This package implements the adnl.Tracer interface on top of an
// OpenTelemetry TracerProvider. Traces provide visibility into connection
// setup, query round trips, and keep-alive pings.
//
// # Spans
//
// The following spans are created during normal operation:
//
//	adnl.connect    (dial plus handshake)
//	adnl.query      (one query round trip)
//	adnl.ping       (one keep-alive round trip)
//
// # Attributes
//
// Common span attributes include:
//   - server.addr: The remote server address (host:port)
//   - query.size: Size of the query request payload in bytes
//
// # Example Usage
//
//	import (
//	    "github.com/Dzeta-tech/adnl"
//	    adnlotel "github.com/Dzeta-tech/adnl/otel"
//	    "go.opentelemetry.io/otel"
//	)
//
//	func main() {
//	    tp := otel.GetTracerProvider()
//	    tracer := adnlotel.NewTracer(tp)
//
//	    cfg := adnl.NewConfig(servers,
//	        adnl.WithTracer(tracer),
//	    )
//
//	    client, err := adnl.NewClient(cfg)
//	    // ...
//	}
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Dzeta-tech/adnl"
)

const (
	// TracerName is the name used for the OpenTelemetry tracer.
	TracerName = "github.com/Dzeta-tech/adnl"

	// Span names
	SpanConnect = "adnl.connect"
	SpanQuery   = "adnl.query"
	SpanPing    = "adnl.ping"

	// Attribute keys
	AttrServerAddr = "server.addr"
	AttrQuerySize  = "query.size"
)

// Tracer provides OpenTelemetry tracing for client operations. It wraps an
// OpenTelemetry TracerProvider and creates spans for connection setup,
// queries, and pings.
//
// Tracer is safe for concurrent use.
type Tracer struct {
	tracer trace.Tracer
}

// Ensure Tracer implements adnl.Tracer.
var _ adnl.Tracer = (*Tracer)(nil)

// NewTracer creates a new Tracer using the given TracerProvider.
// If provider is nil, a no-op tracer is used.
func NewTracer(provider trace.TracerProvider) *Tracer {
	if provider == nil {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer(TracerName)}
	}
	return &Tracer{tracer: provider.Tracer(TracerName)}
}

// span adapts an OpenTelemetry span to the adnl.Span interface.
type span struct {
	span trace.Span
}

// End implements adnl.Span.
func (s span) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

// StartConnect implements adnl.Tracer.
func (t *Tracer) StartConnect(ctx context.Context, server string) (context.Context, adnl.Span) {
	ctx, s := t.tracer.Start(ctx, SpanConnect,
		trace.WithAttributes(
			attribute.String(AttrServerAddr, server),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	return ctx, span{span: s}
}

// StartQuery implements adnl.Tracer.
func (t *Tracer) StartQuery(ctx context.Context, server string, requestBytes int) (context.Context, adnl.Span) {
	ctx, s := t.tracer.Start(ctx, SpanQuery,
		trace.WithAttributes(
			attribute.String(AttrServerAddr, server),
			attribute.Int(AttrQuerySize, requestBytes),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	return ctx, span{span: s}
}

// StartPing implements adnl.Tracer.
func (t *Tracer) StartPing(ctx context.Context, server string) (context.Context, adnl.Span) {
	ctx, s := t.tracer.Start(ctx, SpanPing,
		trace.WithAttributes(
			attribute.String(AttrServerAddr, server),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	return ctx, span{span: s}
}
