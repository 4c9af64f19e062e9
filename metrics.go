package adnl

// Metrics defines the metrics collection interface for the client.
// It is designed to be compatible with Prometheus and other metrics systems.
//
// Implementations must be safe for concurrent use.
//
// Metric naming convention:
//   - Counters: <name>_total (e.g., queries_total)
//   - Histograms: <name>_seconds or <name>_bytes (e.g., query_duration_seconds)
//   - Gauges: current_<name> (e.g., current_connections)
type Metrics interface {
	// Connection metrics

	// ConnectionOpened increments when a connection reaches Ready.
	// Labels: server (host:port)
	ConnectionOpened(server string)

	// ConnectionClosed increments when a connection is closed.
	// Labels: server (host:port)
	ConnectionClosed(server string)

	// ConnectionAttempt records a connection attempt result.
	// Labels: result (success, failure)
	ConnectionAttempt(result string)

	// HandshakeDuration records the duration of a successful handshake.
	HandshakeDuration(seconds float64)

	// HandshakeResult records the result of a handshake attempt.
	// Labels: result (success, failure, timeout)
	HandshakeResult(result string)

	// Query metrics

	// QuerySent records a query being sent.
	// Labels: server (host:port)
	QuerySent(server string, bytes int)

	// QueryResult records a completed query.
	// Labels: result (success, timeout, failure)
	QueryResult(result string)

	// QueryDuration records the round-trip time of an answered query.
	QueryDuration(seconds float64)

	// AnswerReceived records an answer payload arriving.
	// Labels: server (host:port)
	AnswerReceived(server string, bytes int)

	// UnmatchedAnswer records an answer whose query id matched no pending
	// query.
	UnmatchedAnswer()

	// Frame metrics

	// FrameReceived records a decrypted inbound frame.
	FrameReceived(bytes int)

	// IntegrityError records a frame checksum failure.
	IntegrityError()

	// PingSent records a keep-alive ping being sent.
	PingSent()

	// PongReceived records a keep-alive pong arriving.
	PongReceived()

	// Event metrics

	// EventEmitted records an event being emitted.
	// Labels: state (the connection state)
	EventEmitted(state string)

	// EventDropped records an event being dropped due to buffer full.
	EventDropped()
}

// NopMetrics is a no-op metrics implementation that discards all metrics.
// It is the default when no metrics collector is configured.
type NopMetrics struct{}

// Ensure NopMetrics implements Metrics.
var _ Metrics = NopMetrics{}

// ConnectionOpened implements Metrics.ConnectionOpened (no-op).
func (NopMetrics) ConnectionOpened(server string) {}

// ConnectionClosed implements Metrics.ConnectionClosed (no-op).
func (NopMetrics) ConnectionClosed(server string) {}

// ConnectionAttempt implements Metrics.ConnectionAttempt (no-op).
func (NopMetrics) ConnectionAttempt(result string) {}

// HandshakeDuration implements Metrics.HandshakeDuration (no-op).
func (NopMetrics) HandshakeDuration(seconds float64) {}

// HandshakeResult implements Metrics.HandshakeResult (no-op).
func (NopMetrics) HandshakeResult(result string) {}

// QuerySent implements Metrics.QuerySent (no-op).
func (NopMetrics) QuerySent(server string, bytes int) {}

// QueryResult implements Metrics.QueryResult (no-op).
func (NopMetrics) QueryResult(result string) {}

// QueryDuration implements Metrics.QueryDuration (no-op).
func (NopMetrics) QueryDuration(seconds float64) {}

// AnswerReceived implements Metrics.AnswerReceived (no-op).
func (NopMetrics) AnswerReceived(server string, bytes int) {}

// UnmatchedAnswer implements Metrics.UnmatchedAnswer (no-op).
func (NopMetrics) UnmatchedAnswer() {}

// FrameReceived implements Metrics.FrameReceived (no-op).
func (NopMetrics) FrameReceived(bytes int) {}

// IntegrityError implements Metrics.IntegrityError (no-op).
func (NopMetrics) IntegrityError() {}

// PingSent implements Metrics.PingSent (no-op).
func (NopMetrics) PingSent() {}

// PongReceived implements Metrics.PongReceived (no-op).
func (NopMetrics) PongReceived() {}

// EventEmitted implements Metrics.EventEmitted (no-op).
func (NopMetrics) EventEmitted(state string) {}

// EventDropped implements Metrics.EventDropped (no-op).
func (NopMetrics) EventDropped() {}
