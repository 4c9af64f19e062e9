// Package prometheus provides a Prometheus implementation of the adnl.Metrics interface.
//
// This package enables integration with Prometheus monitoring systems. All metrics
// are registered with the default Prometheus registry and follow Prometheus naming
// conventions.
//
// # Metric Names
//
// All metrics use the configured namespace prefix (default: "adnl"). The full
// metric name follows the pattern: {namespace}_{name}
//
// # Counters
//
//	adnl_connections_opened_total{server="<host:port>"}
//	adnl_connections_closed_total{server="<host:port>"}
//	adnl_connection_attempts_total{result="success|failure"}
//	adnl_handshake_results_total{result="success|failure|timeout"}
//	adnl_queries_sent_total{server="<host:port>"}
//	adnl_query_bytes_sent_total{server="<host:port>"}
//	adnl_query_results_total{result="success|timeout|failure"}
//	adnl_answers_received_total{server="<host:port>"}
//	adnl_answer_bytes_received_total{server="<host:port>"}
//	adnl_unmatched_answers_total
//	adnl_frames_received_total
//	adnl_frame_bytes_received_total
//	adnl_integrity_errors_total
//	adnl_pings_sent_total
//	adnl_pongs_received_total
//	adnl_events_emitted_total{state="<state>"}
//	adnl_events_dropped_total
//
// # Histograms
//
//	adnl_handshake_duration_seconds
//	adnl_query_duration_seconds
//
// # Example Usage
//
//	import (
//	    "github.com/Dzeta-tech/adnl"
//	    prommetrics "github.com/Dzeta-tech/adnl/prometheus"
//	    "github.com/prometheus/client_golang/prometheus/promhttp"
//	)
//
//	func main() {
//	    metrics := prommetrics.NewMetrics("myapp")
//
//	    cfg := adnl.NewConfig(servers,
//	        adnl.WithMetrics(metrics),
//	    )
//
//	    client, err := adnl.NewClient(cfg)
//	    // ...
//
//	    // Expose metrics endpoint
//	    http.Handle("/metrics", promhttp.Handler())
//	    http.ListenAndServe(":9090", nil)
//	}
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Dzeta-tech/adnl"
)

// DefaultNamespace is the default namespace for all metrics.
const DefaultNamespace = "adnl"

// Metrics implements the adnl.Metrics interface using Prometheus metrics.
// All metrics are registered with the default Prometheus registry.
//
// Metrics is safe for concurrent use.
type Metrics struct {
	// Connection metrics
	connectionsOpened  *prometheus.CounterVec
	connectionsClosed  *prometheus.CounterVec
	connectionAttempts *prometheus.CounterVec
	handshakeDuration  prometheus.Histogram
	handshakeResults   *prometheus.CounterVec

	// Query metrics
	queriesSent      *prometheus.CounterVec
	queryBytesSent   *prometheus.CounterVec
	queryResults     *prometheus.CounterVec
	queryDuration    prometheus.Histogram
	answersReceived  *prometheus.CounterVec
	answerBytes      *prometheus.CounterVec
	unmatchedAnswers prometheus.Counter

	// Frame metrics
	framesReceived  prometheus.Counter
	frameBytes      prometheus.Counter
	integrityErrors prometheus.Counter
	pingsSent       prometheus.Counter
	pongsReceived   prometheus.Counter

	// Event metrics
	eventsEmitted *prometheus.CounterVec
	eventsDropped prometheus.Counter
}

// Ensure Metrics implements adnl.Metrics.
var _ adnl.Metrics = (*Metrics)(nil)

// NewMetrics creates a new Prometheus metrics collector with the given namespace.
// If namespace is empty, DefaultNamespace ("adnl") is used.
//
// All metrics are automatically registered with the default Prometheus registry.
// If registration fails (e.g., metrics already registered), this function will panic.
// To avoid panics, use NewMetricsWithRegisterer with a custom registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates a new Prometheus metrics collector with the given
// namespace and registerer. This allows using a custom registry for testing or
// to avoid conflicts with other metrics.
//
// If namespace is empty, DefaultNamespace ("adnl") is used.
// If registerer is nil, metrics will not be registered automatically.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &Metrics{
		connectionsOpened: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connections_opened_total",
				Help:      "Total number of connections that reached the ready state",
			},
			[]string{"server"},
		),
		connectionsClosed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connections_closed_total",
				Help:      "Total number of connections closed",
			},
			[]string{"server"},
		),
		connectionAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connection_attempts_total",
				Help:      "Total number of connection attempts by result",
			},
			[]string{"result"},
		),
		handshakeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "handshake_duration_seconds",
				Help:      "Histogram of successful handshake durations",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		handshakeResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handshake_results_total",
				Help:      "Total number of handshake results by outcome",
			},
			[]string{"result"},
		),
		queriesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_sent_total",
				Help:      "Total number of queries sent per server",
			},
			[]string{"server"},
		),
		queryBytesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "query_bytes_sent_total",
				Help:      "Total query payload bytes sent per server",
			},
			[]string{"server"},
		),
		queryResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "query_results_total",
				Help:      "Total number of completed queries by result",
			},
			[]string{"result"},
		),
		queryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Histogram of answered query round-trip times",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		answersReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "answers_received_total",
				Help:      "Total number of answers received per server",
			},
			[]string{"server"},
		),
		answerBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "answer_bytes_received_total",
				Help:      "Total answer payload bytes received per server",
			},
			[]string{"server"},
		),
		unmatchedAnswers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unmatched_answers_total",
			Help:      "Total number of answers whose id matched no pending query",
		}),
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Total number of decrypted inbound frames",
		}),
		frameBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_bytes_received_total",
			Help:      "Total decrypted inbound frame payload bytes",
		}),
		integrityErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrity_errors_total",
			Help:      "Total number of frame checksum failures",
		}),
		pingsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pings_sent_total",
			Help:      "Total number of keep-alive pings sent",
		}),
		pongsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pongs_received_total",
			Help:      "Total number of keep-alive pongs received",
		}),
		eventsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_emitted_total",
				Help:      "Total number of events emitted by state",
			},
			[]string{"state"},
		),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped due to buffer full",
		}),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.connectionsOpened,
			m.connectionsClosed,
			m.connectionAttempts,
			m.handshakeDuration,
			m.handshakeResults,
			m.queriesSent,
			m.queryBytesSent,
			m.queryResults,
			m.queryDuration,
			m.answersReceived,
			m.answerBytes,
			m.unmatchedAnswers,
			m.framesReceived,
			m.frameBytes,
			m.integrityErrors,
			m.pingsSent,
			m.pongsReceived,
			m.eventsEmitted,
			m.eventsDropped,
		)
	}

	return m
}

// ConnectionOpened implements adnl.Metrics.
func (m *Metrics) ConnectionOpened(server string) {
	m.connectionsOpened.WithLabelValues(server).Inc()
}

// ConnectionClosed implements adnl.Metrics.
func (m *Metrics) ConnectionClosed(server string) {
	m.connectionsClosed.WithLabelValues(server).Inc()
}

// ConnectionAttempt implements adnl.Metrics.
func (m *Metrics) ConnectionAttempt(result string) {
	m.connectionAttempts.WithLabelValues(result).Inc()
}

// HandshakeDuration implements adnl.Metrics.
func (m *Metrics) HandshakeDuration(seconds float64) {
	m.handshakeDuration.Observe(seconds)
}

// HandshakeResult implements adnl.Metrics.
func (m *Metrics) HandshakeResult(result string) {
	m.handshakeResults.WithLabelValues(result).Inc()
}

// QuerySent implements adnl.Metrics.
func (m *Metrics) QuerySent(server string, bytes int) {
	m.queriesSent.WithLabelValues(server).Inc()
	m.queryBytesSent.WithLabelValues(server).Add(float64(bytes))
}

// QueryResult implements adnl.Metrics.
func (m *Metrics) QueryResult(result string) {
	m.queryResults.WithLabelValues(result).Inc()
}

// QueryDuration implements adnl.Metrics.
func (m *Metrics) QueryDuration(seconds float64) {
	m.queryDuration.Observe(seconds)
}

// AnswerReceived implements adnl.Metrics.
func (m *Metrics) AnswerReceived(server string, bytes int) {
	m.answersReceived.WithLabelValues(server).Inc()
	m.answerBytes.WithLabelValues(server).Add(float64(bytes))
}

// UnmatchedAnswer implements adnl.Metrics.
func (m *Metrics) UnmatchedAnswer() {
	m.unmatchedAnswers.Inc()
}

// FrameReceived implements adnl.Metrics.
func (m *Metrics) FrameReceived(bytes int) {
	m.framesReceived.Inc()
	m.frameBytes.Add(float64(bytes))
}

// IntegrityError implements adnl.Metrics.
func (m *Metrics) IntegrityError() {
	m.integrityErrors.Inc()
}

// PingSent implements adnl.Metrics.
func (m *Metrics) PingSent() {
	m.pingsSent.Inc()
}

// PongReceived implements adnl.Metrics.
func (m *Metrics) PongReceived() {
	m.pongsReceived.Inc()
}

// EventEmitted implements adnl.Metrics.
func (m *Metrics) EventEmitted(state string) {
	m.eventsEmitted.WithLabelValues(state).Inc()
}

// EventDropped implements adnl.Metrics.
func (m *Metrics) EventDropped() {
	m.eventsDropped.Inc()
}
