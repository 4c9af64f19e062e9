package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Dzeta-tech/adnl"
)

// TestMetricsImplementsInterface verifies that Metrics implements adnl.Metrics.
func TestMetricsImplementsInterface(t *testing.T) {
	var _ adnl.Metrics = (*Metrics)(nil)
}

// TestNewMetrics_DefaultNamespace verifies default namespace is used when empty.
func TestNewMetrics_DefaultNamespace(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetricsWithRegisterer("", registry)

	// Record a metric
	m.ConnectionOpened("1.2.3.4:14432")

	// Verify metric exists with default namespace
	names, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range names {
		if mf.GetName() == "adnl_connections_opened_total" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected metric with default namespace 'adnl'")
	}
}

// TestNewMetrics_CustomNamespace verifies custom namespace is used.
func TestNewMetrics_CustomNamespace(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetricsWithRegisterer("myapp", registry)

	m.ConnectionOpened("1.2.3.4:14432")

	names, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range names {
		if mf.GetName() == "myapp_connections_opened_total" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected metric with custom namespace 'myapp'")
	}
}

// TestConnectionMetrics tests connection-related metrics.
func TestConnectionMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetricsWithRegisterer("test", registry)

	// Test ConnectionOpened
	m.ConnectionOpened("1.2.3.4:14432")
	m.ConnectionOpened("1.2.3.4:14432")
	m.ConnectionOpened("5.6.7.8:14432")

	if count := testutil.ToFloat64(m.connectionsOpened.WithLabelValues("1.2.3.4:14432")); count != 2 {
		t.Errorf("connections opened = %v, want 2", count)
	}
	if count := testutil.ToFloat64(m.connectionsOpened.WithLabelValues("5.6.7.8:14432")); count != 1 {
		t.Errorf("connections opened = %v, want 1", count)
	}

	// Test ConnectionClosed
	m.ConnectionClosed("1.2.3.4:14432")
	if count := testutil.ToFloat64(m.connectionsClosed.WithLabelValues("1.2.3.4:14432")); count != 1 {
		t.Errorf("connections closed = %v, want 1", count)
	}

	// Test ConnectionAttempt
	m.ConnectionAttempt("success")
	m.ConnectionAttempt("failure")
	m.ConnectionAttempt("success")

	if count := testutil.ToFloat64(m.connectionAttempts.WithLabelValues("success")); count != 2 {
		t.Errorf("successful attempts = %v, want 2", count)
	}
	if count := testutil.ToFloat64(m.connectionAttempts.WithLabelValues("failure")); count != 1 {
		t.Errorf("failed attempts = %v, want 1", count)
	}
}

// TestHandshakeMetrics tests handshake-related metrics.
func TestHandshakeMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetricsWithRegisterer("test", registry)

	// Test HandshakeDuration
	m.HandshakeDuration(0.5)
	m.HandshakeDuration(1.0)
	m.HandshakeDuration(0.1)

	// Verify histogram has observations
	families, _ := registry.Gather()
	var histFound bool
	for _, mf := range families {
		if mf.GetName() == "test_handshake_duration_seconds" {
			histFound = true
			metrics := mf.GetMetric()
			if len(metrics) == 0 {
				t.Error("expected histogram metrics")
				break
			}
			hist := metrics[0].GetHistogram()
			if hist.GetSampleCount() != 3 {
				t.Errorf("histogram count = %d, want 3", hist.GetSampleCount())
			}
		}
	}
	if !histFound {
		t.Error("handshake_duration_seconds histogram not found")
	}

	// Test HandshakeResult
	m.HandshakeResult("success")
	m.HandshakeResult("failure")
	m.HandshakeResult("timeout")

	if count := testutil.ToFloat64(m.handshakeResults.WithLabelValues("success")); count != 1 {
		t.Errorf("successful handshakes = %v, want 1", count)
	}
	if count := testutil.ToFloat64(m.handshakeResults.WithLabelValues("failure")); count != 1 {
		t.Errorf("failed handshakes = %v, want 1", count)
	}
	if count := testutil.ToFloat64(m.handshakeResults.WithLabelValues("timeout")); count != 1 {
		t.Errorf("timeout handshakes = %v, want 1", count)
	}
}

// TestQueryMetrics tests query-related metrics.
func TestQueryMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetricsWithRegisterer("test", registry)

	// Test QuerySent
	m.QuerySent("1.2.3.4:14432", 100)
	m.QuerySent("1.2.3.4:14432", 200)
	m.QuerySent("5.6.7.8:14432", 50)

	if count := testutil.ToFloat64(m.queriesSent.WithLabelValues("1.2.3.4:14432")); count != 2 {
		t.Errorf("queries sent = %v, want 2", count)
	}
	if bytes := testutil.ToFloat64(m.queryBytesSent.WithLabelValues("1.2.3.4:14432")); bytes != 300 {
		t.Errorf("query bytes sent = %v, want 300", bytes)
	}
	if count := testutil.ToFloat64(m.queriesSent.WithLabelValues("5.6.7.8:14432")); count != 1 {
		t.Errorf("queries sent = %v, want 1", count)
	}

	// Test QueryResult
	m.QueryResult("success")
	m.QueryResult("success")
	m.QueryResult("timeout")

	if count := testutil.ToFloat64(m.queryResults.WithLabelValues("success")); count != 2 {
		t.Errorf("successful queries = %v, want 2", count)
	}
	if count := testutil.ToFloat64(m.queryResults.WithLabelValues("timeout")); count != 1 {
		t.Errorf("timed out queries = %v, want 1", count)
	}

	// Test AnswerReceived
	m.AnswerReceived("1.2.3.4:14432", 500)
	m.AnswerReceived("1.2.3.4:14432", 300)

	if count := testutil.ToFloat64(m.answersReceived.WithLabelValues("1.2.3.4:14432")); count != 2 {
		t.Errorf("answers received = %v, want 2", count)
	}
	if bytes := testutil.ToFloat64(m.answerBytes.WithLabelValues("1.2.3.4:14432")); bytes != 800 {
		t.Errorf("answer bytes received = %v, want 800", bytes)
	}

	// Test UnmatchedAnswer
	m.UnmatchedAnswer()
	m.UnmatchedAnswer()

	if count := testutil.ToFloat64(m.unmatchedAnswers); count != 2 {
		t.Errorf("unmatched answers = %v, want 2", count)
	}
}

// TestFrameMetrics tests frame-related metrics.
func TestFrameMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetricsWithRegisterer("test", registry)

	// Test FrameReceived
	m.FrameReceived(100)
	m.FrameReceived(250)

	if count := testutil.ToFloat64(m.framesReceived); count != 2 {
		t.Errorf("frames received = %v, want 2", count)
	}
	if bytes := testutil.ToFloat64(m.frameBytes); bytes != 350 {
		t.Errorf("frame bytes received = %v, want 350", bytes)
	}

	// Test IntegrityError
	m.IntegrityError()

	if count := testutil.ToFloat64(m.integrityErrors); count != 1 {
		t.Errorf("integrity errors = %v, want 1", count)
	}

	// Test PingSent/PongReceived
	m.PingSent()
	m.PingSent()
	m.PongReceived()

	if count := testutil.ToFloat64(m.pingsSent); count != 2 {
		t.Errorf("pings sent = %v, want 2", count)
	}
	if count := testutil.ToFloat64(m.pongsReceived); count != 1 {
		t.Errorf("pongs received = %v, want 1", count)
	}
}

// TestEventMetrics tests event-related metrics.
func TestEventMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetricsWithRegisterer("test", registry)

	// Test EventEmitted
	m.EventEmitted("Ready")
	m.EventEmitted("Ready")
	m.EventEmitted("Closed")

	if count := testutil.ToFloat64(m.eventsEmitted.WithLabelValues("Ready")); count != 2 {
		t.Errorf("ready events = %v, want 2", count)
	}
	if count := testutil.ToFloat64(m.eventsEmitted.WithLabelValues("Closed")); count != 1 {
		t.Errorf("closed events = %v, want 1", count)
	}

	// Test EventDropped
	m.EventDropped()
	m.EventDropped()

	if count := testutil.ToFloat64(m.eventsDropped); count != 2 {
		t.Errorf("events dropped = %v, want 2", count)
	}
}

// TestNewMetricsWithNilRegisterer verifies metrics work without registration.
func TestNewMetricsWithNilRegisterer(t *testing.T) {
	// Should not panic
	m := NewMetricsWithRegisterer("test", nil)

	// All operations should work
	m.ConnectionOpened("1.2.3.4:14432")
	m.ConnectionClosed("1.2.3.4:14432")
	m.ConnectionAttempt("success")
	m.HandshakeDuration(0.5)
	m.HandshakeResult("success")
	m.QuerySent("1.2.3.4:14432", 100)
	m.QueryResult("success")
	m.QueryDuration(0.05)
	m.AnswerReceived("1.2.3.4:14432", 200)
	m.UnmatchedAnswer()
	m.FrameReceived(100)
	m.IntegrityError()
	m.PingSent()
	m.PongReceived()
	m.EventEmitted("Ready")
	m.EventDropped()
}

// TestConcurrentMetricUpdates tests that metrics are safe for concurrent use.
func TestConcurrentMetricUpdates(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetricsWithRegisterer("test", registry)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				m.ConnectionOpened("1.2.3.4:14432")
				m.ConnectionClosed("1.2.3.4:14432")
				m.QuerySent("1.2.3.4:14432", 100)
				m.AnswerReceived("1.2.3.4:14432", 200)
				m.FrameReceived(100)
				m.EventEmitted("Ready")
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	// Verify counts are as expected
	if count := testutil.ToFloat64(m.connectionsOpened.WithLabelValues("1.2.3.4:14432")); count != 1000 {
		t.Errorf("concurrent connections opened = %v, want 1000", count)
	}
	if count := testutil.ToFloat64(m.queriesSent.WithLabelValues("1.2.3.4:14432")); count != 1000 {
		t.Errorf("concurrent queries sent = %v, want 1000", count)
	}
}
