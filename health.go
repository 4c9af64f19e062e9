package adnl

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// CheckResult represents the result of a health check.
type CheckResult struct {
	// Name is the name of the check.
	Name string `json:"name"`

	// Healthy indicates whether the check passed.
	Healthy bool `json:"healthy"`

	// Message provides additional context about the check result.
	Message string `json:"message,omitempty"`

	// Duration is how long the check took.
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// HealthStatus represents the overall health status of a client.
type HealthStatus struct {
	// Healthy indicates whether all checks passed.
	Healthy bool `json:"healthy"`

	// Checks contains the results of individual checks.
	Checks []CheckResult `json:"checks"`

	// Timestamp is when the health check was performed.
	Timestamp time.Time `json:"timestamp"`
}

// IsHealthy returns true if the client's connection is ready for queries.
// This is a quick check suitable for liveness probes; it does not touch
// the network.
func (c *Client) IsHealthy() bool {
	return c.State() == StateReady
}

// ReadinessChecks performs detailed health checks and returns the results.
// This is suitable for readiness probes and debugging.
//
// Checks performed:
//   - connection_ready: whether the connection is in the Ready state
//   - ping: a keep-alive round trip to the server
func (c *Client) ReadinessChecks(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy:   true,
		Checks:    make([]CheckResult, 0, 2),
		Timestamp: time.Now(),
	}

	start := time.Now()
	state := c.State()
	ready := state == StateReady
	status.Checks = append(status.Checks, CheckResult{
		Name:     "connection_ready",
		Healthy:  ready,
		Message:  "connection state is " + state.String(),
		Duration: time.Since(start),
	})
	if !ready {
		status.Healthy = false
	}

	start = time.Now()
	err := c.Ping(ctx)
	pingMsg := "server answered ping"
	if err != nil {
		pingMsg = "ping failed: " + err.Error()
	}
	status.Checks = append(status.Checks, CheckResult{
		Name:     "ping",
		Healthy:  err == nil,
		Message:  pingMsg,
		Duration: time.Since(start),
	})
	if err != nil {
		status.Healthy = false
	}

	return status
}

// HealthHandler returns an http.Handler that serves health check responses.
// The handler responds with:
//   - 200 OK if the client is healthy
//   - 503 Service Unavailable if the client is unhealthy
//
// The response body contains a JSON representation of HealthStatus.
//
// Example usage:
//
//	http.Handle("/health", adnl.HealthHandler(client))
func HealthHandler(client *Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := client.ReadinessChecks(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if status.Healthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(status)
	})
}

// LivenessHandler returns an http.Handler that serves liveness check
// responses without touching the network.
//
// Example usage:
//
//	http.Handle("/live", adnl.LivenessHandler(client))
func LivenessHandler(client *Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		healthy := client.IsHealthy()

		w.Header().Set("Content-Type", "application/json")
		if healthy {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"healthy":true}`))
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"healthy":false}`))
		}
	})
}
