package adnl

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DebugState represents the complete state of a Client for debugging
// purposes.
type DebugState struct {
	// Server identity
	Server    string `json:"server"`
	PublicKey string `json:"public_key"`

	// Library version
	Version string `json:"version"`

	// Connection state
	State string `json:"state"`

	// Pending query count
	PendingQueries int `json:"pending_queries"`

	// Configuration summary
	Config DebugConfig `json:"config"`

	// Counter snapshot
	Stats Stats `json:"stats"`

	// Timestamp when state was captured
	CapturedAt time.Time `json:"captured_at"`
}

// DebugConfig represents configuration summary for debugging.
type DebugConfig struct {
	ConnectTimeout    string `json:"connect_timeout"`
	HandshakeTimeout  string `json:"handshake_timeout"`
	QueryTimeout      string `json:"query_timeout"`
	KeepAliveInterval string `json:"keep_alive_interval"`
	EventBufferSize   int    `json:"event_buffer_size"`
	FrameBufferSize   int    `json:"frame_buffer_size"`
}

// DumpState captures the current state of the client for debugging.
// This is useful for troubleshooting connection issues.
func (c *Client) DumpState() *DebugState {
	return &DebugState{
		Server:         c.server.Addr(),
		PublicKey:      fmt.Sprintf("%x", []byte(c.server.PublicKey)),
		Version:        CurrentVersion().String(),
		State:          c.State().String(),
		PendingQueries: c.tracker.Len(),
		Config: DebugConfig{
			ConnectTimeout:    c.config.ConnectTimeout.String(),
			HandshakeTimeout:  c.config.HandshakeTimeout.String(),
			QueryTimeout:      c.config.QueryTimeout.String(),
			KeepAliveInterval: c.config.KeepAliveInterval.String(),
			EventBufferSize:   c.config.EventBufferSize,
			FrameBufferSize:   c.config.FrameBufferSize,
		},
		Stats:      c.Stats(),
		CapturedAt: time.Now(),
	}
}

// DumpStateJSON returns the client state as formatted JSON.
func (c *Client) DumpStateJSON() (string, error) {
	state := c.DumpState()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal state: %w", err)
	}
	return string(data), nil
}

// DumpStateString returns a human-readable string representation of the
// client state.
func (c *Client) DumpStateString() string {
	state := c.DumpState()
	var sb strings.Builder

	sb.WriteString("=== ADNL Client Debug State ===\n\n")

	sb.WriteString("SERVER:\n")
	sb.WriteString(fmt.Sprintf("  Address:    %s\n", state.Server))
	if len(state.PublicKey) >= 16 {
		sb.WriteString(fmt.Sprintf("  Public Key: %s...\n", state.PublicKey[:16]))
	}
	sb.WriteString(fmt.Sprintf("  Version:    %s\n", state.Version))
	sb.WriteString("\n")

	sb.WriteString("CONNECTION:\n")
	sb.WriteString(fmt.Sprintf("  State:           %s\n", state.State))
	sb.WriteString(fmt.Sprintf("  Pending queries: %d\n", state.PendingQueries))
	sb.WriteString("\n")

	sb.WriteString("CONFIGURATION:\n")
	sb.WriteString(fmt.Sprintf("  Connect Timeout:     %s\n", state.Config.ConnectTimeout))
	sb.WriteString(fmt.Sprintf("  Handshake Timeout:   %s\n", state.Config.HandshakeTimeout))
	sb.WriteString(fmt.Sprintf("  Query Timeout:       %s\n", state.Config.QueryTimeout))
	sb.WriteString(fmt.Sprintf("  Keep-Alive Interval: %s\n", state.Config.KeepAliveInterval))
	sb.WriteString("\n")

	sb.WriteString("STATISTICS:\n")
	sb.WriteString(fmt.Sprintf("  Connections:       %d\n", state.Stats.ConnectionCount))
	sb.WriteString(fmt.Sprintf("  Queries sent:      %d\n", state.Stats.QueriesSent))
	sb.WriteString(fmt.Sprintf("  Answers received:  %d\n", state.Stats.AnswersReceived))
	sb.WriteString(fmt.Sprintf("  Query timeouts:    %d\n", state.Stats.QueryTimeouts))
	sb.WriteString(fmt.Sprintf("  Unmatched answers: %d\n", state.Stats.UnmatchedAnswers))
	sb.WriteString(fmt.Sprintf("  Bytes sent:        %d\n", state.Stats.BytesSent))
	sb.WriteString(fmt.Sprintf("  Bytes received:    %d\n", state.Stats.BytesReceived))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Captured at: %s\n", state.CapturedAt.Format(time.RFC3339)))
	sb.WriteString("===============================\n")

	return sb.String()
}
