package adnl

import (
	"crypto/ed25519"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Dzeta-tech/adnl/pkg/serverlist"
)

// Default configuration values.
const (
	DefaultConnectTimeout    = 10 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultQueryTimeout      = 30 * time.Second
	DefaultKeepAliveInterval = 5 * time.Second
	DefaultEventBufferSize   = 100
	DefaultFrameBufferSize   = 64
	DefaultMaxInFlight       = 1024
)

// ServerDescriptor identifies one server: where to dial it and the static
// Ed25519 public key its handshake is authenticated against.
type ServerDescriptor struct {
	// Host is the server's IP address or hostname.
	Host string

	// Port is the server's TCP port.
	Port int

	// PublicKey is the server's static Ed25519 public key.
	PublicKey ed25519.PublicKey
}

// NewServerDescriptor builds a descriptor from a host, port, and the
// standard base64 encoding of the server's public key.
func NewServerDescriptor(host string, port int, publicKeyBase64 string) (ServerDescriptor, error) {
	key, err := ParsePublicKeyBase64(publicKeyBase64)
	if err != nil {
		return ServerDescriptor{}, err
	}
	return ServerDescriptor{
		Host:      host,
		Port:      port,
		PublicKey: key,
	}, nil
}

// Addr returns the host:port dial address of the server.
func (s ServerDescriptor) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Validate checks the descriptor fields.
func (s ServerDescriptor) Validate() error {
	if err := ValidateHost(s.Host); err != nil {
		return err
	}
	if err := ValidatePort(s.Port); err != nil {
		return err
	}
	return ValidatePublicKey(s.PublicKey)
}

// Config holds the configuration for a Client.
type Config struct {
	// Servers are the servers the client may connect to. At least one is
	// required. A single-connection client uses the first; a round-robin
	// client spreads queries across all of them.
	Servers []ServerDescriptor

	// ConnectTimeout bounds each TCP dial.
	ConnectTimeout time.Duration

	// HandshakeTimeout bounds the wait for the handshake acknowledgement.
	HandshakeTimeout time.Duration

	// QueryTimeout is the default per-query deadline applied when the
	// caller's context has none.
	QueryTimeout time.Duration

	// KeepAliveInterval is how often a ping is sent on an idle ready
	// connection. Zero disables keep-alive; the default applies only
	// when the field is left unset via NewConfig.
	KeepAliveInterval time.Duration

	// EventBufferSize is the buffer size for the connection events channel.
	EventBufferSize int

	// FrameBufferSize is the buffer size of each connection's inbound
	// frame channel.
	FrameBufferSize int

	// MaxInFlight caps the number of unanswered queries per client. New
	// queries block once the cap is reached.
	MaxInFlight int

	// Logger is the logger for the client. If nil, a NopLogger is used.
	// The logger must be safe for concurrent use.
	Logger Logger

	// Metrics is the metrics collector for the client. If nil, a
	// NopMetrics is used. The collector must be safe for concurrent use.
	Metrics Metrics

	// Tracer traces connects and queries. If nil, a NopTracer is used.
	Tracer Tracer
}

// Validate checks that the configuration is valid and returns an error
// describing any problems found.
func (c *Config) Validate() error {
	if len(c.Servers) == 0 {
		return ErrNoServers
	}
	for i, s := range c.Servers {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("server %d: %w", i, err)
		}
	}
	if c.ConnectTimeout < 0 {
		return fmt.Errorf("%w: connect timeout cannot be negative", ErrInvalidConfig)
	}
	if c.HandshakeTimeout < 0 {
		return fmt.Errorf("%w: handshake timeout cannot be negative", ErrInvalidConfig)
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("%w: query timeout cannot be negative", ErrInvalidConfig)
	}
	if c.KeepAliveInterval < 0 {
		return fmt.Errorf("%w: keep-alive interval cannot be negative", ErrInvalidConfig)
	}
	if c.EventBufferSize < 0 {
		return fmt.Errorf("%w: event buffer size cannot be negative", ErrInvalidConfig)
	}
	if c.FrameBufferSize < 0 {
		return fmt.Errorf("%w: frame buffer size cannot be negative", ErrInvalidConfig)
	}
	if c.MaxInFlight < 0 {
		return fmt.Errorf("%w: max in-flight cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// applyDefaults sets default values for any unset optional fields.
func (c *Config) applyDefaults() {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = DefaultQueryTimeout
	}
	if c.EventBufferSize == 0 {
		c.EventBufferSize = DefaultEventBufferSize
	}
	if c.FrameBufferSize == 0 {
		c.FrameBufferSize = DefaultFrameBufferSize
	}
	if c.MaxInFlight == 0 {
		c.MaxInFlight = DefaultMaxInFlight
	}
	if c.Logger == nil {
		c.Logger = NopLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}
	if c.Tracer == nil {
		c.Tracer = NopTracer{}
	}
}

// ConfigOption is a functional option for configuring a Client.
type ConfigOption func(*Config)

// WithConnectTimeout sets the TCP dial timeout.
func WithConnectTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.ConnectTimeout = d
	}
}

// WithHandshakeTimeout sets the handshake timeout duration.
func WithHandshakeTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.HandshakeTimeout = d
	}
}

// WithQueryTimeout sets the default per-query deadline.
func WithQueryTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.QueryTimeout = d
	}
}

// WithKeepAliveInterval sets the idle ping interval. Zero disables
// keep-alive.
func WithKeepAliveInterval(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.KeepAliveInterval = d
	}
}

// WithEventBufferSize sets the buffer size for the events channel.
func WithEventBufferSize(size int) ConfigOption {
	return func(c *Config) {
		c.EventBufferSize = size
	}
}

// WithFrameBufferSize sets the buffer size of each connection's inbound
// frame channel.
func WithFrameBufferSize(size int) ConfigOption {
	return func(c *Config) {
		c.FrameBufferSize = size
	}
}

// WithMaxInFlight caps the number of unanswered queries per client.
func WithMaxInFlight(n int) ConfigOption {
	return func(c *Config) {
		c.MaxInFlight = n
	}
}

// WithLogger sets the logger for the client.
// The logger must be safe for concurrent use.
func WithLogger(l Logger) ConfigOption {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithMetrics sets the metrics collector for the client.
// The metrics collector must be safe for concurrent use.
func WithMetrics(m Metrics) ConfigOption {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithTracer sets the tracer for the client.
func WithTracer(t Tracer) ConfigOption {
	return func(c *Config) {
		c.Tracer = t
	}
}

// NewConfig creates a new Config for the given servers and applies any
// provided options. It applies defaults for unset optional fields but
// does not validate the configuration.
func NewConfig(servers []ServerDescriptor, opts ...ConfigOption) *Config {
	c := &Config{
		Servers:           servers,
		KeepAliveInterval: DefaultKeepAliveInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.applyDefaults()
	return c
}

// NewConfigFromFile builds a Config from a server list file maintained by
// the serverlist package. Blacklisted servers are excluded.
func NewConfigFromFile(path string, opts ...ConfigOption) (*Config, error) {
	entries, err := serverlist.Load(path)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoServers
	}

	servers := make([]ServerDescriptor, 0, len(entries))
	for _, e := range entries {
		servers = append(servers, ServerDescriptor{
			Host:      e.Host,
			Port:      e.Port,
			PublicKey: ed25519.PublicKey(e.PublicKey),
		})
	}
	return NewConfig(servers, opts...), nil
}
