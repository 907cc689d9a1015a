package client

import (
	"time"

	"github.com/lhassa8/LMCP/logx"
	"github.com/lhassa8/LMCP/protocol"
)

// Default timeouts applied when no option overrides them.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultRequestTimeout   = 30 * time.Second
)

// ValidationMode controls how argument validation treats a missing required
// parameter. Some servers tolerate absent fields, so lenient mode sends the
// call anyway instead of rejecting it client-side.
type ValidationMode int

const (
	// ValidationStrict rejects missing required parameters before anything
	// is sent. The default.
	ValidationStrict ValidationMode = iota
	// ValidationLenient logs a warning and sends the call anyway.
	ValidationLenient
)

// Config holds the configuration shared by connections and the manager.
type Config struct {
	Name                string
	Logger              logx.Logger
	ClientInfo          protocol.Implementation
	Capabilities        protocol.ClientCapabilities
	HandshakeTimeout    time.Duration
	RequestTimeout      time.Duration
	GracePeriod         time.Duration
	Validation          ValidationMode
	NotificationHandler NotificationHandler
}

func defaultConfig() Config {
	return Config{
		Name:             "lmcp",
		Logger:           logx.NewDefaultLogger(),
		ClientInfo:       protocol.Implementation{Name: "lmcp-go", Version: "0.2.0"},
		HandshakeTimeout: DefaultHandshakeTimeout,
		RequestTimeout:   DefaultRequestTimeout,
		Validation:       ValidationStrict,
	}
}

// Option is a configuration option for connections and the manager.
type Option func(*Config)

// WithName sets the display name used in logs.
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

// WithLogger sets the logger.
func WithLogger(logger logx.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithClientInfo sets the implementation info declared during the handshake.
func WithClientInfo(info protocol.Implementation) Option {
	return func(c *Config) { c.ClientInfo = info }
}

// WithCapabilities sets the client capabilities declared during the handshake.
func WithCapabilities(caps protocol.ClientCapabilities) Option {
	return func(c *Config) { c.Capabilities = caps }
}

// WithHandshakeTimeout bounds the initialize exchange.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Config) { c.HandshakeTimeout = d }
}

// WithRequestTimeout sets the default per-call timeout applied when the
// caller's context carries no deadline. Zero disables the default.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) { c.RequestTimeout = d }
}

// WithGracePeriod sets how long Close waits for a server process to exit
// before killing it.
func WithGracePeriod(d time.Duration) Option {
	return func(c *Config) { c.GracePeriod = d }
}

// WithValidation sets the argument validation mode.
func WithValidation(mode ValidationMode) Option {
	return func(c *Config) { c.Validation = mode }
}

// WithNotificationHandler registers a handler for unsolicited server
// notifications. Without one, notifications are ignored.
func WithNotificationHandler(h NotificationHandler) Option {
	return func(c *Config) { c.NotificationHandler = h }
}
