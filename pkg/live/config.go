package live

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cellgraph-dev/cellgraph/pkg/metrics"
)

// Config configures the live server.
type Config struct {
	// Address is the listen address (default ":8090").
	Address string

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger

	// ReadBufferSize is the WebSocket read buffer size in bytes.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size in bytes.
	WriteBufferSize int

	// CheckOrigin validates WebSocket upgrade origins.
	// The default accepts all origins; lock this down when the server
	// is reachable from browsers on other hosts.
	CheckOrigin func(r *http.Request) bool

	// PingInterval is how often keepalive pings are sent (default 30s).
	PingInterval time.Duration

	// WriteTimeout bounds a single WebSocket write (default 10s).
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown (default 10s).
	ShutdownTimeout time.Duration

	// Tracing enables the OpenTelemetry middleware on all routes.
	Tracing bool

	// Collector, when set, tracks connected client counts and serves
	// as a hint that /metrics should be exposed.
	Collector *metrics.Collector
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:         ":8090",
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     func(*http.Request) bool { return true },
		PingInterval:    30 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}
