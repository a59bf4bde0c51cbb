// Package metrics exports Prometheus series for a reactive cell graph.
//
// The collector attaches to the core through cell.SetHooks, so the core
// itself carries no instrumentation dependency:
//
//	collector := metrics.New(metrics.WithNamespace("myapp"))
//	collector.Install()
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cellgraph-dev/cellgraph/pkg/cell"
)

// Config configures the Prometheus collector.
type Config struct {
	// Namespace is the metrics namespace (default: "cellgraph").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for recompute duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the Prometheus collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// defaultConfig returns the default collector configuration.
func defaultConfig() Config {
	return Config{
		Namespace:   "cellgraph",
		Subsystem:   "",
		ConstLabels: nil,
		Buckets:     prometheus.DefBuckets,
		Registry:    prometheus.DefaultRegisterer,
	}
}

// Collector holds the Prometheus metrics for a cell graph.
type Collector struct {
	cellsCreated      *prometheus.CounterVec
	recomputesTotal   prometheus.Counter
	recomputeErrors   prometheus.Counter
	recomputeDuration prometheus.Histogram
	notificationsTotal prometheus.Counter
	watcherCalls      prometheus.Counter
	cyclesDetected    prometheus.Counter
	wsClients         prometheus.Gauge
}

// New creates and registers the collector's metrics.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Collector{
		cellsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cells_created_total",
			Help:        "Total number of cells created, by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		recomputesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recomputes_total",
			Help:        "Total number of derived cell recomputations",
			ConstLabels: config.ConstLabels,
		}),

		recomputeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recompute_errors_total",
			Help:        "Total number of failed recomputations",
			ConstLabels: config.ConstLabels,
		}),

		recomputeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recompute_duration_seconds",
			Help:        "Derived cell recomputation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		notificationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of change notification steps",
			ConstLabels: config.ConstLabels,
		}),

		watcherCalls: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "watcher_calls_total",
			Help:        "Total number of watcher callback invocations",
			ConstLabels: config.ConstLabels,
		}),

		cyclesDetected: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycles_detected_total",
			Help:        "Total number of cyclic dependency detections",
			ConstLabels: config.ConstLabels,
		}),

		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_clients",
			Help:        "Number of connected live WebSocket clients",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Install wires the collector into the reactive core.
// Only one set of hooks can be active; the last Install wins.
func (c *Collector) Install() {
	cell.SetHooks(c.Hooks())
}

// Hooks returns the core observation hooks backed by this collector.
func (c *Collector) Hooks() cell.Hooks {
	return cell.Hooks{
		OnCellCreated: func(kind string) {
			c.cellsCreated.WithLabelValues(kind).Inc()
		},
		OnRecompute: func(d time.Duration, err error) {
			c.recomputesTotal.Inc()
			c.recomputeDuration.Observe(d.Seconds())
			if err != nil {
				c.recomputeErrors.Inc()
			}
		},
		OnNotify: func(watchers int) {
			c.notificationsTotal.Inc()
			c.watcherCalls.Add(float64(watchers))
		},
		OnCycle: func() {
			c.cyclesDetected.Inc()
		},
	}
}

// ClientConnected records a live WebSocket client attach.
func (c *Collector) ClientConnected() {
	c.wsClients.Inc()
}

// ClientDisconnected records a live WebSocket client detach.
func (c *Collector) ClientDisconnected() {
	c.wsClients.Dec()
}
