package middleware

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	herrors "github.com/vango-dev/statehistory/internal/errors"
	"github.com/vango-dev/statehistory/pkg/history"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "statehistory").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for transition duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "statehistory",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the collectors registered by Prometheus.
type Metrics struct {
	TransitionsTotal   *prometheus.CounterVec
	TransitionDuration *prometheus.HistogramVec
	TransitionErrors   *prometheus.CounterVec
	ListenerPanics     prometheus.Counter
}

// registered caches collectors per registry so that several histories can
// share one registry without duplicate registration.
var (
	registeredMu sync.Mutex
	registered   = map[prometheus.Registerer]*Metrics{}
)

func metricsFor(config MetricsConfig) *Metrics {
	registeredMu.Lock()
	defer registeredMu.Unlock()

	if m, ok := registered[config.Registry]; ok {
		return m
	}
	m := newMetrics(config)
	registered[config.Registry] = m
	return m
}

func newMetrics(config MetricsConfig) *Metrics {
	factory := promauto.With(config.Registry)

	return &Metrics{
		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transitions_total",
			Help:        "Total number of history transitions by kind and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "outcome"}),

		TransitionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transition_duration_seconds",
			Help:        "Transition duration in seconds, listeners included",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"kind"}),

		TransitionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transition_errors_total",
			Help:        "Total number of failed transitions by error type",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "error_type"}),

		ListenerPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "listener_panics_total",
			Help:        "Total number of recovered change listener panics",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Prometheus creates middleware that collects Prometheus metrics for
// history transitions.
//
// Metrics collected:
//   - statehistory_transitions_total: transitions by kind and outcome
//     (changed, noop, error)
//   - statehistory_transition_duration_seconds: transition duration by kind
//   - statehistory_transition_errors_total: failures by kind and error type
//   - statehistory_listener_panics_total: recovered listener panics
//
// Example:
//
//	h, err := history.New(doc,
//	    history.WithMiddleware(middleware.Prometheus(
//	        middleware.WithNamespace("editor"),
//	    )),
//	)
//
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) history.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	m := metricsFor(config)

	return history.MiddlewareFunc(func(t *history.Transition, next func() error) error {
		kind := string(t.Kind)
		start := time.Now()

		err := next()

		m.TransitionDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

		outcome := "noop"
		switch {
		case err != nil:
			outcome = "error"
			m.TransitionErrors.WithLabelValues(kind, categorizeError(err)).Inc()
		case t.Changed:
			outcome = "changed"
		}
		m.TransitionsTotal.WithLabelValues(kind, outcome).Inc()

		if n := len(t.ListenerPanics); n > 0 {
			m.ListenerPanics.Add(float64(n))
		}
		return err
	})
}

// categorizeError keeps the error_type label low-cardinality.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, history.ErrPolicy):
		return "policy"
	case errors.Is(err, history.ErrDisposed):
		return "disposed"
	}

	var herr *herrors.HistoryError
	if errors.As(err, &herr) {
		return string(herr.Category)
	}
	if strings.Contains(err.Error(), "timeout") {
		return "timeout"
	}
	return "internal"
}
