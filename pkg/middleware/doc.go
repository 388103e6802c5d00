// Package middleware provides observability middleware for history
// transitions.
//
// This package includes:
//   - OpenTelemetry tracing middleware
//   - Prometheus metrics middleware
//   - slog logging middleware
//
// # OpenTelemetry Middleware
//
// Every transition becomes a span named after its kind, carrying the
// history ID and whether the state changed.
//
//	h, err := history.New(doc,
//	    history.WithMiddleware(middleware.OpenTelemetry()),
//	)
//
// Configure with options:
//
//	middleware.OpenTelemetry(
//	    middleware.WithTracerName("editor"),
//	    middleware.WithTransitionFilter(func(t *history.Transition) bool {
//	        return t.Kind != history.KindPause
//	    }),
//	)
//
// # Prometheus Metrics
//
// The Prometheus middleware counts transitions by kind and outcome, times
// them, and counts failures and recovered listener panics. Collectors are
// registered once per registry, so any number of histories can share one.
//
//	reg := prometheus.NewRegistry()
//	h, err := history.New(doc,
//	    history.WithMiddleware(middleware.Prometheus(middleware.WithRegistry(reg))),
//	)
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # Ordering
//
// Middleware given first to history.WithMiddleware is outermost. Put
// OpenTelemetry first so that the other middleware run inside its span.
package middleware
