package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/statehistory/pkg/history"
)

// Default tracer name for history transitions.
const defaultTracerName = "statehistory"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "statehistory").
	TracerName string

	// TracerProvider supplies the tracer. Defaults to the global provider.
	TracerProvider trace.TracerProvider

	// Filter determines which transitions to trace.
	// Return true to trace the transition, false to skip.
	// If nil, all transitions are traced.
	Filter func(t *history.Transition) bool

	// AttributeExtractor adds custom attributes to each span.
	AttributeExtractor func(t *history.Transition) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithTransitionFilter sets a filter function for transitions.
func WithTransitionFilter(filter func(t *history.Transition) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(t *history.Transition) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// OpenTelemetry creates middleware that traces every transition.
//
// Each span is named history.<kind> and carries the history ID, kind and
// whether a scheduler timer applied it. Once the transition has run the
// span also records whether the state changed and how many listeners
// panicked. The span context replaces the transition context, so inner
// middleware can start child spans from t.Context().
//
// Example:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//
//	h, err := history.New(doc,
//	    history.WithMiddleware(middleware.OpenTelemetry()),
//	)
func OpenTelemetry(opts ...OTelOption) history.Middleware {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}

	var tracer trace.Tracer
	if config.TracerProvider != nil {
		tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		tracer = otel.Tracer(config.TracerName)
	}

	return history.MiddlewareFunc(func(t *history.Transition, next func() error) error {
		if config.Filter != nil && !config.Filter(t) {
			return next()
		}

		attrs := []attribute.KeyValue{
			attribute.String("history.id", t.HistoryID),
			attribute.String("history.kind", string(t.Kind)),
			attribute.Bool("history.deferred", t.Deferred),
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(t)...)
		}

		parent := t.Context()
		spanCtx, span := tracer.Start(parent, "history."+string(t.Kind),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		t.SetContext(spanCtx)
		defer t.SetContext(parent)

		err := next()

		span.SetAttributes(
			attribute.Bool("history.changed", t.Changed),
			attribute.Int("history.listener_panics", len(t.ListenerPanics)),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	})
}

// SpanFromTransition returns the span started for t, or a no-op span when
// the transition is not traced.
func SpanFromTransition(t *history.Transition) trace.Span {
	return trace.SpanFromContext(t.Context())
}

// TraceContext returns the context carrying the transition's span for
// propagation to downstream calls.
func TraceContext(t *history.Transition) context.Context {
	return t.Context()
}
