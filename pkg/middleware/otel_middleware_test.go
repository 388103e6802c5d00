package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/statehistory/pkg/history"
)

func newRecorder() (*tracetest.SpanRecorder, trace.TracerProvider) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return sr, tp
}

func attrMap(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestOpenTelemetryMiddleware_SpanPerTransition(t *testing.T) {
	sr, tp := newRecorder()
	h := newHistory(t, OpenTelemetry(
		WithTracerProvider(tp),
		WithAttributeExtractor(func(*history.Transition) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	))

	h.Set(1)
	h.Undo()
	h.Redo()
	h.Redo()

	spans := sr.Ended()
	if len(spans) != 4 {
		t.Fatalf("spans: got %d, want 4", len(spans))
	}

	wantNames := []string{"history.set", "history.undo", "history.redo", "history.redo"}
	wantChanged := []bool{true, true, true, false}
	for i, span := range spans {
		if span.Name() != wantNames[i] {
			t.Errorf("span %d name: got %q, want %q", i, span.Name(), wantNames[i])
		}
		attrs := attrMap(span)
		if got := attrs["history.id"].AsString(); got != "test" {
			t.Errorf("span %d history.id: got %q", i, got)
		}
		if got := attrs["history.changed"].AsBool(); got != wantChanged[i] {
			t.Errorf("span %d history.changed: got %v, want %v", i, got, wantChanged[i])
		}
		if got := attrs["test.attr"].AsString(); got != "ok" {
			t.Errorf("span %d test.attr: got %q", i, got)
		}
		if span.Status().Code != codes.Ok {
			t.Errorf("span %d status: got %v", i, span.Status().Code)
		}
	}
}

func TestOpenTelemetryMiddleware_RecordsError(t *testing.T) {
	sr, tp := newRecorder()
	errRejected := errors.New("rejected")
	h := newHistory(t,
		OpenTelemetry(WithTracerProvider(tp)),
		history.MiddlewareFunc(func(*history.Transition, func() error) error { return errRejected }),
	)

	if err := h.Set(1); !errors.Is(err, errRejected) {
		t.Fatalf("Set: got %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans: got %d, want 1", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("status: got %v, want Error", spans[0].Status().Code)
	}
	if len(spans[0].Events()) == 0 {
		t.Error("expected RecordError to add an exception event")
	}
}

func TestOpenTelemetryMiddleware_InnerMiddlewareSeesSpan(t *testing.T) {
	_, tp := newRecorder()
	var inner trace.SpanContext
	h := newHistory(t,
		OpenTelemetry(WithTracerProvider(tp)),
		history.MiddlewareFunc(func(tr *history.Transition, next func() error) error {
			inner = SpanFromTransition(tr).SpanContext()
			return next()
		}),
	)

	h.Set(1)

	if !inner.IsValid() {
		t.Error("inner middleware did not see a valid span context")
	}
}

func TestOpenTelemetryMiddleware_Filter(t *testing.T) {
	sr, tp := newRecorder()
	h := newHistory(t, OpenTelemetry(
		WithTracerProvider(tp),
		WithTransitionFilter(func(tr *history.Transition) bool { return tr.Kind == history.KindSet }),
	))

	h.Set(1)
	h.Undo()
	h.Pause()

	if got := len(sr.Ended()); got != 1 {
		t.Errorf("spans: got %d, want 1", got)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := newHistory(t, Logging(logger, slog.LevelInfo))

	h.Set(1)
	h.Set(1)

	out := buf.String()
	if !strings.Contains(out, "level=INFO msg=\"history transition\"") {
		t.Errorf("missing changed transition log:\n%s", out)
	}
	if !strings.Contains(out, "level=DEBUG msg=\"history transition skipped\"") {
		t.Errorf("missing no-op log:\n%s", out)
	}
	if !strings.Contains(out, "kind=set") {
		t.Errorf("missing kind attribute:\n%s", out)
	}
}
