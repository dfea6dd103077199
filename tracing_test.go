package oboe

import (
	"context"
	"net/http"
	"testing"

	"github.com/JustHoIt/oboe-vintage/internal/apitest"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecordingProvider() (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	return sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)), recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingMiddlewareRecordsSpan(t *testing.T) {
	s := apitest.NewServer(t)
	var traceparent string
	s.Handle(http.MethodGet, "/users", func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("Traceparent")
		apitest.Envelope(w, http.StatusOK, []string{})
	})

	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	tp, recorder := newRecordingProvider()
	client := newTestClient(t, s, WithTracing(tp))

	if _, err := client.Get(context.Background(), "/users"); err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "GET /users" {
		t.Errorf("Expected span name 'GET /users', got %s", span.Name())
	}
	if span.SpanKind() != trace.SpanKindClient {
		t.Errorf("Expected client span, got %v", span.SpanKind())
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("Expected Ok status, got %v", span.Status().Code)
	}
	if v, ok := spanAttr(span, "http.status_code"); !ok || v.AsInt64() != 200 {
		t.Errorf("Expected http.status_code=200, got %v", v)
	}
	if v, ok := spanAttr(span, "http.method"); !ok || v.AsString() != http.MethodGet {
		t.Errorf("Expected http.method=GET, got %v", v)
	}
	if traceparent == "" {
		t.Error("Expected trace context to be propagated to the server")
	}
}

func TestTracingMiddlewareMarksFailures(t *testing.T) {
	s := apitest.NewServer(t)
	s.Handle(http.MethodGet, "/fail", func(w http.ResponseWriter, r *http.Request) {
		apitest.Error(w, http.StatusInternalServerError, "boom", "")
	})

	tp, recorder := newRecordingProvider()
	client := newTestClient(t, s, WithTracing(tp))

	if _, err := client.Get(context.Background(), "/fail"); err == nil {
		t.Fatal("Expected error for 500")
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("Expected Error status, got %v", spans[0].Status().Code)
	}
}

func TestTracingMiddlewareRecordsTransportError(t *testing.T) {
	tp, recorder := newRecordingProvider()
	client := New(WithBaseURL("http://127.0.0.1:1"), WithTracing(tp))

	if _, err := client.Get(context.Background(), "/"); err == nil {
		t.Fatal("Expected transport error")
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("Expected Error status, got %v", spans[0].Status().Code)
	}
	if len(spans[0].Events()) == 0 {
		t.Error("Expected the error to be recorded as a span event")
	}
}
