package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pucet-prep/backend/internal/config"
	"go.opentelemetry.io/otel/trace"
)

func TestMiddlewareContinuesIncomingTrace(t *testing.T) {
	tp, err := Init(config.TracingConfig{ServiceName: "pucet-test"})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer Shutdown(context.Background(), tp)

	var got trace.SpanContext
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = trace.SpanContextFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/v1/exam", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !got.IsValid() {
		t.Fatal("span context not set on request")
	}
	if want := "4bf92f3577b34da6a3ce929d0e0e4736"; got.TraceID().String() != want {
		t.Errorf("TraceID = %s, want %s", got.TraceID(), want)
	}
}

func TestMiddlewareStartsNewTrace(t *testing.T) {
	tp, err := Init(config.TracingConfig{ServiceName: "pucet-test"})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer Shutdown(context.Background(), tp)

	var got trace.SpanContext
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = trace.SpanContextFromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

	if !got.IsValid() {
		t.Error("span context not valid for request without traceparent")
	}
}
