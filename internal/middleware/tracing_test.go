package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	appmw "github.com/s1natex/todo-web-GO/internal/middleware"
)

func TestTracingMiddleware_NamesSpanByRoute(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	r := chi.NewRouter()
	r.Use(appmw.TracingMiddleware)
	r.Post("/dashboard/tasks/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dashboard/tasks/t9/status", nil))

	if rec.Header().Get("Trace-Id") == "" {
		t.Fatalf("expected Trace-Id header")
	}

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	if got := spans[0].Name; got != "POST /dashboard/tasks/{id}/status" {
		t.Fatalf("unexpected span name %q", got)
	}
	if spans[0].Status.Code != codes.Error {
		t.Fatalf("expected 5xx to mark the span as error, got %v", spans[0].Status.Code)
	}
}
