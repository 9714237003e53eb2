package telemetry_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/s1natex/todo-web-GO/internal/config"
	"github.com/s1natex/todo-web-GO/internal/telemetry"
)

func TestSetup_StdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := telemetry.Setup(context.Background(), config.TracingConfig{
		Exporter:    config.ExporterStdout,
		ServiceName: "todo-web-test",
	}, &buf)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "GET /dashboard")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "GET /dashboard") || !strings.Contains(out, "todo-web-test") {
		t.Fatalf("expected exported span with service name, got:\n%s", out)
	}
}

func TestSetup_None(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), config.TracingConfig{Exporter: config.ExporterNone}, nil)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetup_UnknownExporter(t *testing.T) {
	if _, err := telemetry.Setup(context.Background(), config.TracingConfig{Exporter: "zipkin"}, nil); err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}
