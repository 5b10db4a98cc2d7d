package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestTracingConfigFromEnvOverlaysBase(t *testing.T) {
	t.Setenv("ACQ_TRACING_ENABLED", "TRUE")
	t.Setenv("ACQ_TRACING_EXPORTER", "OTLP")
	t.Setenv("ACQ_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("ACQ_TRACING_SAMPLE_RATIO", "0.25")

	cfg := TracingConfigFromEnv(DefaultTracingConfig())
	if !cfg.Enabled || cfg.Exporter != "otlp" || cfg.Endpoint != "collector:4317" || cfg.SampleRatio != 0.25 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.ServiceName != "gnss-acquisition" {
		t.Fatalf("service name = %q", cfg.ServiceName)
	}
}

func TestTracingConfigFromEnvIgnoresBadRatio(t *testing.T) {
	t.Setenv("ACQ_TRACING_SAMPLE_RATIO", "1.5")
	base := DefaultTracingConfig()
	base.SampleRatio = 0.5
	if got := TracingConfigFromEnv(base).SampleRatio; got != 0.5 {
		t.Fatalf("sample ratio = %v, want base value 0.5", got)
	}
}

func TestInitTracingStdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Output = &buf

	ctx := context.Background()
	shutdown, err := InitTracing(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := otel.Tracer("test").Start(ctx, "acquire")
	span.End()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), `"Name": "acquire"`) {
		t.Fatalf("span not exported: %s", buf.String())
	}

	disabled, err := InitTracing(ctx, DefaultTracingConfig(), nil)
	if err != nil {
		t.Fatalf("InitTracing disabled: %v", err)
	}
	ShutdownWithTimeout(ctx, disabled, nil)
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Exporter = "zipkin"
	if _, err := InitTracing(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected unsupported exporter error")
	}
}
