package tracing

import (
	"context"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracerDisabled(t *testing.T) {
	t.Setenv("TRACING_ENABLED", "false")
	tp, tracer, err := InitTracer(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil || tracer == nil {
		t.Fatal("expected tracer provider")
	}
}

func TestInitTracerEnabledWithStubExporter(t *testing.T) {
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	orig := newTraceExporter
	defer func() { newTraceExporter = orig }()

	stub := &stubExporter{}
	newTraceExporter = func(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
		stub.endpoint = endpoint
		return stub, nil
	}

	tp, tracer, err := InitTracer(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tracer == nil {
		t.Fatal("expected tracer")
	}
	if stub.endpoint != "collector:4317" {
		t.Fatalf("expected endpoint to be propagated, got %s", stub.endpoint)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

type stubExporter struct {
	endpoint string
}

func (s *stubExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	return nil
}

func (s *stubExporter) Shutdown(ctx context.Context) error {
	return nil
}

func TestServiceNameOverride(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	if got := serviceName(); got != "oracle-aggregator" {
		t.Fatalf("expected default service name, got %s", got)
	}
	t.Setenv("OTEL_SERVICE_NAME", "oracle-aggregator-ssh")
	if got := serviceName(); got != "oracle-aggregator-ssh" {
		t.Fatalf("expected overridden service name, got %s", got)
	}
}

func TestSamplerRatio(t *testing.T) {
	cases := map[string]string{
		"":     "ParentBased{root:AlwaysOnSampler",
		"0.25": "ParentBased{root:TraceIDRatioBased{0.25}",
		"2":    "ParentBased{root:AlwaysOnSampler",
		"abc":  "ParentBased{root:AlwaysOnSampler",
	}
	for in, want := range cases {
		t.Setenv("TRACING_SAMPLE_RATIO", in)
		got := sampler().Description()
		if len(got) < len(want) || got[:len(want)] != want {
			t.Errorf("ratio %q: expected description starting %q, got %q", in, want, got)
		}
	}
}
