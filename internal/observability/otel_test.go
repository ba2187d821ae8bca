package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-deals-backend/internal/config"
)

func keepGlobals(t *testing.T) {
	t.Helper()
	tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})
}

func enabled(name string, insecure bool) config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Insecure:    insecure,
		Endpoint:    "localhost:4317",
		ServiceName: name,
		SampleRatio: 1,
	}
}

func TestSetupOTel_DisabledInstallsNothing(t *testing.T) {
	keepGlobals(t)
	before := otel.GetTracerProvider()

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Endpoint: "ignored:4317"}, "v0", zerolog.Nop())
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatal("provider replaced while disabled")
	}
}

func TestSetupOTel_InstallsProvider(t *testing.T) {
	for _, insecure := range []bool{true, false} {
		keepGlobals(t)

		shutdown, err := SetupOTel(context.Background(), enabled("go-deals-backend", insecure), "v1.0.0", zerolog.Nop())
		if err != nil {
			t.Fatalf("insecure=%v: %v", insecure, err)
		}
		if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
			t.Fatalf("insecure=%v: expected sdk provider", insecure)
		}

		ctx, span := otel.Tracer("services/IngestService").Start(context.Background(), "Ingest")
		carrier := propagation.MapCarrier{}
		otel.GetTextMapPropagator().Inject(ctx, carrier)
		span.End()
		if carrier.Get("traceparent") == "" {
			t.Fatalf("insecure=%v: traceparent not injected", insecure)
		}

		sctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
		_ = shutdown(sctx)
		cancel()
	}
}

func TestSetupOTel_ExporterErrorLeavesGlobals(t *testing.T) {
	keepGlobals(t)
	orig := dialExporter
	t.Cleanup(func() { dialExporter = orig })
	dialExporter = func(context.Context, ...otlptracegrpc.Option) (*otlptrace.Exporter, error) {
		return nil, errors.New("exporter unavailable")
	}

	before := otel.GetTracerProvider()
	if _, err := SetupOTel(context.Background(), enabled("svc", true), "v0", zerolog.Nop()); err == nil {
		t.Fatal("expected error")
	}
	if otel.GetTracerProvider() != before {
		t.Fatal("provider replaced on failure")
	}
}

func TestSetupOTel_ResourceErrorLeavesGlobals(t *testing.T) {
	keepGlobals(t)
	orig := buildResource
	t.Cleanup(func() { buildResource = orig })
	buildResource = func(context.Context, string, string) (*resource.Resource, error) {
		return nil, errors.New("bad resource")
	}

	beforeProp := otel.GetTextMapPropagator()
	if _, err := SetupOTel(context.Background(), enabled("svc", true), "v0", zerolog.Nop()); err == nil {
		t.Fatal("expected error")
	}
	if otel.GetTextMapPropagator() != beforeProp {
		t.Fatal("propagator replaced on failure")
	}
}

func TestSetupOTel_ExportErrorsGoToLogger(t *testing.T) {
	keepGlobals(t)
	var buf bytes.Buffer
	shutdown, err := SetupOTel(context.Background(), enabled("svc", true), "v0", zerolog.New(&buf))
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
		defer cancel()
		_ = shutdown(sctx)
	}()

	otel.Handle(errors.New("collector unreachable"))
	if out := buf.String(); !strings.Contains(out, "collector unreachable") || !strings.Contains(out, "localhost:4317") {
		t.Fatalf("export error not logged: %s", out)
	}
}

func TestSampler(t *testing.T) {
	root := sdktrace.SamplingParameters{ParentContext: context.Background(), TraceID: trace.TraceID{0xff}}
	cases := []struct {
		ratio float64
		want  sdktrace.SamplingDecision
	}{
		{1, sdktrace.RecordAndSample},
		{2, sdktrace.RecordAndSample},
		{0, sdktrace.Drop},
		{-1, sdktrace.Drop},
	}
	for _, tc := range cases {
		if got := sampler(tc.ratio).ShouldSample(root).Decision; got != tc.want {
			t.Errorf("sampler(%v) = %v, want %v", tc.ratio, got, tc.want)
		}
	}
	if !strings.Contains(sampler(0.5).Description(), "TraceIDRatioBased") {
		t.Fatalf("fractional ratio should sample by trace id: %s", sampler(0.5).Description())
	}
}
