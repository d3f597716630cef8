package dflwa

import (
	"context"
	"net/http"
	"os"

	"github.com/aws-observability/aws-otel-go/exporters/xrayudp"
	"github.com/cockroachdb/errors"
	lambdadetector "go.opentelemetry.io/contrib/detectors/aws/lambda"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
)

const (
	exporterStdout  = "stdout"
	exporterXRayUDP = "xrayudp"
)

// newExporter creates a span exporter for the given exporter type.
// An empty type defaults to stdout.
func newExporter(ctx context.Context, kind string) (sdktrace.SpanExporter, error) {
	switch kind {
	case exporterStdout, "":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case exporterXRayUDP:
		return xrayudp.NewSpanExporter(ctx)
	default:
		return nil, errors.Newf("unsupported OTEL_EXPORTER: %q (supported: stdout, xrayudp)", kind)
	}
}

// newResource builds the OpenTelemetry resource describing this service.
// On Lambda (xrayudp) the lambda detector adds faas.* attributes.
func newResource(ctx context.Context, kind, serviceName string) (*resource.Resource, error) {
	svc := resource.NewSchemaless(semconv.ServiceNameKey.String(serviceName))
	if kind != exporterXRayUDP {
		return svc, nil
	}

	detected, err := lambdadetector.NewResourceDetector().Detect(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to detect lambda resource")
	}
	return resource.Merge(detected, svc)
}

// NewTracerProvider is an fx provider for the OpenTelemetry tracer provider.
//
// Spans are exported through a SimpleSpanProcessor: Lambda freezes the
// execution environment between invocations, so a batch processor can sit on
// spans indefinitely. The provider is shut down on fx stop.
//
// Setting OTEL_SDK_DISABLED=true yields a no-op provider.
func NewTracerProvider(lc fx.Lifecycle, env Environment) (trace.TracerProvider, error) {
	if os.Getenv("OTEL_SDK_DISABLED") == "true" {
		return noop.NewTracerProvider(), nil
	}

	ctx := context.Background()

	exporter, err := newExporter(ctx, env.otelExporter())
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, env.otelExporter(), env.serviceName())
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	}
	if env.otelExporter() == exporterXRayUDP {
		// X-Ray requires its timestamp-prefixed trace ID format.
		opts = append(opts, sdktrace.WithIDGenerator(xray.NewIDGenerator()))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return tp, nil
}

// NewPropagator is an fx provider for the trace context propagator.
// X-Ray propagation is used with the xrayudp exporter, W3C otherwise.
func NewPropagator(env Environment) propagation.TextMapPropagator {
	if env.otelExporter() == exporterXRayUDP {
		return xray.Propagator{}
	}
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// withTracing wraps an http.Handler with OpenTelemetry server spans.
// Requests to any of the excludePaths (typically the readiness check) are
// served without a span.
func withTracing(tp trace.TracerProvider, prop propagation.TextMapPropagator, service string, excludePaths ...string) func(http.Handler) http.Handler {
	excluded := make(map[string]struct{}, len(excludePaths))
	for _, p := range excludePaths {
		excluded[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, service,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithPropagators(prop),
			otelhttp.WithFilter(func(r *http.Request) bool {
				_, skip := excluded[r.URL.Path]
				return !skip
			}),
		)
	}
}
