package telemetry

import (
	"context"
	"math"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const DefaultSampleRate = 0.1

type Options struct {
	ServiceName string
	Version     string
	// Endpoint of the OTLP/HTTP collector. Empty disables tracing.
	Endpoint   string
	SampleRate float64
}

// Init installs the global trace provider. Without an endpoint, or when the
// exporter cannot be built, it returns a noop shutdown and the server runs
// untraced.
func Init(ctx context.Context, opts Options) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	host, insecure := exporterTarget(opts.Endpoint)
	if host == "" {
		return noop, nil
	}

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exporterOpts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(host),
		otlptracehttp.WithTimeout(3 * time.Second),
		otlptracehttp.WithRetry(otlptracehttp.RetryConfig{Enabled: false}),
	}
	if insecure {
		exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(initCtx, exporterOpts...)
	if err != nil {
		return noop, nil
	}

	attrs := []resource.Option{resource.WithAttributes(semconv.ServiceName(opts.ServiceName))}
	if opts.Version != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceVersion(opts.Version)))
	}
	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ClampSampleRate(opts.SampleRate)))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// ClampSampleRate keeps the ratio in [0,1], falling back to the default for
// anything outside it.
func ClampSampleRate(rate float64) float64 {
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return DefaultSampleRate
	}
	return rate
}

// exporterTarget splits an endpoint like "https://otel:4318" into the
// host:port the exporter wants and whether TLS is off. A bare host:port is
// treated as plain HTTP.
func exporterTarget(endpoint string) (string, bool) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", true
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), true
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", true
	}
	return u.Host, u.Scheme != "https"
}
