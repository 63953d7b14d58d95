// Package telemetry provides OpenTelemetry integration for the compiler.
//
// Configuration comes from the standard environment variables:
//
//	OTEL_ENABLED                 - enable/disable tracing (default: false)
//	OTEL_SERVICE_NAME            - service name (default: dataflow-compiler)
//	OTEL_SERVICE_VERSION         - service version (default: unknown)
//	OTEL_EXPORTER_OTLP_ENDPOINT  - OTLP collector endpoint
//	OTEL_EXPORTER_OTLP_PROTOCOL  - grpc or http/protobuf (default: grpc)
//	OTEL_EXPORTER_OTLP_HEADERS   - exporter headers (key1=v1,key2=v2)
//	OTEL_EXPORTER_OTLP_INSECURE  - use an insecure connection
//	OTEL_TRACES_SAMPLER          - sampler type (default: always_on)
//	OTEL_TRACES_SAMPLER_ARG      - sampler argument (e.g. a ratio)
//
// The compile driver wraps each pass in a span via StartPass.
package telemetry

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope of the compiler's spans.
const tracerName = "github.com/dataflow-compiler"

// Config holds OpenTelemetry configuration loaded from the environment.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Protocol       string
	Headers        map[string]string
	Insecure       bool
	Sampler        string
	SamplerArg     string
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		Enabled:        strings.ToLower(os.Getenv("OTEL_ENABLED")) == "true",
		ServiceName:    envOrDefault("OTEL_SERVICE_NAME", "dataflow-compiler"),
		ServiceVersion: envOrDefault("OTEL_SERVICE_VERSION", "unknown"),
		Endpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Protocol:       envOrDefault("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
		Headers:        parseKeyValuePairs(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Insecure:       strings.ToLower(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")) == "true",
		Sampler:        os.Getenv("OTEL_TRACES_SAMPLER"),
		SamplerArg:     os.Getenv("OTEL_TRACES_SAMPLER_ARG"),
	}
}

// Enabled reports whether tracing is switched on via OTEL_ENABLED.
func Enabled() bool {
	return strings.ToLower(os.Getenv("OTEL_ENABLED")) == "true"
}

// ShutdownFunc flushes and shuts down the TracerProvider.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(_ context.Context) error { return nil }

// Init initializes OpenTelemetry and installs the global TracerProvider.
// With tracing disabled it returns a no-op shutdown function and the global
// provider stays the default no-op one.
func Init(ctx context.Context) (ShutdownFunc, error) {
	cfg := LoadFromEnv()
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return noopShutdown, err
	}

	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(createSampler(cfg)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}

// StartPass opens a span for one compile pass over the named design.
func StartPass(ctx context.Context, pass, design string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "compile."+pass,
		trace.WithAttributes(attribute.String("design.name", design)))
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseKeyValuePairs parses "key1=v1,key2=v2" into a map, splitting each
// pair on the first '=' so values may contain '='.
func parseKeyValuePairs(s string) map[string]string {
	result := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		idx := strings.Index(pair, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(pair[:idx])
		value := strings.TrimSpace(pair[idx+1:])
		if key != "" {
			result[key] = value
		}
	}
	return result
}
