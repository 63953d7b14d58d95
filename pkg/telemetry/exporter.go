package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"google.golang.org/grpc/credentials/insecure"
)

// createExporter creates an OTLP trace exporter for the configured protocol.
func createExporter(ctx context.Context, cfg *Config) (*otlptrace.Exporter, error) {
	switch strings.ToLower(cfg.Protocol) {
	case "http/protobuf", "http":
		return createHTTPExporter(ctx, cfg)
	default:
		return createGRPCExporter(ctx, cfg)
	}
}

func createGRPCExporter(ctx context.Context, cfg *Config) (*otlptrace.Exporter, error) {
	var opts []otlptracegrpc.Option

	if cfg.Endpoint != "" {
		// The gRPC client wants a host:port, not a URL.
		endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
		opts = append(opts, otlptracegrpc.WithEndpoint(endpoint))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	if cfg.Insecure || strings.HasPrefix(cfg.Endpoint, "http://") {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}

	return otlptracegrpc.New(ctx, opts...)
}

func createHTTPExporter(ctx context.Context, cfg *Config) (*otlptrace.Exporter, error) {
	var opts []otlptracehttp.Option

	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if strings.HasPrefix(endpoint, "http://") {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	return otlptracehttp.New(ctx, opts...)
}
