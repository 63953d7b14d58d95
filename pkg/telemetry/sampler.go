package telemetry

import (
	"strconv"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// createSampler builds a trace sampler from the configuration, defaulting
// to full sampling.
func createSampler(cfg *Config) sdktrace.Sampler {
	switch cfg.Sampler {
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(parseRatio(cfg.SamplerArg))
	case "parentbased_always_on":
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case "parentbased_always_off":
		return sdktrace.ParentBased(sdktrace.NeverSample())
	case "parentbased_traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(parseRatio(cfg.SamplerArg)))
	default:
		return sdktrace.AlwaysSample()
	}
}

// parseRatio parses a sampling ratio, clamping to [0, 1] and falling back
// to full sampling on garbage.
func parseRatio(s string) float64 {
	if s == "" {
		return 1.0
	}
	ratio, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 1.0
	}
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1.0
	}
	return ratio
}
