// Package telemetry sets up OpenTelemetry tracing for the discovery engine.
// Tracing is off unless enabled in configuration; the disabled provider
// hands out no-op tracers so callers never branch on it.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultServiceName names the service in exported spans.
const DefaultServiceName = "jobfeed"

var (
	// ErrServiceNameRequired is returned when tracing is enabled without a service name.
	ErrServiceNameRequired = errors.New("service name is required")
	// ErrInvalidSamplingRate is returned for sampling rates outside [0,1].
	ErrInvalidSamplingRate = errors.New("sampling rate must be between 0 and 1")
)

// Config controls trace export.
type Config struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	Endpoint     string  // host:port of the OTLP HTTP collector
	Insecure     bool    // plain HTTP, for local collectors
	SamplingRate float64 // fraction of traces kept
}

// Provider owns the tracer provider and its exporter.
type Provider struct {
	tp       *sdktrace.TracerProvider
	fallback trace.TracerProvider
}

// Init builds the tracer provider described by cfg and installs it globally.
// A disabled config returns a provider backed by no-op tracers.
func Init(ctx context.Context, cfg Config, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		logger.Info("tracing disabled")
		return &Provider{fallback: noop.NewTracerProvider()}, nil
	}
	if cfg.ServiceName == "" {
		return nil, ErrServiceNameRequired
	}
	if cfg.SamplingRate < 0 || cfg.SamplingRate > 1 {
		return nil, fmt.Errorf("%w: got %f", ErrInvalidSamplingRate, cfg.SamplingRate)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []otlptracehttp.Option{}
	if cfg.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exportCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exporter, err := otlptracehttp.New(exportCtx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SamplingRate)),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing initialized",
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"sampling_rate", cfg.SamplingRate,
	)
	return &Provider{tp: tp}, nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch rate {
	case 1:
		return sdktrace.AlwaysSample()
	case 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// TracerProvider returns the provider to hand to instrumented components.
func (p *Provider) TracerProvider() trace.TracerProvider {
	if p.tp == nil {
		return p.fallback
	}
	return p.tp
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p.tp != nil
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	return nil
}
