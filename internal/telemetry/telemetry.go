// Package telemetry wires OpenTelemetry tracing and metrics over OTLP/HTTP.
package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/ppiankov/veritas/internal/model"
)

const instrumentationName = "github.com/ppiankov/veritas"

// Provider wires tracer/meter providers and exposes helpers.
// A nil *Provider is valid and records nothing.
type Provider struct {
	Enabled bool
	tracer  trace.Tracer
	meter   metric.Meter

	analysesCounter  metric.Int64Counter
	analysisDuration metric.Float64Histogram
	fallbackCounter  metric.Int64Counter

	shutdownTraceProvider func(context.Context) error
	shutdownMeterProvider func(context.Context) error
}

// NewProvider configures OTLP exporters and providers. When disabled it
// returns no-op providers.
func NewProvider(ctx context.Context, cfg model.TelemetryConfig, version string) (*Provider, error) {
	if !cfg.Enabled {
		p := &Provider{
			tracer: tracenoop.NewTracerProvider().Tracer(""),
			meter:  metricnoop.NewMeterProvider().Meter(""),
		}
		p.initInstruments()
		return p, nil
	}

	slog.Info("telemetry enabled", "endpoint", cfg.Endpoint, "protocol", "http")

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.Service),
			attribute.String("service.version", version),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricExp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(cfg.Endpoint), otlpmetrichttp.WithInsecure())
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
	)
	otel.SetMeterProvider(mp)

	p := &Provider{
		Enabled:               true,
		tracer:                tp.Tracer(instrumentationName),
		meter:                 mp.Meter(instrumentationName),
		shutdownTraceProvider: tp.Shutdown,
		shutdownMeterProvider: mp.Shutdown,
	}
	p.initInstruments()
	return p, nil
}

func (p *Provider) initInstruments() {
	// Instruments are best-effort; a failed registration yields a no-op.
	p.analysesCounter, _ = p.meter.Int64Counter("veritas_analyses_total")
	p.analysisDuration, _ = p.meter.Float64Histogram("veritas_analysis_duration_seconds")
	p.fallbackCounter, _ = p.meter.Int64Counter("veritas_fallbacks_total")
}

// Tracer returns the tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return tracenoop.NewTracerProvider().Tracer("")
	}
	return p.tracer
}

// Meter returns the meter.
func (p *Provider) Meter() metric.Meter {
	if p == nil {
		return metricnoop.NewMeterProvider().Meter("")
	}
	return p.meter
}

// Shutdown flushes providers.
func (p *Provider) Shutdown(ctx context.Context) {
	if p == nil {
		return
	}
	if p.shutdownTraceProvider != nil {
		_ = p.shutdownTraceProvider(ctx)
	}
	if p.shutdownMeterProvider != nil {
		_ = p.shutdownMeterProvider(ctx)
	}
}

// RecordAnalysis counts one completed analysis.
func (p *Provider) RecordAnalysis(ctx context.Context, mediaType, verdict, strategy string, degraded bool, seconds float64) {
	if p == nil || p.analysesCounter == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("veritas.media_type", mediaType),
		attribute.String("veritas.verdict", verdict),
		attribute.String("veritas.strategy", strategy),
		attribute.Bool("veritas.degraded", degraded),
	)
	p.analysesCounter.Add(ctx, 1, attrs)
	p.analysisDuration.Record(ctx, seconds, attrs)
}

// RecordFallback counts one absorbed dependency failure.
func (p *Provider) RecordFallback(ctx context.Context, stage string) {
	if p == nil || p.fallbackCounter == nil {
		return
	}
	p.fallbackCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("veritas.stage", stage)))
}
