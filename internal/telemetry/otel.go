// Package telemetry wires the OpenTelemetry tracing and metrics SDKs to
// an OTLP/HTTP collector at process start: resource.New with the standard
// env/telemetry-SDK/process/OS detectors, an OTLP HTTP trace exporter
// batched into a TracerProvider, an OTLP HTTP metric exporter on a
// periodic reader, host metrics via
// go.opentelemetry.io/contrib/instrumentation/host. A missing endpoint is
// not an error here: observability is best-effort ambient infrastructure,
// not a required dependency of serving a turn, so InitOTel returns a
// no-op shutdown instead of failing process startup.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/agixt-go/orchestrator/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/host"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// metricInterval matches periodic reader cadence.
const metricInterval = 10 * time.Second

// Shutdown flushes and stops every exporter InitOTel started.
type Shutdown func(context.Context) error

func noop(context.Context) error { return nil }

// InitOTel configures the global tracer/meter providers from cfg. When
// cfg.OTLPEndpoint is empty, tracing and metrics stay disabled and
// InitOTel returns a no-op shutdown rather than an error.
func InitOTel(ctx context.Context, cfg config.ObservabilityConfig) (Shutdown, error) {
	if cfg.OTLPEndpoint == "" {
		return noop, nil
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("init otel resource: %w", err)
	}

	trExp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("init otlp trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(trExp),
		sdktrace.WithResource(res),
	)

	mExp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint), otlpmetrichttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("init otlp metric exporter: %w", err)
	}
	reader := metric.NewPeriodicReader(mExp, metric.WithInterval(metricInterval))
	mp := metric.NewMeterProvider(
		metric.WithReader(reader),
		metric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	if err := host.Start(host.WithMeterProvider(mp)); err != nil {
		return nil, fmt.Errorf("start host metrics: %w", err)
	}

	return func(ctx context.Context) error {
		var first error
		if err := mp.Shutdown(ctx); err != nil {
			first = err
		}
		if err := tp.Shutdown(ctx); err != nil && first == nil {
			first = err
		}
		return first
	}, nil
}
