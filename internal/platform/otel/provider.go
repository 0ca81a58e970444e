// Package otel wires the OTLP trace pipeline for attendance processes.
package otel

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/ignitehq/attendance/internal/platform/config"
)

// Config is read from the environment on every Setup call.
type Config struct {
	Enabled     bool    `env:"ATTENDANCE_OTEL_ENABLED" envDefault:"true"`
	Endpoint    string  `env:"ATTENDANCE_OTEL_ENDPOINT"`
	SampleRatio float64 `env:"ATTENDANCE_OTEL_SAMPLE_RATIO" envDefault:"1"`
	Environment string  `env:"ATTENDANCE_ENV" envDefault:"development"`
}

// ScheduleAttributes labels spans with the schedule a process runs under, so
// traces from differently configured deployments can be told apart.
func ScheduleAttributes(timezone, weekday string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if tz := strings.TrimSpace(timezone); tz != "" {
		attrs = append(attrs, attribute.String("attendance.timezone", tz))
	}
	if day := strings.TrimSpace(weekday); day != "" {
		attrs = append(attrs, attribute.String("attendance.session_weekday", strings.ToLower(day)))
	}
	return attrs
}

// Setup initialises tracing for serviceName.
//
// Tracing is opt-in: with no ATTENDANCE_OTEL_ENDPOINT, or with
// ATTENDANCE_OTEL_ENABLED=false, it returns a no-op shutdown and leaves the
// global provider alone. The returned shutdown flushes pending spans.
func Setup(ctx context.Context, serviceName string, attrs ...attribute.KeyValue) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return noop, fmt.Errorf("otel config: %w", err)
	}
	if !cfg.Enabled || strings.TrimSpace(cfg.Endpoint) == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		return noop, err
	}
	res, err := newResource(ctx, cfg, serviceName, attrs)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

func newResource(ctx context.Context, cfg Config, serviceName string, attrs []attribute.KeyValue) (*resource.Resource, error) {
	base := []attribute.KeyValue{
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(buildVersion()),
		attribute.String("deployment.environment", cfg.Environment),
	}
	return resource.New(ctx, resource.WithAttributes(append(base, attrs...)...))
}

// sampler keeps every root span at ratio >= 1 and none at ratio <= 0.
func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "devel"
	}
	return info.Main.Version
}
