package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/randalmurphal/binlogstream/pkg/binlogstream/config"
)

// setupTelemetry installs global meter and tracer providers that export to w
// when the settings enable them. shutdown flushes both and restores the
// previous providers.
func setupTelemetry(s config.Settings, w io.Writer) (shutdown func(context.Context) error, err error) {
	var shutdowns []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	if s.Metrics {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return shutdown, fmt.Errorf("stdout metric exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
		original := otel.GetMeterProvider()
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, func(ctx context.Context) error {
			defer otel.SetMeterProvider(original)
			return mp.Shutdown(ctx)
		})
	}

	if s.Tracing {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return shutdown, fmt.Errorf("stdout trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		original := otel.GetTracerProvider()
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, func(ctx context.Context) error {
			defer otel.SetTracerProvider(original)
			return tp.Shutdown(ctx)
		})
	}

	return shutdown, nil
}
