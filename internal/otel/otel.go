// Package otel wires the OpenTelemetry SDK: OTLP exporters for traces,
// metrics, and logs, selected per signal via config.
package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	OpenTelemetryProtocolGRPC = "grpc"
	OpenTelemetryProtocolHTTP = "http/protobuf"

	// ExporterNone disables a signal entirely.
	ExporterNone = "none"
)

type OpenTelemetryTypeConfig struct {
	Exporter string
	Protocol string
	Endpoint string
}

func (c *OpenTelemetryTypeConfig) enabled() bool {
	return c != nil && c.Exporter != ExporterNone
}

type OpenTelemetryConfig struct {
	ServiceName string
	Traces      *OpenTelemetryTypeConfig
	Metrics     *OpenTelemetryTypeConfig
	Logs        *OpenTelemetryTypeConfig
}

// SetupOTelSDK bootstraps the OpenTelemetry pipeline.
// If it does not return an error, make sure to call shutdown for proper cleanup.
func SetupOTelSDK(ctx context.Context, cfg *OpenTelemetryConfig) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error

	// shutdown calls cleanup functions registered via shutdownFuncs.
	// The errors from the calls are joined.
	// Each registered cleanup will be invoked once.
	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	// handleErr calls shutdown for cleanup and makes sure that all errors are returned.
	handleErr := func(inErr error) {
		err = errors.Join(inErr, shutdown(ctx))
	}

	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		))
	if err != nil {
		return nil, err
	}

	prop := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	otel.SetTextMapPropagator(prop)

	if cfg.Traces.enabled() {
		tracerProvider, err := newTraceProvider(ctx, cfg.Traces, res)
		if err != nil {
			handleErr(err)
			return shutdown, err
		}
		shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
		otel.SetTracerProvider(tracerProvider)
	}

	if cfg.Metrics.enabled() {
		meterProvider, err := newMeterProvider(ctx, cfg.Metrics, res)
		if err != nil {
			handleErr(err)
			return shutdown, err
		}
		shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
		otel.SetMeterProvider(meterProvider)
	}

	if cfg.Logs.enabled() {
		loggerProvider, err := newLoggerProvider(ctx, cfg.Logs, res)
		if err != nil {
			handleErr(err)
			return shutdown, err
		}
		shutdownFuncs = append(shutdownFuncs, loggerProvider.Shutdown)
		global.SetLoggerProvider(loggerProvider)
	}

	return shutdown, nil
}
