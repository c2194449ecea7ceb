package otel

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

func newTraceProvider(ctx context.Context, c *OpenTelemetryTypeConfig, res *resource.Resource) (*trace.TracerProvider, error) {
	var err error
	var traceExporter trace.SpanExporter
	if c.Protocol == OpenTelemetryProtocolGRPC {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()} // TODO: support TLS
		if c.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(c.Endpoint))
		}
		traceExporter, err = otlptracegrpc.New(ctx, opts...)
	} else {
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()} // TODO: support TLS
		if c.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpointURL(ensureHTTPEndpoint("traces", c.Endpoint)))
		}
		traceExporter, err = otlptracehttp.New(ctx, opts...)
	}
	if err != nil {
		return nil, err
	}

	traceProvider := trace.NewTracerProvider(
		trace.WithBatcher(traceExporter),
		trace.WithResource(res),
	)
	return traceProvider, nil
}

func newMeterProvider(ctx context.Context, c *OpenTelemetryTypeConfig, res *resource.Resource) (*metric.MeterProvider, error) {
	var err error
	var metricExporter metric.Exporter
	if c.Protocol == OpenTelemetryProtocolGRPC {
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()} // TODO: support TLS
		if c.Endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(c.Endpoint))
		}
		metricExporter, err = otlpmetricgrpc.New(ctx, opts...)
	} else {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()} // TODO: support TLS
		if c.Endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpointURL(ensureHTTPEndpoint("metrics", c.Endpoint)))
		}
		metricExporter, err = otlpmetrichttp.New(ctx, opts...)
	}
	if err != nil {
		return nil, err
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(metricExporter)),
		metric.WithResource(res),
	)
	return meterProvider, nil
}

func newLoggerProvider(ctx context.Context, c *OpenTelemetryTypeConfig, res *resource.Resource) (*log.LoggerProvider, error) {
	var err error
	var logExporter log.Exporter
	if c.Protocol == OpenTelemetryProtocolGRPC {
		opts := []otlploggrpc.Option{otlploggrpc.WithInsecure()} // TODO: support TLS
		if c.Endpoint != "" {
			opts = append(opts, otlploggrpc.WithEndpoint(c.Endpoint))
		}
		logExporter, err = otlploggrpc.New(ctx, opts...)
	} else {
		opts := []otlploghttp.Option{otlploghttp.WithInsecure()} // TODO: support TLS
		if c.Endpoint != "" {
			opts = append(opts, otlploghttp.WithEndpointURL(ensureHTTPEndpoint("logs", c.Endpoint)))
		}
		logExporter, err = otlploghttp.New(ctx, opts...)
	}
	if err != nil {
		return nil, err
	}

	loggerProvider := log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(logExporter)),
		log.WithResource(res),
	)
	return loggerProvider, nil
}

func ensureHTTPEndpoint(exporterType string, endpoint string) string {
	fullEndpoint := endpoint
	if !strings.HasPrefix(endpoint, "http") {
		fullEndpoint = "http://" + endpoint
	}
	if !strings.HasSuffix(fullEndpoint, "/v1/"+exporterType) {
		fullEndpoint = fullEndpoint + "/v1/" + exporterType
	}
	return fullEndpoint
}
