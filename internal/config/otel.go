package config

import (
	"fmt"

	"github.com/webhookhub/webhookhub/internal/otel"
	v "github.com/spf13/viper"
)

type OpenTelemetryTypeConfig struct {
	Exporter string `yaml:"exporter" env:"EXPORTER"`
	Protocol string `yaml:"protocol" env:"PROTOCOL"`
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
}

type OpenTelemetryConfig struct {
	ServiceName string                   `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
	Traces      *OpenTelemetryTypeConfig `yaml:"traces" envPrefix:"OTEL_TRACES_"`
	Metrics     *OpenTelemetryTypeConfig `yaml:"metrics" envPrefix:"OTEL_METRICS_"`
	Logs        *OpenTelemetryTypeConfig `yaml:"logs" envPrefix:"OTEL_LOGS_"`
}

// getProtocol resolves the OTLP protocol for a signal using the standard
// OTEL_EXPORTER_OTLP_<SIGNAL>_PROTOCOL / OTEL_EXPORTER_OTLP_PROTOCOL chain.
func getProtocol(viper *v.Viper, telemetryType string) string {
	protocol := viper.GetString(fmt.Sprintf("OTEL_EXPORTER_OTLP_%s_PROTOCOL", telemetryType))
	if protocol == "" {
		protocol = viper.GetString("OTEL_EXPORTER_OTLP_PROTOCOL")
	}
	if protocol == "" {
		protocol = "grpc"
	}
	return protocol
}

func getEndpoint(viper *v.Viper, telemetryType string) string {
	endpoint := viper.GetString(fmt.Sprintf("OTEL_EXPORTER_OTLP_%s_ENDPOINT", telemetryType))
	if endpoint == "" {
		endpoint = viper.GetString("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	return endpoint
}

func (c *OpenTelemetryTypeConfig) toConfig(viper *v.Viper, telemetryType string) *otel.OpenTelemetryTypeConfig {
	cfg := &otel.OpenTelemetryTypeConfig{}
	if c != nil {
		cfg.Exporter = c.Exporter
		cfg.Protocol = c.Protocol
		cfg.Endpoint = c.Endpoint
	}
	if cfg.Protocol == "" {
		cfg.Protocol = getProtocol(viper, telemetryType)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = getEndpoint(viper, telemetryType)
	}
	return cfg
}

// GetServiceName returns the configured service name, or "webhookhub" when
// telemetry is not configured. Used for span and middleware naming even when
// the OTel SDK itself is disabled.
func (c *OpenTelemetryConfig) GetServiceName() string {
	if c == nil || c.ServiceName == "" {
		return "webhookhub"
	}
	return c.ServiceName
}

// ToConfig returns nil when no service name is set, which disables the OTel SDK.
func (c *OpenTelemetryConfig) ToConfig() *otel.OpenTelemetryConfig {
	if c == nil || c.ServiceName == "" {
		return nil
	}

	viper := v.New()
	viper.AutomaticEnv()

	return &otel.OpenTelemetryConfig{
		ServiceName: c.ServiceName,
		Traces:      c.Traces.toConfig(viper, "TRACES"),
		Metrics:     c.Metrics.toConfig(viper, "METRICS"),
		Logs:        c.Logs.toConfig(viper, "LOGS"),
	}
}
