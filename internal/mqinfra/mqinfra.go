package mqinfra

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConfig = errors.New("invalid mq infra config")

// Config names every broker object the relay relies on. Both roles declare
// the full topology at startup; declarations are idempotent as long as the
// arguments match what already exists, and a mismatch is a startup error.
type Config struct {
	ServerURL          string
	Exchange           string
	DeliveryQueue      string
	RetryQueue         string
	DeadLetterExchange string
	DeadLetterQueue    string
	RoutingKey         string
	MessageTTL         time.Duration
}

func (cfg *Config) validate() error {
	if cfg == nil {
		return ErrInvalidConfig
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"server url", cfg.ServerURL},
		{"exchange", cfg.Exchange},
		{"delivery queue", cfg.DeliveryQueue},
		{"retry queue", cfg.RetryQueue},
		{"dead letter exchange", cfg.DeadLetterExchange},
		{"dead letter queue", cfg.DeadLetterQueue},
		{"routing key", cfg.RoutingKey},
	} {
		if field.value == "" {
			return fmt.Errorf("%w: missing %s", ErrInvalidConfig, field.name)
		}
	}
	if cfg.MessageTTL <= 0 {
		return fmt.Errorf("%w: message TTL must be positive", ErrInvalidConfig)
	}
	return nil
}
