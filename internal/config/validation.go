package config

import (
	"errors"
	"fmt"
)

var (
	ErrMismatchedServiceType = errors.New("service type mismatch")
	ErrMissingPostgres       = errors.New("missing required PostgreSQL configuration")
	ErrMissingRabbitMQ       = errors.New("missing required RabbitMQ configuration")
)

// Validate checks if the configuration is valid. The connection settings
// have no production defaults; every one must be supplied explicitly.
func (c *Config) Validate(flags Flags) error {
	// Reset validated state
	c.validated = false

	if err := c.validateService(flags); err != nil {
		return err
	}

	if err := c.validatePostgres(); err != nil {
		return err
	}

	if err := c.validateRabbitMQ(); err != nil {
		return err
	}

	// Mark as validated if we get here
	c.validated = true
	return nil
}

// validateService validates the service configuration
func (c *Config) validateService(flags Flags) error {
	// Parse service type from flag & env
	flagService, err := ServiceTypeFromString(flags.Service)
	if err != nil {
		return err
	}

	configService, err := c.GetService()
	if err != nil {
		return err
	}

	// If service is set in config (via env or file), it must match flag
	if c.Service != "" && flags.Service != "" && configService != flagService {
		return ErrMismatchedServiceType
	}

	// If no service set in config, use flag value
	if c.Service == "" {
		c.Service = flags.Service
	}

	return nil
}

func (c *Config) validatePostgres() error {
	if c.Postgres == nil {
		return ErrMissingPostgres
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"DB_URL", c.Postgres.URL},
		{"DB_USER", c.Postgres.User},
		{"DB_PASSWORD", c.Postgres.Password},
	} {
		if field.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingPostgres, field.name)
		}
	}
	return nil
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ == nil {
		return ErrMissingRabbitMQ
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"RABBITMQ_HOST", c.RabbitMQ.Host},
		{"RABBITMQ_USER", c.RabbitMQ.User},
		{"RABBITMQ_PASSWORD", c.RabbitMQ.Password},
		{"RABBITMQ_VHOST", c.RabbitMQ.VHost},
	} {
		if field.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingRabbitMQ, field.name)
		}
	}
	if c.RabbitMQ.Port == 0 {
		return fmt.Errorf("%w: RABBITMQ_PORT", ErrMissingRabbitMQ)
	}
	return nil
}
