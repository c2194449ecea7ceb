package mqinfra

import (
	"context"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

// Declare sets up the delivery topology:
//
//   - Exchange -> DeliveryQueue (bound with RoutingKey). The queue carries a
//     message TTL and dead-letters into DeadLetterExchange.
//   - RetryQueue has no consumers. Jobs published to it with a per-message
//     expiration dead-letter back into Exchange with RoutingKey when they
//     expire, re-entering the delivery queue. The broker is the only retry
//     scheduler.
//   - DeadLetterExchange fans out into DeadLetterQueue, the parking lot for
//     nacked and TTL-expired delivery messages.
//
// Declaring against existing objects with divergent arguments fails; the
// AMQP channel error is returned as-is so startup can abort loudly.
func Declare(ctx context.Context, cfg *Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	conn, err := amqp091.Dial(cfg.ServerURL)
	if err != nil {
		return fmt.Errorf("mqinfra dial: %w", err)
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("mqinfra channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		cfg.Exchange, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		return fmt.Errorf("declare exchange %q: %w", cfg.Exchange, err)
	}
	if err := ch.ExchangeDeclare(
		cfg.DeadLetterExchange, // name
		"fanout",               // type
		true,                   // durable
		false,                  // auto-deleted
		false,                  // internal
		false,                  // no-wait
		nil,                    // arguments
	); err != nil {
		return fmt.Errorf("declare exchange %q: %w", cfg.DeadLetterExchange, err)
	}

	if _, err := ch.QueueDeclare(
		cfg.DeliveryQueue, // name
		true,              // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		amqp091.Table{
			"x-message-ttl":          cfg.MessageTTL.Milliseconds(),
			"x-dead-letter-exchange": cfg.DeadLetterExchange,
		}, // arguments
	); err != nil {
		return fmt.Errorf("declare queue %q: %w", cfg.DeliveryQueue, err)
	}
	if err := ch.QueueBind(
		cfg.DeliveryQueue, // queue name
		cfg.RoutingKey,    // routing key
		cfg.Exchange,      // exchange
		false,             // no-wait
		nil,               // arguments
	); err != nil {
		return fmt.Errorf("bind queue %q: %w", cfg.DeliveryQueue, err)
	}

	if _, err := ch.QueueDeclare(
		cfg.RetryQueue, // name
		true,           // durable
		false,          // delete when unused
		false,          // exclusive
		false,          // no-wait
		amqp091.Table{
			"x-dead-letter-exchange":    cfg.Exchange,
			"x-dead-letter-routing-key": cfg.RoutingKey,
		}, // arguments
	); err != nil {
		return fmt.Errorf("declare queue %q: %w", cfg.RetryQueue, err)
	}

	if _, err := ch.QueueDeclare(
		cfg.DeadLetterQueue, // name
		true,                // durable
		false,               // delete when unused
		false,               // exclusive
		false,               // no-wait
		nil,                 // arguments
	); err != nil {
		return fmt.Errorf("declare queue %q: %w", cfg.DeadLetterQueue, err)
	}
	if err := ch.QueueBind(
		cfg.DeadLetterQueue,    // queue name
		"",                     // routing key
		cfg.DeadLetterExchange, // exchange
		false,                  // no-wait
		nil,                    // arguments
	); err != nil {
		return fmt.Errorf("bind queue %q: %w", cfg.DeadLetterQueue, err)
	}

	return nil
}

// Teardown deletes the declared topology. Tests use it to keep broker state
// from leaking between runs.
func Teardown(ctx context.Context, cfg *Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	conn, err := amqp091.Dial(cfg.ServerURL)
	if err != nil {
		return fmt.Errorf("mqinfra dial: %w", err)
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("mqinfra channel: %w", err)
	}
	defer ch.Close()

	for _, queue := range []string{cfg.DeliveryQueue, cfg.RetryQueue, cfg.DeadLetterQueue} {
		if _, err := ch.QueueDelete(
			queue, // name
			false, // ifUnused
			false, // ifEmpty
			false, // noWait
		); err != nil {
			return fmt.Errorf("delete queue %q: %w", queue, err)
		}
	}
	for _, exchange := range []string{cfg.Exchange, cfg.DeadLetterExchange} {
		if err := ch.ExchangeDelete(
			exchange, // name
			false,    // ifUnused
			false,    // noWait
		); err != nil {
			return fmt.Errorf("delete exchange %q: %w", exchange, err)
		}
	}
	return nil
}
