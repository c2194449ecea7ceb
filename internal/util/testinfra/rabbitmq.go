package testinfra

import (
	"context"
	"log"
	"sync"

	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

var rabbitOnce sync.Once

func EnsureRabbitMQ() string {
	cfg := ReadConfig()
	if cfg.RabbitMQURL == "" {
		rabbitOnce.Do(func() {
			startRabbitMQTestContainer(cfg)
		})
	}
	return cfg.RabbitMQURL
}

func startRabbitMQTestContainer(cfg *Config) {
	ctx := context.Background()

	rabbitContainer, err := rabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
	)
	if err != nil {
		panic(err)
	}

	amqpURL, err := rabbitContainer.AmqpURL(ctx)
	if err != nil {
		panic(err)
	}
	log.Printf("RabbitMQ running at %s", amqpURL)
	cfg.RabbitMQURL = amqpURL
	cfg.cleanupFns = append(cfg.cleanupFns, func() {
		if err := rabbitContainer.Terminate(ctx); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	})
}
