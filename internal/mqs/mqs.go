package mqs

import (
	"context"
	"errors"
	"time"
)

var ErrSubscriptionClosed = errors.New("subscription closed")

// Acker carries the broker-side acknowledgement for one message.
type Acker interface {
	Ack()
	Nack()
}

// Message is a single queue message plus its ack controls. Messages are
// disposable instructions; the database row they reference is the source of
// truth.
type Message struct {
	Body       []byte
	LoggableID string
	Acker      Acker
}

func (m *Message) Ack() {
	if m.Acker != nil {
		m.Acker.Ack()
	}
}

// Nack rejects the message without requeueing it, handing it to the queue's
// dead-letter exchange.
func (m *Message) Nack() {
	if m.Acker != nil {
		m.Acker.Nack()
	}
}

// IncomingMessage is a typed payload that can cross the queue boundary.
type IncomingMessage interface {
	FromMessage(*Message) error
	ToMessage() (*Message, error)
}

// Subscription delivers messages one at a time until Shutdown.
type Subscription interface {
	Receive(ctx context.Context) (*Message, error)
	Shutdown(ctx context.Context) error
}

// Queue is one logical queue: a publisher plus a subscription factory
// sharing a single broker connection.
type Queue interface {
	Init(ctx context.Context) (func(), error)
	Publish(ctx context.Context, msg IncomingMessage, opts ...PublishOption) error
	Subscribe(ctx context.Context) (Subscription, error)
}

type publishOptions struct {
	expiration  time.Duration
	directQueue string
}

type PublishOption func(*publishOptions)

// WithExpiration sets a per-message TTL. Expired messages follow the queue's
// dead-letter routing.
func WithExpiration(d time.Duration) PublishOption {
	return func(o *publishOptions) {
		o.expiration = d
	}
}

// WithDirectQueue routes the message through the default exchange straight
// to the named queue instead of the configured exchange.
func WithDirectQueue(queue string) PublishOption {
	return func(o *publishOptions) {
		o.directQueue = queue
	}
}

type QueueConfig struct {
	RabbitMQ *RabbitMQConfig
}

func NewQueue(cfg *QueueConfig) Queue {
	if cfg.RabbitMQ == nil {
		// IMPOSSIBLE
		panic("failed assertion: cfg.RabbitMQ != nil")
	}
	return NewRabbitMQQueue(cfg.RabbitMQ)
}
