package mqs

import (
	"context"
	"strconv"
	"sync"

	"github.com/rabbitmq/amqp091-go"
)

// ============================== Config ==============================

type RabbitMQConfig struct {
	ServerURL  string
	Exchange   string
	Queue      string
	RoutingKey string
	Prefetch   int
}

// ============================== Queue ==============================

// RabbitMQQueue publishes and consumes on one AMQP connection. Publishing
// uses a dedicated channel guarded by a mutex; each subscription gets its
// own channel. Topology is declared by mqinfra, never here.
type RabbitMQQueue struct {
	config *RabbitMQConfig

	conn *amqp091.Connection

	publishMu sync.Mutex
	publishCh *amqp091.Channel
}

var _ Queue = &RabbitMQQueue{}

func NewRabbitMQQueue(config *RabbitMQConfig) *RabbitMQQueue {
	return &RabbitMQQueue{config: config}
}

func (q *RabbitMQQueue) Init(ctx context.Context) (func(), error) {
	conn, err := amqp091.Dial(q.config.ServerURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	q.conn = conn
	q.publishCh = ch
	return func() {
		conn.Close()
	}, nil
}

func (q *RabbitMQQueue) Publish(ctx context.Context, incomingMessage IncomingMessage, opts ...PublishOption) error {
	options := &publishOptions{}
	for _, opt := range opts {
		opt(options)
	}

	msg, err := incomingMessage.ToMessage()
	if err != nil {
		return err
	}

	exchange := q.config.Exchange
	routingKey := q.config.RoutingKey
	if options.directQueue != "" {
		// Default exchange routes by queue name.
		exchange = ""
		routingKey = options.directQueue
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    msg.LoggableID,
		Body:         msg.Body,
	}
	if options.expiration > 0 {
		publishing.Expiration = strconv.FormatInt(options.expiration.Milliseconds(), 10)
	}

	q.publishMu.Lock()
	defer q.publishMu.Unlock()
	return q.publishCh.PublishWithContext(ctx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		publishing,
	)
}

func (q *RabbitMQQueue) Subscribe(ctx context.Context) (Subscription, error) {
	ch, err := q.conn.Channel()
	if err != nil {
		return nil, err
	}
	prefetch := q.config.Prefetch
	if prefetch > 0 {
		if err := ch.Qos(
			prefetch, // prefetch count
			0,        // prefetch size
			false,    // global
		); err != nil {
			ch.Close()
			return nil, err
		}
	}
	deliveries, err := ch.Consume(
		q.config.Queue, // queue
		"",             // consumer
		false,          // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		ch.Close()
		return nil, err
	}
	return &rabbitSubscription{ch: ch, deliveries: deliveries}, nil
}

// ============================== Subscription ==============================

type rabbitSubscription struct {
	ch         *amqp091.Channel
	deliveries <-chan amqp091.Delivery
}

var _ Subscription = &rabbitSubscription{}

func (s *rabbitSubscription) Receive(ctx context.Context) (*Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case delivery, ok := <-s.deliveries:
		if !ok {
			return nil, ErrSubscriptionClosed
		}
		return &Message{
			Body:       delivery.Body,
			LoggableID: delivery.MessageId,
			Acker:      &rabbitAcker{delivery: delivery},
		}, nil
	}
}

func (s *rabbitSubscription) Shutdown(ctx context.Context) error {
	return s.ch.Close()
}

// rabbitAcker acknowledges on the consuming channel. Errors are ignored:
// a failed ack means redelivery, and every handler write is idempotent.
type rabbitAcker struct {
	delivery amqp091.Delivery
}

func (a *rabbitAcker) Ack() {
	_ = a.delivery.Ack(false)
}

func (a *rabbitAcker) Nack() {
	_ = a.delivery.Nack(false, false)
}
