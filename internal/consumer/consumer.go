// Package consumer pumps messages from a queue subscription into a handler.
// In-flight work is bounded by a slot pool sized to match the subscription's
// prefetch window, so the broker never holds more unacked messages than the
// handler has capacity for.
package consumer

import (
	"context"

	"github.com/webhookhub/webhookhub/internal/logging"
	"github.com/webhookhub/webhookhub/internal/mqs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Consumer interface {
	Run(context.Context) error
}

type MessageHandler interface {
	Handle(context.Context, *mqs.Message) error
}

type Option func(*consumer)

func WithName(name string) Option {
	return func(c *consumer) {
		c.name = name
	}
}

// WithConcurrency bounds in-flight handlers. Keep it equal to the channel
// prefetch; a smaller value idles prefetched messages, a larger one never
// fills.
func WithConcurrency(concurrency int) Option {
	return func(c *consumer) {
		c.concurrency = concurrency
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(c *consumer) {
		c.logger = logger
	}
}

func New(subscription mqs.Subscription, handler MessageHandler, opts ...Option) Consumer {
	c := &consumer{
		subscription: subscription,
		handler:      handler,
		concurrency:  1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.concurrency < 1 {
		c.concurrency = 1
	}
	return c
}

type consumer struct {
	subscription mqs.Subscription
	handler      MessageHandler
	name         string
	concurrency  int
	logger       *logging.Logger
}

var _ Consumer = &consumer{}

func (c *consumer) Run(ctx context.Context) error {
	defer c.subscription.Shutdown(ctx)

	tracer := otel.GetTracerProvider().Tracer("github.com/webhookhub/webhookhub/internal/consumer")

	slots := make(chan struct{}, c.concurrency)
	for range c.concurrency {
		slots <- struct{}{}
	}
	// drain blocks until every in-flight handler has returned its slot, so
	// no message is abandoned between receive and ack.
	drain := func() {
		for range c.concurrency {
			<-slots
		}
	}

	for {
		msg, err := c.subscription.Receive(ctx)
		if err != nil {
			drain()
			return err
		}

		select {
		case <-slots:
		case <-ctx.Done():
			drain()
			return nil
		}

		go c.handle(msg, tracer, slots)
	}
}

func (c *consumer) handle(msg *mqs.Message, tracer trace.Tracer, slots chan struct{}) {
	defer func() { slots <- struct{}{} }()

	ctx, span := tracer.Start(context.Background(), c.spanName())
	defer span.End()

	if err := c.handler.Handle(ctx, msg); err != nil {
		span.RecordError(err)
		if c.logger != nil {
			c.logger.Ctx(ctx).Error("consumer handler error",
				zap.String("consumer", c.name), zap.Error(err))
		}
	}
}

func (c *consumer) spanName() string {
	if c.name == "" {
		return "Consumer.Handle"
	}
	return c.name + ".Consumer.Handle"
}
