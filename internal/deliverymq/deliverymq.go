package deliverymq

import (
	"context"
	"time"

	"github.com/webhookhub/webhookhub/internal/models"
	"github.com/webhookhub/webhookhub/internal/mqs"
)

// DeliveryMQ is the delivery job queue. Publishes go through the configured
// exchange into the main delivery queue; retries go through the default
// exchange into the consumer-less retry queue, where the per-message
// expiration dead-letters them back when the delay elapses.
type DeliveryMQ struct {
	queueConfig *mqs.QueueConfig
	retryQueue  string
	queue       mqs.Queue
}

type DeliveryMQOption func(*DeliveryMQ)

func WithQueue(config *mqs.QueueConfig) DeliveryMQOption {
	return func(q *DeliveryMQ) {
		q.queueConfig = config
	}
}

func WithRetryQueue(name string) DeliveryMQOption {
	return func(q *DeliveryMQ) {
		q.retryQueue = name
	}
}

func New(opts ...DeliveryMQOption) *DeliveryMQ {
	q := &DeliveryMQ{}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *DeliveryMQ) Init(ctx context.Context) (func(), error) {
	queue := mqs.NewQueue(q.queueConfig)
	cleanup, err := queue.Init(ctx)
	if err != nil {
		return nil, err
	}
	q.queue = queue
	return cleanup, nil
}

func (q *DeliveryMQ) Publish(ctx context.Context, job models.DeliveryJob) error {
	return q.queue.Publish(ctx, &job)
}

// PublishRetry parks a job copy in the retry queue for delay. The broker is
// the scheduler; nothing in-process tracks the timer.
func (q *DeliveryMQ) PublishRetry(ctx context.Context, job models.DeliveryJob, delay time.Duration) error {
	return q.queue.Publish(ctx, &job,
		mqs.WithDirectQueue(q.retryQueue),
		mqs.WithExpiration(delay),
	)
}

func (q *DeliveryMQ) Subscribe(ctx context.Context) (mqs.Subscription, error) {
	return q.queue.Subscribe(ctx)
}
