package deliverymq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/webhookhub/webhookhub/internal/backoff"
	"github.com/webhookhub/webhookhub/internal/consumer"
	"github.com/webhookhub/webhookhub/internal/deliveryclient"
	"github.com/webhookhub/webhookhub/internal/logging"
	"github.com/webhookhub/webhookhub/internal/metrics"
	"github.com/webhookhub/webhookhub/internal/models"
	"github.com/webhookhub/webhookhub/internal/mqs"
	"go.uber.org/zap"
)

// Error types to distinguish between different stages of delivery. The
// ack/nack decision switches exhaustively over these.

// DecodeError marks a malformed job. The message is poison; it parks in the
// DLQ instead of being retried.
type DecodeError struct {
	err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %v", e.err)
}

func (e *DecodeError) Unwrap() error {
	return e.err
}

// AttemptError marks a failed delivery attempt whose outcome was already
// persisted. Status is the state the row was moved to.
type AttemptError struct {
	err       error
	Retryable bool
	Status    models.DeliveryStatus
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("attempt error: %v", e.err)
}

func (e *AttemptError) Unwrap() error {
	return e.err
}

// PersistError marks a store write failure. The delivery row keeps its
// prior state, so the message must not be acked.
type PersistError struct {
	err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist error: %v", e.err)
}

func (e *PersistError) Unwrap() error {
	return e.err
}

// RetryPublishError marks a failure to park the retry copy after the row
// was already moved to RETRYING.
type RetryPublishError struct {
	err error
}

func (e *RetryPublishError) Error() string {
	return fmt.Sprintf("retry publish error: %v", e.err)
}

func (e *RetryPublishError) Unwrap() error {
	return e.err
}

type Poster interface {
	Post(ctx context.Context, targetURL string, payload []byte) deliveryclient.Result
}

type RetryPublisher interface {
	PublishRetry(ctx context.Context, job models.DeliveryJob, delay time.Duration) error
}

type DeliveryMarker interface {
	MarkDelivered(ctx context.Context, id string, attempts int, deliveredAt time.Time) error
	MarkFailed(ctx context.Context, id string, status models.DeliveryStatus, attempts int, lastError string, lastAttemptAt time.Time) error
}

type messageHandler struct {
	logger       *logging.Logger
	deliveries   DeliveryMarker
	client       Poster
	retryMQ      RetryPublisher
	retryBackoff backoff.Backoff
	maxAttempts  int
	metrics      metrics.WebhookHubMetrics
}

func NewMessageHandler(
	logger *logging.Logger,
	deliveries DeliveryMarker,
	client Poster,
	retryMQ RetryPublisher,
	retryBackoff backoff.Backoff,
	maxAttempts int,
	meter metrics.WebhookHubMetrics,
) consumer.MessageHandler {
	return &messageHandler{
		logger:       logger,
		deliveries:   deliveries,
		client:       client,
		retryMQ:      retryMQ,
		retryBackoff: retryBackoff,
		maxAttempts:  maxAttempts,
		metrics:      meter,
	}
}

func (h *messageHandler) Handle(ctx context.Context, msg *mqs.Message) error {
	job := models.DeliveryJob{}

	if err := job.FromMessage(msg); err != nil {
		return h.handleError(ctx, msg, &DecodeError{err: err})
	}

	h.logger.Ctx(ctx).Info("processing delivery job",
		zap.String("delivery_id", job.DeliveryID),
		zap.String("event_id", job.EventID),
		zap.Int("attempt", job.Attempt))

	return h.handleError(ctx, msg, h.doHandle(ctx, job))
}

// handleError settles the message. Every path acks or nacks exactly once,
// and only after the delivery row reflects the outcome.
func (h *messageHandler) handleError(ctx context.Context, msg *mqs.Message, err error) error {
	if h.shouldNack(err) {
		msg.Nack()
	} else {
		msg.Ack()
	}
	return err
}

func (h *messageHandler) shouldNack(err error) bool {
	if err == nil {
		return false
	}

	// Poison message; park it for inspection.
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return true
	}

	// The failure was persisted; the row owns the state now.
	var attemptErr *AttemptError
	if errors.As(err, &attemptErr) {
		return false
	}

	var persistErr *PersistError
	if errors.As(err, &persistErr) {
		return true
	}

	var retryErr *RetryPublishError
	if errors.As(err, &retryErr) {
		return true
	}

	// Unknown errors park for safety.
	return true
}

func (h *messageHandler) doHandle(ctx context.Context, job models.DeliveryJob) error {
	start := time.Now()
	result := h.client.Post(ctx, job.TargetURL, job.Payload)
	h.metrics.DeliveryAttempted(ctx)
	h.metrics.DeliveryLatency(ctx, time.Since(start))

	if result.Success {
		return h.handleSuccess(ctx, job, result)
	}
	return h.handleFailure(ctx, job, result)
}

func (h *messageHandler) handleSuccess(ctx context.Context, job models.DeliveryJob, result deliveryclient.Result) error {
	deliveredAt := time.Now()
	if err := h.deliveries.MarkDelivered(ctx, job.DeliveryID, job.Attempt, deliveredAt); err != nil {
		return &PersistError{err: err}
	}
	h.metrics.DeliverySucceeded(ctx)

	h.logger.Ctx(ctx).Audit("delivery succeeded",
		zap.String("delivery_id", job.DeliveryID),
		zap.String("event_id", job.EventID),
		zap.Int("attempt", job.Attempt),
		zap.Int("status_code", *result.StatusCode))
	return nil
}

func (h *messageHandler) handleFailure(ctx context.Context, job models.DeliveryJob, result deliveryclient.Result) error {
	exceeded := job.Attempt >= h.maxAttempts
	status := models.DeliveryStatusRetrying
	if exceeded || !result.Retryable {
		status = models.DeliveryStatusDead
	}

	// Persist before any ack. A crash after this point costs at most a
	// duplicate attempt, never a lost outcome.
	if err := h.deliveries.MarkFailed(ctx, job.DeliveryID, status, job.Attempt, result.Message, time.Now()); err != nil {
		return &PersistError{err: err}
	}
	h.metrics.DeliveryFailed(ctx, metrics.DeliveryOpts{Retryable: result.Retryable})

	fields := []zap.Field{
		zap.String("delivery_id", job.DeliveryID),
		zap.String("event_id", job.EventID),
		zap.Int("attempt", job.Attempt),
		zap.Int("max_attempts", h.maxAttempts),
		zap.String("status", string(status)),
		zap.String("last_error", result.Message),
	}
	if result.StatusCode != nil {
		fields = append(fields, zap.Int("status_code", *result.StatusCode))
	}

	if status == models.DeliveryStatusRetrying {
		delay := h.retryBackoff.Duration(job.Attempt - 1)
		if err := h.retryMQ.PublishRetry(ctx, job.NextAttempt(), delay); err != nil {
			return &RetryPublishError{err: err}
		}
		h.logger.Ctx(ctx).Audit("delivery retry scheduled",
			append(fields, zap.Duration("backoff", delay))...)
	} else {
		h.metrics.DeliveryDead(ctx)
		h.logger.Ctx(ctx).Audit("delivery dead", fields...)
	}

	return &AttemptError{
		err:       errors.New(result.Message),
		Retryable: result.Retryable,
		Status:    status,
	}
}
