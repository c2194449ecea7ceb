package consumer_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webhookhub/webhookhub/internal/consumer"
	"github.com/webhookhub/webhookhub/internal/mqs"
	"github.com/webhookhub/webhookhub/internal/util/testutil"
)

// stubSubscription serves queued messages, then fails with err once the
// queue is closed.
type stubSubscription struct {
	messages  chan *mqs.Message
	err       error
	shutdowns atomic.Int32
}

func (s *stubSubscription) Receive(ctx context.Context) (*mqs.Message, error) {
	select {
	case msg, ok := <-s.messages:
		if !ok {
			return nil, s.err
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *stubSubscription) Shutdown(ctx context.Context) error {
	s.shutdowns.Add(1)
	return nil
}

// blockingHandler announces each start and holds every handler until release
// is closed.
type blockingHandler struct {
	started chan struct{}
	release chan struct{}
	handled atomic.Int32
}

func (h *blockingHandler) Handle(ctx context.Context, msg *mqs.Message) error {
	h.started <- struct{}{}
	<-h.release
	h.handled.Add(1)
	return nil
}

func waitStarted(t *testing.T, h *blockingHandler) {
	t.Helper()
	select {
	case <-h.started:
	case <-time.After(time.Second):
		t.Fatal("handler never started")
	}
}

func TestConsumerConcurrencyBound(t *testing.T) {
	sub := &stubSubscription{messages: make(chan *mqs.Message, 6), err: mqs.ErrSubscriptionClosed}
	for i := 0; i < 6; i++ {
		sub.messages <- &mqs.Message{Body: []byte("{}"), LoggableID: fmt.Sprintf("dlv-%d", i)}
	}
	close(sub.messages)

	handler := &blockingHandler{started: make(chan struct{}, 6), release: make(chan struct{})}
	c := consumer.New(sub, handler,
		consumer.WithName("deliverymq"),
		consumer.WithConcurrency(3),
	)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	for i := 0; i < 3; i++ {
		waitStarted(t, handler)
	}

	// With all slots held, a fourth handler must not start.
	select {
	case <-handler.started:
		t.Fatal("handler started past the concurrency bound")
	case <-time.After(50 * time.Millisecond):
	}

	close(handler.release)

	select {
	case err := <-done:
		require.ErrorIs(t, err, mqs.ErrSubscriptionClosed)
	case <-time.After(time.Second):
		t.Fatal("consumer never stopped")
	}
	assert.Equal(t, int32(6), handler.handled.Load(), "every received message must be handled")
}

// The consumer must not return while handlers still hold messages.
func TestConsumerDrainsInFlightHandlers(t *testing.T) {
	sub := &stubSubscription{messages: make(chan *mqs.Message, 2), err: mqs.ErrSubscriptionClosed}
	sub.messages <- &mqs.Message{LoggableID: "dlv-1"}
	sub.messages <- &mqs.Message{LoggableID: "dlv-2"}
	close(sub.messages)

	handler := &blockingHandler{started: make(chan struct{}, 2), release: make(chan struct{})}
	c := consumer.New(sub, handler, consumer.WithConcurrency(2))

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	waitStarted(t, handler)
	waitStarted(t, handler)

	select {
	case <-done:
		t.Fatal("consumer returned with handlers in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(handler.release)

	select {
	case err := <-done:
		require.ErrorIs(t, err, mqs.ErrSubscriptionClosed)
	case <-time.After(time.Second):
		t.Fatal("consumer never stopped")
	}
	assert.Equal(t, int32(2), handler.handled.Load())
}

type flakyHandler struct {
	calls atomic.Int32
}

func (h *flakyHandler) Handle(ctx context.Context, msg *mqs.Message) error {
	if h.calls.Add(1) == 1 {
		return errors.New("transient handler failure")
	}
	return nil
}

func TestConsumerContinuesAfterHandlerError(t *testing.T) {
	sub := &stubSubscription{messages: make(chan *mqs.Message, 2), err: mqs.ErrSubscriptionClosed}
	sub.messages <- &mqs.Message{LoggableID: "dlv-1"}
	sub.messages <- &mqs.Message{LoggableID: "dlv-2"}
	close(sub.messages)

	handler := &flakyHandler{}
	c := consumer.New(sub, handler,
		consumer.WithConcurrency(1),
		consumer.WithLogger(testutil.CreateTestLogger(t)),
	)

	err := c.Run(context.Background())
	require.ErrorIs(t, err, mqs.ErrSubscriptionClosed)
	assert.Equal(t, int32(2), handler.calls.Load(), "a handler error must not stop the loop")
	assert.Equal(t, int32(1), sub.shutdowns.Load(), "subscription is shut down exactly once")
}
