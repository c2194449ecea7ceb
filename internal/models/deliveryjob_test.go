package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webhookhub/webhookhub/internal/models"
	"github.com/webhookhub/webhookhub/internal/mqs"
)

func TestDeliveryJob_RoundTrip(t *testing.T) {
	t.Parallel()

	delivery := models.NewPendingDelivery("evt_1", "dst_1", 5)
	payload := json.RawMessage(`{"nested": {"a": [1, 2, 3]}, "s": "x"}`)
	job := models.NewDeliveryJob(delivery, "https://example.com/hook", payload)

	require.Equal(t, 1, job.Attempt)

	msg, err := job.ToMessage()
	require.NoError(t, err)
	assert.Equal(t, delivery.ID, msg.LoggableID)

	var decoded models.DeliveryJob
	require.NoError(t, decoded.FromMessage(msg))
	assert.Equal(t, job, decoded)
	// Payload bytes survive untouched.
	assert.JSONEq(t, string(payload), string(decoded.Payload))
}

func TestDeliveryJob_FromMessage_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			name: "not json",
			body: `{{{`,
		},
		{
			name:    "missing deliveryId",
			body:    `{"eventId": "evt_1", "targetUrl": "https://x", "attempt": 1}`,
			wantErr: models.ErrJobMissingDeliveryID,
		},
		{
			name:    "missing eventId",
			body:    `{"deliveryId": "dlv_1", "targetUrl": "https://x", "attempt": 1}`,
			wantErr: models.ErrJobMissingEventID,
		},
		{
			name:    "missing targetUrl",
			body:    `{"deliveryId": "dlv_1", "eventId": "evt_1", "attempt": 1}`,
			wantErr: models.ErrJobMissingTargetURL,
		},
		{
			name:    "zero attempt",
			body:    `{"deliveryId": "dlv_1", "eventId": "evt_1", "targetUrl": "https://x", "attempt": 0}`,
			wantErr: models.ErrJobInvalidAttempt,
		},
		{
			name:    "negative attempt",
			body:    `{"deliveryId": "dlv_1", "eventId": "evt_1", "targetUrl": "https://x", "attempt": -2}`,
			wantErr: models.ErrJobInvalidAttempt,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var job models.DeliveryJob
			err := job.FromMessage(&mqs.Message{Body: []byte(tc.body)})
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestDeliveryJob_FromMessage_IgnoresUnknownFields(t *testing.T) {
	t.Parallel()

	body := `{"deliveryId": "dlv_1", "eventId": "evt_1", "targetUrl": "https://x",
		"payloadJson": {"k": "v"}, "attempt": 3, "futureField": true}`

	var job models.DeliveryJob
	require.NoError(t, job.FromMessage(&mqs.Message{Body: []byte(body)}))
	assert.Equal(t, 3, job.Attempt)
}

func TestDeliveryJob_NextAttempt(t *testing.T) {
	t.Parallel()

	job := models.DeliveryJob{
		DeliveryID: "dlv_1",
		EventID:    "evt_1",
		TargetURL:  "https://example.com/hook",
		Payload:    json.RawMessage(`{}`),
		Attempt:    1,
	}

	next := job.NextAttempt()
	assert.Equal(t, 2, next.Attempt)
	assert.Equal(t, 1, job.Attempt, "original job is unchanged")
	assert.Equal(t, job.DeliveryID, next.DeliveryID)
	assert.Equal(t, job.TargetURL, next.TargetURL)
}

func TestDeliveryStatus(t *testing.T) {
	t.Parallel()

	assert.True(t, models.DeliveryStatusDelivered.Terminal())
	assert.True(t, models.DeliveryStatusDead.Terminal())
	assert.False(t, models.DeliveryStatusPending.Terminal())
	assert.False(t, models.DeliveryStatusRetrying.Terminal())

	assert.True(t, models.DeliveryStatusPending.Valid())
	assert.False(t, models.DeliveryStatus("BOGUS").Valid())
}

func TestNewPendingDelivery(t *testing.T) {
	t.Parallel()

	delivery := models.NewPendingDelivery("evt_1", "dst_1", 5)
	assert.Equal(t, models.DeliveryStatusPending, delivery.Status)
	assert.Equal(t, 0, delivery.Attempts)
	assert.Equal(t, 5, delivery.MaxAttempts)
	assert.Nil(t, delivery.LastError)
	assert.Nil(t, delivery.LastAttemptAt)
	assert.Nil(t, delivery.DeliveredAt)
}
