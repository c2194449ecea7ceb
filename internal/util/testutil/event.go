package testutil

import (
	"encoding/json"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/webhookhub/webhookhub/internal/idgen"
	"github.com/webhookhub/webhookhub/internal/models"
)

// ============================== Mock Event ==============================

var EventFactory = &mockEventFactory{}

type mockEventFactory struct {
}

func (f *mockEventFactory) Any(opts ...func(*models.Event)) models.Event {
	event := models.Event{
		ID:             idgen.Event(),
		SourceName:     "test-source",
		EventType:      TestEventTypes[0],
		IdempotencyKey: RandomString(32),
		Payload: MustMarshalJSON(map[string]any{
			"id":    gofakeit.UUID(),
			"email": gofakeit.Email(),
		}),
		ReceivedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(&event)
	}

	return event
}

func (f *mockEventFactory) AnyPointer(opts ...func(*models.Event)) *models.Event {
	event := f.Any(opts...)
	return &event
}

func (f *mockEventFactory) WithID(id string) func(*models.Event) {
	return func(event *models.Event) {
		event.ID = id
	}
}

func (f *mockEventFactory) WithSourceName(sourceName string) func(*models.Event) {
	return func(event *models.Event) {
		event.SourceName = sourceName
	}
}

func (f *mockEventFactory) WithEventType(eventType string) func(*models.Event) {
	return func(event *models.Event) {
		event.EventType = eventType
	}
}

func (f *mockEventFactory) WithIdempotencyKey(key string) func(*models.Event) {
	return func(event *models.Event) {
		event.IdempotencyKey = key
	}
}

func (f *mockEventFactory) WithPayload(payload json.RawMessage) func(*models.Event) {
	return func(event *models.Event) {
		event.Payload = payload
	}
}

func (f *mockEventFactory) WithCorrelationID(correlationID string) func(*models.Event) {
	return func(event *models.Event) {
		event.CorrelationID = correlationID
	}
}

func (f *mockEventFactory) WithReceivedAt(receivedAt time.Time) func(*models.Event) {
	return func(event *models.Event) {
		event.ReceivedAt = receivedAt
	}
}

// ============================== Mock Delivery ==============================

var DeliveryFactory = &mockDeliveryFactory{}

type mockDeliveryFactory struct {
}

func (f *mockDeliveryFactory) Any(opts ...func(*models.Delivery)) models.Delivery {
	delivery := models.Delivery{
		ID:            idgen.Delivery(),
		EventID:       idgen.Event(),
		DestinationID: idgen.Destination(),
		Status:        models.DeliveryStatusPending,
		Attempts:      0,
		MaxAttempts:   5,
		CreatedAt:     time.Now(),
	}

	for _, opt := range opts {
		opt(&delivery)
	}

	return delivery
}

func (f *mockDeliveryFactory) AnyPointer(opts ...func(*models.Delivery)) *models.Delivery {
	delivery := f.Any(opts...)
	return &delivery
}

func (f *mockDeliveryFactory) WithID(id string) func(*models.Delivery) {
	return func(delivery *models.Delivery) {
		delivery.ID = id
	}
}

func (f *mockDeliveryFactory) WithEventID(eventID string) func(*models.Delivery) {
	return func(delivery *models.Delivery) {
		delivery.EventID = eventID
	}
}

func (f *mockDeliveryFactory) WithDestinationID(destinationID string) func(*models.Delivery) {
	return func(delivery *models.Delivery) {
		delivery.DestinationID = destinationID
	}
}

func (f *mockDeliveryFactory) WithStatus(status models.DeliveryStatus) func(*models.Delivery) {
	return func(delivery *models.Delivery) {
		delivery.Status = status
	}
}

func (f *mockDeliveryFactory) WithAttempts(attempts int) func(*models.Delivery) {
	return func(delivery *models.Delivery) {
		delivery.Attempts = attempts
	}
}

func (f *mockDeliveryFactory) WithMaxAttempts(maxAttempts int) func(*models.Delivery) {
	return func(delivery *models.Delivery) {
		delivery.MaxAttempts = maxAttempts
	}
}

func (f *mockDeliveryFactory) WithLastError(lastError string) func(*models.Delivery) {
	return func(delivery *models.Delivery) {
		delivery.LastError = &lastError
	}
}

func (f *mockDeliveryFactory) WithCreatedAt(createdAt time.Time) func(*models.Delivery) {
	return func(delivery *models.Delivery) {
		delivery.CreatedAt = createdAt
	}
}
