package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/webhookhub/webhookhub/internal/mqs"
)

var (
	ErrJobMissingDeliveryID = errors.New("delivery job missing deliveryId")
	ErrJobMissingEventID    = errors.New("delivery job missing eventId")
	ErrJobMissingTargetURL  = errors.New("delivery job missing targetUrl")
	ErrJobInvalidAttempt    = errors.New("delivery job attempt must be >= 1")
)

// DeliveryJob is the queue instruction for one delivery attempt. It carries
// the target and payload so the worker can attempt without reads; the
// delivery row referenced by DeliveryID stays the source of truth.
//
// Wire format:
//
//	{"deliveryId": "...", "eventId": "...", "targetUrl": "...",
//	 "payloadJson": {...}, "attempt": 1}
//
// Unknown fields are ignored for forward compatibility.
type DeliveryJob struct {
	DeliveryID string          `json:"deliveryId"`
	EventID    string          `json:"eventId"`
	TargetURL  string          `json:"targetUrl"`
	Payload    json.RawMessage `json:"payloadJson"`
	Attempt    int             `json:"attempt"`
}

var _ mqs.IncomingMessage = &DeliveryJob{}

// NewDeliveryJob builds the first-attempt job for a pending delivery.
func NewDeliveryJob(delivery Delivery, targetURL string, payload json.RawMessage) DeliveryJob {
	return DeliveryJob{
		DeliveryID: delivery.ID,
		EventID:    delivery.EventID,
		TargetURL:  targetURL,
		Payload:    payload,
		Attempt:    1,
	}
}

func (j *DeliveryJob) FromMessage(msg *mqs.Message) error {
	if err := json.Unmarshal(msg.Body, j); err != nil {
		return fmt.Errorf("malformed delivery job: %w", err)
	}
	return j.Validate()
}

func (j *DeliveryJob) ToMessage() (*mqs.Message, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return &mqs.Message{Body: data, LoggableID: j.DeliveryID}, nil
}

func (j *DeliveryJob) Validate() error {
	if j.DeliveryID == "" {
		return ErrJobMissingDeliveryID
	}
	if j.EventID == "" {
		return ErrJobMissingEventID
	}
	if j.TargetURL == "" {
		return ErrJobMissingTargetURL
	}
	if j.Attempt < 1 {
		return ErrJobInvalidAttempt
	}
	return nil
}

// NextAttempt returns a copy advanced to the following attempt. The payload
// and target carry over untouched.
func (j DeliveryJob) NextAttempt() DeliveryJob {
	j.Attempt++
	return j
}
