package models

import (
	"time"

	"github.com/webhookhub/webhookhub/internal/idgen"
)

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "PENDING"
	DeliveryStatusRetrying  DeliveryStatus = "RETRYING"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
	DeliveryStatusDead      DeliveryStatus = "DEAD"
)

// Terminal reports whether no further attempts may touch the delivery.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryStatusDelivered || s == DeliveryStatusDead
}

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusRetrying, DeliveryStatusDelivered, DeliveryStatusDead:
		return true
	}
	return false
}

// Delivery tracks one event's journey to one destination. The row is the
// source of truth for delivery state; queue messages merely reference it.
type Delivery struct {
	ID            string         `json:"id"`
	EventID       string         `json:"event_id"`
	DestinationID string         `json:"destination_id"`
	Status        DeliveryStatus `json:"status"`
	Attempts      int            `json:"attempts"`
	MaxAttempts   int            `json:"max_attempts"`
	LastError     *string        `json:"last_error,omitempty"`
	LastAttemptAt *time.Time     `json:"last_attempt_at,omitempty"`
	DeliveredAt   *time.Time     `json:"delivered_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// NewPendingDelivery creates the row inserted during ingest, before any
// attempt has run.
func NewPendingDelivery(eventID, destinationID string, maxAttempts int) Delivery {
	return Delivery{
		ID:            idgen.Delivery(),
		EventID:       eventID,
		DestinationID: destinationID,
		Status:        DeliveryStatusPending,
		Attempts:      0,
		MaxAttempts:   maxAttempts,
		CreatedAt:     time.Now(),
	}
}
