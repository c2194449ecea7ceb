package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/webhookhub/webhookhub/internal/idgen"
)

// Event is one accepted webhook. Payload holds the request body verbatim;
// it is never parsed, re-encoded, or canonicalized.
type Event struct {
	ID             string          `json:"id"`
	SourceName     string          `json:"source_name"`
	EventType      string          `json:"event_type"`
	IdempotencyKey string          `json:"idempotency_key"`
	Payload        json.RawMessage `json:"payload"`
	CorrelationID  string          `json:"correlation_id,omitempty"`
	ReceivedAt     time.Time       `json:"received_at"`
}

func NewEvent(sourceName, eventType, idempotencyKey string, payload []byte, correlationID string) Event {
	return Event{
		ID:             idgen.Event(),
		SourceName:     sourceName,
		EventType:      eventType,
		IdempotencyKey: idempotencyKey,
		Payload:        payload,
		CorrelationID:  correlationID,
		ReceivedAt:     time.Now(),
	}
}

// DeriveIdempotencyKey is the default when the sender supplies no key:
// sha256 over source name, event type, and raw body with NUL separators so
// no field boundary is ambiguous.
func DeriveIdempotencyKey(sourceName, eventType string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(sourceName))
	h.Write([]byte{0})
	h.Write([]byte(eventType))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
