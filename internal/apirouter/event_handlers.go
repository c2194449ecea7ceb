package apirouter

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/webhookhub/webhookhub/internal/cursor"
	"github.com/webhookhub/webhookhub/internal/logging"
	"github.com/webhookhub/webhookhub/internal/models"
	"github.com/webhookhub/webhookhub/internal/store"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

type EventHandlers struct {
	logger      *logging.Logger
	entityStore store.Store
}

func NewEventHandlers(
	logger *logging.Logger,
	entityStore store.Store,
) *EventHandlers {
	return &EventHandlers{
		logger:      logger,
		entityStore: entityStore,
	}
}

// parseLimit parses the limit query parameter with a default and maximum value.
// If the provided limit exceeds maxLimit, it is capped at maxLimit.
func parseLimit(c *gin.Context, defaultLimit, maxLimit int) int {
	limit := defaultLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

// abortWithListError maps cursor decode failures to 400; everything else
// coming out of a list query is a 500.
func abortWithListError(c *gin.Context, err error) {
	if errors.Is(err, cursor.ErrInvalidCursor) || errors.Is(err, cursor.ErrVersionMismatch) {
		AbortWithError(c, http.StatusBadRequest, NewErrBadRequest(err))
		return
	}
	AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
}

// APIEventSummary omits the payload so list pages stay small no matter how
// large the webhook bodies are.
type APIEventSummary struct {
	ID             string    `json:"id"`
	SourceName     string    `json:"source_name"`
	EventType      string    `json:"event_type"`
	IdempotencyKey string    `json:"idempotency_key"`
	CorrelationID  string    `json:"correlation_id,omitempty"`
	ReceivedAt     time.Time `json:"received_at"`
}

type ListEventsResponse struct {
	Data []APIEventSummary `json:"data"`
	Next string            `json:"next,omitempty"`
	Prev string            `json:"prev,omitempty"`
}

func toAPIEventSummary(event *models.Event) APIEventSummary {
	return APIEventSummary{
		ID:             event.ID,
		SourceName:     event.SourceName,
		EventType:      event.EventType,
		IdempotencyKey: event.IdempotencyKey,
		CorrelationID:  event.CorrelationID,
		ReceivedAt:     event.ReceivedAt,
	}
}

// List handles GET /api/v1/events
// Query params: source, type, limit, next, prev
func (h *EventHandlers) List(c *gin.Context) {
	response, err := h.entityStore.ListEvents(c.Request.Context(), store.ListEventsRequest{
		Next:       c.Query("next"),
		Prev:       c.Query("prev"),
		Limit:      parseLimit(c, defaultListLimit, maxListLimit),
		SourceName: c.Query("source"),
		EventType:  c.Query("type"),
	})
	if err != nil {
		abortWithListError(c, err)
		return
	}

	data := make([]APIEventSummary, len(response.Data))
	for i, event := range response.Data {
		data[i] = toAPIEventSummary(event)
	}

	c.JSON(http.StatusOK, ListEventsResponse{
		Data: data,
		Next: response.Next,
		Prev: response.Prev,
	})
}

// Retrieve handles GET /api/v1/events/:eventID
// The full event including the payload.
func (h *EventHandlers) Retrieve(c *gin.Context) {
	event, err := h.entityStore.RetrieveEvent(c.Request.Context(), c.Param("eventID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			AbortWithError(c, http.StatusNotFound, NewErrNotFound("event"))
			return
		}
		AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		return
	}
	c.JSON(http.StatusOK, event)
}

// ListDeliveries handles GET /api/v1/events/:eventID/deliveries
func (h *EventHandlers) ListDeliveries(c *gin.Context) {
	eventID := c.Param("eventID")
	if _, err := h.entityStore.RetrieveEvent(c.Request.Context(), eventID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			AbortWithError(c, http.StatusNotFound, NewErrNotFound("event"))
			return
		}
		AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		return
	}

	response, err := h.entityStore.ListDeliveries(c.Request.Context(), store.ListDeliveriesRequest{
		Next:    c.Query("next"),
		Prev:    c.Query("prev"),
		Limit:   parseLimit(c, defaultListLimit, maxListLimit),
		EventID: eventID,
	})
	if err != nil {
		abortWithListError(c, err)
		return
	}

	c.JSON(http.StatusOK, toListDeliveriesResponse(response))
}
