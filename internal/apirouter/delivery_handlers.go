package apirouter

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/webhookhub/webhookhub/internal/logging"
	"github.com/webhookhub/webhookhub/internal/models"
	"github.com/webhookhub/webhookhub/internal/store"
)

type DeliveryHandlers struct {
	logger      *logging.Logger
	entityStore store.Store
}

func NewDeliveryHandlers(
	logger *logging.Logger,
	entityStore store.Store,
) *DeliveryHandlers {
	return &DeliveryHandlers{
		logger:      logger,
		entityStore: entityStore,
	}
}

type ListDeliveriesResponse struct {
	Data []*models.Delivery `json:"data"`
	Next string             `json:"next,omitempty"`
	Prev string             `json:"prev,omitempty"`
}

func toListDeliveriesResponse(response store.ListDeliveriesResponse) ListDeliveriesResponse {
	data := response.Data
	if data == nil {
		data = []*models.Delivery{}
	}
	return ListDeliveriesResponse{
		Data: data,
		Next: response.Next,
		Prev: response.Prev,
	}
}

// List handles GET /api/v1/deliveries
// Query params: status, destination_id, event_id, limit, next, prev
func (h *DeliveryHandlers) List(c *gin.Context) {
	var status models.DeliveryStatus
	if statusStr := c.Query("status"); statusStr != "" {
		status = models.DeliveryStatus(statusStr)
		if !status.Valid() {
			AbortWithError(c, http.StatusUnprocessableEntity, ErrorResponse{
				Code:    http.StatusUnprocessableEntity,
				Message: "validation error",
				Data: map[string]string{
					"query.status": "must be one of PENDING, RETRYING, DELIVERED, DEAD",
				},
			})
			return
		}
	}

	response, err := h.entityStore.ListDeliveries(c.Request.Context(), store.ListDeliveriesRequest{
		Next:          c.Query("next"),
		Prev:          c.Query("prev"),
		Limit:         parseLimit(c, defaultListLimit, maxListLimit),
		EventID:       c.Query("event_id"),
		DestinationID: c.Query("destination_id"),
		Status:        status,
	})
	if err != nil {
		abortWithListError(c, err)
		return
	}

	c.JSON(http.StatusOK, toListDeliveriesResponse(response))
}

// Retrieve handles GET /api/v1/deliveries/:deliveryID
func (h *DeliveryHandlers) Retrieve(c *gin.Context) {
	delivery, err := h.entityStore.RetrieveDelivery(c.Request.Context(), c.Param("deliveryID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			AbortWithError(c, http.StatusNotFound, NewErrNotFound("delivery"))
			return
		}
		AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		return
	}
	c.JSON(http.StatusOK, delivery)
}
