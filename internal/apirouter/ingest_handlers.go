package apirouter

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/webhookhub/webhookhub/internal/ingest"
	"github.com/webhookhub/webhookhub/internal/logging"
)

type IngestHandlers struct {
	logger        *logging.Logger
	ingestService ingest.Service
}

func NewIngestHandlers(
	logger *logging.Logger,
	ingestService ingest.Service,
) *IngestHandlers {
	return &IngestHandlers{
		logger:        logger,
		ingestService: ingestService,
	}
}

// IngestResponse is the 202 body. Duplicate submissions return the original
// event's ID with deliveries at 0.
type IngestResponse struct {
	EventID    string `json:"eventId"`
	Duplicate  bool   `json:"duplicate"`
	Deliveries int    `json:"deliveries"`
}

// Ingest handles POST /ingest/:sourceName
// The body is read raw; the signature covers exactly the bytes on the wire,
// so the payload is never parsed or re-encoded here.
func (h *IngestHandlers) Ingest(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		AbortWithError(c, http.StatusBadRequest, NewErrBadRequest(err))
		return
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), ingest.IngestRequest{
		SourceName:     c.Param("sourceName"),
		EventType:      c.Query("type"),
		RawBody:        body,
		Signature:      c.GetHeader("X-Signature"),
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
		CorrelationID:  c.GetHeader("X-Correlation-Id"),
	})
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrUnknownSource):
			AbortWithError(c, http.StatusNotFound, NewErrNotFound("source"))
		case errors.Is(err, ingest.ErrUnauthorized):
			AbortWithError(c, http.StatusUnauthorized, NewErrUnauthorized(err))
		case errors.Is(err, ingest.ErrMissingEventType):
			AbortWithError(c, http.StatusBadRequest, NewErrBadRequest(err))
		default:
			AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		}
		return
	}

	c.JSON(http.StatusAccepted, IngestResponse{
		EventID:    result.EventID,
		Duplicate:  result.Duplicate,
		Deliveries: result.DeliveryCount,
	})
}
