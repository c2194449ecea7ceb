package apirouter

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/webhookhub/webhookhub/internal/logging"
	"github.com/webhookhub/webhookhub/internal/models"
	"github.com/webhookhub/webhookhub/internal/store"
	"github.com/webhookhub/webhookhub/internal/telemetry"
	"go.uber.org/zap"
)

type SourceHandlers struct {
	logger      *logging.Logger
	telemetry   telemetry.Telemetry
	entityStore store.Store
}

func NewSourceHandlers(
	logger *logging.Logger,
	telemetry telemetry.Telemetry,
	entityStore store.Store,
) *SourceHandlers {
	return &SourceHandlers{
		logger:      logger,
		telemetry:   telemetry,
		entityStore: entityStore,
	}
}

// APISourceCreated is the one response that carries the HMAC secret.
// models.Source never serializes it, so every other path is safe by
// construction.
type APISourceCreated struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	HMACSecret string    `json:"hmac_secret"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

type ListSourcesResponse struct {
	Data []*models.Source `json:"data"`
}

func (h *SourceHandlers) Create(c *gin.Context) {
	var input struct {
		Name string `json:"name" binding:"required,max=100"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithValidationError(c, err)
		return
	}

	source, err := models.NewSource(input.Name)
	if err != nil {
		AbortWithError(c, http.StatusBadRequest, NewErrBadRequest(err))
		return
	}

	if err := h.entityStore.CreateSource(c.Request.Context(), source); err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			AbortWithError(c, http.StatusConflict, NewErrConflict(err))
			return
		}
		AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		return
	}

	h.telemetry.SourceCreated(c.Request.Context())
	h.logger.Ctx(c.Request.Context()).Audit("source created",
		zap.String("source_id", source.ID),
		zap.String("source_name", source.Name),
	)

	c.JSON(http.StatusCreated, APISourceCreated{
		ID:         source.ID,
		Name:       source.Name,
		HMACSecret: source.HMACSecret,
		Active:     source.Active,
		CreatedAt:  source.CreatedAt,
	})
}

func (h *SourceHandlers) List(c *gin.Context) {
	sources, err := h.entityStore.ListSources(c.Request.Context())
	if err != nil {
		AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		return
	}
	if sources == nil {
		sources = []*models.Source{}
	}
	c.JSON(http.StatusOK, ListSourcesResponse{Data: sources})
}

func (h *SourceHandlers) Retrieve(c *gin.Context) {
	source, err := h.entityStore.RetrieveSource(c.Request.Context(), c.Param("sourceID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			AbortWithError(c, http.StatusNotFound, NewErrNotFound("source"))
			return
		}
		AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		return
	}
	c.JSON(http.StatusOK, source)
}

func (h *SourceHandlers) Update(c *gin.Context) {
	var input struct {
		Name   *string `json:"name" binding:"omitempty,max=100"`
		Active *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithValidationError(c, err)
		return
	}

	source, err := h.entityStore.RetrieveSource(c.Request.Context(), c.Param("sourceID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			AbortWithError(c, http.StatusNotFound, NewErrNotFound("source"))
			return
		}
		AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		return
	}

	if input.Name != nil {
		if err := models.ValidateName(*input.Name); err != nil {
			AbortWithError(c, http.StatusBadRequest, NewErrBadRequest(err))
			return
		}
		source.Name = *input.Name
	}
	if input.Active != nil {
		source.Active = *input.Active
	}

	if err := h.entityStore.UpdateSource(c.Request.Context(), source); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			AbortWithError(c, http.StatusNotFound, NewErrNotFound("source"))
		case errors.Is(err, store.ErrDuplicateName):
			AbortWithError(c, http.StatusConflict, NewErrConflict(err))
		default:
			AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		}
		return
	}

	c.JSON(http.StatusOK, source)
}

func (h *SourceHandlers) Delete(c *gin.Context) {
	if err := h.entityStore.DeleteSource(c.Request.Context(), c.Param("sourceID")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			AbortWithError(c, http.StatusNotFound, NewErrNotFound("source"))
			return
		}
		AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
