package apirouter

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/webhookhub/webhookhub/internal/idgen"
	"github.com/webhookhub/webhookhub/internal/logging"
	"github.com/webhookhub/webhookhub/internal/models"
	"github.com/webhookhub/webhookhub/internal/store"
	"github.com/webhookhub/webhookhub/internal/telemetry"
	"go.uber.org/zap"
)

type DestinationHandlers struct {
	logger      *logging.Logger
	telemetry   telemetry.Telemetry
	entityStore store.Store
}

func NewDestinationHandlers(
	logger *logging.Logger,
	telemetry telemetry.Telemetry,
	entityStore store.Store,
) *DestinationHandlers {
	return &DestinationHandlers{
		logger:      logger,
		telemetry:   telemetry,
		entityStore: entityStore,
	}
}

type DestinationRuleInput struct {
	SourceName string `json:"source_name" binding:"required"`
	EventType  string `json:"event_type" binding:"required"`
}

type ListDestinationsResponse struct {
	Data []*models.Destination `json:"data"`
}

func toModelRules(inputs []DestinationRuleInput) []models.DestinationRule {
	rules := make([]models.DestinationRule, 0, len(inputs))
	for _, in := range inputs {
		rules = append(rules, models.DestinationRule{
			SourceName: in.SourceName,
			EventType:  in.EventType,
		})
	}
	return rules
}

func (h *DestinationHandlers) Create(c *gin.Context) {
	var input struct {
		Name      string                 `json:"name" binding:"required,max=100"`
		TargetURL string                 `json:"target_url" binding:"required"`
		Rules     []DestinationRuleInput `json:"rules" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithValidationError(c, err)
		return
	}

	destination, err := models.NewDestination(input.Name, input.TargetURL, toModelRules(input.Rules))
	if err != nil {
		AbortWithError(c, http.StatusBadRequest, NewErrBadRequest(err))
		return
	}

	if err := h.entityStore.CreateDestination(c.Request.Context(), destination); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateName):
			AbortWithError(c, http.StatusConflict, NewErrConflict(err))
		case errors.Is(err, models.ErrInvalidRule):
			AbortWithError(c, http.StatusBadRequest, NewErrBadRequest(err))
		default:
			AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		}
		return
	}

	h.telemetry.DestinationCreated(c.Request.Context())
	h.logger.Ctx(c.Request.Context()).Audit("destination created",
		zap.String("destination_id", destination.ID),
		zap.String("destination_name", destination.Name),
	)

	c.JSON(http.StatusCreated, destination)
}

func (h *DestinationHandlers) List(c *gin.Context) {
	destinations, err := h.entityStore.ListDestinations(c.Request.Context())
	if err != nil {
		AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		return
	}
	if destinations == nil {
		destinations = []*models.Destination{}
	}
	c.JSON(http.StatusOK, ListDestinationsResponse{Data: destinations})
}

func (h *DestinationHandlers) Retrieve(c *gin.Context) {
	destination, err := h.entityStore.RetrieveDestination(c.Request.Context(), c.Param("destinationID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			AbortWithError(c, http.StatusNotFound, NewErrNotFound("destination"))
			return
		}
		AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		return
	}
	c.JSON(http.StatusOK, destination)
}

func (h *DestinationHandlers) Update(c *gin.Context) {
	var input struct {
		Name      *string                `json:"name" binding:"omitempty,max=100"`
		TargetURL *string                `json:"target_url"`
		Active    *bool                  `json:"active"`
		Rules     []DestinationRuleInput `json:"rules" binding:"omitempty,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithValidationError(c, err)
		return
	}

	destination, err := h.entityStore.RetrieveDestination(c.Request.Context(), c.Param("destinationID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			AbortWithError(c, http.StatusNotFound, NewErrNotFound("destination"))
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
		destination.Name = *input.Name
	}
	if input.TargetURL != nil {
		if err := models.ValidateTargetURL(*input.TargetURL); err != nil {
			AbortWithError(c, http.StatusBadRequest, NewErrBadRequest(err))
			return
		}
		destination.TargetURL = *input.TargetURL
	}
	if input.Active != nil {
		destination.Active = *input.Active
	}
	existingRules := destination.Rules
	if input.Rules != nil {
		// Replacing the rule set mints fresh rule IDs; rules have no
		// identity of their own across updates.
		rules := toModelRules(input.Rules)
		for i := range rules {
			rules[i].ID = idgen.Rule()
			rules[i].DestinationID = destination.ID
		}
		destination.Rules = rules
	} else {
		// nil tells the store to leave the existing rule set alone.
		destination.Rules = nil
	}

	if err := h.entityStore.UpdateDestination(c.Request.Context(), destination); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			AbortWithError(c, http.StatusNotFound, NewErrNotFound("destination"))
		case errors.Is(err, store.ErrDuplicateName):
			AbortWithError(c, http.StatusConflict, NewErrConflict(err))
		case errors.Is(err, models.ErrInvalidRule):
			AbortWithError(c, http.StatusBadRequest, NewErrBadRequest(err))
		default:
			AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		}
		return
	}

	if input.Rules == nil {
		destination.Rules = existingRules
	}

	c.JSON(http.StatusOK, destination)
}

func (h *DestinationHandlers) Delete(c *gin.Context) {
	if err := h.entityStore.DeleteDestination(c.Request.Context(), c.Param("destinationID")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			AbortWithError(c, http.StatusNotFound, NewErrNotFound("destination"))
			return
		}
		AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
