package apirouter

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/webhookhub/webhookhub/internal/ingest"
	"github.com/webhookhub/webhookhub/internal/logging"
	"github.com/webhookhub/webhookhub/internal/store"
	"github.com/webhookhub/webhookhub/internal/telemetry"
	"github.com/webhookhub/webhookhub/internal/worker"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouteDefinition struct {
	Method      string
	Path        string
	Handler     gin.HandlerFunc
	Middlewares []gin.HandlerFunc
}

type RouterConfig struct {
	ServiceName string
	GinMode     string
}

// registerRoutes registers routes to the given router group based on route definitions
func registerRoutes(router gin.IRoutes, routes []RouteDefinition) {
	for _, route := range routes {
		handlers := make([]gin.HandlerFunc, 0, len(route.Middlewares)+1)
		handlers = append(handlers, route.Middlewares...)
		handlers = append(handlers, route.Handler)
		router.Handle(route.Method, route.Path, handlers...)
	}
}

func NewRouter(
	cfg RouterConfig,
	logger *logging.Logger,
	ingestService ingest.Service,
	entityStore store.Store,
	healthTracker *worker.HealthTracker,
	telemetry telemetry.Telemetry,
) http.Handler {
	// Only set mode from config if we're not in test mode
	if gin.Mode() != gin.TestMode {
		gin.SetMode(cfg.GinMode)
	}

	r := gin.New()
	// Core middlewares
	r.Use(gin.Recovery())
	r.Use(telemetry.MakeSentryHandler())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(LoggerMiddleware(logger))

	// Application logic
	r.Use(ErrorHandlerMiddleware())

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}

	ingestHandlers := NewIngestHandlers(logger, ingestService)
	sourceHandlers := NewSourceHandlers(logger, telemetry, entityStore)
	destinationHandlers := NewDestinationHandlers(logger, telemetry, entityStore)
	eventHandlers := NewEventHandlers(logger, entityStore)
	deliveryHandlers := NewDeliveryHandlers(logger, entityStore)
	healthHandlers := NewHealthHandlers(healthTracker)

	// The ingest path and the health probe live outside /api/v1; senders and
	// orchestrators hit them directly.
	rootRoutes := []RouteDefinition{
		{
			Method:  http.MethodPost,
			Path:    "/ingest/:sourceName",
			Handler: ingestHandlers.Ingest,
		},
		{
			Method:  http.MethodGet,
			Path:    "/healthz",
			Handler: healthHandlers.Healthz,
		},
	}

	apiRoutes := []RouteDefinition{
		// Source routes
		{
			Method:  http.MethodPost,
			Path:    "/sources",
			Handler: sourceHandlers.Create,
		},
		{
			Method:  http.MethodGet,
			Path:    "/sources",
			Handler: sourceHandlers.List,
		},
		{
			Method:  http.MethodGet,
			Path:    "/sources/:sourceID",
			Handler: sourceHandlers.Retrieve,
		},
		{
			Method:  http.MethodPatch,
			Path:    "/sources/:sourceID",
			Handler: sourceHandlers.Update,
		},
		{
			Method:  http.MethodDelete,
			Path:    "/sources/:sourceID",
			Handler: sourceHandlers.Delete,
		},

		// Destination routes
		{
			Method:  http.MethodPost,
			Path:    "/destinations",
			Handler: destinationHandlers.Create,
		},
		{
			Method:  http.MethodGet,
			Path:    "/destinations",
			Handler: destinationHandlers.List,
		},
		{
			Method:  http.MethodGet,
			Path:    "/destinations/:destinationID",
			Handler: destinationHandlers.Retrieve,
		},
		{
			Method:  http.MethodPatch,
			Path:    "/destinations/:destinationID",
			Handler: destinationHandlers.Update,
		},
		{
			Method:  http.MethodDelete,
			Path:    "/destinations/:destinationID",
			Handler: destinationHandlers.Delete,
		},

		// Event routes
		{
			Method:  http.MethodGet,
			Path:    "/events",
			Handler: eventHandlers.List,
		},
		{
			Method:  http.MethodGet,
			Path:    "/events/:eventID",
			Handler: eventHandlers.Retrieve,
		},
		{
			Method:  http.MethodGet,
			Path:    "/events/:eventID/deliveries",
			Handler: eventHandlers.ListDeliveries,
		},

		// Delivery routes
		{
			Method:  http.MethodGet,
			Path:    "/deliveries",
			Handler: deliveryHandlers.List,
		},
		{
			Method:  http.MethodGet,
			Path:    "/deliveries/:deliveryID",
			Handler: deliveryHandlers.Retrieve,
		},
	}

	registerRoutes(r, rootRoutes)
	registerRoutes(r.Group("/api/v1"), apiRoutes)

	return r
}
