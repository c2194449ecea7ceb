package telemetry

import (
	"context"

	"github.com/gin-gonic/gin"
)

// NoopTelemetry is the disabled implementation and the default in tests.
type NoopTelemetry struct{}

var _ Telemetry = (*NoopTelemetry)(nil)

func (t *NoopTelemetry) Init(ctx context.Context) {}

func (t *NoopTelemetry) Flush() {}

func (t *NoopTelemetry) MakeSentryHandler() gin.HandlerFunc {
	return func(c *gin.Context) { c.Next() }
}

func (t *NoopTelemetry) ApplicationStarted(ctx context.Context, application ApplicationInfo) {}

func (t *NoopTelemetry) SourceCreated(ctx context.Context) {}

func (t *NoopTelemetry) DestinationCreated(ctx context.Context) {}
