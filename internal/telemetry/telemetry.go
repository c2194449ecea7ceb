// Package telemetry sends anonymous usage pings and, when a DSN is
// configured, forwards unhandled errors to Sentry. No payloads, names, or
// URLs ever leave the process; events carry only coarse counts and the
// version string. Disabled entirely via DISABLE_TELEMETRY.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	telemetryEndpoint = "https://telemetry.webhookhub.dev/v1/events"
	sendTimeout       = 5 * time.Second
	flushTimeout      = 2 * time.Second
)

type TelemetryConfig struct {
	Disabled  bool
	SentryDSN string
}

type ApplicationInfo struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

type Telemetry interface {
	Init(ctx context.Context)
	Flush()
	MakeSentryHandler() gin.HandlerFunc

	// Events
	ApplicationStarted(ctx context.Context, application ApplicationInfo)
	SourceCreated(ctx context.Context)
	DestinationCreated(ctx context.Context)
}

type Logger interface {
	Debug(msg string, fields ...zap.Field)
}

func New(logger Logger, cfg TelemetryConfig, bootID string) Telemetry {
	if cfg.Disabled {
		return &NoopTelemetry{}
	}
	return &telemetryImpl{
		logger:    logger,
		bootID:    bootID,
		sentryDSN: cfg.SentryDSN,
		client:    &http.Client{Timeout: sendTimeout},
	}
}

type telemetryImpl struct {
	logger    Logger
	bootID    string
	sentryDSN string
	sentryOn  bool
	client    *http.Client
	wg        sync.WaitGroup
}

type event struct {
	Name   string `json:"name"`
	BootID string `json:"boot_id"`
	Time   int64  `json:"time"`

	Application *ApplicationInfo `json:"application,omitempty"`
}

func (t *telemetryImpl) Init(ctx context.Context) {
	if t.sentryDSN == "" {
		return
	}
	if err := sentry.Init(sentry.ClientOptions{Dsn: t.sentryDSN}); err != nil {
		t.logger.Debug("sentry init failed", zap.Error(err))
		return
	}
	t.sentryOn = true
}

// MakeSentryHandler repanics so gin.Recovery still owns the 500 response.
func (t *telemetryImpl) MakeSentryHandler() gin.HandlerFunc {
	if !t.sentryOn {
		return func(c *gin.Context) { c.Next() }
	}
	return sentrygin.New(sentrygin.Options{Repanic: true})
}

// Flush waits briefly for in-flight pings. Telemetry never delays shutdown
// beyond the flush timeout.
func (t *telemetryImpl) Flush() {
	if t.sentryOn {
		sentry.Flush(flushTimeout)
	}
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(flushTimeout):
	}
}

func (t *telemetryImpl) ApplicationStarted(ctx context.Context, application ApplicationInfo) {
	t.send(event{Name: "application_started", Application: &application})
}

func (t *telemetryImpl) SourceCreated(ctx context.Context) {
	t.send(event{Name: "source_created"})
}

func (t *telemetryImpl) DestinationCreated(ctx context.Context) {
	t.send(event{Name: "destination_created"})
}

// send fires the ping in the background. Failures are silent; telemetry
// must never surface as an application error.
func (t *telemetryImpl) send(e event) {
	e.BootID = t.bootID
	e.Time = time.Now().Unix()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		body, err := json.Marshal(e)
		if err != nil {
			return
		}
		resp, err := t.client.Post(telemetryEndpoint, "application/json", bytes.NewReader(body))
		if err != nil {
			t.logger.Debug("telemetry ping failed", zap.Error(err))
			return
		}
		resp.Body.Close()
	}()
}
