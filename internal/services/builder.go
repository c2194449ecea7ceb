package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/webhookhub/webhookhub/internal/apirouter"
	"github.com/webhookhub/webhookhub/internal/backoff"
	"github.com/webhookhub/webhookhub/internal/config"
	"github.com/webhookhub/webhookhub/internal/deliveryclient"
	"github.com/webhookhub/webhookhub/internal/deliverymq"
	"github.com/webhookhub/webhookhub/internal/ingest"
	"github.com/webhookhub/webhookhub/internal/logging"
	"github.com/webhookhub/webhookhub/internal/metrics"
	"github.com/webhookhub/webhookhub/internal/store/pgstore"
	"github.com/webhookhub/webhookhub/internal/telemetry"
	"github.com/webhookhub/webhookhub/internal/worker"
	"go.uber.org/zap"
)

// ServiceBuilder constructs workers based on the configured service role.
type ServiceBuilder struct {
	ctx        context.Context
	cfg        *config.Config
	logger     *logging.Logger
	telemetry  telemetry.Telemetry
	supervisor *worker.WorkerSupervisor

	// Track service instances for cleanup
	services []*serviceInstance
}

// serviceInstance represents a single service with its cleanup functions
type serviceInstance struct {
	name         string
	cleanupFuncs []func(context.Context, *logging.LoggerWithCtx)
}

// NewServiceBuilder creates a new ServiceBuilder.
func NewServiceBuilder(ctx context.Context, cfg *config.Config, logger *logging.Logger, telemetry telemetry.Telemetry) *ServiceBuilder {
	return &ServiceBuilder{
		ctx:        ctx,
		cfg:        cfg,
		logger:     logger,
		telemetry:  telemetry,
		supervisor: worker.NewWorkerSupervisor(logger),
		services:   []*serviceInstance{},
	}
}

// BuildAPIWorkers sets up the ingest + admin HTTP server worker.
func (b *ServiceBuilder) BuildAPIWorkers() error {
	b.logger.Debug("building API service workers")

	svc := &serviceInstance{
		name:         "api",
		cleanupFuncs: []func(context.Context, *logging.LoggerWithCtx){},
	}
	b.services = append(b.services, svc)

	// Initialize Postgres pool
	b.logger.Debug("initializing Postgres pool for API service",
		zap.Int("max_conns", b.cfg.IngestPoolSize))
	pool, err := b.newPostgresPool(b.cfg.IngestPoolSize)
	if err != nil {
		b.logger.Error("Postgres pool initialization failed in API service", zap.Error(err))
		return err
	}
	svc.cleanupFuncs = append(svc.cleanupFuncs, func(ctx context.Context, logger *logging.LoggerWithCtx) {
		pool.Close()
	})
	entityStore := pgstore.New(pool)

	// Initialize delivery MQ
	b.logger.Debug("initializing delivery MQ connection",
		zap.String("exchange", b.cfg.RabbitMQ.Exchange),
		zap.String("queue", b.cfg.RabbitMQ.DeliveryQueue))
	deliveryMQ := deliverymq.New(
		deliverymq.WithQueue(b.cfg.ToQueueConfig()),
		deliverymq.WithRetryQueue(b.cfg.RabbitMQ.RetryQueue),
	)
	cleanupDeliveryMQ, err := deliveryMQ.Init(b.ctx)
	if err != nil {
		b.logger.Error("delivery MQ initialization failed", zap.Error(err))
		return err
	}
	svc.cleanupFuncs = append(svc.cleanupFuncs, func(ctx context.Context, logger *logging.LoggerWithCtx) { cleanupDeliveryMQ() })

	// Initialize ingest service and router
	b.logger.Debug("creating ingest service and router")
	ingestService := ingest.NewService(b.logger, entityStore, deliveryMQ, b.cfg.MaxAttempts)
	router := apirouter.NewRouter(
		apirouter.RouterConfig{
			ServiceName: b.cfg.OpenTelemetry.GetServiceName(),
			GinMode:     b.cfg.GinMode,
		},
		b.logger,
		ingestService,
		entityStore,
		b.supervisor.GetHealthTracker(),
		b.telemetry,
	)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", b.cfg.APIPort),
		Handler: router,
	}
	b.supervisor.Register(NewHTTPServerWorker(httpServer, b.logger))

	b.logger.Info("API service workers built successfully")
	return nil
}

// BuildDeliveryWorker sets up the delivery consumer worker.
func (b *ServiceBuilder) BuildDeliveryWorker() error {
	b.logger.Debug("building delivery service worker")

	svc := &serviceInstance{
		name:         "delivery",
		cleanupFuncs: []func(context.Context, *logging.LoggerWithCtx){},
	}
	b.services = append(b.services, svc)

	// Initialize Postgres pool
	b.logger.Debug("initializing Postgres pool for delivery service",
		zap.Int("max_conns", b.cfg.WorkerPoolSize))
	pool, err := b.newPostgresPool(b.cfg.WorkerPoolSize)
	if err != nil {
		b.logger.Error("Postgres pool initialization failed in delivery service", zap.Error(err))
		return err
	}
	svc.cleanupFuncs = append(svc.cleanupFuncs, func(ctx context.Context, logger *logging.LoggerWithCtx) {
		pool.Close()
	})
	entityStore := pgstore.New(pool)

	// Initialize delivery MQ
	b.logger.Debug("initializing delivery MQ connection",
		zap.String("exchange", b.cfg.RabbitMQ.Exchange),
		zap.String("queue", b.cfg.RabbitMQ.DeliveryQueue))
	deliveryMQ := deliverymq.New(
		deliverymq.WithQueue(b.cfg.ToQueueConfig()),
		deliverymq.WithRetryQueue(b.cfg.RabbitMQ.RetryQueue),
	)
	cleanupDeliveryMQ, err := deliveryMQ.Init(b.ctx)
	if err != nil {
		b.logger.Error("delivery MQ initialization failed", zap.Error(err))
		return err
	}
	svc.cleanupFuncs = append(svc.cleanupFuncs, func(ctx context.Context, logger *logging.LoggerWithCtx) { cleanupDeliveryMQ() })

	// Initialize HTTP delivery client
	b.logger.Debug("creating delivery client")
	client := deliveryclient.New()
	svc.cleanupFuncs = append(svc.cleanupFuncs, func(ctx context.Context, logger *logging.LoggerWithCtx) {
		client.Close()
	})

	meter, err := metrics.New()
	if err != nil {
		b.logger.Error("metrics initialization failed", zap.Error(err))
		return err
	}

	// Create delivery handler
	handler := deliverymq.NewMessageHandler(
		b.logger,
		entityStore,
		client,
		deliveryMQ,
		&backoff.ScheduledBackoff{Schedule: b.cfg.RetryBackoffSchedule()},
		b.cfg.MaxAttempts,
		meter,
	)

	b.supervisor.Register(NewConsumerWorker(
		"deliverymq",
		deliveryMQ.Subscribe,
		handler,
		b.cfg.DeliveryMaxConcurrency,
		b.logger,
	))

	b.logger.Info("delivery service worker built successfully")
	return nil
}

// BuildWorkers builds workers based on the configured service role.
func (b *ServiceBuilder) BuildWorkers() error {
	serviceType := b.cfg.MustGetService()
	b.logger.Debug("building workers for service type", zap.String("service_type", serviceType.String()))

	if serviceType == config.ServiceTypeAPI || serviceType == config.ServiceTypeSingular {
		if err := b.BuildAPIWorkers(); err != nil {
			b.logger.Error("failed to build API workers", zap.Error(err))
			return err
		}
	}
	if serviceType == config.ServiceTypeDelivery || serviceType == config.ServiceTypeSingular {
		if err := b.BuildDeliveryWorker(); err != nil {
			b.logger.Error("failed to build delivery worker", zap.Error(err))
			return err
		}
	}

	// A delivery-only process still answers its liveness probe; the API role
	// serves /healthz through the full router.
	if serviceType == config.ServiceTypeDelivery {
		httpServer := &http.Server{
			Addr:    fmt.Sprintf(":%d", b.cfg.APIPort),
			Handler: NewBaseRouter(b.supervisor, b.cfg.GinMode),
		}
		b.supervisor.Register(NewHTTPServerWorker(httpServer, b.logger))
	}

	return nil
}

// Build returns the configured WorkerSupervisor.
func (b *ServiceBuilder) Build() (*worker.WorkerSupervisor, error) {
	return b.supervisor, nil
}

// Cleanup runs all registered cleanup functions for all services.
func (b *ServiceBuilder) Cleanup(ctx context.Context) {
	logger := b.logger.Ctx(ctx)
	for _, svc := range b.services {
		logger.Debug("cleaning up service", zap.String("service", svc.name))
		for _, cleanupFunc := range svc.cleanupFuncs {
			cleanupFunc(ctx, logger)
		}
	}
}

func (b *ServiceBuilder) newPostgresPool(maxConns int) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(b.cfg.Postgres.ConnString())
	if err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}
	poolConfig.MaxConns = int32(maxConns)
	return pgxpool.NewWithConfig(b.ctx, poolConfig)
}
