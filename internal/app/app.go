package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/webhookhub/webhookhub/internal/config"
	"github.com/webhookhub/webhookhub/internal/idgen"
	"github.com/webhookhub/webhookhub/internal/logging"
	"github.com/webhookhub/webhookhub/internal/mqinfra"
	"github.com/webhookhub/webhookhub/internal/otel"
	"github.com/webhookhub/webhookhub/internal/services"
	"github.com/webhookhub/webhookhub/internal/telemetry"
	"github.com/webhookhub/webhookhub/internal/version"
	"go.uber.org/zap"
)

type App struct {
	config *config.Config
}

func New(cfg *config.Config) *App {
	return &App{
		config: cfg,
	}
}

func (a *App) Run(ctx context.Context) error {
	return run(ctx, a.config)
}

func run(mainContext context.Context, cfg *config.Config) error {
	logger, err := logging.NewLogger(
		logging.WithLogLevel(cfg.LogLevel),
		logging.WithAuditLog(cfg.AuditLog),
	)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting webhookhub",
		zap.String("version", version.Version()),
		zap.String("config_path", cfg.ConfigFilePath()),
		zap.String("service", cfg.MustGetService().String()))

	logger.Debug("configuring ID generators")
	if err := idgen.Configure(cfg.IDTemplates.ToConfig()); err != nil {
		logger.Error("failed to configure ID generators", zap.Error(err))
		return err
	}

	if err := runMigration(mainContext, cfg, logger); err != nil {
		return err
	}

	// Declare the broker topology before any worker touches it. Declarations
	// are idempotent, so every role can do this on every boot.
	logger.Debug("declaring message queue infrastructure")
	if err := mqinfra.Declare(mainContext, cfg.ToInfraConfig()); err != nil {
		logger.Error("infrastructure declaration failed", zap.Error(err))
		return err
	}

	tel := telemetry.New(logger, telemetry.TelemetryConfig{
		Disabled:  cfg.DisableTelemetry,
		SentryDSN: cfg.SentryDSN,
	}, uuid.New().String())
	tel.Init(mainContext)
	tel.ApplicationStarted(mainContext, telemetry.ApplicationInfo{
		Version: version.Version(),
		Service: cfg.MustGetService().String(),
	})

	// Set up cancellation context
	ctx, cancel := context.WithCancel(mainContext)
	defer cancel()

	// Set up OpenTelemetry.
	if cfg.OpenTelemetry.ToConfig() != nil {
		otelShutdown, err := otel.SetupOTelSDK(ctx, cfg.OpenTelemetry.ToConfig())
		if err != nil {
			return err
		}
		// Handle shutdown properly so nothing leaks.
		defer func() {
			err = errors.Join(err, otelShutdown(context.Background()))
		}()
	}

	logger.Debug("building services")
	builder := services.NewServiceBuilder(ctx, cfg, logger, tel)
	if err := builder.BuildWorkers(); err != nil {
		logger.Error("failed to build workers", zap.Error(err))
		return err
	}
	supervisor, err := builder.Build()
	if err != nil {
		return err
	}

	// Handle sigterm and await termChan signal
	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- supervisor.Run(ctx)
	}()

	// Wait for either termination signal or worker failure
	var exitErr error
	select {
	case <-termChan:
		logger.Info("shutdown signal received")
		cancel() // Cancel context to trigger graceful shutdown
		err := <-errChan
		// context.Canceled is expected during graceful shutdown
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("error during graceful shutdown", zap.Error(err))
			exitErr = err
		}
	case err := <-errChan:
		// Workers exited unexpectedly
		if err != nil {
			logger.Error("workers exited unexpectedly", zap.Error(err))
			exitErr = err
		}
	}

	tel.Flush()

	// Run cleanup functions
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	builder.Cleanup(shutdownCtx)

	logger.Info("webhookhub shutdown complete")

	return exitErr
}
