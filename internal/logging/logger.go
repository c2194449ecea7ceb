package logging

import (
	"context"
	"strings"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type Logger struct {
	*otelzap.Logger
	audit bool
}

// LoggerWithCtx is a context-bound logger. Audit entries are emitted only
// when audit logging was enabled at construction.
type LoggerWithCtx struct {
	otelzap.LoggerWithCtx
	audit bool
}

type LoggerOption struct {
	LogLevel string
	AuditLog bool
}

type Option func(o *LoggerOption)

func WithLogLevel(logLevel string) Option {
	return func(o *LoggerOption) {
		o.LogLevel = logLevel
	}
}

func WithAuditLog(enabled bool) Option {
	return func(o *LoggerOption) {
		o.AuditLog = enabled
	}
}

func NewLogger(opts ...Option) (*Logger, error) {
	option := &LoggerOption{}
	for _, opt := range opts {
		opt(option)
	}

	logger, err := makeLogger(option.LogLevel)
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger, audit: option.AuditLog}, nil
}

func (l *Logger) Ctx(ctx context.Context) *LoggerWithCtx {
	return &LoggerWithCtx{LoggerWithCtx: l.Logger.Ctx(ctx), audit: l.audit}
}

// Audit records a notable domain event (event accepted, delivery dead,
// source created). Suppressed unless audit logging is enabled.
func (l *Logger) Audit(msg string, fields ...zap.Field) {
	if !l.audit {
		return
	}
	l.Info(msg, append(fields, zap.Bool("audit", true))...)
}

func (l *LoggerWithCtx) Audit(msg string, fields ...zap.Field) {
	if !l.audit {
		return
	}
	l.Info(msg, append(fields, zap.Bool("audit", true))...)
}

func makeLogger(logLevel string) (*otelzap.Logger, error) {
	level := zap.InfoLevel
	switch strings.ToLower(logLevel) {
	case "debug":
		level = zap.DebugLevel
	case "info":
		level = zap.InfoLevel
	case "warn":
		level = zap.WarnLevel
	case "error":
		level = zap.ErrorLevel
	case "fatal":
		level = zap.FatalLevel
	default:
		level = zap.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return otelzap.New(zapLogger,
		otelzap.WithMinLevel(level),
	), nil
}
