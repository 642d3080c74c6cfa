package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/flexprice/installments/internal/config"
	"github.com/flexprice/installments/internal/types"
	"github.com/fluent/fluent-logger-golang/fluent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

const (
	fluentdTag     = "installments.logs"
	gormSlowQuery  = 200 * time.Millisecond
	fluentdBufSize = 8 * 1024 * 1024
)

// Logger is the zap sugared logger used across the service. When Fluentd forwarding is
// configured every structured entry is also posted there.
type Logger struct {
	*zap.SugaredLogger
	fluentdLogger *fluent.Fluent
	serviceName   string
}

// L is the process wide logger for code that has no injected one (scripts, tests)
var L *Logger

func NewLogger(cfg *config.Configuration) (*Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Logging.Level == types.LogLevelDebug {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(string(cfg.Logging.Level)); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.DisableStacktrace = true

	zapLogger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	sugar := zapLogger.Sugar()

	return &Logger{
		SugaredLogger: sugar,
		fluentdLogger: newFluentd(cfg.Logging, sugar),
		serviceName:   "installments-" + string(cfg.Deployment.Mode),
	}, nil
}

// newFluentd returns nil when forwarding is off or the client cannot be created; logging
// then goes to stdout only
func newFluentd(cfg config.LoggingConfig, sugar *zap.SugaredLogger) *fluent.Fluent {
	if !cfg.FluentdEnabled {
		return nil
	}
	if cfg.FluentdHost == "" || cfg.FluentdPort <= 0 {
		sugar.Warnw("fluentd forwarding enabled without host and port, logging to stdout only")
		return nil
	}

	f, err := fluent.New(fluent.Config{
		FluentHost:   cfg.FluentdHost,
		FluentPort:   cfg.FluentdPort,
		Async:        true,
		BufferLimit:  fluentdBufSize,
		WriteTimeout: 3 * time.Second,
		RetryWait:    500,
		MaxRetry:     5,
	})
	if err != nil {
		sugar.Warnw("failed to initialize fluentd forwarding, logging to stdout only", "error", err)
		return nil
	}
	sugar.Infow("fluentd forwarding enabled", "host", cfg.FluentdHost, "port", cfg.FluentdPort)
	return f
}

func init() {
	L, _ = NewLogger(config.GetDefaultConfig())
}

func GetLogger() *Logger {
	if L == nil {
		L, _ = NewLogger(config.GetDefaultConfig())
	}
	return L
}

// WithContext returns a child logger tagged with the request, tenant and user ids on ctx
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(
			"request_id", types.GetRequestID(ctx),
			"tenant_id", types.GetTenantID(ctx),
			"user_id", types.GetUserID(ctx),
		),
		fluentdLogger: l.fluentdLogger,
		serviceName:   l.serviceName,
	}
}

func (l *Logger) Debugw(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
	l.forward("debug", msg, keysAndValues)
}

func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
	l.forward("info", msg, keysAndValues)
}

func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
	l.forward("warning", msg, keysAndValues)
}

func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
	l.forward("error", msg, keysAndValues)
}

func (l *Logger) Fatalf(template string, args ...interface{}) {
	l.forward("fatal", fmt.Sprintf(template, args...), nil)
	l.SugaredLogger.Fatalf(template, args...)
}

// forward posts one entry to fluentd. Failures are reported on stdout and never block the caller.
func (l *Logger) forward(level, msg string, keysAndValues []interface{}) {
	if l.fluentdLogger == nil {
		return
	}

	record := fieldsFromPairs(keysAndValues)
	record["level"] = level
	record["message"] = msg
	record["service"] = l.serviceName
	record["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	if err := l.fluentdLogger.Post(fluentdTag, record); err != nil {
		l.SugaredLogger.Warnw("failed to forward log entry to fluentd", "error", err)
	}
}

// fieldsFromPairs turns zap style key/value pairs into a map, dropping non-string keys and a
// trailing key without a value
func fieldsFromPairs(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2+4)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}

type gormWriter struct {
	logger *Logger
}

func (w *gormWriter) Printf(format string, v ...interface{}) {
	w.logger.Debugw("gorm_query", "query", fmt.Sprintf(format, v...))
}

// GetGormLogger reports slow queries and errors as warnings, and every query at debug level
func (l *Logger) GetGormLogger(level types.LogLevel) gormlogger.Interface {
	gormLevel := gormlogger.Warn
	if level == types.LogLevelDebug {
		gormLevel = gormlogger.Info
	}
	return gormlogger.New(&gormWriter{logger: l}, gormlogger.Config{
		SlowThreshold:             gormSlowQuery,
		LogLevel:                  gormLevel,
		IgnoreRecordNotFoundError: true,
	})
}
