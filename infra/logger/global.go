package logger

import (
	"sync"

	"github.com/mstgnz/coursepay/infra/config"
	"github.com/mstgnz/coursepay/infra/opensearch"
)

var (
	globalLogger *SystemLogger
	mu           sync.RWMutex
)

const (
	serviceName    = "coursepay"
	serviceVersion = "1.0.0"
)

// InitGlobalLogger initializes the global system logger from the app config
func InitGlobalLogger(cfg *config.AppConfig, openSearchLogger *opensearch.Logger) *SystemLogger {
	level := ParseLevel(cfg.LogLevel)
	if cfg.IsDevelopment() {
		level = LevelDebug
	}

	sl := NewSystemLogger(openSearchLogger, SystemLoggerConfig{
		Format:           cfg.LogFormat,
		EnableOpenSearch: openSearchLogger != nil,
		MinLevel:         level,
		Service:          serviceName,
		Version:          serviceVersion,
		Environment:      cfg.Environment,
	})
	SetGlobalLogger(sl)
	return sl
}

// SetGlobalLogger replaces the global logger
func SetGlobalLogger(sl *SystemLogger) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger = sl
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *SystemLogger {
	mu.RLock()
	sl := globalLogger
	mu.RUnlock()
	if sl != nil {
		return sl
	}

	mu.Lock()
	defer mu.Unlock()
	if globalLogger == nil {
		globalLogger = NewSystemLogger(nil, SystemLoggerConfig{
			MinLevel:    LevelInfo,
			Service:     serviceName,
			Version:     serviceVersion,
			Environment: "development",
		})
	}
	return globalLogger
}

// Debug logs a debug message using the global logger
func Debug(message string, ctx ...LogContext) {
	GetGlobalLogger().Debug(message, ctx...)
}

// Info logs an info message using the global logger
func Info(message string, ctx ...LogContext) {
	GetGlobalLogger().Info(message, ctx...)
}

// Warn logs a warning message using the global logger
func Warn(message string, ctx ...LogContext) {
	GetGlobalLogger().Warn(message, ctx...)
}

// Error logs an error message using the global logger
func Error(message string, err error, ctx ...LogContext) {
	GetGlobalLogger().Error(message, err, ctx...)
}

// Fatal logs a fatal message using the global logger and exits
func Fatal(message string, err error, ctx ...LogContext) {
	GetGlobalLogger().Fatal(message, err, ctx...)
}

// WithGateway creates a context logger bound to a gateway
func WithGateway(gateway string) *ContextLogger {
	return GetGlobalLogger().WithContext(LogContext{Gateway: gateway})
}
