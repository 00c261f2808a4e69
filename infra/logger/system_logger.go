package logger

import (
	"context"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/mstgnz/coursepay/infra/opensearch"
	"github.com/rs/zerolog"
)

// LogLevel represents the severity level of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

// SystemLog represents a structured system log entry
type SystemLog struct {
	Timestamp   time.Time      `json:"timestamp"`
	Level       LogLevel       `json:"level"`
	Message     string         `json:"message"`
	Component   string         `json:"component"`
	Function    string         `json:"function"`
	Gateway     string         `json:"gateway,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	Error       string         `json:"error,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	Environment string         `json:"environment"`
	Service     string         `json:"service"`
	Version     string         `json:"version"`
}

// SystemLogger writes structured logs through zerolog and optionally ships
// them to OpenSearch.
type SystemLogger struct {
	zl               zerolog.Logger
	openSearchLogger *opensearch.Logger
	enableOpenSearch bool
	minLevel         LogLevel
	service          string
	version          string
	environment      string
}

// SystemLoggerConfig represents configuration for system logger
type SystemLoggerConfig struct {
	Output           io.Writer
	Format           string // "json" or "console"
	EnableOpenSearch bool
	MinLevel         LogLevel
	Service          string
	Version          string
	Environment      string
}

// LogContext holds contextual information for logging
type LogContext struct {
	Gateway   string
	RequestID string
	Fields    map[string]any
}

// NewSystemLogger creates a new system logger
func NewSystemLogger(openSearchLogger *opensearch.Logger, config SystemLoggerConfig) *SystemLogger {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(config.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	if config.MinLevel == "" {
		config.MinLevel = LevelInfo
	}

	zl := zerolog.New(out).With().
		Timestamp().
		Str("service", config.Service).
		Str("env", config.Environment).
		Logger().
		Level(toZerologLevel(config.MinLevel))

	return &SystemLogger{
		zl:               zl,
		openSearchLogger: openSearchLogger,
		enableOpenSearch: config.EnableOpenSearch && openSearchLogger != nil,
		minLevel:         config.MinLevel,
		service:          config.Service,
		version:          config.Version,
		environment:      config.Environment,
	}
}

// Debug logs a debug message
func (sl *SystemLogger) Debug(message string, ctx ...LogContext) {
	sl.log(LevelDebug, message, nil, ctx...)
}

// Info logs an info message
func (sl *SystemLogger) Info(message string, ctx ...LogContext) {
	sl.log(LevelInfo, message, nil, ctx...)
}

// Warn logs a warning message
func (sl *SystemLogger) Warn(message string, ctx ...LogContext) {
	sl.log(LevelWarn, message, nil, ctx...)
}

// Error logs an error message
func (sl *SystemLogger) Error(message string, err error, ctx ...LogContext) {
	sl.log(LevelError, message, err, ctx...)
}

// Fatal logs a fatal message and exits
func (sl *SystemLogger) Fatal(message string, err error, ctx ...LogContext) {
	sl.log(LevelFatal, message, err, ctx...)
	os.Exit(1)
}

func (sl *SystemLogger) log(level LogLevel, message string, err error, ctx ...LogContext) {
	if !sl.shouldLog(level) {
		return
	}

	// log <- Info <- caller
	function, component := caller(3)

	event := sl.zl.WithLevel(toZerologLevel(level)).
		Str("component", component).
		Str("function", function)

	entry := SystemLog{
		Timestamp:   time.Now().UTC(),
		Level:       level,
		Message:     message,
		Component:   component,
		Function:    function,
		Environment: sl.environment,
		Service:     sl.service,
		Version:     sl.version,
	}

	if len(ctx) > 0 {
		logCtx := ctx[0]
		entry.Gateway = logCtx.Gateway
		entry.RequestID = logCtx.RequestID
		entry.Fields = sl.redactFields(logCtx.Fields)

		if logCtx.Gateway != "" {
			event = event.Str("gateway", logCtx.Gateway)
		}
		if logCtx.RequestID != "" {
			event = event.Str("request_id", logCtx.RequestID)
		}
		if len(entry.Fields) > 0 {
			event = event.Fields(entry.Fields)
		}
	}
	if err != nil {
		entry.Error = err.Error()
		event = event.Err(err)
	}

	event.Msg(message)

	if sl.enableOpenSearch {
		go sl.logToOpenSearch(entry)
	}
}

func (sl *SystemLogger) shouldLog(level LogLevel) bool {
	levelOrder := map[LogLevel]int{
		LevelDebug: 0,
		LevelInfo:  1,
		LevelWarn:  2,
		LevelError: 3,
		LevelFatal: 4,
	}

	return levelOrder[level] >= levelOrder[sl.minLevel]
}

const (
	// modulePath is trimmed from package paths to build the component
	modulePath = "github.com/mstgnz/coursepay"

	ownComponent = "infra/logger"
)

// caller returns the short function name and the package path of the frame
// skip levels up, e.g. "provider/razorpay". Frames of this package, such as
// the global helpers and ContextLogger, are passed over.
func caller(skip int) (string, string) {
	pcs := make([]uintptr, 8)
	n := runtime.Callers(skip+1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function == "" {
			break
		}
		function, component := splitFuncName(frame.Function)
		if component != ownComponent || strings.HasSuffix(frame.File, "_test.go") {
			return function, component
		}
		if !more {
			break
		}
	}
	return "unknown", "unknown"
}

// splitFuncName splits a qualified name such as
// "github.com/mstgnz/coursepay/provider/razorpay.(*RazorpayProvider).Verify"
// into "Verify" and "provider/razorpay".
func splitFuncName(name string) (string, string) {
	function := name
	if idx := strings.LastIndex(function, "."); idx != -1 {
		function = function[idx+1:]
	}

	pkg := name
	slash := strings.LastIndex(pkg, "/")
	if idx := strings.Index(pkg[slash+1:], "."); idx != -1 {
		pkg = pkg[:slash+1+idx]
	}

	component := strings.TrimPrefix(strings.TrimPrefix(pkg, modulePath), "/")
	if component == "" {
		component = "unknown"
	}
	return function, component
}

func (sl *SystemLogger) logToOpenSearch(entry SystemLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sl.openSearchLogger.LogSystemEvent(ctx, entry); err != nil {
		log.Printf("Failed to log to OpenSearch: %v", err)
	}
}

// WithContext creates a new logger with context
func (sl *SystemLogger) WithContext(ctx LogContext) *ContextLogger {
	return &ContextLogger{
		systemLogger: sl,
		context:      ctx,
	}
}

// ContextLogger wraps SystemLogger with context
type ContextLogger struct {
	systemLogger *SystemLogger
	context      LogContext
}

// Debug logs a debug message with context
func (cl *ContextLogger) Debug(message string) {
	cl.systemLogger.Debug(message, cl.context)
}

// Info logs an info message with context
func (cl *ContextLogger) Info(message string) {
	cl.systemLogger.Info(message, cl.context)
}

// Warn logs a warning message with context
func (cl *ContextLogger) Warn(message string) {
	cl.systemLogger.Warn(message, cl.context)
}

// Error logs an error message with context
func (cl *ContextLogger) Error(message string, err error) {
	cl.systemLogger.Error(message, err, cl.context)
}

// AddField adds a field to the context
func (cl *ContextLogger) AddField(key string, value any) *ContextLogger {
	fields := make(map[string]any, len(cl.context.Fields)+1)
	for k, v := range cl.context.Fields {
		fields[k] = v
	}
	fields[key] = value
	cl.context.Fields = fields
	return cl
}

func toZerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelFatal:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel maps a configured level name onto LogLevel, defaulting to info
func ParseLevel(s string) LogLevel {
	switch LogLevel(strings.ToLower(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "warning":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// personalFields are redacted outside development
var personalFields = map[string]bool{
	"email":          true,
	"phone":          true,
	"customer_email": true,
	"customer_phone": true,
}

func (sl *SystemLogger) redactFields(fields map[string]any) map[string]any {
	dev := strings.EqualFold(sl.environment, "development")
	if dev || len(fields) == 0 {
		return fields
	}

	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok && personalFields[k] {
			v = Redact(s, false)
		}
		out[k] = v
	}
	return out
}

// Redact hides personal data outside development, keeping a short preview.
func Redact(s string, dev bool) string {
	if dev {
		return s
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-2:]
}
