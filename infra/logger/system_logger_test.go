package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mstgnz/coursepay/infra/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer, level LogLevel) *SystemLogger {
	return NewSystemLogger(nil, SystemLoggerConfig{
		Output:      buf,
		Format:      "json",
		MinLevel:    level,
		Service:     "test-service",
		Version:     "1.0.0",
		Environment: "test",
	})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestSystemLogger_StructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	sl := newTestLogger(&buf, LevelDebug)

	sl.Error("order creation failed", errors.New("gateway timeout"), LogContext{
		Gateway:   "cashfree",
		RequestID: "req-1",
		Fields:    map[string]any{"receipt": "ORD_1"},
	})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	entry := lines[0]
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "order creation failed", entry["message"])
	assert.Equal(t, "cashfree", entry["gateway"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "ORD_1", entry["receipt"])
	assert.Equal(t, "gateway timeout", entry["error"])
	assert.Equal(t, "test-service", entry["service"])
}

func TestSystemLogger_MinLevel(t *testing.T) {
	tests := []struct {
		name     string
		minLevel LogLevel
		expected int
	}{
		{name: "debug_logs_everything", minLevel: LevelDebug, expected: 4},
		{name: "info_skips_debug", minLevel: LevelInfo, expected: 3},
		{name: "error_only", minLevel: LevelError, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sl := newTestLogger(&buf, tt.minLevel)

			sl.Debug("debug")
			sl.Info("info")
			sl.Warn("warn")
			sl.Error("error", nil)

			assert.Len(t, decodeLines(t, &buf), tt.expected)
		})
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := newTestLogger(&buf, LevelDebug)

	cl := sl.WithContext(LogContext{Gateway: "phonepe", RequestID: "req-9"}).AddField("code", "PAYMENT_ERROR")
	cl.Warn("payment declined")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "phonepe", lines[0]["gateway"])
	assert.Equal(t, "PAYMENT_ERROR", lines[0]["code"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "asha@example.com", Redact("asha@example.com", true))
	assert.Equal(t, "asha...om", Redact("asha@example.com", false))
	assert.Equal(t, "***", Redact("98765", false))
}

func TestSystemLogger_RedactsPersonalFields(t *testing.T) {
	var buf bytes.Buffer
	sl := newTestLogger(&buf, LevelInfo)

	fields := map[string]any{"customer_email": "asha@example.com", "order_id": "order_1"}
	sl.Info("order created", LogContext{Fields: fields})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "asha...om", lines[0]["customer_email"])
	assert.Equal(t, "order_1", lines[0]["order_id"])
	assert.Equal(t, "asha@example.com", fields["customer_email"], "caller's map is untouched")

	buf.Reset()
	dev := NewSystemLogger(nil, SystemLoggerConfig{Output: &buf, Format: "json", MinLevel: LevelInfo, Environment: "development"})
	dev.Info("order created", LogContext{Fields: fields})
	assert.Equal(t, "asha@example.com", decodeLines(t, &buf)[0]["customer_email"])
}

func TestSplitFuncName(t *testing.T) {
	tests := []struct {
		name          string
		wantFunction  string
		wantComponent string
	}{
		{"github.com/mstgnz/coursepay/provider/razorpay.(*RazorpayProvider).Verify", "Verify", "provider/razorpay"},
		{"github.com/mstgnz/coursepay/handler.(*PaymentHandler).writeError", "writeError", "handler"},
		{"github.com/mstgnz/coursepay/provider.(*PaymentService).CreateOrder.func1", "func1", "provider"},
		{"github.com/mstgnz/coursepay/infra/middle.RequestLoggingMiddleware.func1.1", "1", "infra/middle"},
		{"main.main", "main", "main"},
		{"github.com/go-chi/chi/v5.(*Mux).ServeHTTP", "ServeHTTP", "github.com/go-chi/chi/v5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			function, component := splitFuncName(tt.name)
			assert.Equal(t, tt.wantFunction, function)
			assert.Equal(t, tt.wantComponent, component)
		})
	}
}

func TestCaller_SkipsLoggerFrames(t *testing.T) {
	defer SetGlobalLogger(nil)

	var buf bytes.Buffer
	SetGlobalLogger(newTestLogger(&buf, LevelDebug))

	Info("through the global helper")
	WithGateway("phonepe").AddField("code", "BAD_REQUEST").Warn("through a context logger")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Equal(t, "infra/logger", line["component"])
		assert.Equal(t, "TestCaller_SkipsLoggerFrames", line["function"])
	}
	assert.Equal(t, "phonepe", lines[1]["gateway"])
	assert.Equal(t, "BAD_REQUEST", lines[1]["code"])
}

func TestGlobalLogger(t *testing.T) {
	defer SetGlobalLogger(nil)

	SetGlobalLogger(nil)
	assert.NotNil(t, GetGlobalLogger(), "falls back to a console logger")

	sl := InitGlobalLogger(&config.AppConfig{Environment: "production", LogLevel: "warn"}, nil)
	assert.Same(t, sl, GetGlobalLogger())
	assert.Equal(t, LevelWarn, sl.minLevel)

	sl = InitGlobalLogger(&config.AppConfig{Environment: "development", LogLevel: "error"}, nil)
	assert.Equal(t, LevelDebug, sl.minLevel, "development always logs debug")
}
