package middle

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mstgnz/coursepay/infra/logger"
	"github.com/mstgnz/coursepay/infra/metrics"
)

// RequestLoggingMiddleware writes one structured line per request and feeds
// the HTTP metrics. Request bodies are never logged.
func RequestLoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			route := routePattern(r)

			metrics.ObserveHTTP(route, r.Method, status, elapsed.Seconds())

			logCtx := logger.LogContext{
				RequestID: middleware.GetReqID(r.Context()),
				Fields: map[string]any{
					"method":      r.Method,
					"route":       route,
					"path":        r.URL.Path,
					"status":      status,
					"bytes":       ww.BytesWritten(),
					"duration_ms": elapsed.Milliseconds(),
					"client_ip":   GetClientIP(r),
				},
			}
			if gw := chi.URLParam(r, "gateway"); gw != "" {
				logCtx.Gateway = gw
			}

			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("HTTP request failed", nil, logCtx)
			case status >= http.StatusBadRequest:
				logger.Warn("HTTP request rejected", logCtx)
			default:
				logger.Info("HTTP request", logCtx)
			}
		})
	}
}

// routePattern returns the matched chi pattern so that ids do not end up in
// metric labels.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
