package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/fairlens/pkg/logger"
	"github.com/okian/fairlens/pkg/metrics"
)

// MetricsMiddleware records request counts, latency and error classes for
// one named endpoint.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := responseStatus(ww)
		latencyMs := float64(time.Since(start).Microseconds()) / 1000
		code := strconv.Itoa(status)

		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, latencyMs)

		if status >= http.StatusBadRequest {
			kind := errorClass(status)
			metrics.RecordErrorByEndpoint(endpoint, r.Method, kind)
			metrics.RecordErrorByType(kind, errorSeverity(status))
			metrics.RecordErrorLatency("http", kind, latencyMs)
		}
	}
}

// requestLogger logs every /api request at debug level once it has been served.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug(r.Context(), "api request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("session_id", SessionFromContext(r.Context())),
			logger.Int("status", responseStatus(ww)),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("took", time.Since(start)))
	})
}

// responseStatus treats a handler that never called WriteHeader as 200.
func responseStatus(ww middleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}

// errorClass maps a status to the same vocabulary the JSON error body uses.
func errorClass(status int) string {
	switch status {
	case http.StatusRequestEntityTooLarge:
		return "too_large"
	case http.StatusUnsupportedMediaType:
		return "unsupported_format"
	case http.StatusTooManyRequests:
		return "backpressure"
	case http.StatusConflict:
		return "superseded"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusServiceUnavailable:
		return "unavailable"
	case http.StatusGatewayTimeout:
		return "timeout"
	}
	if status >= http.StatusInternalServerError {
		return "internal_error"
	}
	return "bad_request"
}

func errorSeverity(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "high"
	case status == http.StatusTooManyRequests, status == http.StatusRequestEntityTooLarge:
		return "medium"
	default:
		return "low"
	}
}
