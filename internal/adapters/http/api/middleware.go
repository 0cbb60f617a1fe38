package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/plotpath/pkg/metrics"
)

// MetricsMiddleware records request count, latency and failures under endpoint.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		ms := float64(time.Since(start).Microseconds()) / 1000
		status := strconv.Itoa(sw.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, ms)
		if sw.status >= http.StatusBadRequest {
			metrics.RecordErrorByComponent("http_"+endpoint, statusCode(sw.status))
		}
	}
}

// statusCode maps an HTTP status back to the error code written in the body,
// so error metrics and responses share one vocabulary.
func statusCode(status int) string {
	for _, c := range errorClasses {
		if c.status == status {
			return c.code
		}
	}
	if status >= http.StatusInternalServerError {
		return "internal_error"
	}
	return "client_error"
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
