package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/pitwall/pkg/metrics"
)

// errorClasses names the failure label recorded for specific statuses.
var errorClasses = map[int]string{ //nolint:gochecknoglobals // lookup table
	http.StatusBadRequest:         "bad_request",
	http.StatusNotFound:           "not_found",
	http.StatusTooManyRequests:    "queue_full",
	http.StatusServiceUnavailable: "unavailable",
}

// errorClass maps a failing status to a metrics label; ok is false below 400.
func errorClass(status int) (class string, ok bool) {
	if status < http.StatusBadRequest {
		return "", false
	}
	if c, found := errorClasses[status]; found {
		return c, true
	}
	if status >= http.StatusInternalServerError {
		return "internal", true
	}
	return "client", true
}

// statusRecorder remembers the first status written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b) //nolint:wrapcheck // passthrough writer
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// instrument records request count, latency and failures for route.
func instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		began := time.Now()
		next(rec, r)

		status := rec.code()
		code := strconv.Itoa(status)
		metrics.RecordHTTPRequest(route, r.Method, code)
		metrics.RecordHTTPRequestDuration(route, r.Method, code, float64(time.Since(began).Milliseconds()))
		if class, failed := errorClass(status); failed {
			metrics.RecordErrorByComponent("http", class)
		}
	})
}
