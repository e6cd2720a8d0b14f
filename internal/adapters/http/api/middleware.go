package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/rs/cors"

	"github.com/roboheist/backend/pkg/logger"
	"github.com/roboheist/backend/pkg/metrics"
)

// HTTP status code constants.
const (
	statusBadRequest          = 400
	statusNotFound            = 404
	statusUnprocessableEntity = 422
	statusInternalError       = 500
)

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		observe(endpoint, r.Method, wrapped.statusCode, start)
	}
}

func observe(endpoint, method string, statusCode int, start time.Time) {
	durationMs := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordHTTPRequest(endpoint, method, strconv.Itoa(statusCode), durationMs)

	if statusCode >= statusBadRequest {
		errorType := getErrorType(statusCode)
		metrics.RecordErrorByEndpoint(endpoint, method, errorType)
		metrics.RecordErrorByType(errorType, getErrorSeverity(statusCode))
	}
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode >= statusInternalError:
		return "server_error"
	case statusCode == statusUnprocessableEntity:
		return "validation"
	case statusCode == statusNotFound:
		return "not_found"
	case statusCode >= statusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// getErrorSeverity returns error severity based on HTTP status code.
func getErrorSeverity(statusCode int) string {
	switch {
	case statusCode >= statusInternalError:
		return "high"
	case statusCode >= statusBadRequest:
		return "medium"
	default:
		return "low"
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}

// JSONErrors serves mux, turning the router's own plain-text 404 and 405
// replies into {"detail": "..."} bodies.
func JSONErrors(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, pattern := mux.Handler(r); pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ew := &errorWriter{ResponseWriter: w}
		mux.ServeHTTP(ew, r)
		if ew.status == 0 {
			ew.status = http.StatusOK
		}
		observe("unmatched", r.Method, ew.status, start)
	})
}

// errorWriter replaces the body of 404 and 405 responses.
type errorWriter struct {
	http.ResponseWriter
	status    int
	rewritten bool
}

func (e *errorWriter) WriteHeader(code int) {
	e.status = code
	if code != http.StatusNotFound && code != http.StatusMethodNotAllowed {
		e.ResponseWriter.WriteHeader(code)
		return
	}

	e.rewritten = true
	e.ResponseWriter.Header().Set("Content-Type", "application/json")
	e.ResponseWriter.WriteHeader(code)
	_ = json.NewEncoder(e.ResponseWriter).Encode(detailResponse{Detail: http.StatusText(code)})
}

func (e *errorWriter) Write(b []byte) (int, error) {
	if e.status == 0 {
		e.WriteHeader(http.StatusOK)
	}
	if e.rewritten {
		return len(b), nil
	}
	return e.ResponseWriter.Write(b)
}

// Recover turns a handler panic into a 500 {"detail": "Internal Server Error"}.
// http.ErrAbortHandler is re-raised so the server can abort the connection.
func Recover(l logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
					panic(rec)
				}

				metrics.RecordErrorByComponent("http", "panic")
				l.Error(context.WithoutCancel(r.Context()), "panic recovered",
					logger.Any("panic", rec),
					logger.String("path", r.URL.Path),
					logger.String("stack", string(debug.Stack())))
				writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// CORS permits cross-origin calls from origins. A "*" entry admits every
// origin; the request origin is echoed back because credentials are allowed.
func CORS(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:       []string{"*"},
		AllowCredentials:     true,
		OptionsSuccessStatus: http.StatusOK,
	}
	if allowsAnyOrigin(origins) {
		opts.AllowOriginFunc = func(string) bool { return true }
	} else {
		opts.AllowedOrigins = origins
	}
	return cors.New(opts).Handler
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return len(origins) == 0
}

func originAllowed(origins []string, origin string) bool {
	if allowsAnyOrigin(origins) {
		return true
	}
	for _, o := range origins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
