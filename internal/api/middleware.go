package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tinycask/tinycask/internal/kverr"
	"github.com/tinycask/tinycask/internal/shared"
)

// ErrorResponse represents an error response body
type ErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// responseWriter is a custom response writer that captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// SecurityHeaders sets common security headers on every response
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware logs request details
func LoggingMiddleware(logger *shared.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			logger.Info("%s %s %d %s", r.Method, r.URL.Path, rw.statusCode, time.Since(start))
		})
	}
}

// RecoveryMiddleware recovers panics and writes JSON errors
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				err := kverr.RecoverError(rec)
				writeError(w, err)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// writeError writes an error response with a status derived from the
// error type
func writeError(w http.ResponseWriter, err error) {
	var statusCode int

	errType := kverr.TypeOf(err)
	switch errType {
	case kverr.ErrorTypeNotFound:
		statusCode = http.StatusNotFound
	case kverr.ErrorTypeInvalidValue:
		statusCode = http.StatusBadRequest
	case kverr.ErrorTypeCorruptRecord:
		statusCode = http.StatusInternalServerError
	default:
		statusCode = http.StatusInternalServerError
	}

	response := ErrorResponse{}
	response.Error.Type = string(errType)
	response.Error.Message = err.Error()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
