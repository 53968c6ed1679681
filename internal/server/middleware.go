package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
)

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// RequestLogger adds structured logging to HTTP requests.
func RequestLogger(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			log.WithFields(
				logging.F(logging.FieldMethod, r.Method),
				logging.F(logging.FieldPath, r.URL.Path),
				logging.F(logging.FieldStatus, wrapped.statusCode),
				logging.F(logging.FieldDuration, time.Since(start).String()),
			).Info("HTTP request")
		})
	}
}

// Recovery recovers from panics and returns a 500 error.
func Recovery(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(
						logging.F(logging.FieldError, err),
						logging.F(logging.FieldMethod, r.Method),
						logging.F(logging.FieldPath, r.URL.Path),
					).Error("Panic recovered")

					WriteError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
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
