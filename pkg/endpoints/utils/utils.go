package utils

import (
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/apexreplay/apexreplay-service-go/log"
	"github.com/apexreplay/apexreplay-service-go/pkg/analysis"
	"github.com/apexreplay/apexreplay-service-go/pkg/session"
	"github.com/apexreplay/apexreplay-service-go/pkg/store"
)

// SendJSON writes payload with the given status code. Encoding failures are
// logged but not surfaced; the header has already been written at that point.
func SendJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("could not encode response", log.ErrorField(err))
	}
}

// SendError maps err onto an HTTP status and writes {"error": ...}.
func SendError(w http.ResponseWriter, err error) {
	SendJSON(w, StatusFor(err), map[string]string{"error": err.Error()})
}

// StatusFor maps the domain sentinels onto HTTP status codes: missing files
// and laps read as 404, rejected input as 400, anything else as 500.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, session.ErrNoTelemetryForLap):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidInput),
		errors.Is(err, analysis.ErrNoValidLap),
		errors.Is(err, analysis.ErrNoTelemetry),
		errors.Is(err, analysis.ErrNoValidTelemetry),
		errors.Is(err, analysis.ErrNoOverlappingSectors):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs one line per request after it completed.
func RequestLogger(l *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			l.Debug("request",
				log.String("method", r.Method),
				log.String("path", r.URL.Path),
				log.Int("status", rec.status),
				log.Duration("duration", time.Since(start)))
		})
	}
}
