package utils

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apexreplay/apexreplay-service-go/pkg/analysis"
	"github.com/apexreplay/apexreplay-service-go/pkg/session"
	"github.com/apexreplay/apexreplay-service-go/pkg/store"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusFor(store.ErrNotFound))
	assert.Equal(t, http.StatusNotFound,
		StatusFor(fmt.Errorf("context: %w", session.ErrNoTelemetryForLap)))
	assert.Equal(t, http.StatusBadRequest, StatusFor(session.ErrInvalidInput))
	assert.Equal(t, http.StatusBadRequest, StatusFor(analysis.ErrNoValidLap))
	assert.Equal(t, http.StatusBadRequest, StatusFor(analysis.ErrNoOverlappingSectors))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}

func TestSendError(t *testing.T) {
	rec := httptest.NewRecorder()
	SendError(rec, fmt.Errorf("%w: circuit x", store.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "circuit x")
}
