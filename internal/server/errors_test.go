package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/cv-refiner/internal/analysis"
	"github.com/jonathan/cv-refiner/internal/ingestion"
	"github.com/jonathan/cv-refiner/internal/schemas"
	"github.com/jonathan/cv-refiner/internal/session"
	"github.com/jonathan/cv-refiner/internal/store"
	"github.com/jonathan/cv-refiner/internal/types"
)

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "message", Message: "required"}
	assert.Equal(t, "validation error: message - required", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", &ErrValidation{Field: "text", Message: "min"}, http.StatusBadRequest},
		{"session not found", session.ErrSessionNotFound, http.StatusNotFound},
		{"wrapped section not found", fmt.Errorf("%w: %q", store.ErrSectionNotFound, "Skills"), http.StatusNotFound},
		{"no analysis", session.ErrNoAnalysis, http.StatusConflict},
		{"stale generation", store.ErrStaleGeneration, http.StatusConflict},
		{"duplicate section", store.ErrDuplicateSection, http.StatusConflict},
		{"unsupported format", ingestion.ErrUnsupportedFormat, http.StatusUnsupportedMediaType},
		{"empty document", ingestion.ErrEmptyDocument, http.StatusUnprocessableEntity},
		{"schema error", &types.SchemaError{Field: "sections", Message: "missing"}, http.StatusUnprocessableEntity},
		{"contract violation", &schemas.ValidationError{Errors: []schemas.FieldError{{Field: "response", Message: "required"}}}, http.StatusUnprocessableEntity},
		{"pdf unavailable", session.ErrPDFUnavailable, http.StatusNotImplemented},
		{"manager closed", session.ErrManagerClosed, http.StatusServiceUnavailable},
		{"producer timeout", &analysis.ProducerError{Kind: analysis.KindTimeout}, http.StatusGatewayTimeout},
		{"producer upstream", &analysis.ProducerError{Kind: analysis.KindUpstreamUnavailable}, http.StatusBadGateway},
		{"producer malformed", &analysis.ProducerError{Kind: analysis.KindMalformedResponse}, http.StatusBadGateway},
		{"unknown error", assert.AnError, http.StatusInternalServerError},
		{"nil error", nil, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := newErrorResponse(&analysis.ProducerError{Kind: analysis.KindTimeout, Operation: analysis.OpChat, Message: "deadline"})
	assert.True(t, resp.Retryable)
	assert.Equal(t, "timeout", resp.Code)

	resp = newErrorResponse(&analysis.ProducerError{Kind: analysis.KindMalformedResponse, Operation: analysis.OpChat, Message: "bad json"})
	assert.False(t, resp.Retryable)
	assert.Equal(t, "malformed_response", resp.Code)

	resp = newErrorResponse(store.ErrStaleGeneration)
	assert.False(t, resp.Retryable)
	assert.Equal(t, "stale_generation", resp.Code)
}
