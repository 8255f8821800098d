// Package server provides the HTTP REST API for CV refinement sessions.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/cv-refiner/internal/analysis"
	"github.com/jonathan/cv-refiner/internal/ingestion"
	"github.com/jonathan/cv-refiner/internal/schemas"
	"github.com/jonathan/cv-refiner/internal/session"
	"github.com/jonathan/cv-refiner/internal/store"
	"github.com/jonathan/cv-refiner/internal/types"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable"`
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		producer   *analysis.ProducerError
		schemaErr  *types.SchemaError
		contract   *schemas.ValidationError
	)
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, store.ErrSectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoAnalysis), errors.Is(err, store.ErrStaleGeneration),
		errors.Is(err, store.ErrDuplicateSection):
		return http.StatusConflict
	case errors.Is(err, ingestion.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ingestion.ErrEmptyDocument), errors.As(err, &schemaErr), errors.As(err, &contract):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrPDFUnavailable):
		return http.StatusNotImplemented
	case errors.Is(err, session.ErrManagerClosed):
		return http.StatusServiceUnavailable
	case errors.As(err, &producer):
		if producer.Kind == analysis.KindTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorCode names the failure for clients that branch on it
func errorCode(err error) string {
	var producer *analysis.ProducerError
	switch {
	case errors.As(err, &producer):
		return string(producer.Kind)
	case errors.Is(err, store.ErrStaleGeneration):
		return "stale_generation"
	case errors.Is(err, session.ErrNoAnalysis):
		return "no_analysis"
	case errors.Is(err, session.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, store.ErrSectionNotFound):
		return "section_not_found"
	default:
		return ""
	}
}

// newErrorResponse builds the body reported for err
func newErrorResponse(err error) ErrorResponse {
	return ErrorResponse{
		Error:     err.Error(),
		Code:      errorCode(err),
		Retryable: analysis.IsRetryable(err),
	}
}
