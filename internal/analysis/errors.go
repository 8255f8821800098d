package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/cv-refiner/internal/llm"
)

// Kind classifies a producer failure
type Kind string

const (
	// KindTimeout means the call ran past its deadline
	KindTimeout Kind = "timeout"
	// KindUpstreamUnavailable means the model provider failed or refused the call
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	// KindMalformedResponse means the reply did not satisfy the payload contract
	KindMalformedResponse Kind = "malformed_response"
)

// ProducerError is returned by every Producer method. A failed call never produces a partial result.
type ProducerError struct {
	Kind      Kind
	Operation string
	Message   string
	Cause     error
}

func (e *ProducerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Operation, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s", e.Operation, e.Kind, e.Message)
}

func (e *ProducerError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether repeating the same request may succeed.
func (e *ProducerError) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindUpstreamUnavailable
}

// IsRetryable reports whether err is a retryable ProducerError.
func IsRetryable(err error) bool {
	var pe *ProducerError
	return errors.As(err, &pe) && pe.Retryable()
}

// callError classifies a failed model call
func callError(op string, err error) *ProducerError {
	var empty *llm.EmptyResponseError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ProducerError{Kind: KindTimeout, Operation: op, Message: "model call timed out", Cause: err}
	case errors.As(err, &empty):
		return &ProducerError{Kind: KindMalformedResponse, Operation: op, Message: "model returned no content", Cause: err}
	default:
		return &ProducerError{Kind: KindUpstreamUnavailable, Operation: op, Message: "model call failed", Cause: err}
	}
}

func malformed(op, message string, cause error) *ProducerError {
	return &ProducerError{Kind: KindMalformedResponse, Operation: op, Message: message, Cause: cause}
}
