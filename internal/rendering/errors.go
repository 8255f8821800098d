// Package rendering turns a CV analysis snapshot into HTML, PDF and plain text exports.
package rendering

import (
	"errors"
	"fmt"
)

// ErrNothingToRender is returned when the snapshot holds no analysis
var ErrNothingToRender = errors.New("no analysis loaded")

// TemplateError represents an error parsing or executing the HTML template
type TemplateError struct {
	Message string
	Cause   error
}

func (e *TemplateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("template error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("template error: %s", e.Message)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// RenderError represents a general rendering failure
type RenderError struct {
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("render error: %s", e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
