package types

import "fmt"

// SchemaError represents an analysis payload that violates the AnalysisResult contract
type SchemaError struct {
	Field   string
	Message string
	Cause   error
}

func (e *SchemaError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("schema error: %s: %v", msg, e.Cause)
	}
	return fmt.Sprintf("schema error: %s", msg)
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}
