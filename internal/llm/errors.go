package llm

import "fmt"

// EmptyResponseError represents a model reply that carried no usable text
type EmptyResponseError struct {
	Message string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("empty LLM response: %s", e.Message)
}
