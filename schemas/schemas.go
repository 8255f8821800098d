// Package schemas embeds the JSON Schemas every producer payload is checked against before it
// reaches the store.
package schemas

import (
	"embed"
	"fmt"
)

//go:embed *.schema.json
var files embed.FS

// Schema file names
const (
	Analysis     = "analysis.schema.json"
	ChatResponse = "chat_response.schema.json"
	EditResult   = "edit_result.schema.json"
)

// All lists every embedded schema.
func All() []string {
	return []string{Analysis, ChatResponse, EditResult}
}

// Get returns the content of an embedded schema.
func Get(name string) (string, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("schema %s not embedded: %w", name, err)
	}
	return string(data), nil
}
