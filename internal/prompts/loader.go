// Package prompts provides the LLM prompt templates used by the analysis adapters.
// Prompts are stored as JSON files of key → template and embedded at compile time.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// placeholder matches {{.Name}} markers
var placeholder = regexp.MustCompile(`\{\{\.([A-Za-z][A-Za-z0-9_]*)\}\}`)

// MissingValueError is returned by Render when a template placeholder has no value.
type MissingValueError struct {
	Prompt  string
	Missing []string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("prompt %s: no value for %s", e.Prompt, strings.Join(e.Missing, ", "))
}

// catalog is one parsed prompt file
type catalog struct {
	once    sync.Once
	prompts map[string]string
	err     error
}

var (
	catalogsMu sync.Mutex
	catalogs   = make(map[string]*catalog)
)

// load parses filename once per process.
func load(filename string) (map[string]string, error) {
	catalogsMu.Lock()
	c, ok := catalogs[filename]
	if !ok {
		c = &catalog{}
		catalogs[filename] = c
	}
	catalogsMu.Unlock()

	c.once.Do(func() {
		data, err := promptFiles.ReadFile(filename)
		if err != nil {
			c.err = fmt.Errorf("failed to read prompt file %s: %w", filename, err)
			return
		}
		if err := json.Unmarshal(data, &c.prompts); err != nil {
			c.err = fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
		}
	})
	return c.prompts, c.err
}

// Get retrieves the raw template stored under key in filename (e.g. "analysis.json").
func Get(filename, key string) (string, error) {
	prompts, err := load(filename)
	if err != nil {
		return "", err
	}
	prompt, exists := prompts[key]
	if !exists {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return prompt, nil
}

// List returns the prompt keys in a file, sorted.
func List(filename string) ([]string, error) {
	prompts, err := load(filename)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(prompts))
	for key := range prompts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Placeholders returns the distinct placeholder names in template, in first-use order.
func Placeholders(template string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Format replaces {{.Key}} placeholders with values from data in a single pass, so
// substituted values are never expanded again. Placeholders without a value are left in place.
func Format(template string, data map[string]string) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		name := m[3 : len(m)-2]
		if value, ok := data[name]; ok {
			return value
		}
		return m
	})
}

// Render loads a prompt and fills every placeholder. A placeholder without a value is a
// *MissingValueError rather than literal template text sent to the model.
func Render(filename, key string, data map[string]string) (string, error) {
	template, err := Get(filename, key)
	if err != nil {
		return "", err
	}
	var missing []string
	for _, name := range Placeholders(template) {
		if _, ok := data[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", &MissingValueError{Prompt: filename + "#" + key, Missing: missing}
	}
	return Format(template, data), nil
}
