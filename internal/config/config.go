// Package config provides configuration loading and validation for the server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Duration is a time.Duration that reads "3s"-style strings from JSON
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("duration must be a string like \"3s\": %w", err)
		}
		*d = Duration(n)
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the service configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults, environment variables and then CLI flags
// override them.
type Config struct {
	// Server
	Port           int    `json:"port,omitempty"`             // HTTP listen port
	DatabaseURL    string `json:"database_url,omitempty"`     // PostgreSQL connection URL; empty keeps sessions in memory
	APIKey         string `json:"api_key,omitempty"`          // Gemini API key
	MaxUploadBytes int64  `json:"max_upload_bytes,omitempty"` // Largest accepted CV upload

	// Logging
	Env      string `json:"env,omitempty"`       // development or production
	LogLevel string `json:"log_level,omitempty"` // debug, info, warn or error
	LogFile  string `json:"log_file,omitempty"`  // Optional rotated log file

	// Timings
	HighlightDuration       Duration `json:"highlight_duration,omitempty"`        // How long changed sections stay highlighted
	HeaderHighlightDuration Duration `json:"header_highlight_duration,omitempty"` // How long a header change stays highlighted
	HighlightDebounce       Duration `json:"highlight_debounce,omitempty"`        // Settle time before changes are compared
	SessionTTL              Duration `json:"session_ttl,omitempty"`               // Idle time before a session is evicted
	PDFTimeout              Duration `json:"pdf_timeout,omitempty"`               // Bound on one PDF export
	LLMTimeout              Duration `json:"llm_timeout,omitempty"`               // Bound on one model call
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:                    8080,
		MaxUploadBytes:          10 << 20,
		Env:                     EnvDevelopment,
		LogLevel:                "info",
		HighlightDuration:       Duration(3 * time.Second),
		HeaderHighlightDuration: Duration(3 * time.Second),
		SessionTTL:              Duration(time.Hour),
		PDFTimeout:              Duration(30 * time.Second),
		LLMTimeout:              Duration(90 * time.Second),
	}
}

// Load builds the effective configuration: defaults, then the optional JSON file at path,
// then environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		file, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = file.MergeWithDefaults(cfg)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("DATABASE_URL", &c.DatabaseURL)
	str("GEMINI_API_KEY", &c.APIKey)
	str("ENV", &c.Env)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FILE", &c.LogFile)

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %v", err)
		}
		c.Port = port
	}

	durations := []struct {
		key string
		dst *Duration
	}{
		{"HIGHLIGHT_DURATION", &c.HighlightDuration},
		{"HEADER_HIGHLIGHT_DURATION", &c.HeaderHighlightDuration},
		{"HIGHLIGHT_DEBOUNCE", &c.HighlightDebounce},
		{"SESSION_TTL", &c.SessionTTL},
		{"PDF_TIMEOUT", &c.PDFTimeout},
		{"LLM_TIMEOUT", &c.LLMTimeout},
	}
	for _, d := range durations {
		v, ok := lookup(d.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", d.key, err)
		}
		*d.dst = Duration(parsed)
	}
	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("config error: 'max_upload_bytes' must be non-negative")
	}

	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("config error: 'env' must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config error: unknown 'log_level' %q", c.LogLevel)
	}

	durations := map[string]Duration{
		"highlight_duration":        c.HighlightDuration,
		"header_highlight_duration": c.HeaderHighlightDuration,
		"highlight_debounce":        c.HighlightDebounce,
		"session_ttl":               c.SessionTTL,
		"pdf_timeout":               c.PDFTimeout,
		"llm_timeout":               c.LLMTimeout,
	}
	for name, d := range durations {
		if d < 0 {
			return fmt.Errorf("config error: '%s' must be non-negative", name)
		}
	}
	if c.HighlightDuration == 0 {
		return fmt.Errorf("config error: 'highlight_duration' must be positive")
	}
	return nil
}

// IsProduction reports whether the production environment is selected.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
// This is used to apply config file values over the built-in defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Env == "" {
		result.Env = defaults.Env
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFile == "" {
		result.LogFile = defaults.LogFile
	}

	// Numeric fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.MaxUploadBytes == 0 {
		result.MaxUploadBytes = defaults.MaxUploadBytes
	}
	if result.HighlightDuration == 0 {
		result.HighlightDuration = defaults.HighlightDuration
	}
	if result.HeaderHighlightDuration == 0 {
		result.HeaderHighlightDuration = defaults.HeaderHighlightDuration
	}
	if result.HighlightDebounce == 0 {
		result.HighlightDebounce = defaults.HighlightDebounce
	}
	if result.SessionTTL == 0 {
		result.SessionTTL = defaults.SessionTTL
	}
	if result.PDFTimeout == 0 {
		result.PDFTimeout = defaults.PDFTimeout
	}
	if result.LLMTimeout == 0 {
		result.LLMTimeout = defaults.LLMTimeout
	}

	return result
}
