package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/cv-refiner/internal/config"
	"github.com/jonathan/cv-refiner/internal/highlight"
	"github.com/jonathan/cv-refiner/internal/logging"
	"github.com/jonathan/cv-refiner/internal/server"
	"github.com/jonathan/cv-refiner/internal/session"
)

// flagOverrides holds the flags shared by commands that talk to the model or the database.
// Only flags the user explicitly set replace configured values.
type flagOverrides struct {
	port        int
	databaseURL string
	apiKey      string
	logLevel    string
}

func (f *flagOverrides) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

func (f *flagOverrides) registerServer(cmd *cobra.Command) {
	f.register(cmd)
	cmd.Flags().IntVar(&f.port, "port", 8080, "Port to listen on")
	cmd.Flags().StringVar(&f.databaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
}

func (f *flagOverrides) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Lookup("port") != nil && flags.Changed("port") {
		cfg.Port = f.port
	}
	if flags.Lookup("db-url") != nil && flags.Changed("db-url") {
		cfg.DatabaseURL = f.databaseURL
	}
	if flags.Changed("api-key") {
		cfg.APIKey = f.apiKey
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
}

// loadConfig resolves defaults, the --config file, the environment and then flags.
func loadConfig(cmd *cobra.Command, overrides *flagOverrides) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if overrides != nil {
		overrides.apply(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(logging.Options{
		Production: cfg.IsProduction(),
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func highlightConfig(cfg *config.Config) highlight.Config {
	return highlight.Config{
		SectionDuration: cfg.HighlightDuration.Std(),
		HeaderDuration:  cfg.HeaderHighlightDuration.Std(),
		Debounce:        cfg.HighlightDebounce.Std(),
	}
}

func sessionConfig(cfg *config.Config) session.Config {
	out := session.DefaultConfig()
	if ttl := cfg.SessionTTL.Std(); ttl > 0 {
		out.TTL = ttl
		if ttl/6 < out.CleanupInterval {
			out.CleanupInterval = ttl / 6
		}
	}
	out.Highlight = highlightConfig(cfg)
	return out
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		Port:           cfg.Port,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
}
