package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/cv-refiner/internal/analysis"
	"github.com/jonathan/cv-refiner/internal/db"
	"github.com/jonathan/cv-refiner/internal/llm"
	"github.com/jonathan/cv-refiner/internal/rendering"
	"github.com/jonathan/cv-refiner/internal/server"
	"github.com/jonathan/cv-refiner/internal/session"
)

var serveFlags flagOverrides

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes REST and server-sent event endpoints for CV sessions.

Sessions are persisted to PostgreSQL when DATABASE_URL is set and kept in memory otherwise.`,
	RunE: runServe,
}

func init() {
	serveFlags.registerServer(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, &serveFlags)
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey, logger.Named("llm"))
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = client.Close() }()

	producer, err := analysis.NewGeminiProducer(client,
		analysis.WithLogger(logger.Named("analysis")),
		analysis.WithTimeout(cfg.LLMTimeout.Std()),
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis producer: %w", err)
	}

	managerOpts := []session.ManagerOption{session.WithLogger(logger.Named("session"))}
	var pinger server.Pinger
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Migrate(ctx); err != nil {
			return err
		}
		managerOpts = append(managerOpts, session.WithRepository(database))
		pinger = database
	} else {
		logger.Warn("DATABASE_URL not set, sessions are kept in memory only")
	}

	manager := session.NewManager(sessionConfig(cfg), managerOpts...)
	defer manager.Close()

	renderer := rendering.NewChromeRenderer(cfg.PDFTimeout.Std(), logger.Named("rendering"))
	service := session.NewService(manager, producer, renderer, logger.Named("service"))
	srv := server.New(serverConfig(cfg), service, pinger, logger.Named("http"))

	logger.Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.Duration("session_ttl", cfg.SessionTTL.Std()),
	)
	return srv.Run(ctx)
}
