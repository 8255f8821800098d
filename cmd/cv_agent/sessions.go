package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/cv-refiner/internal/db"
)

var sessionsFlags flagOverrides

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List persisted sessions",
	Long:  "Lists the most recently updated sessions stored in PostgreSQL with their schema, latest overall score and history length.",
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsFlags.databaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	sessionsCmd.Flags().StringVar(&sessionsFlags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum number of sessions to list")
	rootCmd.AddCommand(sessionsCmd)
}

// sessionLister is the part of the database the listing needs
type sessionLister interface {
	ListSessions(ctx context.Context, limit int) ([]db.SessionSummary, error)
}

func runSessions(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, &sessionsFlags)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url is required")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	return listSessions(ctx, database, sessionsLimit, os.Stdout)
}

// listSessions writes one line per session, newest first.
func listSessions(ctx context.Context, lister sessionLister, limit int, w io.Writer) error {
	if limit <= 0 {
		return fmt.Errorf("invalid limit %d: must be positive", limit)
	}
	sessions, err := lister.ListSessions(ctx, limit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(w, "No sessions found")
		return nil
	}

	_, _ = fmt.Fprintf(w, "%-36s  %-13s  %5s  %7s  %s\n", "ID", "SCHEMA", "SCORE", "HISTORY", "UPDATED")
	for _, s := range sessions {
		score := "-"
		if s.OverallScore != nil {
			score = fmt.Sprintf("%d", *s.OverallScore)
		}
		_, _ = fmt.Fprintf(w, "%-36s  %-13s  %5s  %7d  %s\n",
			s.ID, s.SchemaKind, score, s.HistoryLen, s.UpdatedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	return nil
}
