package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/cv-refiner/internal/analysis"
	"github.com/jonathan/cv-refiner/internal/ingestion"
	"github.com/jonathan/cv-refiner/internal/llm"
	"github.com/jonathan/cv-refiner/internal/observability"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a CV file and write the analysis JSON",
	Long:  "Extracts text from a PDF, DOCX or plain-text CV, asks the model for a scored analysis and writes it as JSON.",
	RunE:  runAnalyze,
}

var (
	analyzeInput   string
	analyzeOutput  string
	analyzeVerbose bool
	analyzeFlags   flagOverrides
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeInput, "in", "i", "", "Path to CV file (required)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "out", "o", "", "Path to output analysis JSON file (required)")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Print a summary of the analysis")
	analyzeFlags.register(analyzeCmd)

	if err := analyzeCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}
	if err := analyzeCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, &analyzeFlags)
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

	ctx := context.Background()

	text, meta, err := ingestion.IngestFromFile(ctx, analyzeInput)
	if err != nil {
		return fmt.Errorf("failed to ingest CV: %w", err)
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey, logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = client.Close() }()

	producer, err := analysis.NewGeminiProducer(client, analysis.WithLogger(logger), analysis.WithTimeout(cfg.LLMTimeout.Std()))
	if err != nil {
		return fmt.Errorf("failed to create analysis producer: %w", err)
	}

	result, err := producer.Analyze(ctx, text)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal analysis to JSON: %w", err)
	}
	if err := writeOutput(analyzeOutput, jsonBytes); err != nil {
		return err
	}

	if analyzeVerbose {
		_, _ = fmt.Fprintf(os.Stdout, "Ingested %s (%s, %d chars)\n", meta.FileName, meta.Format, meta.Chars)
		observability.NewPrinter(os.Stdout).PrintAnalysis(result)
	}
	_, _ = fmt.Fprintf(os.Stdout, "Successfully wrote analysis to %s\n", analyzeOutput)
	return nil
}

// writeOutput creates the output directory if needed and writes data to path.
func writeOutput(path string, data []byte) error {
	outputDir := filepath.Dir(path)
	if outputDir != "" && outputDir != "." {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
