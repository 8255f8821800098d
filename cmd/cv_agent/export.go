package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/cv-refiner/internal/rendering"
	"github.com/jonathan/cv-refiner/internal/store"
	"github.com/jonathan/cv-refiner/internal/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render an analysis JSON file as PDF, HTML or text",
	Long:  "Loads an analysis produced by 'analyze' (or fetched from the API) and renders the CV it describes. PDF output requires Chrome.",
	RunE:  runExport,
}

// Export formats
const (
	formatPDF  = "pdf"
	formatHTML = "html"
	formatText = "txt"
)

var (
	exportInput  string
	exportOutput string
	exportFormat string
	exportScores bool
)

func init() {
	exportCmd.Flags().StringVarP(&exportInput, "in", "i", "", "Path to analysis JSON file (required)")
	exportCmd.Flags().StringVarP(&exportOutput, "out", "o", "", "Path to output file (required)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", formatPDF, "Output format: pdf, html or txt")
	exportCmd.Flags().BoolVar(&exportScores, "scores", false, "Print section scores next to headings")

	if err := exportCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}
	if err := exportCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	var renderer rendering.PDFRenderer
	if strings.ToLower(exportFormat) == formatPDF {
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		renderer = rendering.NewChromeRenderer(cfg.PDFTimeout.Std(), logger)
	}

	data, err := exportAnalysis(cmd.Context(), exportInput, exportFormat, exportScores, renderer)
	if err != nil {
		return err
	}
	if err := writeOutput(exportOutput, data); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stdout, "Successfully exported %s to %s\n", strings.ToLower(exportFormat), exportOutput)
	return nil
}

// loadAnalysis reads an analysis JSON file into a fresh store so it renders exactly as a
// session would.
func loadAnalysis(path string) (*store.Store, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis file: %w", err)
	}
	var result types.AnalysisResult
	if err := json.Unmarshal(content, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis JSON: %w", err)
	}
	st := store.New()
	if err := st.Ingest(&result); err != nil {
		return nil, fmt.Errorf("invalid analysis: %w", err)
	}
	return st, nil
}

// exportAnalysis renders the analysis at path in the requested format.
func exportAnalysis(ctx context.Context, path, format string, scores bool, renderer rendering.PDFRenderer) ([]byte, error) {
	format = strings.ToLower(format)
	switch format {
	case formatPDF, formatHTML, formatText:
	default:
		return nil, fmt.Errorf("unsupported export format %q (expected pdf, html or txt)", format)
	}

	st, err := loadAnalysis(path)
	if err != nil {
		return nil, err
	}
	html, err := rendering.RenderHTML(st.Snapshot(), rendering.HTMLOptions{IncludeScores: scores})
	if err != nil {
		return nil, fmt.Errorf("failed to render HTML: %w", err)
	}

	switch format {
	case formatHTML:
		return []byte(html), nil
	case formatText:
		text, err := rendering.PlainText(html)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text: %w", err)
		}
		return []byte(text), nil
	default:
		if renderer == nil {
			return nil, fmt.Errorf("PDF export requires a renderer")
		}
		if ctx == nil {
			ctx = context.Background()
		}
		return renderer.RenderToPDF(ctx, html)
	}
}
