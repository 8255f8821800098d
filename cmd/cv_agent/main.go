// Package main provides the entry point for the CV Refiner HTTP API server and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "cv_agent",
	Short: "CV Refiner HTTP API Server",
	Long:  "CV Refiner analyzes an uploaded CV with an LLM, scores every section and lets the user improve it through chat, with live change highlighting and PDF export.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json file (values can be overridden by environment variables and flags)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
