package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/cv-refiner/internal/schemas"
	embedded "github.com/jonathan/cv-refiner/schemas"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a JSON file against a schema",
	Long: `Validates a JSON document against one of the embedded producer schemas (analysis,
chat_response, edit_result) or a schema file on disk.`,
	RunE: runValidate,
}

var (
	validateSchema string
	validateJSON   string
)

func init() {
	validateCmd.Flags().StringVar(&validateSchema, "schema", "", "Embedded schema name or path to a schema file (required)")
	validateCmd.Flags().StringVar(&validateJSON, "json", "", "Path to JSON file (required)")

	if err := validateCmd.MarkFlagRequired("schema"); err != nil {
		panic(fmt.Sprintf("failed to mark schema flag as required: %v", err))
	}
	if err := validateCmd.MarkFlagRequired("json"); err != nil {
		panic(fmt.Sprintf("failed to mark json flag as required: %v", err))
	}

	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, _ []string) error {
	err := validateFile(validateSchema, validateJSON)
	if err == nil {
		_, _ = fmt.Fprintln(os.Stdout, "Validation passed")
		return nil
	}

	var validationErr *schemas.ValidationError
	if errors.As(err, &validationErr) {
		_, _ = fmt.Fprintf(os.Stdout, "Validation failed:\n%v\n", err)
		return fmt.Errorf("validation failed with %d error(s)", len(validationErr.Errors))
	}
	return err
}

// embeddedSchema maps "analysis" or "analysis.schema.json" to the embedded file name.
func embeddedSchema(name string) (string, bool) {
	for _, candidate := range embedded.All() {
		if name == candidate || name+".schema.json" == candidate {
			return candidate, true
		}
	}
	return "", false
}

// validateFile checks the JSON file at jsonPath against schema, which is either an embedded
// schema name or a schema file path.
func validateFile(schema, jsonPath string) error {
	name, ok := embeddedSchema(strings.TrimSpace(schema))
	if !ok {
		return schemas.ValidateJSON(schema, jsonPath)
	}

	content, err := embedded.Get(name)
	if err != nil {
		return err
	}
	document, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	return schemas.ValidateJSONString(content, string(document))
}
