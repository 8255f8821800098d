package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const legacyAnalysisJSON = `{
	"overall_score": 72,
	"summary": "Solid CV",
	"ats_compatibility": {"score": 80, "feedback": "Readable"},
	"sections": [
		{"section_name": "Experience", "score": 70, "content": "5 years of Go", "feedback": "ok", "suggestions": "quantify"},
		{"section_name": "Skills", "score": 74, "content": "Go, SQL", "feedback": "fine", "suggestions": ""}
	]
}`

// getBinaryPath returns the path to the cv_agent binary for testing
func getBinaryPath(t *testing.T) string {
	binaryName := "cv_agent"
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := filepath.Join("..", "..", "bin", binaryName)
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skipf("Binary not found at %s, build it first with 'go build -o bin/cv_agent ./cmd/cv_agent'", binaryPath)
	}

	return binaryPath
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

type fakeRenderer struct {
	html string
}

func (f *fakeRenderer) RenderToPDF(_ context.Context, html string) ([]byte, error) {
	f.html = html
	return []byte("%PDF-1.4 fake"), nil
}
