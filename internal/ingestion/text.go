package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	multiSpace     = regexp.MustCompile(`\s+`)
	excessiveBlank = regexp.MustCompile(`\n\n\n+`)
)

// bulletMarkers are normalized to "- " so list items survive cleanup consistently
var bulletMarkers = []string{"• ", "· ", "▪ ", "‣ ", "◦ "}

// CleanText cleans and normalizes text content while preserving structure
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	// 1. Normalize line endings (CRLF → LF)
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ReplaceAll(content, "\u00a0", " ")

	// 2. Process each line
	lines := strings.Split(content, "\n")
	cleanedLines := make([]string, 0, len(lines))
	for _, line := range lines {
		cleanedLines = append(cleanedLines, cleanLine(line))
	}

	// 3. Join and collapse blank runs (max 2 consecutive newlines)
	result := strings.Join(cleanedLines, "\n")
	result = removeExcessiveBlankLines(result)

	return strings.TrimSpace(result)
}

// cleanLine cleans a single line while preserving structure
func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t")
	if strings.TrimSpace(line) == "" {
		return ""
	}

	trimmed := strings.TrimLeft(line, " \t")
	indent := len(line) - len(trimmed)

	// Preserve headings (Markdown # or ## etc.)
	if strings.HasPrefix(trimmed, "#") {
		return trimmed
	}

	if isBulletLine(trimmed) {
		for _, marker := range bulletMarkers {
			if strings.HasPrefix(trimmed, marker) {
				trimmed = "- " + strings.TrimPrefix(trimmed, marker)
				break
			}
		}
		return strings.Repeat(" ", indent) + multiSpace.ReplaceAllString(trimmed, " ")
	}

	content := multiSpace.ReplaceAllString(strings.TrimSpace(line), " ")
	return strings.Repeat(" ", indent) + content
}

// isBulletLine checks if a line is a bullet list item
func isBulletLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
		return true
	}
	for _, marker := range bulletMarkers {
		if strings.HasPrefix(trimmed, marker) {
			return true
		}
	}
	return false
}

// removeExcessiveBlankLines reduces consecutive blank lines to max 2
func removeExcessiveBlankLines(content string) string {
	return excessiveBlank.ReplaceAllString(content, "\n\n")
}

// IngestFromFile reads a CV from disk and returns its cleaned text with metadata
func IngestFromFile(ctx context.Context, path string) (string, *Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("file not found: %w", err)
		}
		return "", nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ExtractText(ctx, content, "", filepath.Base(path))
}
