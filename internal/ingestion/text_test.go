package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "preserves markdown headings",
			input:    "# Jane Doe\n## Experience\nContent here",
			contains: []string{"# Jane Doe", "## Experience", "Content here"},
		},
		{
			name:     "preserves bullet lists",
			input:    "- Item 1\n- Item 2\n* Item 3",
			contains: []string{"- Item 1", "- Item 2", "* Item 3"},
		},
		{
			name:     "normalizes unicode bullets",
			input:    "• Led a team of 5\n· Shipped v2",
			contains: []string{"- Led a team of 5", "- Shipped v2"},
			excludes: []string{"•", "·"},
		},
		{
			name:     "normalizes whitespace",
			input:    "Line    with    multiple    spaces",
			contains: []string{"Line with multiple spaces"},
			excludes: []string{"    "},
		},
		{
			name:     "removes excessive blank lines",
			input:    "Line 1\n\n\n\n\nLine 2",
			contains: []string{"Line 1\n\nLine 2"},
			excludes: []string{"\n\n\n"},
		},
		{
			name:     "normalizes line endings",
			input:    "Line 1\r\nLine 2\rLine 3\nLine 4",
			contains: []string{"Line 1\nLine 2\nLine 3\nLine 4"},
			excludes: []string{"\r"},
		},
		{
			name:     "replaces non-breaking spaces",
			input:    "Jane\u00a0Doe",
			contains: []string{"Jane Doe"},
		},
		{
			name:     "keeps special characters",
			input:    "Test with émojis 🚀 and spéciàl chàracters",
			contains: []string{"émojis", "🚀", "spéciàl chàracters"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanText(tt.input)
			for _, want := range tt.contains {
				assert.Contains(t, result, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, result, unwanted)
			}
		})
	}
}

func TestCleanText_EmptyInput(t *testing.T) {
	assert.Empty(t, CleanText(""))
	assert.Empty(t, CleanText("   \n  \n  "))
}

func TestCleanText_DeterministicOutput(t *testing.T) {
	input := "Test content   with   spaces\n\n\nMultiple   blank   lines"
	assert.Equal(t, CleanText(input), CleanText(input))
}

func TestIngestFromFile_Success(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "cv.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("# Jane Doe\n\nBackend engineer"), 0o644))

	cleanedText, metadata, err := IngestFromFile(context.Background(), testFile)
	require.NoError(t, err)

	assert.Contains(t, cleanedText, "Jane Doe")
	require.NotNil(t, metadata)
	assert.Len(t, metadata.Hash, 64)
	assert.Equal(t, FormatText, metadata.Format)
	assert.Equal(t, "cv.txt", metadata.FileName)
	assert.NotEmpty(t, metadata.Timestamp)
}

func TestIngestFromFile_FileNotFound(t *testing.T) {
	cleanedText, metadata, err := IngestFromFile(context.Background(), "/nonexistent/file.txt")

	assert.Error(t, err)
	assert.Empty(t, cleanedText)
	assert.Nil(t, metadata)
	assert.Contains(t, err.Error(), "file not found")
}

func TestIngestFromFile_HashFollowsContent(t *testing.T) {
	tmpDir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(tmpDir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}
	a := write("a.txt", "Content 1")
	b := write("b.txt", "Content 1")
	c := write("c.txt", "Content 2")

	_, metaA, err := IngestFromFile(context.Background(), a)
	require.NoError(t, err)
	_, metaB, err := IngestFromFile(context.Background(), b)
	require.NoError(t, err)
	_, metaC, err := IngestFromFile(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, metaA.Hash, metaB.Hash)
	assert.NotEqual(t, metaA.Hash, metaC.Hash)
}
