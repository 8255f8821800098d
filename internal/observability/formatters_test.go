package observability

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/cv-refiner/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPrintAnalysis_Legacy(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	result := &types.AnalysisResult{
		OverallScore:     72,
		Summary:          "Solid backend profile.\nNeeds metrics.",
		ATSCompatibility: types.ATSCompatibility{Score: 80, Suggestions: []string{"Use standard headings"}},
		Legacy: &types.LegacySchema{Sections: []types.CVSection{
			{SectionName: "Experience", Score: 70, Content: "5 years"},
			{SectionName: "Skills", Score: 75, Content: "Go"},
		}},
	}

	p.PrintAnalysis(result)
	output := buf.String()

	assert.Contains(t, output, "CV ANALYSIS")
	assert.Contains(t, output, "legacy")
	assert.Contains(t, output, "72/100")
	assert.Contains(t, output, "Solid backend profile.")
	assert.NotContains(t, output, "Needs metrics.")
	assert.Contains(t, output, "Sections (2)")
	assert.Contains(t, output, "Use standard headings")
	assert.Less(t, strings.Index(output, "Experience"), strings.Index(output, "Skills"))
}

func TestPrintAnalysis_ComprehensiveOrder(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	result := &types.AnalysisResult{
		OverallScore: 65,
		Comprehensive: &types.ComprehensiveSchema{
			OriginalCVSections: []types.OriginalCVSection{
				{SectionName: "Skills", Content: "Go", Order: 3},
				{SectionName: "HEADER", Content: "Jane", Order: 1},
				{SectionName: "Experience", Content: "5 years", Order: 2},
			},
			SectionScores: map[string]int{"Experience": 60, "Skills": 70},
		},
	}

	p.PrintAnalysis(result)
	output := buf.String()

	assert.Contains(t, output, "comprehensive")
	assert.Less(t, strings.Index(output, "HEADER"), strings.Index(output, "Experience"))
	assert.Less(t, strings.Index(output, "Experience"), strings.Index(output, "Skills"))
	assert.Contains(t, output, "-", "unscored sections show a placeholder")
}

func TestPrintAnalysis_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintAnalysis(nil)
	p.PrintAnalysis(&types.AnalysisResult{})

	assert.Empty(t, buf.String())
}

func TestPrintScoreHistory(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	base := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	entries := []types.ScoreHistoryEntry{
		{Timestamp: base, OverallScore: 60, Message: types.InitialAnalysisMessage},
		{Timestamp: base.Add(time.Minute), OverallScore: 72, Message: "Added metrics"},
		{Timestamp: base.Add(2 * time.Minute), OverallScore: 70},
	}

	p.PrintScoreHistory(entries)
	output := buf.String()

	assert.Contains(t, output, "SCORE HISTORY")
	assert.Contains(t, output, "2026-01-02 15:04:05")
	assert.Contains(t, output, "(+12)")
	assert.Contains(t, output, "(-2)")
	assert.Contains(t, output, "Initial CV Analysis")
}

func TestPrintScoreHistory_Truncates(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	var entries []types.ScoreHistoryEntry
	for i := 0; i < 8; i++ {
		entries = append(entries, types.ScoreHistoryEntry{OverallScore: 50 + i, Message: fmt.Sprintf("step %d", i)})
	}

	p.PrintScoreHistory(entries)
	output := buf.String()

	assert.Contains(t, output, "... 3 earlier entries")
	assert.NotContains(t, output, "step 2")
	assert.Contains(t, output, "step 7")
}

func TestPrintHighlights(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintHighlights([]string{"Technical Skills", "HEADER"}, map[string]string{"Technical Skills": "Skills"})
	output := buf.String()

	assert.Contains(t, output, "RECENTLY UPDATED")
	assert.Contains(t, output, "Technical Skills (was Skills)")
	assert.Contains(t, output, "HEADER")
}

func TestPrintHighlights_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintHighlights(nil, nil)
	assert.Empty(t, buf.String())
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("x", 100))

	assert.Contains(t, buf.String(), "...")
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
}
