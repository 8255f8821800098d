// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/cv-refiner/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// timeLayout is how history timestamps are shown
	timeLayout = "2006-01-02 15:04:05"
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintAnalysis outputs a human-readable summary of an analysis: overall score, ATS
// assessment and the scored sections in display order.
func (p *Printer) PrintAnalysis(result *types.AnalysisResult) {
	if result == nil || result.Kind() == types.SchemaNone {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Schema:   %s\n", result.Kind()))
	sb.WriteString(fmt.Sprintf("Overall:  %d/100\n", result.OverallScoreValue()))
	sb.WriteString(fmt.Sprintf("ATS:      %d/100\n", result.ATSCompatibility.Score))
	if result.Summary != "" {
		sb.WriteString(fmt.Sprintf("Summary:  %s\n", firstLine(result.Summary)))
	}
	sb.WriteString("\n")

	type row struct {
		name   string
		score  int
		scored bool
	}
	var rows []row
	switch result.Kind() {
	case types.SchemaLegacy:
		for _, s := range result.Legacy.Sections {
			rows = append(rows, row{name: s.SectionName, score: s.Score, scored: true})
		}
	case types.SchemaComprehensive:
		for _, s := range result.Comprehensive.SortedSections() {
			score, ok := result.Comprehensive.SectionScores[s.SectionName]
			rows = append(rows, row{name: s.SectionName, score: score, scored: ok})
		}
	}

	sb.WriteString(fmt.Sprintf("Sections (%d):\n", len(rows)))
	for _, r := range rows {
		if r.scored {
			sb.WriteString(fmt.Sprintf("  • %-32s %3d\n", r.name, r.score))
		} else {
			sb.WriteString(fmt.Sprintf("  • %-32s   -\n", r.name))
		}
	}

	if suggestions := result.ATSCompatibility.Suggestions; len(suggestions) > 0 {
		sb.WriteString("\nATS Suggestions:\n")
		count := min(len(suggestions), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", suggestions[i]))
		}
		if len(suggestions) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(suggestions)-maxItemsToShow))
		}
	}

	p.printBox("CV ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintScoreHistory outputs the most recent history entries with the change from the
// previous entry.
func (p *Printer) PrintScoreHistory(entries []types.ScoreHistoryEntry) {
	if len(entries) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Entries: %d\n\n", len(entries)))

	start := max(0, len(entries)-maxItemsToShow)
	if start > 0 {
		sb.WriteString(fmt.Sprintf("... %d earlier entries\n", start))
	}
	for i := start; i < len(entries); i++ {
		e := entries[i]
		delta := ""
		if i > 0 {
			delta = fmt.Sprintf(" (%+d)", e.OverallScore-entries[i-1].OverallScore)
		}
		sb.WriteString(fmt.Sprintf("%s  %3d%s\n", e.Timestamp.Format(timeLayout), e.OverallScore, delta))
		if e.Message != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", firstLine(e.Message)))
		}
	}

	p.printBox("SCORE HISTORY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintHighlights outputs the currently highlighted sections and any detected renames.
func (p *Printer) PrintHighlights(highlights []string, renames map[string]string) {
	if len(highlights) == 0 {
		return
	}

	var sb strings.Builder
	for _, name := range highlights {
		if old, ok := renames[name]; ok {
			sb.WriteString(fmt.Sprintf("  • %s (was %s)\n", name, old))
			continue
		}
		sb.WriteString(fmt.Sprintf("  • %s\n", name))
	}

	p.printBox("RECENTLY UPDATED", strings.TrimSuffix(sb.String(), "\n"))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
