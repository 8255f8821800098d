package rendering

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-refiner/internal/store"
	"github.com/jonathan/cv-refiner/internal/types"
)

func comprehensiveSnapshot(t *testing.T) store.Snapshot {
	t.Helper()
	st := store.New()
	require.NoError(t, st.Ingest(&types.AnalysisResult{
		Summary: "Strong",
		Comprehensive: &types.ComprehensiveSchema{
			OriginalCVSections: []types.OriginalCVSection{
				{SectionName: "Skills", Content: "- Go\n- SQL <advanced>", Order: 3},
				{SectionName: "HEADER", Content: "Jane Doe\njane@example.com", Order: 1},
				{SectionName: "Experience", Content: "Acme Corp\nSenior Engineer\n\nBuilt things.", Order: 2},
			},
			CVHeader: types.CVHeader{
				Name:     "Jane Doe",
				Title:    "Backend Engineer",
				Email:    types.StringPtr("jane@example.com"),
				Location: types.StringPtr("Berlin"),
			},
			OverallSummary: &types.OverallSummary{OverallScore: 80},
			SectionScores:  map[string]int{"Skills": 85, "Experience": 75},
		},
	}))
	return st.Snapshot()
}

func TestRenderHTML_Comprehensive(t *testing.T) {
	html, err := RenderHTML(comprehensiveSnapshot(t), HTMLOptions{IncludeScores: true})
	require.NoError(t, err)

	assert.Contains(t, html, "<title>Jane Doe - CV</title>")
	assert.Contains(t, html, "<h1>Jane Doe</h1>")
	assert.Contains(t, html, "jane@example.com | Berlin")
	assert.NotContains(t, html, `data-section="HEADER"`, "header section is replaced by the structured header")
	assert.Contains(t, html, "<li>SQL &lt;advanced&gt;</li>", "content is escaped")
	assert.Contains(t, html, `<span class="score">85/100</span>`)
	assert.Less(t, strings.Index(html, `data-section="Experience"`), strings.Index(html, `data-section="Skills"`), "sections follow display order")
}

func TestRenderHTML_Legacy(t *testing.T) {
	st := store.New()
	require.NoError(t, st.Ingest(&types.AnalysisResult{
		OverallScore: 70,
		Legacy: &types.LegacySchema{Sections: []types.CVSection{
			{SectionName: "Summary", Score: 70, Content: "Engineer."},
		}},
	}))

	html, err := RenderHTML(st.Snapshot(), HTMLOptions{})
	require.NoError(t, err)

	assert.Contains(t, html, "<title>Curriculum Vitae</title>")
	assert.NotContains(t, html, `<header class="cv-header">`)
	assert.Contains(t, html, "<p>Engineer.</p>")
	assert.NotContains(t, html, "/100")
}

func TestRenderHTML_NothingLoaded(t *testing.T) {
	_, err := RenderHTML(store.New().Snapshot(), HTMLOptions{})
	assert.ErrorIs(t, err, ErrNothingToRender)
}

func TestSplitBlocks(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Block
	}{
		{name: "empty", content: "", want: nil},
		{
			name:    "paragraph lines are joined",
			content: "Acme Corp\nSenior Engineer",
			want:    []Block{{Text: "Acme Corp Senior Engineer"}},
		},
		{
			name:    "blank line splits paragraphs",
			content: "First.\n\nSecond.",
			want:    []Block{{Text: "First."}, {Text: "Second."}},
		},
		{
			name:    "mixed bullets",
			content: "Highlights:\n- Led team\n• Shipped v2\n* Cut costs\nThanks",
			want: []Block{
				{Text: "Highlights:"},
				{Items: []string{"Led team", "Shipped v2", "Cut costs"}},
				{Text: "Thanks"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitBlocks(tt.content))
		})
	}
}
