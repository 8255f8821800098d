// Package types provides type definitions for structured data used throughout the cv-refiner system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"sort"
)

// SchemaKind identifies which representation of an analysis is authoritative
type SchemaKind string

const (
	// SchemaNone means neither section representation is present
	SchemaNone SchemaKind = "none"
	// SchemaLegacy is the flat ordered "sections" list
	SchemaLegacy SchemaKind = "legacy"
	// SchemaComprehensive is "original_cv_sections" + "cv_header" + "structured_content"
	SchemaComprehensive SchemaKind = "comprehensive"
)

// ATSCompatibility holds the applicant-tracking-system readability assessment
type ATSCompatibility struct {
	Score       int      `json:"score"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// CVSection is a scored section of the legacy schema
type CVSection struct {
	SectionName string `json:"section_name"`
	Score       int    `json:"score"`
	Content     string `json:"content"`
	Feedback    string `json:"feedback"`
	Suggestions string `json:"suggestions"`
}

// OriginalCVSection is a section of the original CV text with an explicit display order
type OriginalCVSection struct {
	SectionName string `json:"section_name"`
	Content     string `json:"content"`
	Order       int    `json:"order"`
}

// OverallSummary carries the comprehensive schema's nested overall assessment
type OverallSummary struct {
	OverallScore int      `json:"overall_score"`
	Strengths    []string `json:"strengths,omitempty"`
	Weaknesses   []string `json:"weaknesses,omitempty"`
}

// LegacySchema is the flat, insertion-ordered section list
type LegacySchema struct {
	Sections []CVSection
}

// ComprehensiveSchema preserves original section text, order and a separate header block
type ComprehensiveSchema struct {
	OriginalCVSections []OriginalCVSection
	CVHeader           CVHeader
	StructuredContent  *StructuredContent
	OverallSummary     *OverallSummary
	// SectionScores holds per-section scores keyed by section name
	SectionScores map[string]int
}

// AnalysisResult is the central entity: common fields plus exactly one schema variant.
type AnalysisResult struct {
	OverallScore     int
	Summary          string
	ATSCompatibility ATSCompatibility

	Legacy        *LegacySchema
	Comprehensive *ComprehensiveSchema
}

// Kind reports which schema variant is authoritative.
func (r *AnalysisResult) Kind() SchemaKind {
	switch {
	case r == nil:
		return SchemaNone
	case r.Comprehensive != nil && r.Legacy == nil:
		return SchemaComprehensive
	case r.Legacy != nil && r.Comprehensive == nil:
		return SchemaLegacy
	default:
		return SchemaNone
	}
}

// Validate checks that exactly one schema variant is present.
func (r *AnalysisResult) Validate() error {
	if r == nil {
		return &SchemaError{Message: "analysis result is nil"}
	}
	if r.Legacy != nil && r.Comprehensive != nil {
		return &SchemaError{Message: "both sections and original_cv_sections are present"}
	}
	if r.Legacy == nil && r.Comprehensive == nil {
		return &SchemaError{Message: "neither sections nor original_cv_sections is present"}
	}
	if r.Comprehensive != nil {
		seen := make(map[string]bool, len(r.Comprehensive.OriginalCVSections))
		for _, s := range r.Comprehensive.OriginalCVSections {
			if seen[s.SectionName] {
				return &SchemaError{Field: "original_cv_sections", Message: "duplicate section_name " + s.SectionName}
			}
			seen[s.SectionName] = true
		}
	}
	if r.Legacy != nil {
		seen := make(map[string]bool, len(r.Legacy.Sections))
		for _, s := range r.Legacy.Sections {
			if seen[s.SectionName] {
				return &SchemaError{Field: "sections", Message: "duplicate section_name " + s.SectionName}
			}
			seen[s.SectionName] = true
		}
	}
	return nil
}

// OverallScoreValue returns the overall score from whichever field the schema populates.
// The comprehensive schema nests it under overall_summary; the legacy one keeps it top-level.
func (r *AnalysisResult) OverallScoreValue() int {
	if r == nil {
		return 0
	}
	if r.Comprehensive != nil && r.Comprehensive.OverallSummary != nil {
		return r.Comprehensive.OverallSummary.OverallScore
	}
	return r.OverallScore
}

// SetOverallScore writes the overall score to every field the schema uses.
func (r *AnalysisResult) SetOverallScore(score int) {
	r.OverallScore = score
	if r.Comprehensive != nil {
		if r.Comprehensive.OverallSummary == nil {
			r.Comprehensive.OverallSummary = &OverallSummary{}
		}
		r.Comprehensive.OverallSummary.OverallScore = score
	}
}

// SectionScores returns a copy of the per-section scores for either schema.
func (r *AnalysisResult) SectionScores() map[string]int {
	scores := make(map[string]int)
	switch r.Kind() {
	case SchemaLegacy:
		for _, s := range r.Legacy.Sections {
			scores[s.SectionName] = s.Score
		}
	case SchemaComprehensive:
		for name, score := range r.Comprehensive.SectionScores {
			scores[name] = score
		}
	}
	return scores
}

// SortedSections returns the comprehensive sections in display order.
func (c *ComprehensiveSchema) SortedSections() []OriginalCVSection {
	out := make([]OriginalCVSection, len(c.OriginalCVSections))
	copy(out, c.OriginalCVSections)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// Clone returns a deep copy of the result.
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	out.ATSCompatibility.Suggestions = cloneStrings(r.ATSCompatibility.Suggestions)
	if r.Legacy != nil {
		out.Legacy = &LegacySchema{Sections: append([]CVSection(nil), r.Legacy.Sections...)}
	}
	if r.Comprehensive != nil {
		c := *r.Comprehensive
		c.OriginalCVSections = append([]OriginalCVSection(nil), r.Comprehensive.OriginalCVSections...)
		c.CVHeader = r.Comprehensive.CVHeader.Clone()
		c.StructuredContent = r.Comprehensive.StructuredContent.Clone()
		if r.Comprehensive.OverallSummary != nil {
			summary := *r.Comprehensive.OverallSummary
			summary.Strengths = cloneStrings(summary.Strengths)
			summary.Weaknesses = cloneStrings(summary.Weaknesses)
			c.OverallSummary = &summary
		}
		if r.Comprehensive.SectionScores != nil {
			c.SectionScores = make(map[string]int, len(r.Comprehensive.SectionScores))
			for k, v := range r.Comprehensive.SectionScores {
				c.SectionScores[k] = v
			}
		}
		out.Comprehensive = &c
	}
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// wireAnalysisResult is the flat JSON shape produced by the analysis producer
type wireAnalysisResult struct {
	OverallScore       *int                 `json:"overall_score,omitempty"`
	Summary            string               `json:"summary"`
	ATSCompatibility   ATSCompatibility     `json:"ats_compatibility"`
	Sections           *[]CVSection         `json:"sections,omitempty"`
	OriginalCVSections *[]OriginalCVSection `json:"original_cv_sections,omitempty"`
	CVHeader           *CVHeader            `json:"cv_header,omitempty"`
	StructuredContent  *StructuredContent   `json:"structured_content,omitempty"`
	OverallSummary     *OverallSummary      `json:"overall_summary,omitempty"`
	SectionScores      map[string]int       `json:"section_scores,omitempty"`
}

// MarshalJSON encodes the result in its flat wire form.
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	score := r.OverallScore
	w := wireAnalysisResult{
		OverallScore:     &score,
		Summary:          r.Summary,
		ATSCompatibility: r.ATSCompatibility,
	}
	switch {
	case r.Legacy != nil:
		sections := r.Legacy.Sections
		if sections == nil {
			sections = []CVSection{}
		}
		w.Sections = &sections
	case r.Comprehensive != nil:
		sections := r.Comprehensive.OriginalCVSections
		if sections == nil {
			sections = []OriginalCVSection{}
		}
		w.OriginalCVSections = &sections
		header := r.Comprehensive.CVHeader
		w.CVHeader = &header
		w.StructuredContent = r.Comprehensive.StructuredContent
		w.OverallSummary = r.Comprehensive.OverallSummary
		w.SectionScores = r.Comprehensive.SectionScores
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the flat wire form, branching on which section key exists.
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return &SchemaError{Message: "analysis result is not a JSON object", Cause: err}
	}
	_, hasLegacy := keys["sections"]
	_, hasComprehensive := keys["original_cv_sections"]
	if hasLegacy && hasComprehensive {
		return &SchemaError{Message: "both sections and original_cv_sections are present"}
	}
	if !hasLegacy && !hasComprehensive {
		return &SchemaError{Message: "neither sections nor original_cv_sections is present"}
	}

	var w wireAnalysisResult
	if err := json.Unmarshal(data, &w); err != nil {
		return &SchemaError{Message: "malformed analysis result", Cause: err}
	}

	*r = AnalysisResult{
		Summary:          w.Summary,
		ATSCompatibility: w.ATSCompatibility,
	}
	if w.OverallScore != nil {
		r.OverallScore = *w.OverallScore
	}

	if hasLegacy {
		sections := []CVSection{}
		if w.Sections != nil && *w.Sections != nil {
			sections = *w.Sections
		}
		r.Legacy = &LegacySchema{Sections: sections}
		return nil
	}

	sections := []OriginalCVSection{}
	if w.OriginalCVSections != nil && *w.OriginalCVSections != nil {
		sections = *w.OriginalCVSections
	}
	c := &ComprehensiveSchema{
		OriginalCVSections: sections,
		StructuredContent:  w.StructuredContent,
		OverallSummary:     w.OverallSummary,
		SectionScores:      w.SectionScores,
	}
	if w.CVHeader != nil {
		c.CVHeader = *w.CVHeader
	}
	r.Comprehensive = c
	if w.OverallScore == nil && w.OverallSummary != nil {
		r.OverallScore = w.OverallSummary.OverallScore
	}
	return nil
}

// AnalysisPatch is a shallow set of top-level fields merged into the current result.
// Nil fields are left untouched; section arrays are never part of a patch.
type AnalysisPatch struct {
	OverallScore      *int               `json:"overall_score,omitempty"`
	Summary           *string            `json:"summary,omitempty"`
	ATSCompatibility  *ATSCompatibility  `json:"ats_compatibility,omitempty"`
	StructuredContent *StructuredContent `json:"structured_content,omitempty"`
}

// IsEmpty reports whether the patch carries no fields.
func (p AnalysisPatch) IsEmpty() bool {
	return p.OverallScore == nil && p.Summary == nil && p.ATSCompatibility == nil && p.StructuredContent == nil
}
