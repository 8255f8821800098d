package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		names     []string
		wantIndex int
		wantTier  Tier
	}{
		{
			name:      "exact match",
			target:    "Skills",
			names:     []string{"Experience", "Skills"},
			wantIndex: 1,
			wantTier:  TierExact,
		},
		{
			name:      "exact match is case sensitive and beats alias",
			target:    "Experience",
			names:     []string{"EXPERIENCE", "Experience"},
			wantIndex: 1,
			wantTier:  TierExact,
		},
		{
			name:      "alias resolves work experience to EXPERIENCE",
			target:    "work experience",
			names:     []string{"HEADER", "EXPERIENCE"},
			wantIndex: 1,
			wantTier:  TierAlias,
		},
		{
			name:      "alias target matched through another alias",
			target:    "Work History",
			names:     []string{"Employment"},
			wantIndex: 0,
			wantTier:  TierAlias,
		},
		{
			name:      "contact info resolves to header",
			target:    "Contact Info",
			names:     []string{"Summary", "HEADER"},
			wantIndex: 1,
			wantTier:  TierAlias,
		},
		{
			name:      "fuzzy prefers candidate containing the target",
			target:    "experiencedetails",
			names:     []string{"Experience", "Work Experience Details"},
			wantIndex: 1,
			wantTier:  TierFuzzy,
		},
		{
			name:      "fuzzy falls back to candidate contained in target",
			target:    "Technical Skills Overview",
			names:     []string{"Education", "Technical Skills"},
			wantIndex: 1,
			wantTier:  TierFuzzy,
		},
		{
			name:      "fuzzy ties resolve to earliest section",
			target:    "lang",
			names:     []string{"Languages", "Programming Languages"},
			wantIndex: 0,
			wantTier:  TierFuzzy,
		},
		{
			name:      "punctuation ignored",
			target:    "volunteer-work",
			names:     []string{"Volunteer Work!"},
			wantIndex: 0,
			wantTier:  TierFuzzy,
		},
		{
			name:      "not found",
			target:    "Publications",
			names:     []string{"Experience", "Skills"},
			wantIndex: -1,
			wantTier:  TierNone,
		},
		{
			name:      "empty target never fuzzy matches",
			target:    "---",
			names:     []string{"Experience"},
			wantIndex: -1,
			wantTier:  TierNone,
		},
		{
			name:      "punctuation-only candidate never fuzzy matches",
			target:    "Publications",
			names:     []string{"***"},
			wantIndex: -1,
			wantTier:  TierNone,
		},
		{
			name:      "no sections",
			target:    "Skills",
			names:     nil,
			wantIndex: -1,
			wantTier:  TierNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.target, tt.names)
			assert.Equal(t, tt.wantIndex, got.Index)
			assert.Equal(t, tt.wantTier, got.Tier)
			assert.Equal(t, tt.wantIndex >= 0, got.Found())
		})
	}
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, GroupProfessionalSummary, Canonical("Professional Summary"))
	assert.Equal(t, GroupProfessionalSummary, Canonical("  summary "))
	assert.Equal(t, GroupWorkExperience, Canonical("EMPLOYMENT HISTORY"))
	assert.Equal(t, GroupHeader, Canonical("header"))
	assert.Equal(t, "", Canonical("Publications"))
	assert.Equal(t, "", Canonical(""))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "workexperiencedetails", Normalize("Work Experience (Details)"))
	assert.Equal(t, "café2024", Normalize("Café 2024!"))
	assert.Equal(t, "", Normalize("  -- "))
}
