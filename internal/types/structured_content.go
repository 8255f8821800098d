package types

import (
	"strings"

	"github.com/jonathan/cv-refiner/internal/resolver"
)

// PersonalInfo is the parsed contact block of structured content
type PersonalInfo struct {
	Name     string `json:"name"`
	Title    string `json:"title,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
	Website  string `json:"website,omitempty"`
}

// ExperienceEntry is one parsed role
type ExperienceEntry struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Description string   `json:"description,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
}

// EducationEntry is one parsed degree or qualification
type EducationEntry struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Location    string `json:"location,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Details     string `json:"details,omitempty"`
}

// StructuredContent is the denormalized semantic view of a comprehensive analysis
type StructuredContent struct {
	PersonalInfo   PersonalInfo      `json:"personal_info"`
	Summary        string            `json:"summary,omitempty"`
	Experience     []ExperienceEntry `json:"experience,omitempty"`
	Education      []EducationEntry  `json:"education,omitempty"`
	Skills         []string          `json:"skills,omitempty"`
	Certifications []string          `json:"certifications,omitempty"`
}

// Clone returns a deep copy, preserving nil.
func (s *StructuredContent) Clone() *StructuredContent {
	if s == nil {
		return nil
	}
	out := *s
	if s.Experience != nil {
		out.Experience = make([]ExperienceEntry, len(s.Experience))
		for i, e := range s.Experience {
			e.Highlights = cloneStrings(e.Highlights)
			out.Experience[i] = e
		}
	}
	out.Education = append([]EducationEntry(nil), s.Education...)
	out.Skills = cloneStrings(s.Skills)
	out.Certifications = cloneStrings(s.Certifications)
	return &out
}

// StructuredContentOrDerived returns the structured content, reconstructing a best-effort
// view from the header and original sections when the producer omitted it.
func (c *ComprehensiveSchema) StructuredContentOrDerived() StructuredContent {
	if c.StructuredContent != nil {
		return *c.StructuredContent.Clone()
	}

	derived := StructuredContent{PersonalInfo: personalInfoFrom(c.CVHeader, PersonalInfo{})}
	for _, section := range c.SortedSections() {
		switch resolver.Canonical(section.SectionName) {
		case resolver.GroupProfessionalSummary:
			if derived.Summary == "" {
				derived.Summary = strings.TrimSpace(section.Content)
			}
		case resolver.GroupSkills:
			derived.Skills = append(derived.Skills, splitListItems(section.Content)...)
		case resolver.GroupCertifications:
			derived.Certifications = append(derived.Certifications, splitListItems(section.Content)...)
		}
	}
	return derived
}

// SyncPersonalInfo copies the header's contact fields into the structured content so the
// two views agree after a header change. Fields the header leaves empty keep their value.
func (c *ComprehensiveSchema) SyncPersonalInfo() {
	if c.StructuredContent == nil {
		return
	}
	c.StructuredContent.PersonalInfo = personalInfoFrom(c.CVHeader, c.StructuredContent.PersonalInfo)
}

func personalInfoFrom(h CVHeader, base PersonalInfo) PersonalInfo {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&base.Name, h.Name)
	set(&base.Title, h.Title)
	set(&base.Email, Deref(h.Email))
	set(&base.Phone, Deref(h.Phone))
	set(&base.Location, Deref(h.Location))
	set(&base.LinkedIn, Deref(h.LinkedIn))
	set(&base.GitHub, Deref(h.GitHub))
	set(&base.Website, Deref(h.Website))
	return base
}

// splitListItems splits bullet, comma or newline separated text into trimmed items
func splitListItems(content string) []string {
	var items []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		if line == "" {
			continue
		}
		for _, part := range strings.Split(line, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	}
	return items
}
