package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/cv-refiner/internal/cvheader"
	"github.com/jonathan/cv-refiner/internal/resolver"
	"github.com/jonathan/cv-refiner/internal/scoring"
	"github.com/jonathan/cv-refiner/internal/types"
)

// Pseudo targets that address the header block instead of a section
const (
	targetContactInfo        = "contact_info"
	targetContactInformation = "contact information"
	targetHeader             = "header"
)

// History messages
const (
	messageSectionReplaced = "Section updated: %s"
	messageChatUpdate      = "Chat update"
)

// professionalSummaryOrder is where a newly created professional summary is placed
const professionalSummaryOrder = 2

// ChatOutcome reports what a chat batch did.
type ChatOutcome struct {
	// Changed lists the identifiers whose content, name or header fields changed
	Changed []string
	// Skipped lists update targets that could not be applied
	Skipped []string
	// ScoreChanged reports whether any section score or the overall score moved
	ScoreChanged bool
}

// tx is the working state of one mutation batch
type tx struct {
	result         *types.AnalysisResult
	editing        string
	logger         *zap.Logger
	changed        []string
	patched        bool
	historyMessage string
}

func (t *tx) touch(name string) {
	for _, c := range t.changed {
		if c == name {
			return
		}
	}
	t.changed = append(t.changed, name)
}

// Patch shallow-merges top-level fields into the loaded result. Section arrays are never touched.
func (s *Store) Patch(p types.AnalysisPatch) error {
	if p.IsEmpty() {
		return nil
	}
	return s.update("patch", nil, func(t *tx) error {
		if p.OverallScore != nil {
			t.result.SetOverallScore(*p.OverallScore)
		}
		if p.Summary != nil {
			t.result.Summary = *p.Summary
		}
		if p.ATSCompatibility != nil {
			ats := *p.ATSCompatibility
			ats.Suggestions = append([]string(nil), ats.Suggestions...)
			t.result.ATSCompatibility = ats
		}
		if p.StructuredContent != nil {
			if t.result.Kind() == types.SchemaComprehensive {
				t.result.Comprehensive.StructuredContent = p.StructuredContent.Clone()
			} else {
				t.logger.Warn("structured content ignored for legacy schema")
			}
		}
		t.patched = true
		return nil
	})
}

// ReplaceSection replaces the legacy section named exactly name, recomputes the overall
// score, clears the editing marker and records a history entry.
func (s *Store) ReplaceSection(name string, section types.CVSection) error {
	return s.update("replace_section", nil, func(t *tx) error { return t.replaceSection(name, section) })
}

// ReplaceSectionAt is ReplaceSection guarded against a Reset or ingest after gen was captured.
func (s *Store) ReplaceSectionAt(gen uint64, name string, section types.CVSection) error {
	return s.update("replace_section", &gen, func(t *tx) error { return t.replaceSection(name, section) })
}

func (t *tx) replaceSection(name string, section types.CVSection) error {
	if t.result.Kind() != types.SchemaLegacy {
		return errSchemaMismatch
	}
	sections := t.result.Legacy.Sections
	idx := -1
	for i := range sections {
		if sections[i].SectionName == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrSectionNotFound, name)
	}
	if section.SectionName == "" {
		section.SectionName = name
	}
	for i := range sections {
		if i != idx && sections[i].SectionName == section.SectionName {
			return fmt.Errorf("%w: %q", ErrDuplicateSection, section.SectionName)
		}
	}

	sections[idx] = section
	t.recomputeOverall()
	t.touch(section.SectionName)
	t.editing = ""
	t.historyMessage = fmt.Sprintf(messageSectionReplaced, section.SectionName)
	return nil
}

// UpdateSectionContent replaces the content of the section target resolves to.
//
// For comprehensive results the contact_info and header pseudo targets are parsed into the
// header block instead, and an unresolved target creates a new section. For legacy results
// an unresolved target is ErrSectionNotFound.
func (s *Store) UpdateSectionContent(target, content string) error {
	return s.update("update_section_content", nil, func(t *tx) error { return t.setContent(target, content) })
}

func (t *tx) setContent(target, content string) error {
	switch t.result.Kind() {
	case types.SchemaComprehensive:
		c := t.result.Comprehensive
		switch strings.ToLower(strings.TrimSpace(target)) {
		case targetContactInfo, targetContactInformation:
			t.mergeHeader(cvheader.ParseContactBlock(content))
			return nil
		case targetHeader:
			t.mergeHeader(cvheader.ParseHeaderBlock(content))
			return nil
		}

		match := resolver.Resolve(target, comprehensiveNames(c))
		if match.Found() {
			section := &c.OriginalCVSections[match.Index]
			section.Content = content
			t.touch(section.SectionName)
			return nil
		}
		t.createSection(target, content)
		return nil

	case types.SchemaLegacy:
		sections := t.result.Legacy.Sections
		match := resolver.Resolve(target, legacyNames(sections))
		if !match.Found() {
			return fmt.Errorf("%w: %q", ErrSectionNotFound, target)
		}
		sections[match.Index].Content = content
		t.touch(sections[match.Index].SectionName)
		return nil
	}
	return errSchemaMismatch
}

func (t *tx) mergeHeader(partial types.PartialCVHeader) {
	if partial.IsEmpty() {
		return
	}
	c := t.result.Comprehensive
	merged := c.CVHeader.Merge(partial)
	if merged.Equal(c.CVHeader) {
		return
	}
	c.CVHeader = merged
	c.SyncPersonalInfo()
	t.touch(types.HeaderIdentifier)
}

// createSection appends a new comprehensive section. A professional summary goes to order 2,
// pushing every section at order 2 or later down by one; anything else goes last.
func (t *tx) createSection(name, content string) {
	c := t.result.Comprehensive
	maxOrder := 0
	for _, s := range c.OriginalCVSections {
		if s.Order > maxOrder {
			maxOrder = s.Order
		}
	}

	order := maxOrder + 1
	if resolver.Canonical(name) == resolver.GroupProfessionalSummary && order > professionalSummaryOrder {
		order = professionalSummaryOrder
		for i := range c.OriginalCVSections {
			if c.OriginalCVSections[i].Order >= professionalSummaryOrder {
				c.OriginalCVSections[i].Order++
			}
		}
	}

	c.OriginalCVSections = append(c.OriginalCVSections, types.OriginalCVSection{
		SectionName: name,
		Content:     content,
		Order:       order,
	})
	t.touch(name)
	t.logger.Info("section created", zap.String("section", name), zap.Int("order", order))
}

// RenameSections renames every section whose name is a key of renames.
func (s *Store) RenameSections(renames map[string]string) error {
	if len(renames) == 0 {
		return nil
	}
	return s.update("rename_sections", nil, func(t *tx) error {
		t.rename(renames)
		return nil
	})
}

// rename applies renames and returns the old names it had to skip because the
// new name would collide with another section.
func (t *tx) rename(renames map[string]string) []string {
	var names []string
	switch t.result.Kind() {
	case types.SchemaLegacy:
		names = legacyNames(t.result.Legacy.Sections)
	case types.SchemaComprehensive:
		names = comprehensiveNames(t.result.Comprehensive)
	default:
		return nil
	}

	final := make([]string, len(names))
	for i, name := range names {
		final[i] = name
		if to, ok := renames[name]; ok && to != "" {
			final[i] = to
		}
	}
	count := make(map[string]int, len(final))
	for _, name := range final {
		count[name]++
	}

	var (
		skipped []string
		applied = make(map[int]string)
	)
	for i, name := range names {
		if final[i] == name {
			continue
		}
		if count[final[i]] > 1 {
			t.logger.Warn("rename skipped, target name already in use",
				zap.String("from", name), zap.String("to", final[i]))
			skipped = append(skipped, name)
			continue
		}
		applied[i] = final[i]
	}
	if len(applied) == 0 {
		return skipped
	}

	switch t.result.Kind() {
	case types.SchemaLegacy:
		for i, to := range applied {
			t.result.Legacy.Sections[i].SectionName = to
		}
	case types.SchemaComprehensive:
		c := t.result.Comprehensive
		// scores move in one pass so swaps and chains never overwrite each other
		scores := make(map[string]int, len(c.SectionScores))
		for name, score := range c.SectionScores {
			scores[name] = score
		}
		for i := range applied {
			delete(scores, names[i])
		}
		for i, to := range applied {
			if score, ok := c.SectionScores[names[i]]; ok {
				scores[to] = score
			}
			c.OriginalCVSections[i].SectionName = to
		}
		c.SectionScores = scores
	}
	for i := range names {
		if to, ok := applied[i]; ok {
			t.touch(to)
		}
	}
	return skipped
}

// ApplyChatUpdate applies a chat reply as one batch: renames, then content updates in
// payload order, then score improvements and an overall recompute. A history entry is
// recorded only when a score moved.
func (s *Store) ApplyChatUpdate(u types.ChatUpdate) (ChatOutcome, error) {
	return s.applyChat(nil, u)
}

// ApplyChatUpdateAt is ApplyChatUpdate guarded against a Reset or ingest after gen was captured.
func (s *Store) ApplyChatUpdateAt(gen uint64, u types.ChatUpdate) (ChatOutcome, error) {
	return s.applyChat(&gen, u)
}

func (s *Store) applyChat(gen *uint64, u types.ChatUpdate) (ChatOutcome, error) {
	var outcome ChatOutcome
	err := s.update("chat_update", gen, func(t *tx) error {
		if t.result.Kind() == types.SchemaNone {
			return errSchemaMismatch
		}
		outcome.Skipped = append(outcome.Skipped, t.rename(u.Renames)...)

		for _, update := range u.Updates {
			if err := t.setContent(update.SectionName, update.Content); err != nil {
				if !errors.Is(err, ErrSectionNotFound) {
					return err
				}
				t.logger.Warn("chat update skipped, section not found", zap.String("section", update.SectionName))
				outcome.Skipped = append(outcome.Skipped, update.SectionName)
			}
		}

		before := t.result.SectionScores()
		previousOverall := t.result.OverallScoreValue()
		for _, name := range sortedScoreKeys(u.ScoreImprovements) {
			if !t.setScore(name, u.ScoreImprovements[name]) {
				t.logger.Warn("score improvement skipped, section not found", zap.String("section", name))
				outcome.Skipped = append(outcome.Skipped, name)
			}
		}
		if !scoresEqual(before, t.result.SectionScores()) {
			t.recomputeOverall()
		}
		outcome.ScoreChanged = !scoresEqual(before, t.result.SectionScores()) ||
			previousOverall != t.result.OverallScoreValue()
		if outcome.ScoreChanged {
			t.historyMessage = messageChatUpdate
		}
		outcome.Changed = append([]string(nil), t.changed...)
		return nil
	})
	if err != nil {
		return ChatOutcome{}, err
	}
	return outcome, nil
}

// setScore resolves target and sets its score, clamped to 0..100
func (t *tx) setScore(target string, score int) bool {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	switch t.result.Kind() {
	case types.SchemaLegacy:
		sections := t.result.Legacy.Sections
		match := resolver.Resolve(target, legacyNames(sections))
		if !match.Found() {
			return false
		}
		sections[match.Index].Score = score
		return true
	case types.SchemaComprehensive:
		c := t.result.Comprehensive
		name := target
		if match := resolver.Resolve(target, comprehensiveNames(c)); match.Found() {
			name = c.OriginalCVSections[match.Index].SectionName
		} else if _, ok := c.SectionScores[target]; !ok {
			return false
		}
		c.SectionScores[name] = score
		return true
	}
	return false
}

// recomputeOverall sets the overall score to the rounded mean of the section scores.
// With no scored sections the previous overall score is kept.
func (t *tx) recomputeOverall() {
	scores := t.result.SectionScores()
	t.result.SetOverallScore(scoring.RecomputeFromMap(scores, t.result.OverallScoreValue()))
}

func legacyNames(sections []types.CVSection) []string {
	names := make([]string, len(sections))
	for i, s := range sections {
		names[i] = s.SectionName
	}
	return names
}

// comprehensiveNames lists section names in stored order, which is the order the resolver
// breaks ties in. Display order is by Order and is not used here.
func comprehensiveNames(c *types.ComprehensiveSchema) []string {
	names := make([]string, len(c.OriginalCVSections))
	for i, s := range c.OriginalCVSections {
		names[i] = s.SectionName
	}
	return names
}

func sortedScoreKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func scoresEqual(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
