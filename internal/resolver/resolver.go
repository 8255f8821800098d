// Package resolver maps user- or model-supplied section identifiers to existing CV sections.
package resolver

import (
	"strings"
	"unicode"
)

// Tier identifies which strategy produced a match
type Tier string

const (
	// TierNone means no section matched
	TierNone Tier = "none"
	// TierExact is case-sensitive name equality
	TierExact Tier = "exact"
	// TierAlias is a match through the curated alias table
	TierAlias Tier = "alias"
	// TierFuzzy is normalized substring containment
	TierFuzzy Tier = "fuzzy"
)

// Match is the outcome of Resolve. Index is -1 when nothing matched.
type Match struct {
	Index int
	Tier  Tier
}

// NotFound is the Match returned when no tier matches.
var NotFound = Match{Index: -1, Tier: TierNone}

// Found reports whether a section was matched.
func (m Match) Found() bool {
	return m.Index >= 0
}

// Resolve finds the section in names that target refers to.
// Names are tried in slice order, so ties resolve to the earliest section.
func Resolve(target string, names []string) Match {
	for i, name := range names {
		if name == target {
			return Match{Index: i, Tier: TierExact}
		}
	}

	if group, ok := lookupGroup(target); ok {
		for i, name := range names {
			if group.contains(name) {
				return Match{Index: i, Tier: TierAlias}
			}
		}
	}

	normalizedTarget := Normalize(target)
	if normalizedTarget == "" {
		return NotFound
	}
	normalized := make([]string, len(names))
	for i, name := range names {
		normalized[i] = Normalize(name)
	}
	// A candidate that contains the whole target is a closer match than one the target merely contains.
	for i, candidate := range normalized {
		if candidate != "" && strings.Contains(candidate, normalizedTarget) {
			return Match{Index: i, Tier: TierFuzzy}
		}
	}
	for i, candidate := range normalized {
		if candidate != "" && strings.Contains(normalizedTarget, candidate) {
			return Match{Index: i, Tier: TierFuzzy}
		}
	}

	return NotFound
}

// Canonical returns the canonical group key name belongs to, or "" when it is not in the alias table.
func Canonical(name string) string {
	if group, ok := lookupGroup(name); ok {
		return group.canonical
	}
	return ""
}

// Normalize lower-cases s and strips every non-alphanumeric rune.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func lookupGroup(name string) (aliasGroup, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return aliasGroup{}, false
	}
	for _, group := range sectionAliases {
		if group.contains(key) {
			return group, true
		}
	}
	return aliasGroup{}, false
}

func (g aliasGroup) contains(name string) bool {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, g.canonical) {
		return true
	}
	for _, alias := range g.aliases {
		if strings.EqualFold(name, alias) {
			return true
		}
	}
	return false
}
