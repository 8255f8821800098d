package scoring

import (
	"time"

	"github.com/jonathan/cv-refiner/internal/types"
)

// History is an append-only, chronologically ordered log of score snapshots.
// It is not safe for concurrent use; the store serializes access.
type History struct {
	entries []types.ScoreHistoryEntry
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Append records a snapshot. The score map is copied.
func (h *History) Append(at time.Time, overall int, sections map[string]int, message string) types.ScoreHistoryEntry {
	entry := types.ScoreHistoryEntry{
		Timestamp:     at,
		OverallScore:  overall,
		SectionScores: sections,
		Message:       message,
	}.Clone()
	h.entries = append(h.entries, entry)
	return entry.Clone()
}

// Entries returns a copy of all entries in insertion order.
func (h *History) Entries() []types.ScoreHistoryEntry {
	out := make([]types.ScoreHistoryEntry, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.Clone()
	}
	return out
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Latest returns the most recent entry.
func (h *History) Latest() (types.ScoreHistoryEntry, bool) {
	if len(h.entries) == 0 {
		return types.ScoreHistoryEntry{}, false
	}
	return h.entries[len(h.entries)-1].Clone(), true
}

// Reset drops every entry.
func (h *History) Reset() {
	h.entries = nil
}

// Restore replaces the log with previously persisted entries.
func (h *History) Restore(entries []types.ScoreHistoryEntry) {
	h.entries = make([]types.ScoreHistoryEntry, len(entries))
	for i, e := range entries {
		h.entries[i] = e.Clone()
	}
}
