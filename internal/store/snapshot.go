package store

import (
	"time"

	"github.com/jonathan/cv-refiner/internal/types"
)

// SectionView is one section as observers see it, independent of schema.
type SectionView struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Order   int    `json:"order"`
	Score   int    `json:"score"`
}

// Snapshot is a consistent, read-only view of the store taken under its lock.
type Snapshot struct {
	Generation uint64                   `json:"generation"`
	Kind       types.SchemaKind         `json:"kind"`
	Sections   []SectionView            `json:"sections"`
	Header     *types.CVHeader          `json:"header,omitempty"`
	Structured *types.StructuredContent `json:"structured_content,omitempty"`
	LastUpdate time.Time                `json:"last_update"`
	Editing    string                   `json:"editing,omitempty"`
	Result     *types.AnalysisResult    `json:"-"`
}

// Loaded reports whether the snapshot holds a result.
func (s Snapshot) Loaded() bool {
	return s.Result != nil
}

// Snapshot returns the current sections in display order with the header and the full result.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Generation: s.generation,
		Kind:       s.result.Kind(),
		LastUpdate: s.lastUpdate,
		Editing:    s.editing,
		Result:     s.result.Clone(),
	}

	switch snap.Kind {
	case types.SchemaLegacy:
		for i, section := range s.result.Legacy.Sections {
			snap.Sections = append(snap.Sections, SectionView{
				Name:    section.SectionName,
				Content: section.Content,
				Order:   i + 1,
				Score:   section.Score,
			})
		}
	case types.SchemaComprehensive:
		c := s.result.Comprehensive
		for _, section := range c.SortedSections() {
			snap.Sections = append(snap.Sections, SectionView{
				Name:    section.SectionName,
				Content: section.Content,
				Order:   section.Order,
				Score:   c.SectionScores[section.SectionName],
			})
		}
		header := c.CVHeader.Clone()
		snap.Header = &header
		structured := c.StructuredContentOrDerived()
		snap.Structured = &structured
	}
	return snap
}

// Checkpoint is the durable part of the store, taken under one lock.
type Checkpoint struct {
	Generation uint64
	Result     *types.AnalysisResult
	History    []types.ScoreHistoryEntry
}

// Checkpoint returns deep copies of the result and score history together.
func (s *Store) Checkpoint() Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Checkpoint{
		Generation: s.generation,
		Result:     s.result.Clone(),
		History:    s.history.Entries(),
	}
}
