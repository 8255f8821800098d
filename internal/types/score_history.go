package types

import "time"

// InitialAnalysisMessage labels the history entry appended on ingestion
const InitialAnalysisMessage = "Initial CV Analysis"

// ScoreHistoryEntry records the overall and per-section scores at a point in time
type ScoreHistoryEntry struct {
	Timestamp     time.Time      `json:"timestamp"`
	OverallScore  int            `json:"overall_score"`
	SectionScores map[string]int `json:"section_scores"`
	Message       string         `json:"message,omitempty"`
}

// Clone returns a copy whose score map is not shared.
func (e ScoreHistoryEntry) Clone() ScoreHistoryEntry {
	out := e
	out.SectionScores = make(map[string]int, len(e.SectionScores))
	for k, v := range e.SectionScores {
		out.SectionScores[k] = v
	}
	return out
}
