package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/cv-refiner/internal/types"
)

// SessionRecord is the persisted state of one CV session
type SessionRecord struct {
	ID           uuid.UUID                 `json:"id"`
	Generation   uint64                    `json:"generation"`
	Analysis     *types.AnalysisResult     `json:"analysis,omitempty"`
	ScoreHistory []types.ScoreHistoryEntry `json:"score_history"`
	Metadata     json.RawMessage           `json:"metadata,omitempty"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// SchemaKind reports which analysis schema the record holds
func (r *SessionRecord) SchemaKind() types.SchemaKind {
	if r.Analysis == nil {
		return types.SchemaNone
	}
	return r.Analysis.Kind()
}

// SessionSummary is a lightweight listing row
type SessionSummary struct {
	ID           uuid.UUID        `json:"id"`
	SchemaKind   types.SchemaKind `json:"schema_kind"`
	OverallScore *int             `json:"overall_score,omitempty"`
	HistoryLen   int              `json:"history_len"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
