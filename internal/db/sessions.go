package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/cv-refiner/internal/types"
)

// SaveSession upserts the session row and replaces its score history in one transaction.
// The row's metadata is overwritten as well, so a record without metadata clears it.
func (db *DB) SaveSession(ctx context.Context, rec *SessionRecord) error {
	analysisJSON, err := marshalNullable(rec.Analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}
	var metadata []byte
	if len(rec.Metadata) > 0 {
		metadata = rec.Metadata
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO cv_sessions (id, generation, schema_kind, analysis, metadata)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		     generation = $2,
		     schema_kind = $3,
		     analysis = $4,
		     metadata = $5,
		     updated_at = NOW()`,
		rec.ID, int64(rec.Generation), string(rec.SchemaKind()), analysisJSON, metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", rec.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM score_history WHERE session_id = $1`, rec.ID); err != nil {
		return fmt.Errorf("failed to clear score history: %w", err)
	}
	rows, err := historyRows(rec.ID, rec.ScoreHistory)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"score_history"},
			[]string{"session_id", "seq", "recorded_at", "overall_score", "section_scores", "message"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("failed to write score history: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit session %s: %w", rec.ID, err)
	}
	return nil
}

// LoadSession retrieves a session with its score history. Returns nil when it does not exist.
func (db *DB) LoadSession(ctx context.Context, id uuid.UUID) (*SessionRecord, error) {
	var (
		rec          SessionRecord
		generation   int64
		analysisJSON []byte
		metadata     []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, generation, analysis, metadata, created_at, updated_at
		 FROM cv_sessions WHERE id = $1`,
		id,
	).Scan(&rec.ID, &generation, &analysisJSON, &metadata, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	rec.Generation = uint64(generation)
	if len(metadata) > 0 {
		rec.Metadata = metadata
	}
	if len(analysisJSON) > 0 {
		var analysis types.AnalysisResult
		if err := json.Unmarshal(analysisJSON, &analysis); err != nil {
			return nil, fmt.Errorf("failed to decode stored analysis for %s: %w", id, err)
		}
		rec.Analysis = &analysis
	}

	rec.ScoreHistory, err = db.loadHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (db *DB) loadHistory(ctx context.Context, id uuid.UUID) ([]types.ScoreHistoryEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT recorded_at, overall_score, section_scores, message
		 FROM score_history WHERE session_id = $1 ORDER BY seq`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load score history: %w", err)
	}
	defer rows.Close()

	var history []types.ScoreHistoryEntry
	for rows.Next() {
		var (
			entry      types.ScoreHistoryEntry
			scoresJSON []byte
			message    *string
		)
		if err := rows.Scan(&entry.Timestamp, &entry.OverallScore, &scoresJSON, &message); err != nil {
			return nil, fmt.Errorf("failed to scan score history: %w", err)
		}
		if len(scoresJSON) > 0 {
			if err := json.Unmarshal(scoresJSON, &entry.SectionScores); err != nil {
				return nil, fmt.Errorf("failed to decode section scores: %w", err)
			}
		}
		if message != nil {
			entry.Message = *message
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}

// DeleteSession removes a session and everything attached to it
func (db *DB) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM cv_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// ListSessions retrieves the most recently updated sessions
func (db *DB) ListSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT s.id, s.schema_kind, h.overall_score, COALESCE(c.n, 0), s.updated_at
		 FROM cv_sessions s
		 LEFT JOIN LATERAL (
		     SELECT overall_score FROM score_history
		     WHERE session_id = s.id ORDER BY seq DESC LIMIT 1
		 ) h ON TRUE
		 LEFT JOIN LATERAL (
		     SELECT COUNT(*) AS n FROM score_history WHERE session_id = s.id
		 ) c ON TRUE
		 ORDER BY s.updated_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var (
			s    SessionSummary
			kind string
		)
		if err := rows.Scan(&s.ID, &kind, &s.OverallScore, &s.HistoryLen, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.SchemaKind = types.SchemaKind(kind)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// AppendChatMessages stores messages after the ones already recorded for the session
func (db *DB) AppendChatMessages(ctx context.Context, id uuid.UUID, messages []types.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var next int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM chat_messages WHERE session_id = $1`, id,
	).Scan(&next); err != nil {
		return fmt.Errorf("failed to read chat sequence: %w", err)
	}

	for i, msg := range messages {
		createdAt := msg.Timestamp
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO chat_messages (session_id, seq, role, content, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			id, next+i, msg.Role, msg.Content, createdAt,
		); err != nil {
			return fmt.Errorf("failed to insert chat message: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// ClearChatMessages removes a session's transcript
func (db *DB) ClearChatMessages(ctx context.Context, id uuid.UUID) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM chat_messages WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear chat messages for %s: %w", id, err)
	}
	return nil
}

// LoadChatMessages returns a session's transcript in order
func (db *DB) LoadChatMessages(ctx context.Context, id uuid.UUID) ([]types.ChatMessage, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT role, content, created_at FROM chat_messages WHERE session_id = $1 ORDER BY seq`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat messages: %w", err)
	}
	defer rows.Close()

	var messages []types.ChatMessage
	for rows.Next() {
		var msg types.ChatMessage
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// historyRows converts score history into CopyFrom rows numbered from 1
func historyRows(id uuid.UUID, history []types.ScoreHistoryEntry) ([][]any, error) {
	rows := make([][]any, 0, len(history))
	for i, entry := range history {
		scores := entry.SectionScores
		if scores == nil {
			scores = map[string]int{}
		}
		scoresJSON, err := json.Marshal(scores)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal section scores: %w", err)
		}
		rows = append(rows, []any{id, i + 1, entry.Timestamp, entry.OverallScore, scoresJSON, nullIfEmpty(entry.Message)})
	}
	return rows, nil
}

func marshalNullable(v *types.AnalysisResult) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
