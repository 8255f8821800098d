package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Chat roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of the refinement conversation
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SectionUpdate replaces the content of one section, addressed by any name the resolver understands
type SectionUpdate struct {
	SectionName string `json:"section_name"`
	Content     string `json:"content"`
}

// SectionUpdates is the cv_updates object of a chat reply. It decodes from a JSON object and keeps
// the key order of the payload so updates are applied in the order the producer emitted them.
type SectionUpdates []SectionUpdate

// UnmarshalJSON decodes a {"name": "content"} object preserving key order.
func (u *SectionUpdates) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*u = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("cv_updates must be an object, got %v", tok)
	}

	out := SectionUpdates{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("cv_updates key must be a string, got %v", keyTok)
		}
		var content string
		if err := dec.Decode(&content); err != nil {
			return fmt.Errorf("cv_updates[%q]: %w", key, err)
		}
		out = append(out, SectionUpdate{SectionName: key, Content: content})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*u = out
	return nil
}

// MarshalJSON encodes the updates as a JSON object in slice order.
func (u SectionUpdates) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, update := range u {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(update.SectionName)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(update.Content)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ChatUpdate is the set of mutations a chat reply asks the store to apply as one batch
type ChatUpdate struct {
	Updates           SectionUpdates    `json:"cv_updates,omitempty"`
	Renames           map[string]string `json:"section_renames,omitempty"`
	ScoreImprovements map[string]int    `json:"score_improvements,omitempty"`
}

// IsEmpty reports whether the update carries no mutation.
func (u ChatUpdate) IsEmpty() bool {
	return len(u.Updates) == 0 && len(u.Renames) == 0 && len(u.ScoreImprovements) == 0
}

// ChatRequest is what the chat producer receives
type ChatRequest struct {
	Message  string          `json:"message"`
	Analysis *AnalysisResult `json:"analysis"`
	History  []ChatMessage   `json:"history"`
}

// ChatResponse is the chat producer's reply
type ChatResponse struct {
	Response          string            `json:"response"`
	CVUpdates         SectionUpdates    `json:"cv_updates,omitempty"`
	SectionRenames    map[string]string `json:"section_renames,omitempty"`
	ScoreImprovements map[string]int    `json:"score_improvements,omitempty"`
}

// Update extracts the store mutations carried by the reply.
func (r ChatResponse) Update() ChatUpdate {
	return ChatUpdate{
		Updates:           r.CVUpdates,
		Renames:           r.SectionRenames,
		ScoreImprovements: r.ScoreImprovements,
	}
}

// EditRequest asks the section editor to rewrite one section
type EditRequest struct {
	SectionName string          `json:"section_name"`
	Instruction string          `json:"instruction"`
	Content     string          `json:"content"`
	Analysis    *AnalysisResult `json:"analysis"`
}

// EditResult is the section editor's reply
type EditResult struct {
	UpdatedSection CVSection `json:"updated_section"`
	UpdatedScore   int       `json:"updated_score"`
}
