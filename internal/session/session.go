// Package session manages live CV refinement sessions: their lifecycle in a TTL registry,
// persistence of their state, and the orchestration of producer calls against their store.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/cv-refiner/internal/db"
	"github.com/jonathan/cv-refiner/internal/highlight"
	"github.com/jonathan/cv-refiner/internal/ingestion"
	"github.com/jonathan/cv-refiner/internal/store"
	"github.com/jonathan/cv-refiner/internal/types"
)

// Repository persists session state. *db.DB implements it.
type Repository interface {
	SaveSession(ctx context.Context, rec *db.SessionRecord) error
	LoadSession(ctx context.Context, id uuid.UUID) (*db.SessionRecord, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	AppendChatMessages(ctx context.Context, id uuid.UUID, messages []types.ChatMessage) error
	LoadChatMessages(ctx context.Context, id uuid.UUID) ([]types.ChatMessage, error)
	ClearChatMessages(ctx context.Context, id uuid.UUID) error
}

// Session is one user's refinement workspace.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Store     *store.Store
	Detector  *highlight.Detector

	mu       sync.Mutex
	chat     []types.ChatMessage
	metadata *ingestion.Metadata

	persister *persister
	closeOnce sync.Once
	closed    atomic.Bool
}

// History returns a copy of the chat transcript.
func (s *Session) History() []types.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.ChatMessage(nil), s.chat...)
}

// Metadata returns the metadata of the last uploaded document, if any.
func (s *Session) Metadata() *ingestion.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metadata == nil {
		return nil
	}
	m := *s.metadata
	return &m
}

func (s *Session) appendChat(messages ...types.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = append(s.chat, messages...)
}

func (s *Session) setMetadata(m *ingestion.Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = m
}

func (s *Session) clearConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = nil
	s.metadata = nil
}

// encodedMetadata is the persisted form of the document metadata
func (s *Session) encodedMetadata() json.RawMessage {
	m := s.Metadata()
	if m == nil {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return data
}

// record builds the persisted form of the session from a store checkpoint
func (s *Session) record() *db.SessionRecord {
	cp := s.Store.Checkpoint()
	return &db.SessionRecord{
		ID:           s.ID,
		Generation:   cp.Generation,
		Analysis:     cp.Result,
		ScoreHistory: cp.History,
		Metadata:     s.encodedMetadata(),
		CreatedAt:    s.CreatedAt,
	}
}

// close stops persistence, resets the store so in-flight producer results are rejected,
// and stops the detector's timers. flush saves the final state before the reset.
func (s *Session) close(flush bool) {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.persister != nil {
			s.persister.stop(flush)
		}
		s.Store.Reset()
		s.Detector.Close()
	})
}
