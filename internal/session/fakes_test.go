package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/cv-refiner/internal/db"
	"github.com/jonathan/cv-refiner/internal/types"
)

func legacyResult() *types.AnalysisResult {
	return &types.AnalysisResult{
		OverallScore: 70,
		Summary:      "Decent CV",
		Legacy: &types.LegacySchema{Sections: []types.CVSection{
			{SectionName: "Experience", Score: 60, Content: "5 years"},
			{SectionName: "Skills", Score: 80, Content: "Go"},
		}},
	}
}

func comprehensiveResult() *types.AnalysisResult {
	return &types.AnalysisResult{
		Summary: "Strong CV",
		Comprehensive: &types.ComprehensiveSchema{
			OriginalCVSections: []types.OriginalCVSection{
				{SectionName: "HEADER", Content: "Jane Doe", Order: 1},
				{SectionName: "EXPERIENCE", Content: "5 years", Order: 2},
				{SectionName: "SKILLS", Content: "Go", Order: 3},
			},
			CVHeader:       types.CVHeader{Name: "Jane Doe"},
			SectionScores:  map[string]int{"EXPERIENCE": 60, "SKILLS": 80},
			OverallSummary: &types.OverallSummary{OverallScore: 70},
		},
	}
}

type fakeProducer struct {
	mu sync.Mutex

	analyze func(ctx context.Context, text string) (*types.AnalysisResult, error)
	chat    func(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error)
	edit    func(ctx context.Context, req types.EditRequest) (*types.EditResult, error)

	chatRequests []types.ChatRequest
	editRequests []types.EditRequest
	texts        []string
}

func (f *fakeProducer) Analyze(ctx context.Context, text string) (*types.AnalysisResult, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return f.analyze(ctx, text)
}

func (f *fakeProducer) Chat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	f.mu.Lock()
	f.chatRequests = append(f.chatRequests, req)
	f.mu.Unlock()
	return f.chat(ctx, req)
}

func (f *fakeProducer) EditSection(ctx context.Context, req types.EditRequest) (*types.EditResult, error) {
	f.mu.Lock()
	f.editRequests = append(f.editRequests, req)
	f.mu.Unlock()
	return f.edit(ctx, req)
}

type fakeRenderer struct {
	html string
}

func (f *fakeRenderer) RenderToPDF(_ context.Context, html string) ([]byte, error) {
	f.html = html
	return []byte("%PDF-1.4 fake"), nil
}

// memoryRepo is an in-memory Repository
type memoryRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*db.SessionRecord
	chat     map[uuid.UUID][]types.ChatMessage
	saves    int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		sessions: make(map[uuid.UUID]*db.SessionRecord),
		chat:     make(map[uuid.UUID][]types.ChatMessage),
	}
}

func (r *memoryRepo) SaveSession(_ context.Context, rec *db.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := *rec
	saved.Analysis = rec.Analysis.Clone()
	saved.ScoreHistory = append([]types.ScoreHistoryEntry(nil), rec.ScoreHistory...)
	r.sessions[rec.ID] = &saved
	r.saves++
	return nil
}

func (r *memoryRepo) LoadSession(_ context.Context, id uuid.UUID) (*db.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	loaded := *rec
	loaded.Analysis = rec.Analysis.Clone()
	return &loaded, nil
}

func (r *memoryRepo) DeleteSession(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	delete(r.chat, id)
	return nil
}

func (r *memoryRepo) AppendChatMessages(_ context.Context, id uuid.UUID, messages []types.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chat[id] = append(r.chat[id], messages...)
	return nil
}

func (r *memoryRepo) LoadChatMessages(_ context.Context, id uuid.UUID) ([]types.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.ChatMessage(nil), r.chat[id]...), nil
}

func (r *memoryRepo) ClearChatMessages(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.chat, id)
	return nil
}

func (r *memoryRepo) record(id uuid.UUID) *db.SessionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.sessions[id]
	if !ok {
		return nil
	}
	copied := *rec
	return &copied
}
