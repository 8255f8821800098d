package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/cv-refiner/internal/analysis"
	"github.com/jonathan/cv-refiner/internal/events"
	"github.com/jonathan/cv-refiner/internal/highlight"
	"github.com/jonathan/cv-refiner/internal/ingestion"
	"github.com/jonathan/cv-refiner/internal/rendering"
	"github.com/jonathan/cv-refiner/internal/resolver"
	"github.com/jonathan/cv-refiner/internal/store"
	"github.com/jonathan/cv-refiner/internal/types"
)

// ChatReply is the outcome of one chat turn
type ChatReply struct {
	Response     string                `json:"response"`
	Changed      []string              `json:"changed,omitempty"`
	Skipped      []string              `json:"skipped,omitempty"`
	ScoreChanged bool                  `json:"score_changed"`
	Analysis     *types.AnalysisResult `json:"analysis"`
}

// HighlightState is the detector's view of what recently changed
type HighlightState struct {
	Highlights []string          `json:"highlights"`
	Renames    map[string]string `json:"renames,omitempty"`
	State      highlight.State   `json:"state"`
	Editing    string            `json:"editing,omitempty"`
}

// Service runs the asynchronous producer calls of a session and applies their results.
// Producer and renderer calls run outside any store lock; every result is applied against
// the generation captured before the call, so a reset or a new analysis in between discards it.
type Service struct {
	sessions *Manager
	producer analysis.Producer
	renderer rendering.PDFRenderer
	logger   *zap.Logger
}

// NewService creates a service. renderer may be nil, in which case PDF export is unavailable.
func NewService(sessions *Manager, producer analysis.Producer, renderer rendering.PDFRenderer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessions: sessions,
		producer: producer,
		renderer: renderer,
		logger:   logger,
	}
}

// Sessions returns the session registry.
func (s *Service) Sessions() *Manager {
	return s.sessions
}

// CreateSession starts an empty session.
func (s *Service) CreateSession(ctx context.Context) (*Session, error) {
	return s.sessions.Create(ctx)
}

// DeleteSession tears a session down and forgets it.
func (s *Service) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return s.sessions.Delete(ctx, id)
}

// Reset clears the analysis, history and conversation of a session. Producer calls still
// in flight for the session are discarded when they return.
func (s *Service) Reset(ctx context.Context, id uuid.UUID) error {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	// metadata goes first so the checkpoint the reset triggers carries none
	sess.clearConversation()
	sess.Store.Reset()
	if repo := s.sessions.repo; repo != nil {
		if err := repo.ClearChatMessages(ctx, id); err != nil {
			return fmt.Errorf("failed to clear chat history: %w", err)
		}
	}
	return nil
}

// UploadCV extracts the text of an uploaded document and analyzes it.
func (s *Service) UploadCV(ctx context.Context, id uuid.UUID, data []byte, mimeType, fileName string) (*types.AnalysisResult, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	text, md, err := ingestion.ExtractText(ctx, data, mimeType, fileName)
	if err != nil {
		return nil, err
	}
	s.logger.Info("cv extracted",
		zap.String("session_id", id.String()),
		zap.String("format", string(md.Format)),
		zap.Int("chars", md.Chars),
	)
	return s.analyze(ctx, sess, text, md)
}

// AnalyzeText analyzes pasted CV text.
func (s *Service) AnalyzeText(ctx context.Context, id uuid.UUID, text string) (*types.AnalysisResult, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cleaned := ingestion.CleanText(text)
	if cleaned == "" {
		return nil, ingestion.ErrEmptyDocument
	}
	return s.analyze(ctx, sess, cleaned, ingestion.NewMetadata(cleaned, "", ingestion.FormatText, len(text)))
}

func (s *Service) analyze(ctx context.Context, sess *Session, text string, md *ingestion.Metadata) (*types.AnalysisResult, error) {
	gen := sess.Store.Generation()
	result, err := s.producer.Analyze(ctx, text)
	if err != nil {
		s.logger.Warn("analysis failed", zap.String("session_id", sess.ID.String()), zap.Error(err))
		return nil, err
	}

	previous := sess.Metadata()
	sess.setMetadata(md)
	if err := sess.Store.IngestAt(gen, result); err != nil {
		sess.setMetadata(previous)
		s.logStale(sess, analysis.OpAnalyze, err)
		return nil, err
	}
	return sess.Store.Current(), nil
}

// IngestAnalysis loads a complete analysis produced elsewhere.
func (s *Service) IngestAnalysis(ctx context.Context, id uuid.UUID, result *types.AnalysisResult) (*types.AnalysisResult, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sess.Store.Ingest(result); err != nil {
		return nil, err
	}
	return sess.Store.Current(), nil
}

// Analysis returns the loaded analysis. A comprehensive analysis without structured content
// gets one derived from its header and sections; the stored result is left as it is.
func (s *Service) Analysis(ctx context.Context, id uuid.UUID) (*types.AnalysisResult, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	current := sess.Store.Current()
	if current == nil {
		return nil, ErrNoAnalysis
	}
	if c := current.Comprehensive; c != nil && c.StructuredContent == nil {
		derived := c.StructuredContentOrDerived()
		c.StructuredContent = &derived
	}
	return current, nil
}

// Patch shallow-merges top-level analysis fields.
func (s *Service) Patch(ctx context.Context, id uuid.UUID, patch types.AnalysisPatch) (*types.AnalysisResult, error) {
	return s.mutate(ctx, id, func(st *store.Store) error { return st.Patch(patch) })
}

// ReplaceSection replaces a legacy section wholesale.
func (s *Service) ReplaceSection(ctx context.Context, id uuid.UUID, name string, section types.CVSection) (*types.AnalysisResult, error) {
	return s.mutate(ctx, id, func(st *store.Store) error { return st.ReplaceSection(name, section) })
}

// UpdateContent replaces the content of the section target resolves to.
func (s *Service) UpdateContent(ctx context.Context, id uuid.UUID, target, content string) (*types.AnalysisResult, error) {
	return s.mutate(ctx, id, func(st *store.Store) error { return st.UpdateSectionContent(target, content) })
}

// RenameSections applies a batch of renames.
func (s *Service) RenameSections(ctx context.Context, id uuid.UUID, renames map[string]string) (*types.AnalysisResult, error) {
	return s.mutate(ctx, id, func(st *store.Store) error { return st.RenameSections(renames) })
}

func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(*store.Store) error) (*types.AnalysisResult, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.Store.Loaded() {
		return nil, ErrNoAnalysis
	}
	if err := fn(sess.Store); err != nil {
		return nil, err
	}
	return sess.Store.Current(), nil
}

// Chat sends a user message with the current analysis and applies the reply's updates as one batch.
// The exchange is recorded in the transcript only when the reply was applied.
func (s *Service) Chat(ctx context.Context, id uuid.UUID, message string) (*ChatReply, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	snap := sess.Store.Snapshot()
	if !snap.Loaded() {
		return nil, ErrNoAnalysis
	}
	gen, current := snap.Generation, snap.Result
	asked := s.sessions.clock.Now().UTC()

	resp, err := s.producer.Chat(ctx, types.ChatRequest{
		Message:  message,
		Analysis: current,
		History:  sess.History(),
	})
	if err != nil {
		s.logger.Warn("chat failed", zap.String("session_id", id.String()), zap.Error(err))
		return nil, err
	}

	outcome, err := sess.Store.ApplyChatUpdateAt(gen, resp.Update())
	if err != nil {
		s.logStale(sess, analysis.OpChat, err)
		return nil, err
	}

	exchange := []types.ChatMessage{
		{Role: types.RoleUser, Content: message, Timestamp: asked},
		{Role: types.RoleAssistant, Content: resp.Response, Timestamp: s.sessions.clock.Now().UTC()},
	}
	sess.appendChat(exchange...)
	if repo := s.sessions.repo; repo != nil {
		if err := repo.AppendChatMessages(ctx, id, exchange); err != nil {
			s.logger.Warn("failed to persist chat messages", zap.String("session_id", id.String()), zap.Error(err))
		}
	}

	s.logger.Info("chat applied",
		zap.String("session_id", id.String()),
		zap.Strings("changed", outcome.Changed),
		zap.Strings("skipped", outcome.Skipped),
		zap.Bool("score_changed", outcome.ScoreChanged),
	)
	return &ChatReply{
		Response:     resp.Response,
		Changed:      outcome.Changed,
		Skipped:      outcome.Skipped,
		ScoreChanged: outcome.ScoreChanged,
		Analysis:     sess.Store.Current(),
	}, nil
}

// EditSection asks the section editor to rework the section name resolves to. The section is
// marked as being edited for the duration of the call.
func (s *Service) EditSection(ctx context.Context, id uuid.UUID, name, instruction string) (*types.EditResult, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	snap := sess.Store.Snapshot()
	if !snap.Loaded() {
		return nil, ErrNoAnalysis
	}
	gen := snap.Generation

	names := make([]string, len(snap.Sections))
	for i, section := range snap.Sections {
		names[i] = section.Name
	}
	match := resolver.Resolve(name, names)
	if !match.Found() {
		return nil, fmt.Errorf("%w: %q", store.ErrSectionNotFound, name)
	}
	target := snap.Sections[match.Index]

	sess.Store.SetEditing(target.Name)
	defer func() {
		if sess.Store.Editing() == target.Name {
			sess.Store.SetEditing("")
		}
	}()

	result, err := s.producer.EditSection(ctx, types.EditRequest{
		SectionName: target.Name,
		Instruction: instruction,
		Content:     target.Content,
		Analysis:    snap.Result,
	})
	if err != nil {
		s.logger.Warn("section edit failed",
			zap.String("session_id", id.String()),
			zap.String("section", target.Name),
			zap.Error(err),
		)
		return nil, err
	}

	switch snap.Kind {
	case types.SchemaLegacy:
		err = sess.Store.ReplaceSectionAt(gen, target.Name, result.UpdatedSection)
	default:
		_, err = sess.Store.ApplyChatUpdateAt(gen, types.ChatUpdate{
			Updates:           types.SectionUpdates{{SectionName: target.Name, Content: result.UpdatedSection.Content}},
			ScoreImprovements: map[string]int{target.Name: result.UpdatedSection.Score},
		})
	}
	if err != nil {
		s.logStale(sess, analysis.OpEdit, err)
		return nil, err
	}
	return result, nil
}

// Highlights returns the current highlight state.
func (s *Service) Highlights(ctx context.Context, id uuid.UUID) (*HighlightState, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &HighlightState{
		Highlights: sess.Detector.Highlights(),
		Renames:    sess.Detector.Renames(),
		State:      sess.Detector.State(),
		Editing:    sess.Store.Editing(),
	}, nil
}

// ClearHighlights ends the current highlight cycle.
func (s *Service) ClearHighlights(ctx context.Context, id uuid.UUID) error {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	sess.Detector.Clear()
	return nil
}

// ScoreHistory returns the score history in chronological order.
func (s *Service) ScoreHistory(ctx context.Context, id uuid.UUID) ([]types.ScoreHistoryEntry, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Store.ScoreHistory(), nil
}

// Snapshot returns a consistent view of the session's sections.
func (s *Service) Snapshot(ctx context.Context, id uuid.UUID) (store.Snapshot, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return store.Snapshot{}, err
	}
	return sess.Store.Snapshot(), nil
}

// ExportHTML renders the current analysis as a standalone HTML document.
func (s *Service) ExportHTML(ctx context.Context, id uuid.UUID, opts rendering.HTMLOptions) (string, error) {
	snap, err := s.Snapshot(ctx, id)
	if err != nil {
		return "", err
	}
	html, err := rendering.RenderHTML(snap, opts)
	if errors.Is(err, rendering.ErrNothingToRender) {
		return "", ErrNoAnalysis
	}
	return html, err
}

// ExportPDF renders the current analysis and prints it to PDF.
func (s *Service) ExportPDF(ctx context.Context, id uuid.UUID, opts rendering.HTMLOptions) ([]byte, error) {
	if s.renderer == nil {
		return nil, ErrPDFUnavailable
	}
	html, err := s.ExportHTML(ctx, id, opts)
	if err != nil {
		return nil, err
	}
	return s.renderer.RenderToPDF(ctx, html)
}

// ExportText renders the current analysis as plain text.
func (s *Service) ExportText(ctx context.Context, id uuid.UUID) (string, error) {
	html, err := s.ExportHTML(ctx, id, rendering.HTMLOptions{})
	if err != nil {
		return "", err
	}
	return rendering.PlainText(html)
}

// Subscribe delivers the session's events to h until the returned function is called.
func (s *Service) Subscribe(ctx context.Context, id uuid.UUID, h events.Handler) (func(), error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Store.Bus().Subscribe(h), nil
}

func (s *Service) logStale(sess *Session, op string, err error) {
	if errors.Is(err, store.ErrStaleGeneration) {
		s.logger.Info("discarding result for reset session",
			zap.String("session_id", sess.ID.String()),
			zap.String("operation", op),
		)
	}
}
