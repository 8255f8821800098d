// Package analysis provides the adapters to the external CV analysis, chat and section-edit
// producers. Every payload is checked against the embedded JSON Schemas and decoded into typed
// results before it is handed to the caller.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/cv-refiner/internal/llm"
	"github.com/jonathan/cv-refiner/internal/prompts"
	"github.com/jonathan/cv-refiner/internal/schemas"
	"github.com/jonathan/cv-refiner/internal/types"
	embedded "github.com/jonathan/cv-refiner/schemas"
)

const promptFile = "analysis.json"

// maxHistoryMessages bounds how much of the conversation is replayed to the model
const maxHistoryMessages = 20

// Operation names used in errors and logs
const (
	OpAnalyze = "analyze"
	OpChat    = "chat"
	OpEdit    = "edit_section"
)

// Producer generates analyses, chat replies and section edits.
type Producer interface {
	Analyze(ctx context.Context, cvText string) (*types.AnalysisResult, error)
	Chat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error)
	EditSection(ctx context.Context, req types.EditRequest) (*types.EditResult, error)
}

// Option configures a GeminiProducer.
type Option func(*GeminiProducer)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *GeminiProducer) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTimeout bounds every model call. Zero leaves the caller's deadline in charge.
func WithTimeout(timeout time.Duration) Option {
	return func(p *GeminiProducer) {
		p.timeout = timeout
	}
}

// GeminiProducer implements Producer on top of an llm.Client.
type GeminiProducer struct {
	client  llm.Client
	logger  *zap.Logger
	timeout time.Duration

	analysisSchema *schemas.Validator
	chatSchema     *schemas.Validator
	editSchema     *schemas.Validator
}

// NewGeminiProducer creates a producer that uses client for every call.
func NewGeminiProducer(client llm.Client, opts ...Option) (*GeminiProducer, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	p := &GeminiProducer{client: client, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}

	var err error
	if p.analysisSchema, err = compile(embedded.Analysis); err != nil {
		return nil, err
	}
	if p.chatSchema, err = compile(embedded.ChatResponse); err != nil {
		return nil, err
	}
	if p.editSchema, err = compile(embedded.EditResult); err != nil {
		return nil, err
	}
	return p, nil
}

func compile(name string) (*schemas.Validator, error) {
	content, err := embedded.Get(name)
	if err != nil {
		return nil, err
	}
	return schemas.Compile(name, content)
}

// Analyze produces a full analysis of cvText.
func (p *GeminiProducer) Analyze(ctx context.Context, cvText string) (*types.AnalysisResult, error) {
	if strings.TrimSpace(cvText) == "" {
		return nil, malformed(OpAnalyze, "CV text is empty", nil)
	}
	prompt, err := prompts.Render(promptFile, "analyze-cv", map[string]string{"CVText": cvText})
	if err != nil {
		return nil, err
	}

	raw, err := p.generate(ctx, OpAnalyze, prompt, llm.TierAdvanced, p.analysisSchema)
	if err != nil {
		return nil, err
	}

	var result types.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, malformed(OpAnalyze, "failed to decode analysis", err)
	}
	if err := result.Validate(); err != nil {
		return nil, malformed(OpAnalyze, "analysis violates the result contract", err)
	}

	p.logger.Info("analysis produced",
		zap.String("schema", string(result.Kind())),
		zap.Int("overall_score", result.OverallScoreValue()),
	)
	return &result, nil
}

// Chat produces the reply to one chat turn.
func (p *GeminiProducer) Chat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	analysis, err := encodeAnalysis(req.Analysis)
	if err != nil {
		return nil, err
	}
	prompt, err := prompts.Render(promptFile, "chat-turn", map[string]string{
		"Analysis": analysis,
		"History":  formatHistory(req.History),
		"Message":  req.Message,
	})
	if err != nil {
		return nil, err
	}

	raw, err := p.generate(ctx, OpChat, prompt, llm.TierStandard, p.chatSchema)
	if err != nil {
		return nil, err
	}

	var resp types.ChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, malformed(OpChat, "failed to decode chat reply", err)
	}

	p.logger.Debug("chat reply produced",
		zap.Int("cv_updates", len(resp.CVUpdates)),
		zap.Int("section_renames", len(resp.SectionRenames)),
		zap.Int("score_improvements", len(resp.ScoreImprovements)),
	)
	return &resp, nil
}

// EditSection rewrites one section according to an instruction.
func (p *GeminiProducer) EditSection(ctx context.Context, req types.EditRequest) (*types.EditResult, error) {
	analysis, err := encodeAnalysis(req.Analysis)
	if err != nil {
		return nil, err
	}
	prompt, err := prompts.Render(promptFile, "edit-section", map[string]string{
		"SectionName": req.SectionName,
		"Content":     req.Content,
		"Instruction": req.Instruction,
		"Analysis":    analysis,
	})
	if err != nil {
		return nil, err
	}

	raw, err := p.generate(ctx, OpEdit, prompt, llm.TierStandard, p.editSchema)
	if err != nil {
		return nil, err
	}

	var result types.EditResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, malformed(OpEdit, "failed to decode edit result", err)
	}
	if result.UpdatedSection.SectionName != req.SectionName {
		p.logger.Warn("section editor renamed the section, keeping the original name",
			zap.String("requested", req.SectionName),
			zap.String("returned", result.UpdatedSection.SectionName),
		)
		result.UpdatedSection.SectionName = req.SectionName
	}
	return &result, nil
}

// generate runs one model call and returns the schema-checked JSON payload
func (p *GeminiProducer) generate(ctx context.Context, op, prompt string, tier llm.ModelTier, schema *schemas.Validator) ([]byte, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := p.client.GenerateJSON(ctx, prompt, tier)
	if err != nil {
		p.logger.Warn("model call failed",
			zap.String("operation", op),
			zap.String("model", p.client.GetModel(tier)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, callError(op, err)
	}

	raw := []byte(llm.CleanJSONBlock(text))
	if err := schema.Validate(raw); err != nil {
		return nil, malformed(op, fmt.Sprintf("reply does not match %s", schema.Name()), err)
	}
	return raw, nil
}

func encodeAnalysis(result *types.AnalysisResult) (string, error) {
	if result == nil {
		return "{}", nil
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode analysis: %w", err)
	}
	return string(data), nil
}

func formatHistory(history []types.ChatMessage) string {
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}
	if len(history) == 0 {
		return "(no previous messages)"
	}
	var sb strings.Builder
	for _, msg := range history {
		sb.WriteString(msg.Role)
		sb.WriteString(": ")
		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
