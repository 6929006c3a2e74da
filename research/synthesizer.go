package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/llm/retry"
	"github.com/BaSui01/researchflow/llm/tokenizer"
	"github.com/BaSui01/researchflow/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SynthesisOutcome reports what a synthesis did to the report.
type SynthesisOutcome struct {
	Report *types.Report
	// Attempts is the number of LLM calls made.
	Attempts int
	// Exhausted means every attempt failed and Report is unchanged.
	Exhausted bool
	// Offered is how many fragments fit in the prompt.
	Offered int
	// LastError is the final failure when Exhausted.
	LastError error
}

// Synthesizer writes a cited report from ranked fragments.
type Synthesizer struct {
	llm         caller
	model       string
	maxAttempts int
	retryDelay  time.Duration
	tokens      tokenizer.Tokenizer
	maxTokens   int
	reports     ReportUpdater
	observer    Observer
	logger      *zap.Logger
}

// NewSynthesizer creates a synthesizer on the smart model. reports may be nil,
// in which case the report is only updated in memory.
func NewSynthesizer(provider llm.Provider, reports ReportUpdater, cfg Config, observer Observer, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	logger = logger.With(zap.String("component", "synthesizer"))
	s := &Synthesizer{
		llm:         caller{provider: provider, timeout: cfg.LLMTimeout, logger: logger},
		model:       cfg.SmartModel,
		maxAttempts: cfg.MaxSynthesisAttempts,
		retryDelay:  cfg.RetryDelay,
		maxTokens:   cfg.MaxPromptTokens,
		reports:     reports,
		observer:    orNop(observer),
		logger:      logger,
	}
	if s.maxTokens > 0 {
		s.tokens = tokenizer.ForModel(cfg.SmartModel, logger)
	}
	return s
}

type contentReply struct {
	Content *string `json:"content"`
}

// Synthesize writes report content from fragments with at most MaxSynthesisAttempts
// LLM calls. On success the report is updated once through ApplySynthesis and
// persisted. When every attempt fails the report is returned untouched with
// Exhausted set and no error; the only error is a failed persist.
func (s *Synthesizer) Synthesize(ctx context.Context, report *types.Report, rc ReportContext, fragments []types.Fragment) (*SynthesisOutcome, error) {
	ctx, span := tracer.Start(ctx, "research.synthesize", trace.WithAttributes(
		attribute.String("research.report_id", report.ID),
		attribute.Int("research.fragments", len(fragments))))
	defer span.End()

	offered := s.budget(fragments)
	prompt := synthesisPrompt(rc, promptItems(offered))

	attempts := 0
	retryer := retry.NewBackoffRetryer(s.policy(), s.logger)
	ext, err := retry.DoTyped(retryer, ctx, func() (Extraction, error) {
		attempts++
		ext, err := s.attempt(ctx, prompt)
		if err != nil {
			s.logger.Warn("synthesis attempt failed",
				zap.String("report_id", report.ID),
				zap.Int("attempt", attempts),
				zap.Int("max_attempts", s.maxAttempts),
				zap.Error(err))
		}
		return ext, err
	})
	span.SetAttributes(attribute.Int("research.attempts", attempts))

	outcome := &SynthesisOutcome{Report: report, Attempts: attempts, Offered: len(offered)}
	if err != nil {
		outcome.Exhausted = true
		outcome.LastError = types.NewError(types.ErrExhaustedRetry,
			fmt.Sprintf("synthesis failed after %d attempts", attempts)).WithCause(err)
		s.observer.RecordSynthesis(attempts, true)
		s.logger.Warn("synthesis exhausted, report left unchanged",
			zap.String("report_id", report.ID),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return outcome, nil
	}

	report.ApplySynthesis(offered, ext.Content, ext.Citations)
	s.observer.RecordSynthesis(attempts, false)
	s.logger.Info("report synthesized",
		zap.String("report_id", report.ID),
		zap.Int("attempts", attempts),
		zap.Int("offered", len(offered)),
		zap.Int("citations", len(report.Citations)))

	if s.reports != nil {
		if err := s.reports.Update(ctx, report); err != nil {
			span.RecordError(err)
			return outcome, fmt.Errorf("persist synthesized report %s: %w", report.ID, err)
		}
	}
	return outcome, nil
}

// policy retries every failure; RetryDelay 0 retries immediately.
func (s *Synthesizer) policy() *retry.RetryPolicy {
	if s.retryDelay <= 0 {
		return retry.ImmediatePolicy(s.maxAttempts)
	}
	return &retry.RetryPolicy{
		MaxRetries:   s.maxAttempts - 1,
		InitialDelay: s.retryDelay,
		MaxDelay:     s.retryDelay,
		Multiplier:   1,
	}
}

// attempt is one LLM call plus validation of its content.
func (s *Synthesizer) attempt(ctx context.Context, prompt string) (Extraction, error) {
	var reply contentReply
	err := s.llm.json(ctx, &llm.ChatRequest{
		Name:        "generate-report",
		Model:       s.model,
		Messages:    llm.UserPrompt(prompt),
		Temperature: llm.Temperature(0),
	}, &reply)
	if err != nil {
		return Extraction{}, types.NewError(types.ErrMalformedSynthesisOutput, "generate-report").WithCause(err)
	}
	if reply.Content == nil || strings.TrimSpace(*reply.Content) == "" {
		return Extraction{}, types.NewError(types.ErrMalformedSynthesisOutput, "generate-report reply has no content")
	}
	return ExtractCitations(*reply.Content), nil
}

// budget keeps the leading fragments whose rendered items fit MaxPromptTokens.
func (s *Synthesizer) budget(fragments []types.Fragment) []types.Fragment {
	if s.maxTokens <= 0 || s.tokens == nil {
		return fragments
	}
	parts := make([]string, len(fragments))
	for i, item := range promptItems(fragments) {
		parts[i] = mustJSON(item)
	}
	n, err := tokenizer.FitWithin(s.tokens, parts, s.maxTokens, 1)
	if err != nil {
		s.logger.Warn("token counting failed, offering every fragment", zap.Error(err))
		return fragments
	}
	if n < len(fragments) {
		s.logger.Info("prompt budget reached",
			zap.Int("fragments", len(fragments)),
			zap.Int("offered", n),
			zap.Int("max_prompt_tokens", s.maxTokens))
	}
	return fragments[:n]
}

func promptItems(fs []types.Fragment) []promptItem {
	items := make([]promptItem, len(fs))
	for i, f := range fs {
		items[i] = promptItem{ID: f.ID, Content: f.Content}
	}
	return items
}
