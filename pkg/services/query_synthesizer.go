package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/cache"
	"github.com/ekaya-inc/ekaya-insight/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-insight/pkg/llm"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/prompts"
)

const (
	// DefaultAnswerTTL is how long a synthesized answer is reused.
	DefaultAnswerTTL = 30 * time.Minute
	// DefaultTemperature keeps generated SQL close to deterministic.
	DefaultTemperature = 0.1

	answerCacheTag = "qa"
)

// Synthesis is one answered question.
type Synthesis struct {
	Answer models.Answer `json:"answer"`
	Cached bool          `json:"cached"`
}

// QuerySynthesizer answers business questions from selected metadata context.
type QuerySynthesizer interface {
	// Synthesize returns the cached answer for question when one is live,
	// otherwise selects context, calls the generation model and caches the
	// result with the context it used. A reply that is not the expected JSON
	// becomes an answer whose insight is the raw reply.
	Synthesize(ctx context.Context, question string) (*Synthesis, error)
}

// QuerySynthesizerConfig tunes generation and caching.
type QuerySynthesizerConfig struct {
	TTL         time.Duration
	Temperature float64
	MaxSnippets int
}

type querySynthesizer struct {
	selector  ContextSelector
	generator llm.LLMClient
	cache     cache.Store
	cfg       QuerySynthesizerConfig
	logger    *zap.Logger
}

// NewQuerySynthesizer accepts a nil generator; Synthesize then fails with
// apperrors.ErrGenerationNotConfigured on every cache miss.
func NewQuerySynthesizer(selector ContextSelector, generator llm.LLMClient, store cache.Store, cfg QuerySynthesizerConfig, logger *zap.Logger) QuerySynthesizer {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultAnswerTTL
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxSnippets <= 0 {
		cfg.MaxSnippets = prompts.MaxContextSnippets
	}
	return &querySynthesizer{
		selector:  selector,
		generator: generator,
		cache:     store,
		cfg:       cfg,
		logger:    logger.Named("query-synthesizer"),
	}
}

var _ QuerySynthesizer = (*querySynthesizer)(nil)

func (s *querySynthesizer) Synthesize(ctx context.Context, question string) (*Synthesis, error) {
	key := cache.Key(answerCacheTag, question)
	answer, hit, err := cache.GetOrCompute(ctx, s.cache, key, s.cfg.TTL, s.logger, func(ctx context.Context) (models.Answer, error) {
		return s.compute(ctx, question)
	})
	if err != nil {
		return nil, err
	}
	return &Synthesis{Answer: answer, Cached: hit}, nil
}

func (s *querySynthesizer) compute(ctx context.Context, question string) (models.Answer, error) {
	if s.generator == nil {
		return models.Answer{}, apperrors.ErrGenerationNotConfigured
	}

	selected := s.selector.Select(ctx, question)
	if !selected.IsOK() {
		s.logger.Info("Context selection fell back",
			zap.String("status", string(selected.Status)),
			zap.String("reason", selected.Reason))
	}

	prompt := prompts.BuildQuestionPrompt(selected.Value, question, s.cfg.MaxSnippets)
	result, err := s.generator.GenerateResponse(ctx, prompt, prompts.AnalystSystemMessage, s.cfg.Temperature)
	if err != nil {
		return models.Answer{}, fmt.Errorf("generation failed: %w", err)
	}

	answer := ParseAnswer(result.Content)
	answer.Context = selected.Value
	return answer, nil
}

// Models occasionally emit numbers or booleans where strings belong, so the
// fields are decoded leniently.
type answerPayload struct {
	Insight   json.RawMessage `json:"insight"`
	SQL       json.RawMessage `json:"sql"`
	ChartType json.RawMessage `json:"chart_type"`
}

// ParseAnswer decodes a model reply. Anything that is not a JSON object with
// the expected keys becomes {insight: raw, sql: null, chart_type: table}.
func ParseAnswer(raw string) models.Answer {
	payload, err := llm.ParseJSONResponse[answerPayload](raw)
	if err != nil {
		return models.Answer{Insight: raw, ChartType: models.ChartTable}
	}

	answer := models.Answer{
		Insight:   jsonutil.FlexibleStringValue(payload.Insight),
		SQL:       jsonutil.FlexibleString(payload.SQL),
		ChartType: models.NormalizeChartType(jsonutil.FlexibleStringValue(payload.ChartType)),
	}
	if answer.SQL != nil && strings.TrimSpace(*answer.SQL) == "" {
		answer.SQL = nil
	}
	return answer
}
