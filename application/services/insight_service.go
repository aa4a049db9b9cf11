package services

import (
	"context"
	"fmt"

	"mindtrack/infrastructure/llm"
	apperrors "mindtrack/pkg/errors"
)

const (
	// InsightPromptPrefix is prepended to the journal text
	InsightPromptPrefix = "Analyze this journal and give insights on this: "
	// InsightMaxTokens bounds the completion length
	InsightMaxTokens = 150
)

// InsightService generates insight text for journal entries
type InsightService struct {
	provider llm.Provider
	options  llm.CompletionOptions
}

// NewInsightService creates an insight service on top of provider
func NewInsightService(provider llm.Provider, model string) *InsightService {
	return &InsightService{
		provider: provider,
		options: llm.CompletionOptions{
			Model:     model,
			MaxTokens: InsightMaxTokens,
		},
	}
}

// BuildInsightPrompt renders the prompt for text
func BuildInsightPrompt(text string) string {
	return InsightPromptPrefix + text
}

// Generate returns the provider's insight for text. Provider errors are
// returned as they are so callers see the upstream status and body.
func (s *InsightService) Generate(ctx context.Context, text string) (string, error) {
	if s.provider == nil || !s.provider.IsAvailable() {
		return "", apperrors.NewUpstreamFailure(fmt.Sprintf("%s is not available", llm.ServiceName), nil)
	}
	return s.provider.Complete(ctx, BuildInsightPrompt(text), s.options)
}
