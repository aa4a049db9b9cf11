package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "mindtrack/pkg/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// DefaultGroqEndpoint is Groq's OpenAI-compatible chat completions URL
	DefaultGroqEndpoint = "https://api.groq.com/openai/v1/chat/completions"
	// DefaultGroqModel is the model used for insights
	DefaultGroqModel = "llama-3.3-70b-versatile"

	// ServiceName prefixes upstream error messages
	ServiceName = "Grok API"

	maxErrorBody = 64 << 10
)

// GroqConfig configures the Groq provider
type GroqConfig struct {
	APIKey   string
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// GroqProvider calls Groq chat completions over HTTP
type GroqProvider struct {
	apiKey     string
	endpoint   string
	model      string
	httpClient *http.Client
}

// NewGroqProvider creates a Groq provider. Endpoint and model fall back to
// the Groq defaults.
func NewGroqProvider(cfg GroqConfig) *GroqProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultGroqEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGroqModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &GroqProvider{
		apiKey:     cfg.APIKey,
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// IsAvailable reports whether an API key is configured
func (p *GroqProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Complete sends prompt as a single user message and returns the first
// choice's content. It makes exactly one request.
func (p *GroqProvider) Complete(ctx context.Context, prompt string, options CompletionOptions) (string, error) {
	ctx, span := otel.Tracer("mindtrack/llm").Start(ctx, "groq.complete")
	defer span.End()

	model := options.Model
	if model == "" {
		model = p.model
	}
	span.SetAttributes(
		attribute.String("llm.model", model),
		attribute.Int("llm.max_tokens", options.MaxTokens),
	)

	content, err := p.complete(ctx, model, prompt, options)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", err
	}
	return content, nil
}

func (p *GroqProvider) complete(ctx context.Context, model, prompt string, options CompletionOptions) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   options.MaxTokens,
		Temperature: options.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewUpstreamFailure(ServiceName+" request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", apperrors.NewUpstreamError(ServiceName, resp.StatusCode, string(body))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewUpstreamFailure(ServiceName+" response read failed", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 || parsed.Choices[0].Message == nil {
		return "", apperrors.NewUpstreamFailure(
			ServiceName+" response format unexpected: "+string(bytes.TrimSpace(raw)), err,
		).WithCode(apperrors.CodeBadResponse)
	}

	return parsed.Choices[0].Message.Content, nil
}
