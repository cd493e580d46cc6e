// Package groq implements summary generation over Groq's OpenAI-compatible
// chat completions API.
package groq

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/inshort-cloud/billfeed/internal/domain"
	"github.com/inshort-cloud/billfeed/internal/metrics"
)

const systemPrompt = "You are InShort, a news-style AI that creates personalized bill summaries. " +
	"Focus on explaining relevance to the user's demographic and interests without directly addressing them."

// Summarizer generates personalized bill summaries via chat completions.
type Summarizer struct {
	client       *openai.Client
	model        string
	maxTokens    int
	temperature  float32
	excerptLimit int
	timeout      time.Duration
	logger       *zap.Logger
}

// Config holds the generation provider settings.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	MaxTokens    int
	Temperature  float32
	ExcerptLimit int
	Timeout      time.Duration
	Logger       *zap.Logger
}

// NewSummarizer creates a Groq chat-completion summarizer.
func NewSummarizer(cfg *Config) *Summarizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Summarizer{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		excerptLimit: cfg.ExcerptLimit,
		timeout:      cfg.Timeout,
		logger:       cfg.Logger,
	}
}

// Summarize implements domain.Summarizer. The call is bounded by the
// configured timeout; the recommender treats any failure as a per-item
// fallback trigger, never as fatal to the batch.
func (s *Summarizer) Summarize(ctx context.Context, bill *domain.Bill, profile *domain.Profile) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: s.buildPrompt(bill, profile)},
		},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	}

	start := time.Now()

	resp, err := s.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(s.model, "error").Inc()
		return "", parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(s.model, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrGenerationProviderError)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(s.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(s.model).Observe(duration.Seconds())

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// HealthCheck verifies API availability via ListModels.
func (s *Summarizer) HealthCheck(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// buildPrompt renders the personalized news-style prompt. The excerpt is
// truncated to a fixed rune count so the prompt for a given bill and profile
// is reproducible.
func (s *Summarizer) buildPrompt(bill *domain.Bill, profile *domain.Profile) string {
	var b strings.Builder

	fmt.Fprintf(&b,
		"You are InShort, an AI that creates personalized bill summaries for a %d-year-old %s from %s who is interested in %s.\n\n",
		profile.Age, profile.Occupation, profile.Location, profile.InterestList(),
	)

	b.WriteString("BILL INFORMATION:\n")
	fmt.Fprintf(&b, "Title: %s\n", orUnknown(bill.Title))
	fmt.Fprintf(&b, "Sponsor: %s\n", orUnknown(bill.Sponsor))
	fmt.Fprintf(&b, "Policy Area: %s\n", orUnknown(bill.PolicyArea))
	fmt.Fprintf(&b, "Latest Action: %s\n", orUnknown(bill.LatestAction))
	if excerpt := TruncateRunes(bill.Excerpt, s.excerptLimit); excerpt != "" {
		fmt.Fprintf(&b, "Text: %s\n", excerpt)
	}

	b.WriteString("\nTASK:\nCreate a news-style summary of this bill that:\n")
	b.WriteString("1. Explains what the bill does in clear, objective terms\n")
	fmt.Fprintf(&b,
		"2. Describes why this bill is relevant to someone who is %d years old, works as a %s, lives in %s, and cares about %s\n",
		profile.Age, profile.Occupation, profile.Location, profile.InterestList(),
	)
	b.WriteString("3. Uses a professional, news-like tone (no \"Hey\" or direct addressing)\n")
	b.WriteString("4. Keeps it to 2-3 sentences maximum\n")
	b.WriteString("5. Focuses on impact and relevance to the user's demographic and interests\n")
	b.WriteString("\nNEWS-STYLE SUMMARY:\n")

	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// TruncateRunes cuts s to at most limit runes. limit <= 0 means no cut.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// parseAPIError wraps provider failures with domain sentinels.
func parseAPIError(err error) error {
	wrap := domain.ErrGenerationProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			wrap = domain.ErrRateLimited
		}
		return fmt.Errorf("generation API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			wrap = domain.ErrRateLimited
		}
		return fmt.Errorf("generation API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("generation request failed: %w", wrap)
}
