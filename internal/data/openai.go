package data

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
	"github.com/assetmatic/telegram-observer/internal/biz/repo"
	"github.com/assetmatic/telegram-observer/internal/conf"
)

var _ repo.AI = (*OpenAIBackend)(nil)

const summarizeSystemPrompt = "You are a concise assistant summarizing Telegram chat logs. " +
	"Focus on key topics, questions, links shared, and potential action items. " +
	"Ignore pleasantries and routine messages unless significant."

const extractSystemPrompt = `You translate natural-language questions about logged Telegram messages into a JSON filter object.

The object may contain these keys, all optional:
  "chat":    a chat title, @username or numeric id the user refers to
  "date":    "today", "yesterday" or an explicit date as YYYY-MM-DD
  "content": "links" for link-bearing messages, a media kind (photo, document, video, audio, sticker, webpage), or "text:<keyword>" for a text search
  "sender":  a sender @username or numeric id
  "limit":   a positive integer when the user asks for a specific number of results

Respond with ONLY the JSON object, no prose and no code fences. Omit keys the question does not constrain. If the question cannot be expressed with these keys, respond with {}.`

type provider struct {
	client *openai.Client
	model  string
}

// OpenAIBackend talks to an OpenAI-compatible chat completion API, with an
// optional fallback provider tried when the primary fails.
type OpenAIBackend struct {
	primary  *provider
	fallback *provider
	log      *slog.Logger
}

// NewOpenAIBackend builds the backend from configuration. Returns nil when
// no primary provider is configured; callers treat a nil backend as the
// feature being off.
func NewOpenAIBackend(cfg conf.AIConfig, log *slog.Logger) *OpenAIBackend {
	if !cfg.Configured() {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	b := &OpenAIBackend{
		primary: newProvider(cfg.APIKey, cfg.APIBase, cfg.Model),
		log:     log.With("component", "ai"),
	}
	if cfg.HasFallback() {
		model := cfg.FallbackModel
		if model == "" {
			model = cfg.Model
		}
		base := cfg.FallbackAPIBase
		if base == "" {
			base = cfg.APIBase
		}
		b.fallback = newProvider(cfg.FallbackAPIKey, base, model)
	}
	return b
}

func newProvider(apiKey, baseURL, model string) *provider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &provider{client: openai.NewClientWithConfig(config), model: model}
}

// Summarize produces a digest of the given prompt text.
func (b *OpenAIBackend) Summarize(ctx context.Context, prompt string) (string, error) {
	return b.complete(ctx, summarizeSystemPrompt, prompt, 0.6)
}

// ExtractFilters turns a natural-language query into a structured filter.
// A (nil, nil) return means the model produced no usable filter.
func (b *OpenAIBackend) ExtractFilters(ctx context.Context, query string) (*domain.QueryFilter, error) {
	raw, err := b.complete(ctx, extractSystemPrompt, query, 0.1)
	if err != nil {
		return nil, err
	}
	raw = stripCodeFence(raw)

	var filter domain.QueryFilter
	if err := json.Unmarshal([]byte(raw), &filter); err != nil {
		b.log.Warn("model returned non-JSON filter output", "output", truncateForLog(raw))
		return nil, nil
	}
	if filter.IsZero() {
		return nil, nil
	}
	return &filter, nil
}

func (b *OpenAIBackend) complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	out, err := b.primary.complete(ctx, system, user, temperature)
	if err == nil {
		return out, nil
	}
	if b.fallback == nil {
		return "", err
	}
	b.log.Warn("primary AI provider failed, trying fallback", "error", err, "fallback_model", b.fallback.model)
	out, fbErr := b.fallback.complete(ctx, system, user, temperature)
	if fbErr != nil {
		return "", fmt.Errorf("primary failed (%v); fallback failed: %w", err, fbErr)
	}
	return out, nil
}

func (p *provider) complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no response choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// stripCodeFence removes a surrounding markdown fence, which some models
// emit despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 && !strings.HasPrefix(s, "{") {
		s = s[idx+1:] // drop a language tag like "json"
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncateForLog(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
