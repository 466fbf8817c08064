package narrator

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"
	// DefaultMaxTokens bounds a single narration.
	DefaultMaxTokens = 400
)

// OpenAIConfig configures an OpenAI-compatible chat completion backend.
//
// BaseURL may point at any compatible endpoint, such as Gemini's
// OpenAI-compatible API.
type OpenAIConfig struct {
	APIKey      string  `env:"ROLEANDROLL_NARRATOR_API_KEY"`
	BaseURL     string  `env:"ROLEANDROLL_NARRATOR_BASE_URL"`
	Model       string  `env:"ROLEANDROLL_NARRATOR_MODEL" envDefault:"gpt-4o-mini"`
	Temperature float64 `env:"ROLEANDROLL_NARRATOR_TEMPERATURE" envDefault:"0.8"`
	MaxTokens   int64   `env:"ROLEANDROLL_NARRATOR_MAX_TOKENS" envDefault:"400"`
	MaxRetries  int     `env:"ROLEANDROLL_NARRATOR_MAX_RETRIES" envDefault:"2"`
	HTTPClient  *http.Client
}

// OpenAINarrator narrates through the chat completions API.
type OpenAINarrator struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
}

// NewOpenAINarrator builds a narrator from cfg, filling defaults.
func NewOpenAINarrator(cfg OpenAIConfig) *OpenAINarrator {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithMaxRetries(max(cfg.MaxRetries, 0)),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &OpenAINarrator{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}
}

// Narrate implements Narrator.
func (n *OpenAINarrator) Narrate(ctx context.Context, request Request) (string, error) {
	userPrompt := strings.TrimSpace(request.UserPrompt)
	if userPrompt == "" {
		return "", fmt.Errorf("user prompt is required")
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system := strings.TrimSpace(request.SystemPrompt); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	params := openai.ChatCompletionNewParams{
		Model:               n.model,
		Messages:            messages,
		MaxCompletionTokens: openai.Int(n.maxTokens),
	}
	if n.temperature > 0 {
		params.Temperature = openai.Float(n.temperature)
	}

	completion, err := n.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	for _, choice := range completion.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			return text, nil
		}
	}
	return "", ErrEmptyNarration
}
