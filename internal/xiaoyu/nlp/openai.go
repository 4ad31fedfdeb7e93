package nlp

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/observability"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 200
	defaultTimeout   = 30 * time.Second
)

// Config configures the OpenAI-compatible generation provider.
type Config struct {
	// APIKey is the bearer token used to authenticate against the API.
	APIKey string

	// BaseURL overrides the API endpoint.  Useful for local models (Ollama),
	// Azure OpenAI, or any other OpenAI-compatible endpoint.
	// Defaults to the public OpenAI endpoint when empty.
	BaseURL string

	// Model is the chat model to use.
	// Defaults to gpt-4o-mini when empty (cost-efficient, sufficient for
	// short companion replies).
	Model string

	// MaxTokens caps the length of a single reply.  Defaults to 200, which
	// keeps replies chat-sized and bounds per-message token spend.
	MaxTokens int

	// Timeout bounds a single generation call.  Defaults to 30 s.
	Timeout time.Duration
}

// openAIProvider implements Provider using the OpenAI chat completions API.
type openAIProvider struct {
	cfg    Config
	client *openai.Client
}

// New returns a Provider backed by the OpenAI (or compatible) chat API.
// The returned provider is safe for concurrent use.
func New(cfg Config) Provider {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	api := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		api.BaseURL = cfg.BaseURL
	}
	return &openAIProvider{
		cfg:    cfg,
		client: openai.NewClientWithConfig(api),
	}
}

// Complete sends one system message and one user message to the chat
// completions endpoint and returns the first choice.  A single attempt is
// made; any failure is reported as ErrGeneration.
func (p *openAIProvider) Complete(ctx context.Context, systemPrompt, userMessage string) (*Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:     p.cfg.Model,
		MaxTokens: p.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		// API errors can echo credential fragments in their body.
		return nil, fmt.Errorf("%w: %s", ErrGeneration, observability.RedactSecrets(err.Error(), p.cfg.APIKey))
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: response carried no choices", ErrGeneration)
	}

	return &Reply{
		Text:             resp.Choices[0].Message.Content,
		Model:            p.cfg.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}
