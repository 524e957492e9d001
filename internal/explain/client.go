package explain

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/pucet-prep/backend/internal/config"
	"go.uber.org/zap"
)

// LLMClient is the interface every completion backend satisfies.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// NewClient picks a backend from cfg. It returns nil when no provider is
// configured, which the service reports as unavailable.
func NewClient(cfg config.ExplainConfig, logger *zap.Logger) LLMClient {
	switch cfg.ResolvedProvider() {
	case "cli":
		logger.Info("explanations using local CLI", zap.String("path", cfg.CLIPath))
		return NewCLIClient(cfg.CLIPath, cfg.Model, logger)
	case "mock":
		logger.Info("explanations using mock client")
		return NewMockClient()
	case "anthropic":
		logger.Info("explanations using Anthropic API", zap.String("model", cfg.Model))
		return NewAPIClient(cfg.APIKey, cfg.Model, logger)
	default:
		logger.Warn("no explanation provider configured; /explain will return 503")
		return nil
	}
}

// ── APIClient: Anthropic SDK ───────────────────────────────

const (
	maxTokens    = 2048
	temperature  = 0.4
	apiAttempts  = 2
	retryBackoff = time.Second
)

type APIClient struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

func NewAPIClient(apiKey, model string, logger *zap.Logger) *APIClient {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &APIClient{client: &client, model: model, logger: logger}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   maxTokens,
		Temperature: param.NewOpt(temperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      text,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < apiAttempts; attempt++ {
		if attempt > 0 {
			wait := retryBackoff << uint(attempt)
			c.logger.Warn("retrying Anthropic API call", zap.Duration("wait", wait), zap.Int("attempt", attempt+1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		c.logger.Warn("Anthropic API call failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient: local development ─────────────────────────

// MockClient echoes a fixed reply and records the last prompts it saw.
type MockClient struct {
	Reply      string
	Err        error
	LastSystem string
	LastUser   string
}

func NewMockClient() *MockClient {
	return &MockClient{Reply: "[Mock] Work through the definitions step by step; the marked option is the only one consistent with them."}
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	m.LastSystem, m.LastUser = systemPrompt, userPrompt
	if m.Err != nil {
		return nil, m.Err
	}
	return &LLMResponse{
		Content:      m.Reply,
		PromptTokens: len(systemPrompt+userPrompt) / 4,
		OutputTokens: len(m.Reply) / 4,
	}, nil
}
