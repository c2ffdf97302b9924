package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/interfaces"
)

// AnthropicClient adapts the Anthropic Messages API to the TextGenerator
// capability. Errors are returned as-is: retry policy belongs to the job
// queue, not the adapter.
type AnthropicClient struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float64
	logger      arbor.ILogger
}

// AnthropicOptions configure the adapter's defaults.
type AnthropicOptions struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Logger      arbor.ILogger
}

// NewAnthropicClient creates an Anthropic adapter.
func NewAnthropicClient(opts AnthropicOptions) (*AnthropicClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if opts.Model == "" {
		opts.Model = "claude-sonnet-4-20250514"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}

	return &AnthropicClient{
		client:      anthropic.NewClient(option.WithAPIKey(opts.APIKey)),
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		logger:      opts.Logger,
	}, nil
}

// GenerateText generates a completion for the prompt.
func (c *AnthropicClient) GenerateText(ctx context.Context, prompt string, opts interfaces.TextOptions) (*interfaces.TextResult, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	temp := opts.Temperature
	if temp <= 0 {
		temp = c.temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(temp)
	}

	if opts.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: opts.System},
		}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from anthropic api")
	}

	return &interfaces.TextResult{
		Text:         text.String(),
		Model:        string(resp.Model),
		FinishReason: string(resp.StopReason),
		Usage: interfaces.TokenUsage{
			Input:  int(resp.Usage.InputTokens),
			Output: int(resp.Usage.OutputTokens),
			Total:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}
