package providers

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/praecohq/praeco/internal/interfaces"
)

// GeminiClient adapts the Gemini API to the TextGenerator and
// ImageGenerator capabilities.
type GeminiClient struct {
	client      *genai.Client
	model       string
	imageModel  string
	temperature float64
	logger      arbor.ILogger
}

// GeminiOptions configure the adapter's defaults.
type GeminiOptions struct {
	APIKey      string
	Model       string
	ImageModel  string
	Temperature float64
	Logger      arbor.ILogger
}

// NewGeminiClient creates a Gemini adapter.
func NewGeminiClient(ctx context.Context, opts GeminiOptions) (*GeminiClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	if opts.ImageModel == "" {
		opts.ImageModel = "gemini-2.5-flash-image"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       opts.Model,
		imageModel:  opts.ImageModel,
		temperature: opts.Temperature,
		logger:      opts.Logger,
	}, nil
}

// GenerateText generates a completion for the prompt.
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string, opts interfaces.TextOptions) (*interfaces.TextResult, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}

	temp := float32(opts.Temperature)
	if temp <= 0 {
		temp = float32(c.temperature)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}
	if opts.System != "" {
		config.SystemInstruction = genai.NewContentFromText(opts.System, genai.RoleUser)
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini api call failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from gemini api")
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty text in gemini response")
	}

	result := &interfaces.TextResult{
		Text:  text,
		Model: model,
	}
	if len(resp.Candidates) > 0 {
		result.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if resp.UsageMetadata != nil {
		result.Usage = interfaces.TokenUsage{
			Input:  int(resp.UsageMetadata.PromptTokenCount),
			Output: int(resp.UsageMetadata.CandidatesTokenCount),
			Total:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return result, nil
}

// GenerateImage generates an image and returns it base64-encoded.
func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string, opts interfaces.ImageOptions) (*interfaces.ImageResult, error) {
	model := opts.Model
	if model == "" {
		model = c.imageModel
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini image call failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from gemini image api")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return &interfaces.ImageResult{
				Base64: base64.StdEncoding.EncodeToString(part.InlineData.Data),
				Size:   opts.Size,
			}, nil
		}
	}
	return nil, fmt.Errorf("no image data in gemini response")
}
