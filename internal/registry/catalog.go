package registry

import (
	"context"

	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
	"github.com/praecohq/praeco/internal/providers"
)

// Provider ids in the static catalog.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderWebhook   = "webhook_publisher"
)

// NewDefault builds the built-in provider catalog.
func NewDefault() (*Registry, error) {
	return New(
		anthropicDescriptor(),
		geminiDescriptor(),
		webhookPublisherDescriptor(),
	)
}

// resolveSecret resolves a credential with priority: binding config ->
// application config fallback -> KV store.
func resolveSecret(deps ClientDeps, binding *models.IntegrationBinding, field, configFallback, kvKey string) string {
	if v, ok := binding.Config[field].(string); ok && v != "" {
		return v
	}
	if configFallback != "" {
		return configFallback
	}
	if deps.KV != nil {
		if v, err := deps.KV.Get(context.Background(), kvKey); err == nil && v != "" {
			return v
		}
	}
	return ""
}

func configString(binding *models.IntegrationBinding, field string) string {
	if v, ok := binding.Config[field].(string); ok {
		return v
	}
	return ""
}

func anthropicDescriptor() *Descriptor {
	return &Descriptor{
		ID:       ProviderAnthropic,
		Name:     "Anthropic Claude",
		Category: models.CategoryAIText,
		Capabilities: []models.Capability{
			models.CapabilityTextGeneration,
			models.CapabilityContentAnalysis,
		},
		Schema: ConfigSchema{
			Fields: []FieldSpec{
				{Name: "api_key", Label: "API Key", Kind: KindSecret, Required: false,
					Help: "Leave empty to use the shared workspace key"},
				{Name: "model", Label: "Model", Kind: KindString, Default: "claude-sonnet-4-20250514"},
				{Name: "max_tokens", Label: "Max Tokens", Kind: KindInt, Default: 4096,
					Min: floatPtr(1), Max: floatPtr(64000)},
				{Name: "temperature", Label: "Temperature", Kind: KindFloat, Default: 0.7,
					Min: floatPtr(0), Max: floatPtr(1)},
			},
		},
		Pricing: Pricing{
			InputPer1K:  0.003,
			OutputPer1K: 0.015,
		},
		SetupNotes: "Create an API key at console.anthropic.com and paste it here, or store it as anthropic_api_key in settings.",
		New: func(deps ClientDeps, binding *models.IntegrationBinding) (interfaces.ProviderClient, error) {
			return providers.NewAnthropicClient(providers.AnthropicOptions{
				APIKey:      resolveSecret(deps, binding, "api_key", deps.Config.Anthropic.APIKey, "anthropic_api_key"),
				Model:       configString(binding, "model"),
				MaxTokens:   configInt(binding, "max_tokens"),
				Temperature: configFloat(binding, "temperature"),
				Logger:      deps.Logger,
			})
		},
	}
}

func geminiDescriptor() *Descriptor {
	return &Descriptor{
		ID:       ProviderGemini,
		Name:     "Google Gemini",
		Category: models.CategoryAIText,
		Capabilities: []models.Capability{
			models.CapabilityTextGeneration,
			models.CapabilityContentAnalysis,
			models.CapabilityImageGeneration,
		},
		Schema: ConfigSchema{
			Fields: []FieldSpec{
				{Name: "api_key", Label: "API Key", Kind: KindSecret, Required: false,
					Help: "Leave empty to use the shared workspace key"},
				{Name: "model", Label: "Model", Kind: KindString, Default: "gemini-2.5-flash"},
				{Name: "image_model", Label: "Image Model", Kind: KindString, Default: "gemini-2.5-flash-image"},
				{Name: "temperature", Label: "Temperature", Kind: KindFloat, Default: 0.7,
					Min: floatPtr(0), Max: floatPtr(2)},
			},
		},
		Pricing: Pricing{
			InputPer1K:  0.00015,
			OutputPer1K: 0.0006,
			PerImage:    0.039,
		},
		SetupNotes: "Create an API key at aistudio.google.com, or store it as gemini_api_key in settings.",
		New: func(deps ClientDeps, binding *models.IntegrationBinding) (interfaces.ProviderClient, error) {
			return providers.NewGeminiClient(context.Background(), providers.GeminiOptions{
				APIKey:      resolveSecret(deps, binding, "api_key", deps.Config.Gemini.APIKey, "gemini_api_key"),
				Model:       configString(binding, "model"),
				ImageModel:  configString(binding, "image_model"),
				Temperature: configFloat(binding, "temperature"),
				Logger:      deps.Logger,
			})
		},
	}
}

func webhookPublisherDescriptor() *Descriptor {
	return &Descriptor{
		ID:       ProviderWebhook,
		Name:     "REST Publisher",
		Category: models.CategoryPublishing,
		Capabilities: []models.Capability{
			models.CapabilityPublishing,
		},
		Schema: ConfigSchema{
			Fields: []FieldSpec{
				{Name: "base_url", Label: "Base URL", Kind: KindURL, Required: true},
				{Name: "auth_mode", Label: "Auth Mode", Kind: KindEnum, Default: "api_key",
					Enum: []string{"api_key", "oauth2"}},
				{Name: "api_key", Label: "API Key", Kind: KindSecret},
				{Name: "token_url", Label: "Token URL", Kind: KindURL},
				{Name: "client_id", Label: "Client ID", Kind: KindString},
				{Name: "client_secret", Label: "Client Secret", Kind: KindSecret},
			},
		},
		Pricing: Pricing{
			PerRequest: 0,
		},
		SetupNotes: "Point at any WordPress-compatible posts endpoint. Use oauth2 auth mode with a client-credentials token URL, or a static API key.",
		New: func(deps ClientDeps, binding *models.IntegrationBinding) (interfaces.ProviderClient, error) {
			opts := providers.PublisherOptions{
				BaseURL: configString(binding, "base_url"),
				APIKey:  resolveSecret(deps, binding, "api_key", deps.Config.Publisher.APIKey, "publisher_api_key"),
				Logger:  deps.Logger,
			}
			if configString(binding, "auth_mode") == "oauth2" {
				opts.TokenURL = configString(binding, "token_url")
				opts.ClientID = configString(binding, "client_id")
				opts.ClientSecret = resolveSecret(deps, binding, "client_secret", deps.Config.Publisher.ClientSecret, "publisher_client_secret")
				opts.APIKey = ""
			}
			return providers.NewRestPublisher(opts)
		},
	}
}

func floatPtr(f float64) *float64 {
	return &f
}

func configInt(binding *models.IntegrationBinding, field string) int {
	if v, ok := asFloat(binding.Config[field]); ok {
		return int(v)
	}
	return 0
}

func configFloat(binding *models.IntegrationBinding, field string) float64 {
	if v, ok := asFloat(binding.Config[field]); ok {
		return v
	}
	return 0
}
