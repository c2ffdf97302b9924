package interfaces

import (
	"context"

	"github.com/praecohq/praeco/internal/models"
)

// TokenUsage reports token consumption for one text generation call.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// TextOptions tune a text generation call. Zero values fall back to the
// adapter's configured defaults.
type TextOptions struct {
	Model        string
	System       string
	MaxTokens    int
	Temperature  float64
}

// TextResult is the provider-agnostic result of a text generation call.
type TextResult struct {
	Text         string
	Model        string
	FinishReason string
	Usage        TokenUsage
}

// TextGenerator is implemented by vendor adapters that can generate text.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, opts TextOptions) (*TextResult, error)
}

// ImageOptions tune an image generation call.
type ImageOptions struct {
	Model string
	Size  string
}

// ImageResult is the provider-agnostic result of an image generation call.
type ImageResult struct {
	URL           string
	Base64        string
	RevisedPrompt string
	Size          string
}

// ImageGenerator is implemented by vendor adapters that can generate images.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (*ImageResult, error)
}

// PublishResult reports the remote state of a published piece.
type PublishResult struct {
	PostID string
	URL    string
	Status string
}

// Publisher is implemented by vendor adapters that can publish content to an
// external platform.
type Publisher interface {
	Publish(ctx context.Context, content *models.GeneratedContent) (*PublishResult, error)
	Update(ctx context.Context, postID string, content *models.GeneratedContent) (*PublishResult, error)
	Delete(ctx context.Context, postID string) error
	GetStatus(ctx context.Context, postID string) (*PublishResult, error)
}

// ProviderClient is the union of capability interfaces a vendor adapter may
// implement. Callers type-assert to the capability they resolved for.
type ProviderClient interface{}

// CredentialValidator is implemented by adapters that can probe their
// credentials without incurring generation cost. The broker's test path
// prefers this over a generation call.
type CredentialValidator interface {
	ValidateCredentials(ctx context.Context) error
}

// SourceClient harvests candidate ideas from one external source. Vendor
// implementations are black boxes that may fail; a failing source never
// aborts sibling sources in the same run.
type SourceClient interface {
	Name() string
	Fetch(ctx context.Context, brand *models.Brand) ([]models.CandidateIdea, error)
}
