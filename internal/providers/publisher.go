package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
)

const publisherTimeout = 30 * time.Second

// RestPublisher adapts a generic REST publishing endpoint (WordPress-style
// posts API) to the Publisher capability. Markdown bodies are rendered to
// HTML before posting. Auth is either OAuth2 client credentials or a static
// API key, depending on configuration.
type RestPublisher struct {
	client *resty.Client
	logger arbor.ILogger
}

// PublisherOptions configure the adapter.
type PublisherOptions struct {
	BaseURL      string
	TokenURL     string // when set, OAuth2 client-credentials auth is used
	ClientID     string
	ClientSecret string
	APIKey       string // fallback bearer auth when TokenURL is empty
	Logger       arbor.ILogger
}

// NewRestPublisher creates a REST publisher adapter.
func NewRestPublisher(opts PublisherOptions) (*RestPublisher, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("publisher base url is required")
	}

	var client *resty.Client
	if opts.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
		}
		client = resty.NewWithClient(cc.Client(context.Background()))
	} else {
		client = resty.New()
		if opts.APIKey != "" {
			client.SetAuthToken(opts.APIKey)
		}
	}

	client.SetBaseURL(opts.BaseURL)
	client.SetTimeout(publisherTimeout)
	client.SetHeader("Content-Type", "application/json")

	return &RestPublisher{
		client: client,
		logger: opts.Logger,
	}, nil
}

type postPayload struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt,omitempty"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

type postResponse struct {
	ID     string `json:"id"`
	Link   string `json:"link,omitempty"`
	Status string `json:"status,omitempty"`
}

// Publish creates a post from the generated content.
func (p *RestPublisher) Publish(ctx context.Context, content *models.GeneratedContent) (*interfaces.PublishResult, error) {
	payload, err := buildPostPayload(content)
	if err != nil {
		return nil, err
	}

	var out postResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&out).
		Post("/posts")
	if err != nil {
		return nil, fmt.Errorf("publish request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("publish rejected: %s: %s", resp.Status(), resp.String())
	}

	return &interfaces.PublishResult{
		PostID: out.ID,
		URL:    out.Link,
		Status: statusOrDefault(out.Status, "published"),
	}, nil
}

// Update replaces an existing post's content.
func (p *RestPublisher) Update(ctx context.Context, postID string, content *models.GeneratedContent) (*interfaces.PublishResult, error) {
	payload, err := buildPostPayload(content)
	if err != nil {
		return nil, err
	}

	var out postResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&out).
		Put("/posts/" + postID)
	if err != nil {
		return nil, fmt.Errorf("update request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("update rejected: %s: %s", resp.Status(), resp.String())
	}

	return &interfaces.PublishResult{
		PostID: postID,
		URL:    out.Link,
		Status: statusOrDefault(out.Status, "published"),
	}, nil
}

// Delete removes a post.
func (p *RestPublisher) Delete(ctx context.Context, postID string) error {
	resp, err := p.client.R().
		SetContext(ctx).
		Delete("/posts/" + postID)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("delete rejected: %s", resp.Status())
	}
	return nil
}

// GetStatus fetches the remote state of a post.
func (p *RestPublisher) GetStatus(ctx context.Context, postID string) (*interfaces.PublishResult, error) {
	var out postResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/posts/" + postID)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("status rejected: %s", resp.Status())
	}

	return &interfaces.PublishResult{
		PostID: postID,
		URL:    out.Link,
		Status: out.Status,
	}, nil
}

// ValidateCredentials probes the endpoint without creating anything.
func (p *RestPublisher) ValidateCredentials(ctx context.Context) error {
	resp, err := p.client.R().
		SetContext(ctx).
		Get("/posts?per_page=1")
	if err != nil {
		return fmt.Errorf("credential check failed: %w", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		return fmt.Errorf("credential check rejected: %s", resp.Status())
	}
	return nil
}

func buildPostPayload(content *models.GeneratedContent) (*postPayload, error) {
	var html bytes.Buffer
	if err := goldmark.Convert([]byte(content.Body), &html); err != nil {
		return nil, fmt.Errorf("failed to render markdown body: %w", err)
	}

	return &postPayload{
		Title:   content.Title,
		Excerpt: content.Excerpt,
		Content: html.String(),
		Status:  "publish",
	}, nil
}

func statusOrDefault(status, fallback string) string {
	if status == "" {
		return fallback
	}
	return status
}
