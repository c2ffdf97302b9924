package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
	"github.com/praecohq/praeco/internal/queue"
)

// Worker generates a hero image for a finished piece of content.
type Worker struct {
	broker  interfaces.CapabilityBroker
	brands  interfaces.BrandStorage
	content interfaces.ContentStorage
	logger  arbor.ILogger
	now     func() time.Time
}

// NewWorker creates a media worker.
func NewWorker(
	broker interfaces.CapabilityBroker,
	brands interfaces.BrandStorage,
	content interfaces.ContentStorage,
	logger arbor.ILogger,
) *Worker {
	return &Worker{
		broker:  broker,
		brands:  brands,
		content: content,
		logger:  logger,
		now:     time.Now,
	}
}

// Handle processes one media job. Payload: {"brand_id": "...",
// "content_id": "..."}.
func (w *Worker) Handle(ctx context.Context, jc *queue.JobContext) error {
	brandID := jc.Job.PayloadString("brand_id")
	contentID := jc.Job.PayloadString("content_id")
	if brandID == "" || contentID == "" {
		return fmt.Errorf("media job %s missing brand_id or content_id", jc.Job.ID)
	}

	brand, err := w.brands.Get(ctx, brandID)
	if err != nil {
		return fmt.Errorf("failed to load brand %s: %w", brandID, err)
	}
	piece, err := w.content.Get(ctx, contentID)
	if err != nil {
		return fmt.Errorf("failed to load content %s: %w", contentID, err)
	}
	jc.Progress(ctx, 25)

	binding, err := w.broker.Resolve(ctx, brand.OwnerID, models.CapabilityImageGeneration, &brand.ID, "")
	if err != nil {
		return fmt.Errorf("no image provider available: %w", err)
	}
	client, err := w.broker.GetClient(ctx, binding)
	if err != nil {
		return fmt.Errorf("failed to build provider client: %w", err)
	}
	generator, ok := client.(interfaces.ImageGenerator)
	if !ok {
		return fmt.Errorf("provider %s cannot generate images", binding.ProviderID)
	}
	jc.Progress(ctx, 40)

	started := w.now()
	result, err := generator.GenerateImage(ctx, buildImagePrompt(brand, piece), interfaces.ImageOptions{})
	record := interfaces.UsageRecord{
		Operation: "image_generation",
		Units:     1,
		Success:   err == nil,
		Duration:  w.now().Sub(started),
		ContentID: piece.ID,
		JobID:     jc.Job.ID,
	}
	if err != nil {
		record.ErrorMessage = err.Error()
		w.broker.TrackUsage(ctx, binding.ID, record)
		return fmt.Errorf("image generation failed: %w", err)
	}
	w.broker.TrackUsage(ctx, binding.ID, record)
	jc.Progress(ctx, 80)

	if result.URL != "" {
		piece.ImageURL = result.URL
	} else if result.Base64 != "" {
		piece.ImageURL = "data:image/png;base64," + result.Base64
	}
	piece.UpdatedAt = w.now().UTC()
	if err := w.content.Update(ctx, piece); err != nil {
		return fmt.Errorf("failed to persist image url: %w", err)
	}
	jc.Progress(ctx, 100)

	w.logger.Info().
		Str("content_id", piece.ID).
		Str("brand_id", brand.ID).
		Str("provider", binding.ProviderID).
		Msg("Hero image attached")
	return nil
}

// buildImagePrompt renders an image prompt from the content's title and
// excerpt.
func buildImagePrompt(brand *models.Brand, piece *models.GeneratedContent) string {
	var sb strings.Builder
	sb.WriteString("Hero image for an article titled \"")
	sb.WriteString(piece.Title)
	sb.WriteString("\".")
	if piece.Excerpt != "" {
		sb.WriteString(" The article is about: ")
		sb.WriteString(piece.Excerpt)
	}
	if brand.Voice != "" {
		sb.WriteString(" Visual style matching the brand voice: ")
		sb.WriteString(brand.Voice)
		sb.WriteString(".")
	}
	sb.WriteString(" No text in the image.")
	return sb.String()
}
