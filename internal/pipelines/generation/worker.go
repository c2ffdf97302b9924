package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/common"
	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
	"github.com/praecohq/praeco/internal/queue"
)

const defaultTargetWords = 800

// Worker turns one scored idea into a persisted piece of generated content.
// The flow is staged and reports progress at each milestone; any stage
// failure surfaces to the queue so its retry policy applies.
type Worker struct {
	broker  interfaces.CapabilityBroker
	brands  interfaces.BrandStorage
	ideas   interfaces.IdeaStorage
	content interfaces.ContentStorage
	logger  arbor.ILogger
	now     func() time.Time
}

// NewWorker creates a generation worker.
func NewWorker(
	broker interfaces.CapabilityBroker,
	brands interfaces.BrandStorage,
	ideas interfaces.IdeaStorage,
	content interfaces.ContentStorage,
	logger arbor.ILogger,
) *Worker {
	return &Worker{
		broker:  broker,
		brands:  brands,
		ideas:   ideas,
		content: content,
		logger:  logger,
		now:     time.Now,
	}
}

// Handle processes one generation job. Payload: {"brand_id": "...",
// "idea_id": "..."}.
func (w *Worker) Handle(ctx context.Context, jc *queue.JobContext) error {
	brandID := jc.Job.PayloadString("brand_id")
	ideaID := jc.Job.PayloadString("idea_id")
	if brandID == "" || ideaID == "" {
		return fmt.Errorf("generation job %s missing brand_id or idea_id", jc.Job.ID)
	}

	brand, err := w.brands.Get(ctx, brandID)
	if err != nil {
		return fmt.Errorf("failed to load brand %s: %w", brandID, err)
	}
	jc.Progress(ctx, 20)

	idea, err := w.ideas.Get(ctx, ideaID)
	if err != nil {
		return fmt.Errorf("failed to load idea %s: %w", ideaID, err)
	}
	jc.Progress(ctx, 30)

	prompt := buildGenerationPrompt(brand, idea)
	jc.Progress(ctx, 40)

	binding, err := w.broker.Resolve(ctx, brand.OwnerID, models.CapabilityTextGeneration, &brand.ID, brand.PreferredProvider)
	if err != nil {
		return fmt.Errorf("no text provider available: %w", err)
	}
	client, err := w.broker.GetClient(ctx, binding)
	if err != nil {
		return fmt.Errorf("failed to build provider client: %w", err)
	}
	generator, ok := client.(interfaces.TextGenerator)
	if !ok {
		return fmt.Errorf("provider %s cannot generate text", binding.ProviderID)
	}

	started := w.now()
	result, err := generator.GenerateText(ctx, prompt, interfaces.TextOptions{
		System:    buildSystemPrompt(brand),
		MaxTokens: 4096,
	})
	record := interfaces.UsageRecord{
		Operation: "text_generation",
		Units:     1,
		Success:   err == nil,
		Duration:  w.now().Sub(started),
		JobID:     jc.Job.ID,
	}
	if err != nil {
		record.ErrorMessage = err.Error()
		w.broker.TrackUsage(ctx, binding.ID, record)
		return fmt.Errorf("text generation failed: %w", err)
	}
	record.Units = result.Usage.Total
	w.broker.TrackUsage(ctx, binding.ID, record)
	jc.Progress(ctx, 70)

	parsed := parseResponse(result.Text)
	jc.Progress(ctx, 80)

	quality := scoreQuality(parsed, defaultTargetWords)
	jc.Progress(ctx, 90)

	piece := &models.GeneratedContent{
		ID:        common.NewContentID(),
		BrandID:   brand.ID,
		IdeaID:    idea.ID,
		JobID:     jc.Job.ID,
		Title:     parsed.Title,
		Excerpt:   parsed.Excerpt,
		Body:      parsed.Body,
		WordCount: wordCount(parsed.Body),
		Quality:   quality,
		Provider:  binding.ProviderID,
		Model:     result.Model,
		Status:    models.ContentDraft,
		CreatedAt: w.now().UTC(),
		UpdatedAt: w.now().UTC(),
	}
	if err := w.content.Save(ctx, piece); err != nil {
		return fmt.Errorf("failed to persist content: %w", err)
	}

	jc.Job.Result = map[string]interface{}{
		"content_id":      piece.ID,
		"word_count":      piece.WordCount,
		"quality_overall": quality.Overall,
	}
	jc.Progress(ctx, 100)

	w.logger.Info().
		Str("content_id", piece.ID).
		Str("brand_id", brand.ID).
		Str("idea_id", idea.ID).
		Int("word_count", piece.WordCount).
		Msg("Content generated")
	return nil
}

// buildSystemPrompt renders the brand's voice and audience into the system
// prompt.
func buildSystemPrompt(brand *models.Brand) string {
	var sb strings.Builder
	sb.WriteString("You are a content writer for the brand \"" + brand.Name + "\".")
	if brand.Voice != "" {
		sb.WriteString(" Write in this voice: " + brand.Voice + ".")
	}
	if brand.Audience != "" {
		sb.WriteString(" The audience is: " + brand.Audience + ".")
	}
	return sb.String()
}

// buildGenerationPrompt renders the user prompt for one idea.
func buildGenerationPrompt(brand *models.Brand, idea *models.Idea) string {
	var sb strings.Builder

	sb.WriteString("Write a complete piece of content for this idea.\n\n")
	sb.WriteString("IDEA:\n")
	sb.WriteString(fmt.Sprintf("  title: %s\n", idea.Title))
	if idea.Description != "" {
		sb.WriteString(fmt.Sprintf("  description: %s\n", idea.Description))
	}
	if len(idea.Keywords) > 0 {
		sb.WriteString(fmt.Sprintf("  keywords: %s\n", strings.Join(idea.Keywords, ", ")))
	}
	if idea.ContentType != "" {
		sb.WriteString(fmt.Sprintf("  content_type: %s\n", idea.ContentType))
	}
	if idea.ResearchNotes != "" {
		sb.WriteString("\nRESEARCH NOTES:\n")
		sb.WriteString(idea.ResearchNotes)
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf(`
Target length: about %d words. Use markdown in the body.
Respond in exactly this format:

TITLE: <headline>
EXCERPT: <one-sentence summary>
BODY:
<the full piece in markdown>
`, defaultTargetWords))

	return sb.String()
}
