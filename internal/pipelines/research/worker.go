package research

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

// Worker enriches a persisted idea with AI research notes before the
// generation pipeline picks it up.
type Worker struct {
	broker interfaces.CapabilityBroker
	brands interfaces.BrandStorage
	ideas  interfaces.IdeaStorage
	logger arbor.ILogger
	now    func() time.Time
}

// NewWorker creates a research worker.
func NewWorker(
	broker interfaces.CapabilityBroker,
	brands interfaces.BrandStorage,
	ideas interfaces.IdeaStorage,
	logger arbor.ILogger,
) *Worker {
	return &Worker{
		broker: broker,
		brands: brands,
		ideas:  ideas,
		logger: logger,
		now:    time.Now,
	}
}

// Handle processes one research job. Payload: {"brand_id": "...",
// "idea_id": "..."}.
func (w *Worker) Handle(ctx context.Context, jc *queue.JobContext) error {
	brandID := jc.Job.PayloadString("brand_id")
	ideaID := jc.Job.PayloadString("idea_id")
	if brandID == "" || ideaID == "" {
		return fmt.Errorf("research job %s missing brand_id or idea_id", jc.Job.ID)
	}

	brand, err := w.brands.Get(ctx, brandID)
	if err != nil {
		return fmt.Errorf("failed to load brand %s: %w", brandID, err)
	}
	idea, err := w.ideas.Get(ctx, ideaID)
	if err != nil {
		return fmt.Errorf("failed to load idea %s: %w", ideaID, err)
	}
	jc.Progress(ctx, 25)

	binding, err := w.broker.Resolve(ctx, brand.OwnerID, models.CapabilityContentAnalysis, &brand.ID, brand.PreferredProvider)
	if err != nil {
		return fmt.Errorf("no analysis provider available: %w", err)
	}
	client, err := w.broker.GetClient(ctx, binding)
	if err != nil {
		return fmt.Errorf("failed to build provider client: %w", err)
	}
	generator, ok := client.(interfaces.TextGenerator)
	if !ok {
		return fmt.Errorf("provider %s cannot generate text", binding.ProviderID)
	}
	jc.Progress(ctx, 40)

	started := w.now()
	result, err := generator.GenerateText(ctx, buildResearchPrompt(brand, idea), interfaces.TextOptions{
		MaxTokens: 2048,
	})
	record := interfaces.UsageRecord{
		Operation: "research",
		Units:     1,
		Success:   err == nil,
		Duration:  w.now().Sub(started),
		JobID:     jc.Job.ID,
	}
	if err != nil {
		record.ErrorMessage = err.Error()
		w.broker.TrackUsage(ctx, binding.ID, record)
		return fmt.Errorf("research generation failed: %w", err)
	}
	record.Units = result.Usage.Total
	w.broker.TrackUsage(ctx, binding.ID, record)
	jc.Progress(ctx, 80)

	idea.ResearchNotes = strings.TrimSpace(result.Text)
	if err := w.ideas.Update(ctx, idea); err != nil {
		return fmt.Errorf("failed to persist research notes: %w", err)
	}
	jc.Progress(ctx, 100)

	w.logger.Info().
		Str("idea_id", idea.ID).
		Str("brand_id", brand.ID).
		Int("notes_len", len(idea.ResearchNotes)).
		Msg("Research notes attached")
	return nil
}

// buildResearchPrompt renders the research prompt for one idea.
func buildResearchPrompt(brand *models.Brand, idea *models.Idea) string {
	var sb strings.Builder

	sb.WriteString("Research the following content idea and produce concise notes a writer can work from.\n\n")
	sb.WriteString(fmt.Sprintf("BRAND: %s", brand.Name))
	if brand.Audience != "" {
		sb.WriteString(fmt.Sprintf(" (audience: %s)", brand.Audience))
	}
	sb.WriteString("\n\nIDEA:\n")
	sb.WriteString(fmt.Sprintf("  title: %s\n", idea.Title))
	if idea.Description != "" {
		sb.WriteString(fmt.Sprintf("  description: %s\n", idea.Description))
	}
	if len(idea.Keywords) > 0 {
		sb.WriteString(fmt.Sprintf("  keywords: %s\n", strings.Join(idea.Keywords, ", ")))
	}

	sb.WriteString(`
Cover: key angles, supporting facts the writer should verify, common
objections, and 3-5 talking points. Plain markdown, no preamble.
`)

	return sb.String()
}
