package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/common"
	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
	"github.com/praecohq/praeco/internal/queue"
)

// Options tune the discovery worker. Brand-level settings override these.
type Options struct {
	MinScore       float64 // overall-score floor, default 50
	MaxIdeasPerDay int     // cumulative per-brand daily cap, default 20
}

// Worker harvests candidate ideas from a brand's sources and turns the
// survivors into persisted, scored ideas. Sources run sequentially; a
// failing source finalizes its own run as failed and never aborts siblings.
type Worker struct {
	broker  interfaces.CapabilityBroker
	brands  interfaces.BrandStorage
	ideas   interfaces.IdeaStorage
	runs    interfaces.RunStorage
	events  interfaces.EventService
	sources map[string]interfaces.SourceClient
	opts    Options
	logger  arbor.ILogger
	now     func() time.Time
}

// NewWorker creates a discovery worker.
func NewWorker(
	broker interfaces.CapabilityBroker,
	brands interfaces.BrandStorage,
	ideas interfaces.IdeaStorage,
	runs interfaces.RunStorage,
	events interfaces.EventService,
	sources map[string]interfaces.SourceClient,
	opts Options,
	logger arbor.ILogger,
) *Worker {
	if opts.MinScore <= 0 {
		opts.MinScore = 50
	}
	if opts.MaxIdeasPerDay <= 0 {
		opts.MaxIdeasPerDay = 20
	}
	return &Worker{
		broker:  broker,
		brands:  brands,
		ideas:   ideas,
		runs:    runs,
		events:  events,
		sources: sources,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the worker's clock. Test hook.
func (w *Worker) WithClock(now func() time.Time) *Worker {
	w.now = now
	return w
}

// Handle processes one discovery job. Payload: {"brand_id": "..."} with an
// optional "source" to restrict the run to a single source.
func (w *Worker) Handle(ctx context.Context, jc *queue.JobContext) error {
	brandID := jc.Job.PayloadString("brand_id")
	if brandID == "" {
		return fmt.Errorf("discovery job %s missing brand_id", jc.Job.ID)
	}

	brand, err := w.brands.Get(ctx, brandID)
	if err != nil {
		return fmt.Errorf("failed to load brand %s: %w", brandID, err)
	}

	sourceNames := brand.Sources
	if only := jc.Job.PayloadString("source"); only != "" {
		sourceNames = []string{only}
	}
	if len(sourceNames) == 0 {
		w.logger.Warn().Str("brand_id", brandID).Msg("Brand has no discovery sources configured")
		jc.Progress(ctx, 100)
		return nil
	}

	jc.Progress(ctx, 5)

	for i, name := range sourceNames {
		w.runSource(ctx, brand, name)

		// 5..95 spread across sources; the handler return closes it out.
		jc.Progress(ctx, 5+(90*(i+1))/len(sourceNames))
	}

	jc.Progress(ctx, 100)
	return nil
}

// runSource executes one source for one brand. The run record is finalized
// exactly once, success or failure.
func (w *Worker) runSource(ctx context.Context, brand *models.Brand, sourceName string) {
	run := &models.DiscoveryRun{
		ID:        common.NewRunID(),
		BrandID:   brand.ID,
		Source:    sourceName,
		Status:    models.RunRunning,
		StartedAt: w.now().UTC(),
	}
	if err := w.runs.Save(ctx, run); err != nil {
		w.logger.Error().Err(err).
			Str("brand_id", brand.ID).
			Str("source", sourceName).
			Msg("Failed to create discovery run")
		return
	}

	source, ok := w.sources[sourceName]
	if !ok {
		w.finalizeRun(ctx, run, fmt.Errorf("unknown source %q", sourceName))
		return
	}

	candidates, err := source.Fetch(ctx, brand)
	if err != nil {
		w.finalizeRun(ctx, run, fmt.Errorf("source fetch failed: %w", err))
		return
	}
	run.IdeasFound = len(candidates)

	w.processCandidates(ctx, brand, run, candidates)
	w.finalizeRun(ctx, run, nil)
}

// processCandidates dedups, analyzes, scores, filters and persists the
// candidates of one run, mutating the run's counters as it goes.
func (w *Worker) processCandidates(ctx context.Context, brand *models.Brand, run *models.DiscoveryRun, candidates []models.CandidateIdea) {
	maxPerDay := w.opts.MaxIdeasPerDay
	if brand.MaxIdeasPerDay > 0 {
		maxPerDay = brand.MaxIdeasPerDay
	}
	minScore := w.opts.MinScore
	if brand.MinScore > 0 {
		minScore = brand.MinScore
	}

	now := w.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	savedToday, err := w.ideas.CountSavedSince(ctx, brand.ID, startOfDay)
	if err != nil {
		w.logger.Warn().Err(err).
			Str("brand_id", brand.ID).
			Msg("Failed to count ideas saved today, assuming zero")
		savedToday = 0
	}

	for i := range candidates {
		candidate := &candidates[i]

		if savedToday >= maxPerDay {
			// Cap reached: stop saving, leave the run successful.
			w.logger.Info().
				Str("brand_id", brand.ID).
				Str("source", run.Source).
				Int("max_per_day", maxPerDay).
				Msg("Daily idea cap reached, stopping run early")
			break
		}

		exists, err := w.ideas.Exists(ctx, brand.ID, candidate.Source, candidate.SourceID)
		if err != nil {
			w.logger.Warn().Err(err).
				Str("source_id", candidate.SourceID).
				Msg("Dedup lookup failed, skipping candidate")
			run.ErrorCount++
			continue
		}
		if exists {
			// Duplicates count against the filtered total, same as the
			// minScore gate.
			run.IdeasFiltered++
			continue
		}

		analysis, err := w.analyze(ctx, brand, candidate)
		if err != nil {
			// Availability gaps degrade to filtering, not run failure.
			w.logger.Warn().Err(err).
				Str("brand_id", brand.ID).
				Str("title", candidate.Title).
				Msg("AI analysis unavailable, filtering candidate")
			run.IdeasFiltered++
			run.ErrorCount++
			continue
		}

		candidate.RelevanceScore = analysis.Relevance
		if len(analysis.Keywords) > 0 {
			candidate.Keywords = analysis.Keywords
		}
		if analysis.Category != "" {
			candidate.Category = analysis.Category
		}
		if analysis.ContentType != "" {
			candidate.ContentType = analysis.ContentType
		}
		if len(analysis.TargetPlatforms) > 0 {
			candidate.TargetPlatforms = analysis.TargetPlatforms
		}

		score := overallScore(candidate, brand.Weights)
		if score < minScore {
			run.IdeasFiltered++
			continue
		}

		idea := &models.Idea{
			ID:               common.NewIdeaID(),
			BrandID:          brand.ID,
			Source:           candidate.Source,
			SourceID:         candidate.SourceID,
			SourceURL:        candidate.SourceURL,
			Title:            candidate.Title,
			Description:      candidate.Description,
			Keywords:         candidate.Keywords,
			Category:         candidate.Category,
			ContentType:      candidate.ContentType,
			TargetPlatforms:  candidate.TargetPlatforms,
			ViralityScore:    candidate.ViralityScore,
			RelevanceScore:   candidate.RelevanceScore,
			CompetitionScore: candidate.CompetitionScore,
			TimelinessScore:  candidate.TimelinessScore,
			OverallScore:     score,
			Priority:         models.PriorityForScore(score),
			CreatedAt:        w.now().UTC(),
		}
		if err := w.ideas.Save(ctx, idea); err != nil {
			w.logger.Error().Err(err).
				Str("idea_id", idea.ID).
				Msg("Failed to persist idea")
			run.ErrorCount++
			continue
		}

		run.IdeasSaved++
		savedToday++
	}
}

// analyze resolves a text provider through the broker and asks it to judge
// one candidate. Usage is tracked win or lose.
func (w *Worker) analyze(ctx context.Context, brand *models.Brand, candidate *models.CandidateIdea) (*Analysis, error) {
	binding, err := w.broker.Resolve(ctx, brand.OwnerID, models.CapabilityContentAnalysis, &brand.ID, brand.PreferredProvider)
	if err != nil {
		return nil, err
	}

	client, err := w.broker.GetClient(ctx, binding)
	if err != nil {
		return nil, err
	}
	generator, ok := client.(interfaces.TextGenerator)
	if !ok {
		return nil, fmt.Errorf("provider %s cannot generate text", binding.ProviderID)
	}

	started := w.now()
	result, err := generator.GenerateText(ctx, buildAnalysisPrompt(brand, candidate), interfaces.TextOptions{
		MaxTokens: 1024,
	})
	record := interfaces.UsageRecord{
		Operation: "content_analysis",
		Units:     1,
		Success:   err == nil,
		Duration:  w.now().Sub(started),
	}
	if err != nil {
		record.ErrorMessage = err.Error()
		w.broker.TrackUsage(ctx, binding.ID, record)
		return nil, err
	}
	record.Units = result.Usage.Total
	w.broker.TrackUsage(ctx, binding.ID, record)

	return parseAnalysisResponse(result.Text)
}

// finalizeRun stamps the run terminal exactly once and emits the summary
// event.
func (w *Worker) finalizeRun(ctx context.Context, run *models.DiscoveryRun, cause error) {
	completed := w.now().UTC()
	run.CompletedAt = &completed
	if cause != nil {
		run.Status = models.RunFailed
		run.ErrorMessage = cause.Error()
		if run.ErrorCount == 0 {
			run.ErrorCount = 1
		}
	} else {
		run.Status = models.RunCompleted
	}

	if err := w.runs.Update(ctx, run); err != nil {
		w.logger.Error().Err(err).
			Str("run_id", run.ID).
			Msg("Failed to finalize discovery run")
		return
	}

	w.logger.Info().
		Str("run_id", run.ID).
		Str("brand_id", run.BrandID).
		Str("source", run.Source).
		Str("status", string(run.Status)).
		Int("found", run.IdeasFound).
		Int("saved", run.IdeasSaved).
		Int("filtered", run.IdeasFiltered).
		Msg("Discovery run finished")

	if w.events != nil {
		w.events.Publish(interfaces.Event{
			Type: interfaces.EventRunFinished,
			Data: map[string]interface{}{
				"run_id":   run.ID,
				"brand_id": run.BrandID,
				"source":   run.Source,
				"status":   string(run.Status),
				"found":    run.IdeasFound,
				"saved":    run.IdeasSaved,
				"filtered": run.IdeasFiltered,
			},
			Timestamp: completed,
		})
	}
}
