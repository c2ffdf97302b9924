package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
	"github.com/praecohq/praeco/internal/queue"
)

// Scheduler enqueues discovery jobs for every brand on a cron schedule.
// The queue dedups by job id, so overlapping ticks cannot stack runs for
// the same brand.
type Scheduler struct {
	discovery *queue.Manager
	brands    interfaces.BrandStorage
	opts      queue.EnqueueOptions
	cron      *cron.Cron
	logger    arbor.ILogger
}

// New creates a discovery scheduler.
func New(discovery *queue.Manager, brands interfaces.BrandStorage, opts queue.EnqueueOptions, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		discovery: discovery,
		brands:    brands,
		opts:      opts,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start registers the schedule and begins ticking.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		// Default: every 6 hours.
		schedule = "0 */6 * * *"
	}

	_, err := s.cron.AddFunc(schedule, s.runDiscovery)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Discovery scheduler started")
	return nil
}

// Stop stops the scheduler. Jobs already enqueued keep running.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("Discovery scheduler stopped")
}

// RunNow triggers an immediate discovery sweep.
func (s *Scheduler) RunNow() {
	go s.runDiscovery()
}

func (s *Scheduler) runDiscovery() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	brands, err := s.brands.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled discovery failed to list brands")
		return
	}

	enqueued := 0
	for _, brand := range brands {
		if len(brand.Sources) == 0 {
			continue
		}

		// Stable id per brand: a tick while the previous run is still
		// in flight is a no-op, a tick after it finished re-runs it.
		job := models.NewQueueJob(models.QueueDiscovery, "discovery-"+brand.ID, map[string]interface{}{
			"brand_id": brand.ID,
		})
		if err := s.discovery.Enqueue(ctx, job, s.opts); err != nil {
			s.logger.Error().Err(err).
				Str("brand_id", brand.ID).
				Msg("Failed to enqueue scheduled discovery")
			continue
		}
		enqueued++
	}

	s.logger.Info().
		Int("brands", len(brands)).
		Int("enqueued", enqueued).
		Msg("Scheduled discovery sweep complete")
}
