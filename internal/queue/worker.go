package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
)

// Handler processes one job. A returned error triggers the queue's
// retry/backoff policy; handlers therefore run under at-least-once
// semantics and must be idempotent.
type Handler func(ctx context.Context, job *JobContext) error

// JobContext is the handler's view of one claimed job.
type JobContext struct {
	Job *models.QueueJob

	pool *WorkerPool
}

// Progress reports fractional completion, 0-100. Progress is monotonic:
// values at or below the current one are ignored. Advisory telemetry only;
// reporting failures never affect the job.
func (jc *JobContext) Progress(ctx context.Context, pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if pct <= jc.Job.Progress {
		return
	}
	jc.Job.Progress = pct

	if err := jc.pool.jobs.Update(ctx, jc.Job); err != nil {
		jc.pool.logger.Debug().Err(err).
			Str("job_id", jc.Job.ID).
			Msg("Failed to persist job progress")
	}
	jc.pool.publishEvent(interfaces.EventJobProgress, jc.Job)
}

// WorkerOptions tune a worker pool.
type WorkerOptions struct {
	Concurrency     int           // max jobs processed in parallel, default 1
	RatePerMinute   int           // max jobs started per rolling minute, 0 = unlimited
	PollInterval    time.Duration // default 1s
	RetainCompleted int           // terminal retention, default 100
	RetainFailed    int           // terminal retention, default 50
}

// WorkerPool pulls jobs from one queue and runs them through a handler with
// bounded concurrency. The rate limiter caps throughput independently of the
// concurrency limit, which caps parallelism.
type WorkerPool struct {
	queue   *Manager
	jobs    interfaces.JobStorage
	events  interfaces.EventService
	handler Handler
	opts    WorkerOptions
	limiter *rate.Limiter
	logger  arbor.ILogger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorkerPool creates a worker pool. Pools are constructed once at process
// start and passed by handle; there is no global queue state.
func NewWorkerPool(queue *Manager, jobs interfaces.JobStorage, events interfaces.EventService, handler Handler, opts WorkerOptions, logger arbor.ILogger) *WorkerPool {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.RetainCompleted <= 0 {
		opts.RetainCompleted = 100
	}
	if opts.RetainFailed <= 0 {
		opts.RetainFailed = 50
	}

	var limiter *rate.Limiter
	if opts.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RatePerMinute)/60.0), 1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		queue:   queue,
		jobs:    jobs,
		events:  events,
		handler: handler,
		opts:    opts,
		limiter: limiter,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	wp.logger.Info().
		Str("queue", wp.queue.Name()).
		Int("concurrency", wp.opts.Concurrency).
		Int("rate_per_minute", wp.opts.RatePerMinute).
		Msg("Starting worker pool")

	for i := 0; i < wp.opts.Concurrency; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop stops the pool and waits for in-flight jobs to finish their current
// handler call. There is no mid-flight cancellation of an external call; a
// stuck call is bounded only by the client's own timeout.
func (wp *WorkerPool) Stop() {
	wp.logger.Info().Str("queue", wp.queue.Name()).Msg("Stopping worker pool")
	wp.cancel()
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	// Stagger worker starts to spread polls across the interval.
	stagger := (wp.opts.PollInterval / time.Duration(wp.opts.Concurrency)) * time.Duration(workerID)
	if stagger > 0 {
		select {
		case <-wp.ctx.Done():
			return
		case <-time.After(stagger):
		}
	}

	ticker := time.NewTicker(wp.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug().
				Str("queue", wp.queue.Name()).
				Int("worker_id", workerID).
				Msg("Worker stopped")
			return

		case <-ticker.C:
			if wp.limiter != nil && !wp.limiter.Allow() {
				continue
			}
			if err := wp.processOne(workerID); err != nil && !errors.Is(err, ErrNoMessage) {
				wp.logger.Warn().Err(err).
					Str("queue", wp.queue.Name()).
					Int("worker_id", workerID).
					Msg("Error processing message")
			}
		}
	}
}

// processOne receives and processes a single message.
func (wp *WorkerPool) processOne(workerID int) error {
	msg, err := wp.queue.Receive(wp.ctx)
	if err != nil {
		return err
	}

	job, err := wp.jobs.Get(wp.ctx, msg.JobID)
	if err != nil {
		// Message without a job record is a poison pill: drop it.
		wp.logger.Error().Err(err).
			Str("job_id", msg.JobID).
			Msg("Queue message references missing job, dropping")
		return wp.queue.Delete(msg.JobID)
	}
	if job.Status.IsTerminal() {
		// Redelivered after terminal transition (e.g. visibility expired
		// during the final update). Nothing to do.
		return wp.queue.Delete(msg.JobID)
	}

	now := time.Now().UTC()
	job.Status = models.JobActive
	job.Attempt = msg.ReceiveCount
	if job.StartedAt == nil {
		job.StartedAt = &now
	}
	if err := wp.jobs.Update(wp.ctx, job); err != nil {
		wp.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to mark job active")
	}
	wp.publishEvent(interfaces.EventJobStatus, job)

	jc := &JobContext{Job: job, pool: wp}

	start := time.Now()
	handlerErr := wp.runHandler(jc)
	duration := time.Since(start)

	if handlerErr != nil {
		return wp.handleFailure(job, msg.Backoff, duration, workerID, handlerErr)
	}

	completed := time.Now().UTC()
	job.Status = models.JobCompleted
	job.Progress = 100
	job.CompletedAt = &completed
	job.Error = ""
	if err := wp.jobs.Update(wp.ctx, job); err != nil {
		wp.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to mark job completed")
	}
	wp.publishEvent(interfaces.EventJobStatus, job)

	wp.logger.Info().
		Str("job_id", job.ID).
		Str("queue", wp.queue.Name()).
		Dur("duration", duration).
		Int("worker_id", workerID).
		Msg("Job completed")

	if err := wp.queue.Delete(job.ID); err != nil {
		return err
	}
	wp.trim()
	return nil
}

func (wp *WorkerPool) runHandler(jc *JobContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return wp.handler(wp.ctx, jc)
}

// handleFailure applies the retry policy: re-enter the queue with
// exponential backoff while attempts remain, otherwise fail terminally.
func (wp *WorkerPool) handleFailure(job *models.QueueJob, backoff time.Duration, duration time.Duration, workerID int, cause error) error {
	if job.Attempt >= job.MaxAttempts {
		completed := time.Now().UTC()
		job.Status = models.JobFailed
		job.Error = cause.Error()
		job.CompletedAt = &completed
		if err := wp.jobs.Update(wp.ctx, job); err != nil {
			wp.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to mark job failed")
		}
		wp.publishEvent(interfaces.EventJobStatus, job)

		wp.logger.Error().Err(cause).
			Str("job_id", job.ID).
			Str("queue", wp.queue.Name()).
			Int("attempts", job.Attempt).
			Dur("duration", duration).
			Msg("Job failed terminally, attempts exhausted")

		if err := wp.queue.Delete(job.ID); err != nil {
			return err
		}
		wp.trim()
		return nil
	}

	delay := RetryDelay(backoff, job.Attempt)
	job.Status = models.JobPending
	job.Error = cause.Error()
	if err := wp.jobs.Update(wp.ctx, job); err != nil {
		wp.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to mark job pending for retry")
	}
	wp.publishEvent(interfaces.EventJobStatus, job)

	wp.logger.Warn().Err(cause).
		Str("job_id", job.ID).
		Str("queue", wp.queue.Name()).
		Int("attempt", job.Attempt).
		Int("max_attempts", job.MaxAttempts).
		Dur("retry_in", delay).
		Int("worker_id", workerID).
		Msg("Job handler failed, scheduling retry")

	return wp.queue.Release(job.ID, delay)
}

func (wp *WorkerPool) trim() {
	if err := wp.jobs.Trim(wp.ctx, wp.queue.Name(), wp.opts.RetainCompleted, wp.opts.RetainFailed); err != nil {
		wp.logger.Debug().Err(err).Str("queue", wp.queue.Name()).Msg("Job retention trim failed")
	}
}

func (wp *WorkerPool) publishEvent(eventType interfaces.EventType, job *models.QueueJob) {
	if wp.events == nil {
		return
	}
	wp.events.Publish(interfaces.Event{
		Type:  eventType,
		JobID: job.ID,
		Queue: job.Queue,
		Data: map[string]interface{}{
			"status":   string(job.Status),
			"progress": job.Progress,
			"attempt":  job.Attempt,
		},
		Timestamp: time.Now().UTC(),
	})
}
