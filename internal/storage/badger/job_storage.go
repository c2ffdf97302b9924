package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

// Save persists a job record
func (s *JobStorage) Save(ctx context.Context, job *models.QueueJob) error {
	if job.ID == "" {
		return fmt.Errorf("queue job requires an id")
	}
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// Get retrieves a job by ID
func (s *JobStorage) Get(ctx context.Context, id string) (*models.QueueJob, error) {
	var job models.QueueJob
	err := s.db.Store().Get(id, &job)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// Update persists mutations to an existing job
func (s *JobStorage) Update(ctx context.Context, job *models.QueueJob) error {
	err := s.db.Store().Update(job.ID, job)
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

// ListByQueue returns jobs for a queue, optionally filtered by status,
// newest first.
func (s *JobStorage) ListByQueue(ctx context.Context, queue string, status models.JobStatus, limit int) ([]*models.QueueJob, error) {
	query := badgerhold.Where("Queue").Eq(queue).Index("Queue")
	if status != "" {
		query = query.And("Status").Eq(status)
	}

	var all []models.QueueJob
	if err := s.db.Store().Find(&all, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	jobs := make([]*models.QueueJob, len(all))
	for i := range all {
		jobs[i] = &all[i]
	}
	return jobs, nil
}

// Trim garbage-collects terminal jobs beyond the retention counts, oldest
// first. Pending and active jobs are never touched.
func (s *JobStorage) Trim(ctx context.Context, queue string, retainCompleted, retainFailed int) error {
	if err := s.trimStatus(queue, models.JobCompleted, retainCompleted); err != nil {
		return err
	}
	return s.trimStatus(queue, models.JobFailed, retainFailed)
}

func (s *JobStorage) trimStatus(queue string, status models.JobStatus, retain int) error {
	if retain < 0 {
		return nil
	}

	var all []models.QueueJob
	err := s.db.Store().Find(&all,
		badgerhold.Where("Queue").Eq(queue).Index("Queue").And("Status").Eq(status))
	if err != nil {
		return fmt.Errorf("failed to list %s jobs for trim: %w", status, err)
	}
	if len(all) <= retain {
		return nil
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	for _, job := range all[:len(all)-retain] {
		if err := s.db.Store().Delete(job.ID, &models.QueueJob{}); err != nil && err != badgerhold.ErrNotFound {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to trim job record")
		}
	}
	return nil
}
