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

// RunStorage implements the RunStorage interface for Badger
type RunStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRunStorage creates a new RunStorage instance
func NewRunStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RunStorage {
	return &RunStorage{
		db:     db,
		logger: logger,
	}
}

// Save persists a new discovery run
func (s *RunStorage) Save(ctx context.Context, run *models.DiscoveryRun) error {
	if run.ID == "" {
		return fmt.Errorf("discovery run requires an id")
	}
	if err := s.db.Store().Upsert(run.ID, run); err != nil {
		return fmt.Errorf("failed to save discovery run: %w", err)
	}
	return nil
}

// Update persists mutations to an existing run
func (s *RunStorage) Update(ctx context.Context, run *models.DiscoveryRun) error {
	err := s.db.Store().Update(run.ID, run)
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update discovery run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID
func (s *RunStorage) Get(ctx context.Context, id string) (*models.DiscoveryRun, error) {
	var run models.DiscoveryRun
	err := s.db.Store().Get(id, &run)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get discovery run: %w", err)
	}
	return &run, nil
}

// ListForBrand returns the brand's runs, newest first
func (s *RunStorage) ListForBrand(ctx context.Context, brandID string, limit int) ([]*models.DiscoveryRun, error) {
	var all []models.DiscoveryRun
	err := s.db.Store().Find(&all, badgerhold.Where("BrandID").Eq(brandID).Index("BrandID"))
	if err != nil {
		return nil, fmt.Errorf("failed to list discovery runs: %w", err)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].StartedAt.After(all[j].StartedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	runs := make([]*models.DiscoveryRun, len(all))
	for i := range all {
		runs[i] = &all[i]
	}
	return runs, nil
}
