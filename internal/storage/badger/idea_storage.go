package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
)

// IdeaStorage implements the IdeaStorage interface for Badger
type IdeaStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewIdeaStorage creates a new IdeaStorage instance
func NewIdeaStorage(db *BadgerDB, logger arbor.ILogger) interfaces.IdeaStorage {
	return &IdeaStorage{
		db:     db,
		logger: logger,
	}
}

// Save persists an idea
func (s *IdeaStorage) Save(ctx context.Context, idea *models.Idea) error {
	if idea.ID == "" {
		return fmt.Errorf("idea requires an id")
	}
	if idea.CreatedAt.IsZero() {
		idea.CreatedAt = time.Now().UTC()
	}

	if err := s.db.Store().Upsert(idea.ID, idea); err != nil {
		return fmt.Errorf("failed to save idea: %w", err)
	}
	return nil
}

// Get retrieves an idea by ID
func (s *IdeaStorage) Get(ctx context.Context, id string) (*models.Idea, error) {
	var idea models.Idea
	err := s.db.Store().Get(id, &idea)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idea: %w", err)
	}
	return &idea, nil
}

// Update persists mutations to an existing idea
func (s *IdeaStorage) Update(ctx context.Context, idea *models.Idea) error {
	err := s.db.Store().Update(idea.ID, idea)
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update idea: %w", err)
	}
	return nil
}

// Exists reports whether an idea with the dedup key (brand, source,
// sourceID) is already persisted.
func (s *IdeaStorage) Exists(ctx context.Context, brandID, source, sourceID string) (bool, error) {
	count, err := s.db.Store().Count(&models.Idea{},
		badgerhold.Where("BrandID").Eq(brandID).Index("BrandID").
			And("Source").Eq(source).
			And("SourceID").Eq(sourceID))
	if err != nil {
		return false, fmt.Errorf("failed to check idea existence: %w", err)
	}
	return count > 0, nil
}

// CountSavedSince returns how many ideas were persisted for the brand at or
// after the given instant.
func (s *IdeaStorage) CountSavedSince(ctx context.Context, brandID string, since time.Time) (int, error) {
	count, err := s.db.Store().Count(&models.Idea{},
		badgerhold.Where("BrandID").Eq(brandID).Index("BrandID").
			And("CreatedAt").Ge(since))
	if err != nil {
		return 0, fmt.Errorf("failed to count recent ideas: %w", err)
	}
	return int(count), nil
}

// ListForBrand returns the brand's ideas, newest first
func (s *IdeaStorage) ListForBrand(ctx context.Context, brandID string, limit int) ([]*models.Idea, error) {
	var all []models.Idea
	err := s.db.Store().Find(&all, badgerhold.Where("BrandID").Eq(brandID).Index("BrandID"))
	if err != nil {
		return nil, fmt.Errorf("failed to list ideas: %w", err)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	ideas := make([]*models.Idea, len(all))
	for i := range all {
		ideas[i] = &all[i]
	}
	return ideas, nil
}
