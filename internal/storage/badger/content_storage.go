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

// ContentStorage implements the ContentStorage interface for Badger
type ContentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewContentStorage creates a new ContentStorage instance
func NewContentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ContentStorage {
	return &ContentStorage{
		db:     db,
		logger: logger,
	}
}

// Save persists generated content
func (s *ContentStorage) Save(ctx context.Context, content *models.GeneratedContent) error {
	if content.ID == "" {
		return fmt.Errorf("generated content requires an id")
	}
	now := time.Now().UTC()
	if content.CreatedAt.IsZero() {
		content.CreatedAt = now
	}
	content.UpdatedAt = now

	if err := s.db.Store().Upsert(content.ID, content); err != nil {
		return fmt.Errorf("failed to save generated content: %w", err)
	}
	return nil
}

// Get retrieves content by ID
func (s *ContentStorage) Get(ctx context.Context, id string) (*models.GeneratedContent, error) {
	var content models.GeneratedContent
	err := s.db.Store().Get(id, &content)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get generated content: %w", err)
	}
	return &content, nil
}

// Update persists mutations to existing content
func (s *ContentStorage) Update(ctx context.Context, content *models.GeneratedContent) error {
	content.UpdatedAt = time.Now().UTC()
	err := s.db.Store().Update(content.ID, content)
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update generated content: %w", err)
	}
	return nil
}

// ListForBrand returns the brand's content, newest first
func (s *ContentStorage) ListForBrand(ctx context.Context, brandID string, limit int) ([]*models.GeneratedContent, error) {
	var all []models.GeneratedContent
	err := s.db.Store().Find(&all, badgerhold.Where("BrandID").Eq(brandID).Index("BrandID"))
	if err != nil {
		return nil, fmt.Errorf("failed to list generated content: %w", err)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	contents := make([]*models.GeneratedContent, len(all))
	for i := range all {
		contents[i] = &all[i]
	}
	return contents, nil
}
