package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
)

// BrandStorage implements the BrandStorage interface for Badger
type BrandStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewBrandStorage creates a new BrandStorage instance
func NewBrandStorage(db *BadgerDB, logger arbor.ILogger) interfaces.BrandStorage {
	return &BrandStorage{
		db:     db,
		logger: logger,
	}
}

// Save persists a brand
func (s *BrandStorage) Save(ctx context.Context, brand *models.Brand) error {
	if brand.ID == "" {
		return fmt.Errorf("brand requires an id")
	}
	now := time.Now().UTC()
	if brand.CreatedAt.IsZero() {
		brand.CreatedAt = now
	}
	brand.UpdatedAt = now

	if err := s.db.Store().Upsert(brand.ID, brand); err != nil {
		return fmt.Errorf("failed to save brand: %w", err)
	}
	return nil
}

// Get retrieves a brand by ID
func (s *BrandStorage) Get(ctx context.Context, id string) (*models.Brand, error) {
	var brand models.Brand
	err := s.db.Store().Get(id, &brand)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get brand: %w", err)
	}
	return &brand, nil
}

// Update persists mutations to an existing brand
func (s *BrandStorage) Update(ctx context.Context, brand *models.Brand) error {
	brand.UpdatedAt = time.Now().UTC()
	err := s.db.Store().Update(brand.ID, brand)
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update brand: %w", err)
	}
	return nil
}

// List returns all brands
func (s *BrandStorage) List(ctx context.Context) ([]*models.Brand, error) {
	var all []models.Brand
	if err := s.db.Store().Find(&all, nil); err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}

	brands := make([]*models.Brand, len(all))
	for i := range all {
		brands[i] = &all[i]
	}
	return brands, nil
}
