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

// IntegrationStorage implements the IntegrationStorage interface for Badger
type IntegrationStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewIntegrationStorage creates a new IntegrationStorage instance
func NewIntegrationStorage(db *BadgerDB, logger arbor.ILogger) interfaces.IntegrationStorage {
	return &IntegrationStorage{
		db:     db,
		logger: logger,
	}
}

// Save persists a new integration binding
func (s *IntegrationStorage) Save(ctx context.Context, binding *models.IntegrationBinding) error {
	if binding.ID == "" {
		return fmt.Errorf("integration binding requires an id")
	}
	now := time.Now().UTC()
	if binding.CreatedAt.IsZero() {
		binding.CreatedAt = now
	}
	binding.UpdatedAt = now

	if err := s.db.Store().Upsert(binding.ID, binding); err != nil {
		return fmt.Errorf("failed to save integration binding: %w", err)
	}
	return nil
}

// Get retrieves a binding by ID
func (s *IntegrationStorage) Get(ctx context.Context, id string) (*models.IntegrationBinding, error) {
	var binding models.IntegrationBinding
	err := s.db.Store().Get(id, &binding)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get integration binding: %w", err)
	}
	return &binding, nil
}

// Update persists mutations to an existing binding
func (s *IntegrationStorage) Update(ctx context.Context, binding *models.IntegrationBinding) error {
	binding.UpdatedAt = time.Now().UTC()
	err := s.db.Store().Update(binding.ID, binding)
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update integration binding: %w", err)
	}
	return nil
}

// SoftDelete marks a binding as deleted without removing the record
func (s *IntegrationStorage) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	err := s.db.Store().UpdateMatching(&models.IntegrationBinding{},
		badgerhold.Where(badgerhold.Key).Eq(id),
		func(record interface{}) error {
			binding, ok := record.(*models.IntegrationBinding)
			if !ok {
				return fmt.Errorf("unexpected record type %T", record)
			}
			binding.DeletedAt = &now
			binding.Enabled = false
			binding.UpdatedAt = now
			return nil
		})
	if err != nil {
		return fmt.Errorf("failed to soft-delete integration binding: %w", err)
	}
	return nil
}

// ListCandidates returns enabled, non-deleted bindings for the owner scoped
// to the brand, ordered by is_default desc, priority desc, created_at asc.
// The ordering is deterministic: ties fall back to insertion order (ID).
func (s *IntegrationStorage) ListCandidates(ctx context.Context, ownerID string, brandID *string) ([]*models.IntegrationBinding, error) {
	var all []models.IntegrationBinding
	err := s.db.Store().Find(&all, badgerhold.Where("OwnerID").Eq(ownerID).Index("OwnerID"))
	if err != nil {
		return nil, fmt.Errorf("failed to list integration bindings: %w", err)
	}

	candidates := make([]*models.IntegrationBinding, 0, len(all))
	for i := range all {
		b := &all[i]
		if !b.Enabled || b.IsDeleted() {
			continue
		}
		if !b.ScopedTo(brandID) {
			continue
		}
		candidates = append(candidates, b)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.IsDefault != b.IsDefault {
			return a.IsDefault
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	return candidates, nil
}

// IncrementUsage atomically adds units to both period counters and cost to
// the running total. The update runs inside a single badger transaction so
// concurrent jobs drawing on the same binding never lose increments.
func (s *IntegrationStorage) IncrementUsage(ctx context.Context, id string, units int, cost float64, now time.Time) error {
	err := s.db.Store().UpdateMatching(&models.IntegrationBinding{},
		badgerhold.Where(badgerhold.Key).Eq(id),
		func(record interface{}) error {
			binding, ok := record.(*models.IntegrationBinding)
			if !ok {
				return fmt.Errorf("unexpected record type %T", record)
			}
			binding.UsageToday += units
			binding.UsageThisMonth += units
			binding.TotalCost += cost
			used := now
			binding.LastUsed = &used
			binding.UpdatedAt = now
			return nil
		})
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return nil
}
