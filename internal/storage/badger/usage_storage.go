package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/praecohq/praeco/internal/common"
	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
)

// UsageStorage implements the append-only usage ledger for Badger
type UsageStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewUsageStorage creates a new UsageStorage instance
func NewUsageStorage(db *BadgerDB, logger arbor.ILogger) interfaces.UsageStorage {
	return &UsageStorage{
		db:     db,
		logger: logger,
	}
}

// Append writes an immutable ledger entry. Insert, never upsert: an
// existing event is never overwritten.
func (s *UsageStorage) Append(ctx context.Context, event *models.UsageEvent) error {
	if event.ID == "" {
		event.ID = common.NewEventID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	if err := s.db.Store().Insert(event.ID, event); err != nil {
		return fmt.Errorf("failed to append usage event: %w", err)
	}
	return nil
}

// ListForIntegration returns the most recent events for a binding
func (s *UsageStorage) ListForIntegration(ctx context.Context, integrationID string, limit int) ([]*models.UsageEvent, error) {
	var all []models.UsageEvent
	err := s.db.Store().Find(&all, badgerhold.Where("IntegrationID").Eq(integrationID).Index("IntegrationID"))
	if err != nil {
		return nil, fmt.Errorf("failed to list usage events: %w", err)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	events := make([]*models.UsageEvent, len(all))
	for i := range all {
		events[i] = &all[i]
	}
	return events, nil
}
