package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/praecohq/praeco/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// IntegrationStorage persists integration bindings.
//
// IncrementUsage is the only way usage counters move upward; it applies the
// increments inside a single store transaction so concurrent jobs drawing on
// the same binding never lose updates.
type IntegrationStorage interface {
	Save(ctx context.Context, binding *models.IntegrationBinding) error
	Get(ctx context.Context, id string) (*models.IntegrationBinding, error)
	Update(ctx context.Context, binding *models.IntegrationBinding) error
	SoftDelete(ctx context.Context, id string) error

	// ListCandidates returns enabled, non-deleted bindings for the owner,
	// scoped to the brand (account-wide bindings always included), ordered
	// by is_default desc, priority desc, created_at asc.
	ListCandidates(ctx context.Context, ownerID string, brandID *string) ([]*models.IntegrationBinding, error)

	// IncrementUsage atomically adds units to both period counters and cost
	// to the running total, stamping last_used.
	IncrementUsage(ctx context.Context, id string, units int, cost float64, now time.Time) error
}

// UsageStorage is the append-only usage ledger.
type UsageStorage interface {
	Append(ctx context.Context, event *models.UsageEvent) error
	ListForIntegration(ctx context.Context, integrationID string, limit int) ([]*models.UsageEvent, error)
}

// IdeaStorage persists scored ideas.
type IdeaStorage interface {
	Save(ctx context.Context, idea *models.Idea) error
	Get(ctx context.Context, id string) (*models.Idea, error)
	Update(ctx context.Context, idea *models.Idea) error

	// Exists reports whether an idea with the dedup key
	// (brand, source, sourceID) is already persisted.
	Exists(ctx context.Context, brandID, source, sourceID string) (bool, error)

	// CountSavedSince returns how many ideas were persisted for the brand
	// at or after the given instant. Used for the cumulative daily cap.
	CountSavedSince(ctx context.Context, brandID string, since time.Time) (int, error)

	ListForBrand(ctx context.Context, brandID string, limit int) ([]*models.Idea, error)
}

// RunStorage persists discovery runs.
type RunStorage interface {
	Save(ctx context.Context, run *models.DiscoveryRun) error
	Update(ctx context.Context, run *models.DiscoveryRun) error
	Get(ctx context.Context, id string) (*models.DiscoveryRun, error)
	ListForBrand(ctx context.Context, brandID string, limit int) ([]*models.DiscoveryRun, error)
}

// JobStorage persists queue job records for introspection and retention.
type JobStorage interface {
	Save(ctx context.Context, job *models.QueueJob) error
	Get(ctx context.Context, id string) (*models.QueueJob, error)
	Update(ctx context.Context, job *models.QueueJob) error
	ListByQueue(ctx context.Context, queue string, status models.JobStatus, limit int) ([]*models.QueueJob, error)

	// Trim garbage-collects terminal jobs beyond the retention counts,
	// oldest first. Operational convenience, not a correctness requirement.
	Trim(ctx context.Context, queue string, retainCompleted, retainFailed int) error
}

// ContentStorage persists generated content.
type ContentStorage interface {
	Save(ctx context.Context, content *models.GeneratedContent) error
	Get(ctx context.Context, id string) (*models.GeneratedContent, error)
	Update(ctx context.Context, content *models.GeneratedContent) error
	ListForBrand(ctx context.Context, brandID string, limit int) ([]*models.GeneratedContent, error)
}

// BrandStorage persists brand profiles.
type BrandStorage interface {
	Save(ctx context.Context, brand *models.Brand) error
	Get(ctx context.Context, id string) (*models.Brand, error)
	Update(ctx context.Context, brand *models.Brand) error
	List(ctx context.Context) ([]*models.Brand, error)
}

// ErrKeyNotFound is returned when a key/value pair does not exist.
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStorage stores secrets and small settings (API keys etc).
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value, description string) error
	GetAll(ctx context.Context) (map[string]string, error)
}

// StorageManager aggregates all storage interfaces over one database.
type StorageManager interface {
	IntegrationStorage() IntegrationStorage
	UsageStorage() UsageStorage
	IdeaStorage() IdeaStorage
	RunStorage() RunStorage
	JobStorage() JobStorage
	ContentStorage() ContentStorage
	BrandStorage() BrandStorage
	KeyValueStorage() KeyValueStorage

	// DB returns the underlying database handle (backend-specific).
	DB() interface{}
	Close() error
}
