package interfaces

import (
	"context"
	"time"

	"github.com/praecohq/praeco/internal/models"
)

// UsageRecord carries the accounting detail attached to one tracked
// operation. All fields except Operation and Units are optional.
type UsageRecord struct {
	Operation    string
	Units        int
	Cost         float64
	Success      bool
	ErrorMessage string
	Duration     time.Duration
	ContentID    string
	JobID        string
	Metadata     map[string]interface{}
}

// TestResult is the outcome of probing a binding's credentials.
type TestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CapabilityBroker selects which provider instance services a capability
// request under health, quota and fallback constraints.
type CapabilityBroker interface {
	// Resolve returns the first healthy, quota-available binding for the
	// capability. ErrNoProvider means "no provider currently available" and
	// is recoverable, not a hard error.
	Resolve(ctx context.Context, ownerID string, cap models.Capability, brandID *string, preferredProvider string) (*models.IntegrationBinding, error)

	// CheckHealth performs lazy period resets and quota checks, persisting
	// any state change. It never returns an error; an unusable binding is
	// simply reported unhealthy.
	CheckHealth(ctx context.Context, binding *models.IntegrationBinding) bool

	// TrackUsage increments the binding's counters and appends a ledger
	// event. Accounting failures are logged, never propagated.
	TrackUsage(ctx context.Context, bindingID string, record UsageRecord)

	// GetClient constructs the vendor client for the binding via the
	// provider registry.
	GetClient(ctx context.Context, binding *models.IntegrationBinding) (ProviderClient, error)

	// Test probes the binding's credentials with a minimal,
	// side-effect-free call, persisting the outcome onto the binding.
	Test(ctx context.Context, bindingID string) TestResult
}
