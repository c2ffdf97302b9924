// Package broker selects which provider integration services a capability
// request, under health, quota and fallback constraints, and accounts for
// usage against the chosen integration.
package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/common"
	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
	"github.com/praecohq/praeco/internal/registry"
)

// ErrNoProvider means no provider is currently available for the requested
// capability. Callers treat this as "defer or surface a configuration
// prompt", never as a crash.
var ErrNoProvider = errors.New("no provider available for capability")

// Period reset comparisons use calendar-day/month equality in a fixed
// reference timezone, UTC, regardless of host locale. Using host-local time
// would drift reset timing across deployment regions.
var resetLocation = time.UTC

// Service implements the CapabilityBroker interface.
type Service struct {
	registry     *registry.Registry
	integrations interfaces.IntegrationStorage
	usage        interfaces.UsageStorage
	kv           interfaces.KeyValueStorage
	config       *common.Config
	logger       arbor.ILogger
	now          func() time.Time
}

// Compile-time assertion
var _ interfaces.CapabilityBroker = (*Service)(nil)

// NewService creates a capability broker.
func NewService(
	reg *registry.Registry,
	integrations interfaces.IntegrationStorage,
	usage interfaces.UsageStorage,
	kv interfaces.KeyValueStorage,
	config *common.Config,
	logger arbor.ILogger,
) *Service {
	return &Service{
		registry:     reg,
		integrations: integrations,
		usage:        usage,
		kv:           kv,
		config:       config,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the broker's clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Resolve returns the first healthy, quota-available binding for the
// capability. Candidates are ordered is_default desc, priority desc, with a
// deterministic insertion-order tie-break. A preferred provider, when
// present in the candidate set, is tested first.
func (s *Service) Resolve(ctx context.Context, ownerID string, cap models.Capability, brandID *string, preferredProvider string) (*models.IntegrationBinding, error) {
	candidates, err := s.integrations.ListCandidates(ctx, ownerID, brandID)
	if err != nil {
		return nil, fmt.Errorf("failed to list capability candidates: %w", err)
	}

	matching := make([]*models.IntegrationBinding, 0, len(candidates))
	for _, b := range candidates {
		if b.HasCapability(cap) {
			matching = append(matching, b)
		}
	}
	if len(matching) == 0 {
		return nil, ErrNoProvider
	}

	if preferredProvider != "" {
		for _, b := range matching {
			if b.ProviderID == preferredProvider {
				if s.CheckHealth(ctx, b) {
					return b, nil
				}
				break
			}
		}
	}

	for _, b := range matching {
		if s.CheckHealth(ctx, b) {
			return b, nil
		}
	}

	s.logger.Debug().
		Str("owner_id", ownerID).
		Str("capability", string(cap)).
		Int("candidates", len(matching)).
		Msg("No healthy binding for capability")

	return nil, ErrNoProvider
}

// CheckHealth performs lazy period resets and quota checks, persisting any
// state change. A binding in error status is never healthy. The method never
// returns an error: storage failures are logged and the binding is reported
// unhealthy for this call.
func (s *Service) CheckHealth(ctx context.Context, binding *models.IntegrationBinding) bool {
	if binding.Status == models.IntegrationError {
		return false
	}
	if binding.Status == models.IntegrationDisabled || !binding.Enabled || binding.IsDeleted() {
		return false
	}

	now := s.now().In(resetLocation)
	dirty := false

	// Daily reset heals rate-limiting: a new calendar day always clears a
	// rate_limited status before the quota check below re-evaluates it.
	if !sameDay(binding.LastResetDaily, now) {
		binding.UsageToday = 0
		binding.LastResetDaily = now
		if binding.Status == models.IntegrationRateLimited {
			binding.Status = models.IntegrationActive
		}
		dirty = true
	}

	if !sameMonth(binding.LastResetMonthly, now) {
		binding.UsageThisMonth = 0
		binding.LastResetMonthly = now
		if binding.Status == models.IntegrationRateLimited {
			binding.Status = models.IntegrationActive
		}
		dirty = true
	}

	healthy := true
	if binding.DailyLimit != nil && binding.UsageToday >= *binding.DailyLimit {
		binding.Status = models.IntegrationRateLimited
		dirty = true
		healthy = false
	}
	if healthy && binding.MonthlyLimit != nil && binding.UsageThisMonth >= *binding.MonthlyLimit {
		binding.Status = models.IntegrationRateLimited
		dirty = true
		healthy = false
	}

	if dirty {
		if err := s.integrations.Update(ctx, binding); err != nil {
			s.logger.Warn().Err(err).
				Str("integration_id", binding.ID).
				Msg("Failed to persist health state change")
			return false
		}
	}

	return healthy
}

// TrackUsage increments the binding's counters and appends a ledger event.
// Accounting failures are logged, never propagated: losing a usage record is
// less harmful than failing the caller's already-produced work.
func (s *Service) TrackUsage(ctx context.Context, bindingID string, record interfaces.UsageRecord) {
	now := s.now()

	if err := s.integrations.IncrementUsage(ctx, bindingID, record.Units, record.Cost, now); err != nil {
		s.logger.Warn().Err(err).
			Str("integration_id", bindingID).
			Str("operation", record.Operation).
			Msg("Failed to increment usage counters")
	}

	event := &models.UsageEvent{
		ID:            common.NewEventID(),
		IntegrationID: bindingID,
		Operation:     record.Operation,
		UnitsUsed:     record.Units,
		Cost:          record.Cost,
		Success:       record.Success,
		ErrorMessage:  record.ErrorMessage,
		Duration:      record.Duration,
		ContentID:     record.ContentID,
		JobID:         record.JobID,
		Metadata:      record.Metadata,
		CreatedAt:     now,
	}
	if err := s.usage.Append(ctx, event); err != nil {
		s.logger.Warn().Err(err).
			Str("integration_id", bindingID).
			Str("operation", record.Operation).
			Msg("Failed to append usage event")
	}
}

// GetClient constructs the vendor client for the binding via the registry.
func (s *Service) GetClient(ctx context.Context, binding *models.IntegrationBinding) (interfaces.ProviderClient, error) {
	descriptor := s.registry.GetProvider(binding.ProviderID)
	if descriptor == nil {
		return nil, fmt.Errorf("unknown provider %q for integration %s", binding.ProviderID, binding.ID)
	}
	return descriptor.New(registry.ClientDeps{
		Config: s.config,
		KV:     s.kv,
		Logger: s.logger,
	}, binding)
}

// Test probes the binding's credentials with a minimal call: cost-free
// credential validation when the adapter supports it, otherwise a trivial
// text completion. The outcome is persisted onto the binding so future
// Resolve calls see it.
func (s *Service) Test(ctx context.Context, bindingID string) interfaces.TestResult {
	binding, err := s.integrations.Get(ctx, bindingID)
	if err != nil {
		return interfaces.TestResult{Success: false, Error: fmt.Sprintf("integration not found: %v", err)}
	}

	client, err := s.GetClient(ctx, binding)
	if err != nil {
		s.recordTestFailure(ctx, binding, err)
		return interfaces.TestResult{Success: false, Error: err.Error()}
	}

	probeErr := s.probe(ctx, client)
	now := s.now()
	binding.LastHealthCheck = &now

	if probeErr != nil {
		binding.Status = models.IntegrationError
		binding.LastError = probeErr.Error()
		if err := s.integrations.Update(ctx, binding); err != nil {
			s.logger.Warn().Err(err).Str("integration_id", binding.ID).Msg("Failed to persist test failure")
		}
		return interfaces.TestResult{Success: false, Error: probeErr.Error()}
	}

	// A successful test clears a persisted error state.
	if binding.Status == models.IntegrationError {
		binding.Status = models.IntegrationActive
	}
	binding.LastError = ""
	if err := s.integrations.Update(ctx, binding); err != nil {
		s.logger.Warn().Err(err).Str("integration_id", binding.ID).Msg("Failed to persist test success")
	}

	return interfaces.TestResult{Success: true, Message: "connection verified"}
}

func (s *Service) probe(ctx context.Context, client interfaces.ProviderClient) error {
	// Prefer cost-free credential validation (image/publishing providers:
	// no generation, to avoid incurring cost).
	if validator, ok := client.(interfaces.CredentialValidator); ok {
		return validator.ValidateCredentials(ctx)
	}
	if generator, ok := client.(interfaces.TextGenerator); ok {
		_, err := generator.GenerateText(ctx, "Reply with OK.", interfaces.TextOptions{MaxTokens: 8})
		return err
	}
	return fmt.Errorf("provider client supports no testable capability")
}

func (s *Service) recordTestFailure(ctx context.Context, binding *models.IntegrationBinding, cause error) {
	now := s.now()
	binding.Status = models.IntegrationError
	binding.LastError = cause.Error()
	binding.LastHealthCheck = &now
	if err := s.integrations.Update(ctx, binding); err != nil {
		s.logger.Warn().Err(err).Str("integration_id", binding.ID).Msg("Failed to persist test failure")
	}
}

func sameDay(a, b time.Time) bool {
	a, b = a.In(resetLocation), b.In(resetLocation)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func sameMonth(a, b time.Time) bool {
	a, b = a.In(resetLocation), b.In(resetLocation)
	return a.Year() == b.Year() && a.Month() == b.Month()
}
