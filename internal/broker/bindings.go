package broker

import (
	"context"
	"fmt"

	"github.com/praecohq/praeco/internal/common"
	"github.com/praecohq/praeco/internal/models"
)

// CreateBindingInput is the provider-setup request.
type CreateBindingInput struct {
	OwnerID      string                 `json:"owner_id"`
	BrandID      *string                `json:"brand_id"`
	ProviderID   string                 `json:"provider_id"`
	Config       map[string]interface{} `json:"config"`
	IsDefault    bool                   `json:"is_default"`
	Priority     int                    `json:"priority"`
	DailyLimit   *int                   `json:"daily_limit"`
	MonthlyLimit *int                   `json:"monthly_limit"`
}

// CreateBinding validates the config against the provider's schema and
// persists a new binding. Invalid config is rejected here with field-level
// errors and never reaches Resolve or the pipelines. Marking the new binding
// default demotes any previous default in the same (owner, brand, category)
// scope so at most one default exists.
func (s *Service) CreateBinding(ctx context.Context, input CreateBindingInput) (*models.IntegrationBinding, error) {
	if input.OwnerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}

	descriptor := s.registry.GetProvider(input.ProviderID)
	if descriptor == nil {
		return nil, fmt.Errorf("unknown provider %q", input.ProviderID)
	}

	normalized, err := descriptor.Schema.Validate(input.Config)
	if err != nil {
		return nil, err
	}

	now := s.now()
	binding := &models.IntegrationBinding{
		ID:               common.NewIntegrationID(),
		OwnerID:          input.OwnerID,
		BrandID:          input.BrandID,
		ProviderID:       descriptor.ID,
		Category:         descriptor.Category,
		Capabilities:     descriptor.Capabilities,
		Config:           normalized,
		Enabled:          true,
		IsDefault:        input.IsDefault,
		Priority:         input.Priority,
		Status:           models.IntegrationActive,
		DailyLimit:       input.DailyLimit,
		MonthlyLimit:     input.MonthlyLimit,
		LastResetDaily:   now,
		LastResetMonthly: now,
		CreatedAt:        now,
	}

	if input.IsDefault {
		if err := s.demoteExistingDefault(ctx, binding); err != nil {
			return nil, err
		}
	}

	if err := s.integrations.Save(ctx, binding); err != nil {
		return nil, fmt.Errorf("failed to persist integration binding: %w", err)
	}

	s.logger.Info().
		Str("integration_id", binding.ID).
		Str("provider", binding.ProviderID).
		Str("owner_id", binding.OwnerID).
		Msg("Integration binding created")

	return binding, nil
}

// RemoveBinding soft-deletes a binding on provider removal.
func (s *Service) RemoveBinding(ctx context.Context, id string) error {
	if err := s.integrations.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to remove integration binding: %w", err)
	}
	s.logger.Info().Str("integration_id", id).Msg("Integration binding removed")
	return nil
}

func (s *Service) demoteExistingDefault(ctx context.Context, incoming *models.IntegrationBinding) error {
	candidates, err := s.integrations.ListCandidates(ctx, incoming.OwnerID, incoming.BrandID)
	if err != nil {
		return fmt.Errorf("failed to check existing defaults: %w", err)
	}
	for _, b := range candidates {
		if !b.IsDefault || b.Category != incoming.Category {
			continue
		}
		// Same scope only: an account-wide default does not block a
		// brand-scoped one.
		if !sameScope(b.BrandID, incoming.BrandID) {
			continue
		}
		b.IsDefault = false
		if err := s.integrations.Update(ctx, b); err != nil {
			return fmt.Errorf("failed to demote previous default %s: %w", b.ID, err)
		}
	}
	return nil
}

func sameScope(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
