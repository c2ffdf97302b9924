package models

import (
	"time"
)

// ProviderCategory classifies what kind of vendor a provider is.
type ProviderCategory string

const (
	CategoryAIText     ProviderCategory = "ai_text"
	CategoryAIImage    ProviderCategory = "ai_image"
	CategoryPublishing ProviderCategory = "publishing"
)

// Capability is an abstract function a provider can perform.
type Capability string

const (
	CapabilityTextGeneration  Capability = "text_generation"
	CapabilityImageGeneration Capability = "image_generation"
	CapabilityContentAnalysis Capability = "content_analysis"
	CapabilityPublishing      Capability = "publishing"
)

// IntegrationStatus is a binding's current usability classification.
type IntegrationStatus string

const (
	IntegrationActive      IntegrationStatus = "active"
	IntegrationError       IntegrationStatus = "error"
	IntegrationRateLimited IntegrationStatus = "rate_limited"
	IntegrationDisabled    IntegrationStatus = "disabled"
)

// IntegrationBinding is one owner's (optionally brand-scoped) configured
// instance of a provider, carrying live health and usage state.
//
// Usage counters are mutated only through the integration storage's
// increment operation so concurrent jobs drawing on the same binding never
// lose updates. Status transitions are owned by the capability broker.
type IntegrationBinding struct {
	ID           string                 `badgerhold:"key" json:"id"`
	OwnerID      string                 `badgerholdIndex:"OwnerID" json:"owner_id"`
	BrandID      *string                `json:"brand_id"` // nil = account-wide
	ProviderID   string                 `json:"provider_id"`
	Category     ProviderCategory       `json:"category"`
	Capabilities []Capability           `json:"capabilities"`
	Config       map[string]interface{} `json:"config"` // validated against the provider's schema at creation

	Enabled   bool `json:"enabled"`
	IsDefault bool `json:"is_default"`
	Priority  int  `json:"priority"` // higher wins on resolve tie-break

	Status IntegrationStatus `json:"status"`

	UsageToday       int        `json:"usage_today"`
	UsageThisMonth   int        `json:"usage_this_month"`
	DailyLimit       *int       `json:"daily_limit"`   // nil = unlimited
	MonthlyLimit     *int       `json:"monthly_limit"` // nil = unlimited
	LastResetDaily   time.Time  `json:"last_reset_daily"`
	LastResetMonthly time.Time  `json:"last_reset_monthly"`
	TotalCost        float64    `json:"total_cost"`
	LastError        string     `json:"last_error,omitempty"`
	LastHealthCheck  *time.Time `json:"last_health_check,omitempty"`
	LastUsed         *time.Time `json:"last_used,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"` // soft delete on provider removal
}

// HasCapability reports whether the binding's provider covers the capability.
func (b *IntegrationBinding) HasCapability(cap Capability) bool {
	for _, c := range b.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// IsDeleted reports whether the binding has been soft-deleted.
func (b *IntegrationBinding) IsDeleted() bool {
	return b.DeletedAt != nil
}

// ScopedTo reports whether the binding applies to the given brand. An
// account-wide binding (nil BrandID) applies to every brand of its owner.
func (b *IntegrationBinding) ScopedTo(brandID *string) bool {
	if b.BrandID == nil {
		return true
	}
	if brandID == nil {
		return false
	}
	return *b.BrandID == *brandID
}
