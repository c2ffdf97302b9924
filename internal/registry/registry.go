// Package registry is the static provider catalog: a pure, immutable lookup
// from provider id to capability set, config schema and client constructor.
// No I/O, no mutable state.
package registry

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/common"
	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
)

// ClientDeps carries everything a client constructor may need beyond the
// binding itself.
type ClientDeps struct {
	Config *common.Config
	KV     interfaces.KeyValueStorage
	Logger arbor.ILogger
}

// ClientConstructor builds the vendor client for one binding.
type ClientConstructor func(deps ClientDeps, binding *models.IntegrationBinding) (interfaces.ProviderClient, error)

// Pricing is advisory cost metadata used for usage accounting.
type Pricing struct {
	InputPer1K  float64 `json:"input_per_1k,omitempty"`  // USD per 1k input tokens
	OutputPer1K float64 `json:"output_per_1k,omitempty"` // USD per 1k output tokens
	PerImage    float64 `json:"per_image,omitempty"`     // USD per generated image
	PerRequest  float64 `json:"per_request,omitempty"`   // USD per API request
}

// Descriptor is one catalog entry.
type Descriptor struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	Category     models.ProviderCategory `json:"category"`
	Capabilities []models.Capability     `json:"capabilities"`
	Schema       ConfigSchema            `json:"schema"`
	Pricing      Pricing                 `json:"pricing"`
	SetupNotes   string                  `json:"setup_notes,omitempty"`
	New          ClientConstructor       `json:"-"`
}

// HasCapability reports whether the provider covers the capability.
func (d *Descriptor) HasCapability(cap models.Capability) bool {
	for _, c := range d.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// Registry is an immutable provider catalog.
type Registry struct {
	providers map[string]*Descriptor
	order     []string // stable listing order
}

// New builds a registry from descriptors. Duplicate ids are rejected.
func New(descriptors ...*Descriptor) (*Registry, error) {
	r := &Registry{
		providers: make(map[string]*Descriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		if d.ID == "" {
			return nil, fmt.Errorf("provider descriptor requires an id")
		}
		if _, exists := r.providers[d.ID]; exists {
			return nil, fmt.Errorf("duplicate provider id %q", d.ID)
		}
		r.providers[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	return r, nil
}

// GetProvider returns the descriptor for an id, nil when unknown.
func (r *Registry) GetProvider(id string) *Descriptor {
	return r.providers[id]
}

// GetProvidersByCategory returns all providers in a category, in
// registration order.
func (r *Registry) GetProvidersByCategory(category models.ProviderCategory) []*Descriptor {
	var result []*Descriptor
	for _, id := range r.order {
		if d := r.providers[id]; d.Category == category {
			result = append(result, d)
		}
	}
	return result
}

// GetProvidersByCapability returns all providers covering a capability, in
// registration order.
func (r *Registry) GetProvidersByCapability(cap models.Capability) []*Descriptor {
	var result []*Descriptor
	for _, id := range r.order {
		if d := r.providers[id]; d.HasCapability(cap) {
			result = append(result, d)
		}
	}
	return result
}

// All returns every descriptor in registration order.
func (r *Registry) All() []*Descriptor {
	result := make([]*Descriptor, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.providers[id])
	}
	return result
}

// ValidateConfig validates a config blob against a provider's schema,
// returning the normalized config. Unknown provider ids are a configuration
// error too.
func (r *Registry) ValidateConfig(providerID string, config map[string]interface{}) (map[string]interface{}, error) {
	d := r.GetProvider(providerID)
	if d == nil {
		return nil, fmt.Errorf("unknown provider %q", providerID)
	}
	return d.Schema.Validate(config)
}
