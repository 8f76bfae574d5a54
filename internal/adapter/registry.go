package adapter

import (
	"fmt"
	"sync"

	"github.com/vasic-digital/council/internal/models"
)

// Factory builds a ModelAdapter from a resolved ModelConfig plus
// provider credentials (endpoint/apiKey sourced from internal/config).
type Factory func(cfg models.ModelConfig, endpoint, apiKey string, transport Transport) (ModelAdapter, error)

// Registry maps a provider-kind string to the Factory that builds
// adapters for it (spec.md §4.1: "adapters publish themselves under a
// provider-kind string").
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry builds a registry pre-populated with the two built-in
// provider kinds.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(ProviderKindAzureChat, func(cfg models.ModelConfig, endpoint, apiKey string, transport Transport) (ModelAdapter, error) {
		return NewChatCompletionAdapter(cfg, endpoint, apiKey, transport), nil
	})
	r.Register(ProviderKindOpenAICompatible, func(cfg models.ModelConfig, endpoint, apiKey string, transport Transport) (ModelAdapter, error) {
		return NewOpenAICompatAdapter(cfg, endpoint, apiKey, transport), nil
	})
	return r
}

// Register publishes an adapter Factory under a provider-kind string.
func (r *Registry) Register(providerKind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[providerKind] = factory
}

// CreateAdapter selects a Factory by the model's provider kind and
// builds an adapter bound to that model.
func (r *Registry) CreateAdapter(cfg models.ModelConfig, endpoint, apiKey string, transport Transport) (ModelAdapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.ProviderKind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider kind %q", cfg.ProviderKind)
	}
	return factory(cfg, endpoint, apiKey, transport)
}
