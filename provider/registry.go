package provider

import (
	"fmt"
	"sync"

	"github.com/mstgnz/paygate/infra/config"
)

// Constructor builds an adapter from the validated payment configuration
type Constructor func(cfg *config.Payments) PaymentProvider

// ProviderRegistry manages all gateway constructors
type ProviderRegistry struct {
	constructors map[Gateway]Constructor
	mu           sync.RWMutex
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		constructors: make(map[Gateway]Constructor),
	}
}

// Register adds a gateway constructor to the registry
func (r *ProviderRegistry) Register(gateway Gateway, constructor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[gateway] = constructor
}

// Get retrieves a gateway constructor
func (r *ProviderRegistry) Get(gateway Gateway) (Constructor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	constructor, exists := r.constructors[gateway]
	if !exists {
		return nil, fmt.Errorf("%w: '%s' is not registered", ErrUnknownGateway, gateway)
	}

	return constructor, nil
}

// Build instantiates every registered gateway with cfg
func (r *ProviderRegistry) Build(cfg *config.Payments) map[Gateway]PaymentProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make(map[Gateway]PaymentProvider, len(r.constructors))
	for gateway, constructor := range r.constructors {
		providers[gateway] = constructor(cfg)
	}
	return providers
}

// Gateways returns the registered gateways in AllGateways order
func (r *ProviderRegistry) Gateways() []Gateway {
	r.mu.RLock()
	defer r.mu.RUnlock()

	gateways := make([]Gateway, 0, len(r.constructors))
	for _, g := range AllGateways() {
		if _, ok := r.constructors[g]; ok {
			gateways = append(gateways, g)
		}
	}
	return gateways
}

// DefaultRegistry is filled by the adapters' init functions
var DefaultRegistry = NewProviderRegistry()

// Register registers a gateway with the default registry
func Register(gateway Gateway, constructor Constructor) {
	DefaultRegistry.Register(gateway, constructor)
}
