package provider

import (
	"fmt"

	"github.com/mstgnz/paygate/infra/config"
)

// Factory resolves adapters by gateway or by country. It is immutable after
// construction and safe for concurrent use.
type Factory struct {
	providers map[Gateway]PaymentProvider
}

// NewFactory instantiates every gateway registered in DefaultRegistry
func NewFactory(cfg *config.Payments) *Factory {
	return &Factory{providers: DefaultRegistry.Build(cfg)}
}

// NewFactoryWithProviders builds a factory over already constructed adapters
func NewFactoryWithProviders(providers ...PaymentProvider) *Factory {
	f := &Factory{providers: make(map[Gateway]PaymentProvider, len(providers))}
	for _, p := range providers {
		f.providers[p.Gateway()] = p
	}
	return f
}

// GetProvider returns the adapter for gateway. An unknown gateway is a wiring
// mistake and yields ErrUnknownGateway.
func (f *Factory) GetProvider(gateway Gateway) (PaymentProvider, error) {
	p, ok := f.providers[gateway]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGateway, gateway)
	}
	return p, nil
}

// GetPrimaryProviderForCountry returns the preferred online gateway for
// country. COD is never returned here.
func (f *Factory) GetPrimaryProviderForCountry(country string) (PaymentProvider, error) {
	for _, g := range GatewaysForCountry(country) {
		if g == GatewayCOD {
			continue
		}
		return f.GetProvider(g)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoGatewayForCountry, NormalizeCountry(country))
}

// GetProvidersForCountry lists the eligible gateways for country, preferred first
func (f *Factory) GetProvidersForCountry(country string) []Gateway {
	return GatewaysForCountry(country)
}

// IsGatewayAvailableForCountry reports whether gateway is eligible in country
func (f *Factory) IsGatewayAvailableForCountry(gateway Gateway, country string) bool {
	return IsGatewayEligible(gateway, country)
}

// GetAvailableProvidersForCountry returns the eligible adapters that are also
// configured, in routing order.
func (f *Factory) GetAvailableProvidersForCountry(country string) []PaymentProvider {
	var available []PaymentProvider
	for _, g := range GatewaysForCountry(country) {
		if p, ok := f.providers[g]; ok && p.IsConfigured() {
			available = append(available, p)
		}
	}
	return available
}

// GetConfigurationStatus reports which gateways have credentials, without
// exposing the credentials themselves.
func (f *Factory) GetConfigurationStatus() map[Gateway]bool {
	status := make(map[Gateway]bool, len(AllGateways()))
	for _, g := range AllGateways() {
		p, ok := f.providers[g]
		status[g] = ok && p.IsConfigured()
	}
	return status
}
