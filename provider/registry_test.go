package provider

import (
	"testing"

	"github.com/mstgnz/paygate/infra/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderRegistry(t *testing.T) {
	registry := NewProviderRegistry()

	_, err := registry.Get(GatewayPayTech)
	assert.ErrorIs(t, err, ErrUnknownGateway)

	var seen *config.Payments
	registry.Register(GatewayPayTech, func(cfg *config.Payments) PaymentProvider {
		seen = cfg
		return &stubProvider{gateway: GatewayPayTech, configured: cfg.PayTech.Configured()}
	})
	registry.Register(GatewayCOD, func(*config.Payments) PaymentProvider {
		return &stubProvider{gateway: GatewayCOD, configured: true}
	})

	_, err = registry.Get(GatewayPayTech)
	require.NoError(t, err)
	assert.Equal(t, []Gateway{GatewayPayTech, GatewayCOD}, registry.Gateways())

	cfg := &config.Payments{PayTech: config.PayTech{APIKey: "k", SecretKey: "s"}}
	providers := registry.Build(cfg)

	require.Len(t, providers, 2)
	assert.Same(t, cfg, seen)
	assert.True(t, providers[GatewayPayTech].IsConfigured())
	assert.Equal(t, GatewayCOD, providers[GatewayCOD].Gateway())
}
