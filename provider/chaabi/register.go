package chaabi

import "github.com/mstgnz/paygate/provider"

// Register Chaabi Payment with the gateway registry
func init() {
	provider.Register(provider.GatewayChaabi, NewProvider)
}
