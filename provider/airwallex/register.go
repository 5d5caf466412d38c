package airwallex

import "github.com/mstgnz/paygate/provider"

// Register Airwallex with the gateway registry
func init() {
	provider.Register(provider.GatewayAirwallex, NewProvider)
}
