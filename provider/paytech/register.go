package paytech

import "github.com/mstgnz/paygate/provider"

// Register PayTech with the gateway registry
func init() {
	provider.Register(provider.GatewayPayTech, NewProvider)
}
