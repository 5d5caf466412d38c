package paydunya

import "github.com/mstgnz/paygate/provider"

// Register PayDunya with the gateway registry
func init() {
	provider.Register(provider.GatewayPayDunya, NewProvider)
}
