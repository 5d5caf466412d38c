package cod

import "github.com/mstgnz/paygate/provider"

// Register cash on delivery with the gateway registry
func init() {
	provider.Register(provider.GatewayCOD, NewProvider)
}
