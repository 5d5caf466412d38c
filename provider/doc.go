// Package provider defines the gateway abstraction shared by every adapter.
//
// # Core Concepts
//
//   - Gateway: closed set of supported gateways
//   - PaymentProvider: CreateSession, VerifyWebhook, HandleCallback, GetStatus
//   - ProviderRegistry: adapters register a constructor from an init function
//   - Factory: builds every adapter once from config.Payments and resolves
//     them by gateway or by country
//
// # Failures
//
// CreateSession reports gateway failures as a PaymentSession with Success
// false and one of the ErrCode constants. A Go error is reserved for
// programming mistakes. Sessions are bounded by a 15 second timeout and are
// never retried.
//
// # Registering an Adapter
//
//	func init() {
//	    provider.Register(provider.GatewayPayTech, NewProvider)
//	}
//
// Importing the adapter package for its side effect makes it available to
// NewFactory:
//
//	import _ "github.com/mstgnz/paygate/provider/paytech"
//
// # Signatures
//
// HMACSHA256Hex, SHA256Hex and SHA512Hex produce lower-case hex digests and
// EqualHex compares them in constant time.
package provider
