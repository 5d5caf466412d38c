// Package paygate routes storefront checkouts to the payment gateway that
// serves the buyer's country and turns signed gateway callbacks into
// idempotent order status changes.
//
// # Overview
//
// Each gateway has its own API, authentication scheme and callback format.
// paygate hides them behind one provider.PaymentProvider interface so the
// storefront only deals with sessions and normalized callback results.
//
//	┌─────────────────┐    ┌─────────────────┐    ┌─────────────────┐
//	│                 │    │                 │    │                 │
//	│   Storefront    │◄──►│     paygate     │◄──►│    Gateways     │
//	│                 │    │                 │    │                 │
//	└─────────────────┘    └─────────────────┘    └─────────────────┘
//
// # Supported Gateways
//
//   - PayTech: Senegal, Orange Money / Wave / Free Money / cards, redirect
//   - PayDunya: Senegal and WAEMU countries, mobile money invoices, redirect
//   - Chaabi Payment: Morocco, signed form posted by the browser
//   - Airwallex: international card payments, hosted checkout
//   - COD: cash on delivery, confirmed immediately
//
// # Routing
//
// Every country has an ordered list of eligible gateways that always ends
// with COD. Countries without an entry get the international list.
//
//	SN → paytech, paydunya, cod
//	CI, BJ, BF, ML, TG, NE, GW → paydunya, cod
//	MA → chaabi, airwallex, cod
//	everything else → airwallex, cod
//
// # HTTP API
//
//	# Open a checkout session (API key)
//	POST /api/checkout/session
//	  {"country": "SN", "method": "wave", "order": {...}}
//
//	# Gateway callbacks (public, signature verified)
//	POST /api/webhooks/{gateway}
//
//	# Order confirm/cancel links sent to the store admin (public, token checked)
//	GET /api/orders/validate?id={orderId}&token={token}&action=confirm
//
// # Callbacks
//
// Callbacks are delivered at least once. The order ledger records every
// (gateway, transaction, status) triple once and only the first delivery
// changes the order. A paid order is never moved back by a later callback.
//
// # Binaries
//
//   - cmd/paygate: the HTTP server
//   - cmd/paygatectl: gateway status, country routing and validation tokens
package paygate
