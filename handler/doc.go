// Package handler provides the HTTP handlers of the paygate API.
//
// # Core Handlers
//
//   - PaymentHandler: checkout sessions, gateway callbacks and status lookups
//   - GatewayHandler: eligible gateways per country and configuration status
//   - OrderHandler: issues and redeems order validation links
//   - LogsHandler: searches the webhook audit trail in OpenSearch
//   - HealthHandler: database, gateway and audit sink health
//
// # Webhooks
//
// A callback is first verified by its adapter. Unverified payloads are
// audited and rejected with 400. Verified payloads always get 200, even when
// the payload cannot be normalized or the ledger write fails, so gateways do
// not retry forever. A failed ledger write rolls back and a redelivery can
// still apply it.
//
// # Responses
//
// Every handler answers with the response.Response envelope:
//
//	{
//	  "code": 200,
//	  "success": true,
//	  "message": "Webhook processed",
//	  "data": {"orderId": "ord-1", "status": "paid", "applied": true}
//	}
package handler
