package v1

import (
	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/paygate/handler"
	"github.com/mstgnz/paygate/infra/middle"
)

// Handlers groups everything the API routes dispatch to
type Handlers struct {
	Payment *handler.PaymentHandler
	Gateway *handler.GatewayHandler
	Order   *handler.OrderHandler
	Logs    *handler.LogsHandler
}

// Routes registers all API routes. Gateway callbacks and admin links carry
// their own proof and stay outside the API key group.
func Routes(r chi.Router, h Handlers, apiKey string) {
	r.Post("/webhooks/{gateway}", h.Payment.HandleWebhook)
	r.Get("/orders/validate", h.Order.Validate)

	r.Group(func(r chi.Router) {
		r.Use(middle.AuthMiddleware(apiKey))

		r.Post("/checkout/session", h.Payment.CreateSession)
		r.Get("/payments/{gateway}/{transactionID}", h.Payment.GetPaymentStatus)

		r.Route("/gateways", func(r chi.Router) {
			r.Get("/", h.Gateway.ListForCountry)
			r.Get("/status", h.Gateway.ConfigurationStatus)
		})

		r.Post("/orders/{id}/validation-token", h.Order.IssueValidationLinks)
		r.Get("/logs/webhooks", h.Logs.ListWebhooks)
	})
}
