package router

import (
	"github.com/go-chi/chi/v5"
	v1 "github.com/mstgnz/paygate/router/v1"

	// Import for side-effect registration
	_ "github.com/mstgnz/paygate/provider/airwallex"
	_ "github.com/mstgnz/paygate/provider/chaabi"
	_ "github.com/mstgnz/paygate/provider/cod"
	_ "github.com/mstgnz/paygate/provider/paydunya"
	_ "github.com/mstgnz/paygate/provider/paytech"
)

// Routes mounts the API under /api
func Routes(r chi.Router, h v1.Handlers, apiKey string) {
	r.Route("/api", func(r chi.Router) {
		v1.Routes(r, h, apiKey)
	})
}
