package handler

import (
	"net/http"

	"github.com/mstgnz/paygate/infra/response"
	"github.com/mstgnz/paygate/provider"
)

// GatewayOption is one gateway offered at checkout
type GatewayOption struct {
	Gateway provider.Gateway `json:"gateway"`
	Primary bool             `json:"primary"`
}

// GatewayHandler answers routing questions for the storefront
type GatewayHandler struct {
	factory *provider.Factory
}

func NewGatewayHandler(factory *provider.Factory) *GatewayHandler {
	return &GatewayHandler{factory: factory}
}

// ListForCountry handles GET /api/gateways?country=XX. Only configured
// gateways are listed, preferred first and COD last.
func (h *GatewayHandler) ListForCountry(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if country == "" {
		response.Error(w, http.StatusBadRequest, "Missing country parameter", nil)
		return
	}

	available := h.factory.GetAvailableProvidersForCountry(country)
	options := make([]GatewayOption, 0, len(available))
	primaryTaken := false
	for _, p := range available {
		primary := !primaryTaken && p.Gateway() != provider.GatewayCOD
		if primary {
			primaryTaken = true
		}
		options = append(options, GatewayOption{Gateway: p.Gateway(), Primary: primary})
	}

	response.Success(w, http.StatusOK, "Gateways retrieved", map[string]any{
		"country":  provider.NormalizeCountry(country),
		"gateways": options,
	})
}

// ConfigurationStatus handles GET /api/gateways/status
func (h *GatewayHandler) ConfigurationStatus(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "Gateway configuration status", h.factory.GetConfigurationStatus())
}
