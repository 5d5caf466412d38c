package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCountry(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"sn", "SN"},
		{" SN ", "SN"},
		{"Senegal", "SN"},
		{"SÉNÉGAL", "SN"},
		{"Côte d'Ivoire", "CI"},
		{"cote d’ivoire", "CI"},
		{"Ivory Coast", "CI"},
		{"Bénin", "BJ"},
		{"Guinée-Bissau", "GW"},
		{"Maroc", "MA"},
		{"Morocco", "MA"},
		{"États-Unis", "US"},
		{"Royaume-Uni", "GB"},
		{"Émirats arabes unis", "AE"},
		{"Japan", "JAPAN"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeCountry(tt.input))
		})
	}
}

func TestGatewaysForCountry_AlwaysEndsWithCOD(t *testing.T) {
	countries := append(SupportedCountries(), "", "ZZ", "Japan")

	for _, c := range countries {
		gateways := GatewaysForCountry(c)
		if assert.NotEmpty(t, gateways, c) {
			assert.Equal(t, GatewayCOD, gateways[len(gateways)-1], c)
		}
	}
}

func TestGatewaysForCountry_RoutingTable(t *testing.T) {
	tests := []struct {
		countries []string
		expected  []Gateway
	}{
		{[]string{"SN"}, []Gateway{GatewayPayTech, GatewayPayDunya, GatewayCOD}},
		{[]string{"CI", "BJ", "BF", "ML", "TG", "NE", "GW"}, []Gateway{GatewayPayDunya, GatewayCOD}},
		{[]string{"MA"}, []Gateway{GatewayChaabi, GatewayAirwallex, GatewayCOD}},
		{[]string{"FR", "BE", "ES", "DE", "IT", "NL", "PT", "GB", "US", "CA", "AE", "BR"}, []Gateway{GatewayAirwallex, GatewayCOD}},
	}

	for _, tt := range tests {
		for _, c := range tt.countries {
			assert.Equal(t, tt.expected, GatewaysForCountry(c), c)
		}
	}
}

func TestGatewaysForCountry_ReturnsCopy(t *testing.T) {
	first := GatewaysForCountry("CI")
	first[0] = GatewayChaabi

	assert.Equal(t, GatewayPayDunya, GatewaysForCountry("BJ")[0])
}
