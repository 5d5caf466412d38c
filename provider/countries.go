package provider

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	westAfricaMobile = []Gateway{GatewayPayDunya, GatewayCOD}
	international    = []Gateway{GatewayAirwallex, GatewayCOD}
)

// countryGateways lists eligible gateways per ISO-3166 alpha-2 code, preferred first
var countryGateways = map[string][]Gateway{
	"SN": {GatewayPayTech, GatewayPayDunya, GatewayCOD},

	"CI": westAfricaMobile,
	"BJ": westAfricaMobile,
	"BF": westAfricaMobile,
	"ML": westAfricaMobile,
	"TG": westAfricaMobile,
	"NE": westAfricaMobile,
	"GW": westAfricaMobile,

	"MA": {GatewayChaabi, GatewayAirwallex, GatewayCOD},

	"FR": international,
	"BE": international,
	"ES": international,
	"DE": international,
	"IT": international,
	"NL": international,
	"PT": international,
	"GB": international,
	"US": international,
	"CA": international,
	"AE": international,
}

// defaultGateways applies to every country missing from countryGateways
var defaultGateways = international

// countryNames maps accent-free lower-case English and French names to ISO codes
var countryNames = map[string]string{
	"senegal":              "SN",
	"cote d'ivoire":        "CI",
	"cote divoire":         "CI",
	"ivory coast":          "CI",
	"benin":                "BJ",
	"burkina faso":         "BF",
	"mali":                 "ML",
	"togo":                 "TG",
	"niger":                "NE",
	"guinea-bissau":        "GW",
	"guinee-bissau":        "GW",
	"guinea bissau":        "GW",
	"morocco":              "MA",
	"maroc":                "MA",
	"france":               "FR",
	"belgium":              "BE",
	"belgique":             "BE",
	"spain":                "ES",
	"espagne":              "ES",
	"germany":              "DE",
	"allemagne":            "DE",
	"italy":                "IT",
	"italie":               "IT",
	"netherlands":          "NL",
	"pays-bas":             "NL",
	"portugal":             "PT",
	"united kingdom":       "GB",
	"royaume-uni":          "GB",
	"uk":                   "GB",
	"united states":        "US",
	"etats-unis":           "US",
	"usa":                  "US",
	"canada":               "CA",
	"united arab emirates": "AE",
	"emirats arabes unis":  "AE",
	"uae":                  "AE",
}

// NormalizeCountry turns an ISO code or a common country name into an
// upper-case ISO code. Unknown names are returned upper-cased.
func NormalizeCountry(country string) string {
	folded := foldName(country)
	if code, ok := countryNames[folded]; ok {
		return code
	}
	return strings.ToUpper(folded)
}

func foldName(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "’", "'"))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(t, s); err == nil {
		s = stripped
	}
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// GatewaysForCountry returns the eligible gateways for country, preferred
// first. The result always ends with COD and is a fresh copy.
func GatewaysForCountry(country string) []Gateway {
	gateways, ok := countryGateways[NormalizeCountry(country)]
	if !ok {
		gateways = defaultGateways
	}
	return append([]Gateway(nil), gateways...)
}

// IsGatewayEligible reports whether gateway may be offered in country
func IsGatewayEligible(gateway Gateway, country string) bool {
	for _, g := range GatewaysForCountry(country) {
		if g == gateway {
			return true
		}
	}
	return false
}

// SupportedCountries returns every country with an explicit routing entry
func SupportedCountries() []string {
	codes := make([]string, 0, len(countryGateways))
	for code := range countryGateways {
		codes = append(codes, code)
	}
	return codes
}
