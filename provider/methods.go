package provider

import "strings"

// MethodTable maps a storefront payment method to a gateway channel name
type MethodTable map[string]string

// Lookup returns the channel for method. ok is false for unknown methods, in
// which case the caller leaves the gateway's channel choice open.
func (t MethodTable) Lookup(method string) (channel string, ok bool) {
	channel, ok = t[strings.ToLower(strings.TrimSpace(method))]
	return channel, ok
}

// PayTechTargets is PayTech's target_payment vocabulary
var PayTechTargets = MethodTable{
	"wave":         "Wave",
	"orange_money": "Orange Money",
	"free_money":   "Free Money",
	"card":         "Carte Bancaire",
	"emoney":       "Emoney",
	"wizall":       "Wizall",
}

// PayDunyaChannels is PayDunya's channel vocabulary
var PayDunyaChannels = MethodTable{
	"wave":         "wave-senegal",
	"orange_money": "orange-money-senegal",
	"free_money":   "free-money-senegal",
	"expresso":     "expresso-senegal",
	"wizall":       "wizall-senegal",
	"card":         "card",
}
