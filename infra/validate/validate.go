package validate

import (
	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/paygate/infra/config"
	"github.com/mstgnz/paygate/provider"
)

// CustomValidate registers the payment rules on the shared validator
func CustomValidate() {
	register(config.App().Validator)
}

// New returns a standalone validator carrying the same rules
func New() *validator.Validate {
	v := validator.New()
	register(v)
	return v
}

func register(v *validator.Validate) {
	// gateway: one of the supported gateway names, any case
	_ = v.RegisterValidation("gateway", func(fl validator.FieldLevel) bool {
		_, err := provider.ParseGateway(fl.Field().String())
		return err == nil
	})

	// country: an ISO-3166 alpha-2 code or a country name we can map to one
	_ = v.RegisterValidation("country", func(fl validator.FieldLevel) bool {
		code := provider.NormalizeCountry(fl.Field().String())
		if len(code) != 2 {
			return false
		}
		for _, c := range code {
			if c < 'A' || c > 'Z' {
				return false
			}
		}
		return true
	})
}
