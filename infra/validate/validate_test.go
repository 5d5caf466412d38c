package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatewayRule(t *testing.T) {
	v := New()

	type req struct {
		Gateway string `validate:"omitempty,gateway"`
	}

	tests := []struct {
		input string
		valid bool
	}{
		{"", true},
		{"paytech", true},
		{"PayDunya", true},
		{"cod", true},
		{"stripe", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := v.Struct(req{Gateway: tt.input})
			assert.Equal(t, tt.valid, err == nil, err)
		})
	}
}

func TestCountryRule(t *testing.T) {
	v := New()

	type req struct {
		Country string `validate:"required,country"`
	}

	tests := []struct {
		input string
		valid bool
	}{
		{"SN", true},
		{"jp", true},
		{"Sénégal", true},
		{"Côte d'Ivoire", true},
		{"Maroc", true},
		{"Atlantis", false},
		{"S1", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := v.Struct(req{Country: tt.input})
			assert.Equal(t, tt.valid, err == nil, err)
		})
	}
}
