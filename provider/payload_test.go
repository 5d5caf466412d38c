package provider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFields(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected Fields
		wantErr  bool
	}{
		{"form", "a=1&b=x+y", Fields{"a": "1", "b": "x y"}, false},
		{"json scalars", `{"a":1,"b":"x","c":true,"d":null}`, Fields{"a": "1", "b": "x", "c": "true", "d": ""}, false},
		{"json nested", `{"o":{"k":"v"}}`, Fields{"o": `{"k":"v"}`}, false},
		{"empty", "  ", nil, true},
		{"broken json", `{"a":`, nil, true},
		{"broken form", "%zz", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := ParseFields([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, fields)
		})
	}
}

func TestRawJSON(t *testing.T) {
	assert.JSONEq(t, `{"a":1}`, string(RawJSON([]byte(` {"a":1} `))))
	assert.JSONEq(t, `{"a":"1","b":"2"}`, string(RawJSON([]byte("a=1&b=2"))))
	assert.True(t, json.Valid(RawJSON([]byte("%zz"))))
}

func TestFlexString(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12.5,"b":"7"}`), &v))

	assert.Equal(t, 12.5, v.A.Float())
	assert.Equal(t, "7", v.B.String())
	assert.Zero(t, FlexString("x").Float())
}
