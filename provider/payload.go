package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Fields is a flat view over a webhook body
type Fields map[string]string

// ParseFields reads a JSON object or a form encoded body into Fields. Nested
// JSON values are kept as their raw JSON text.
func ParseFields(payload []byte) (Fields, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	if trimmed[0] == '{' {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON payload: %w", err)
		}
		fields := make(Fields, len(raw))
		for k, v := range raw {
			fields[k] = rawString(v)
		}
		return fields, nil
	}

	values, err := url.ParseQuery(string(trimmed))
	if err != nil {
		return nil, fmt.Errorf("invalid form payload: %w", err)
	}
	fields := make(Fields, len(values))
	for k := range values {
		fields[k] = values.Get(k)
	}
	return fields, nil
}

// rawString unquotes JSON strings and keeps numbers, booleans and objects verbatim
func rawString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	if string(v) == "null" {
		return ""
	}
	return string(v)
}

// Float parses a numeric field, returning 0 when absent or malformed
func (f Fields) Float(key string) float64 {
	n, err := strconv.ParseFloat(f[key], 64)
	if err != nil {
		return 0
	}
	return n
}

// RawJSON renders the payload for audit storage. JSON bodies are kept as is;
// form bodies are re-encoded as a JSON object.
func RawJSON(payload []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(payload)
	if json.Valid(trimmed) {
		return append(json.RawMessage(nil), trimmed...)
	}
	fields, err := ParseFields(trimmed)
	if err != nil {
		encoded, _ := json.Marshal(string(trimmed))
		return encoded
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return encoded
}

// FlexString accepts a JSON string, number or boolean. Gateways are not
// consistent about quoting numeric fields.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	*s = FlexString(rawString(data))
	return nil
}

func (s FlexString) String() string {
	return string(s)
}

// Float parses the value, returning 0 when it is not numeric
func (s FlexString) Float() float64 {
	n, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return 0
	}
	return n
}
