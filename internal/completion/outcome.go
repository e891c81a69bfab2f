package completion

import (
	"encoding/json"
	"fmt"
)

// Outcome is the result of decoding a model response: either a parsed value,
// or the raw text together with the reason decoding failed.
type Outcome[T any] struct {
	Value  T
	Raw    string
	Parsed bool
	Err    error
}

// Decode cleans raw and unmarshals it into T.
func Decode[T any](raw string) Outcome[T] {
	out := Outcome[T]{Raw: raw}
	cleaned := CleanJSON(raw)
	if cleaned == "" {
		out.Err = fmt.Errorf("empty response")
		return out
	}
	if err := json.Unmarshal([]byte(cleaned), &out.Value); err != nil {
		out.Err = fmt.Errorf("response is not valid JSON for %T: %w", out.Value, err)
		return out
	}
	out.Parsed = true
	return out
}

// DecodeWithSchema is Decode plus a JSON Schema check; a shape mismatch counts as a parse failure.
func DecodeWithSchema[T any](raw, schema string) Outcome[T] {
	cleaned := CleanJSON(raw)
	if err := ValidateSchema(schema, cleaned); err != nil {
		var zero T
		return Outcome[T]{Value: zero, Raw: raw, Err: err}
	}
	return Decode[T](raw)
}

// OrElse returns the parsed value, or fallback(raw) when decoding failed.
func (o Outcome[T]) OrElse(fallback func(raw string) T) T {
	if o.Parsed {
		return o.Value
	}
	return fallback(o.Raw)
}
