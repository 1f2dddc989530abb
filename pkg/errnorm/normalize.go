// Package errnorm turns arbitrary failure values into a single line of
// display text. Every function here is pure and safe for concurrent use.
package errnorm

import (
	"bytes"
	"encoding/json"
	"reflect"
)

const (
	UnknownText  = "Unknown error"
	FallbackText = "Error"
)

// Normalize maps any failure value to display text. It never panics.
//
// Rules, first match wins: nil gives UnknownText; strings are returned as
// they are; a value exposing a "detail" member yields that member (verbatim
// when it is a string, JSON otherwise); anything else is rendered as JSON,
// or FallbackText when it cannot be serialized.
func Normalize(value any) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = FallbackText
		}
	}()

	if isNil(value) {
		return UnknownText
	}

	switch v := value.(type) {
	case Payload:
		return Describe(v)
	case string:
		return v
	case json.RawMessage:
		return Describe(FromBody(v))
	case []byte:
		return Describe(FromBody(v))
	case error:
		return Describe(FromError(v))
	}

	if rv := reflect.ValueOf(value); rv.Kind() == reflect.String {
		return rv.String()
	}

	raw, err := marshal(value)
	if err != nil {
		return FallbackText
	}
	return Describe(classifyJSON(raw))
}

// Describe renders a Payload. The switch covers every variant.
func Describe(p Payload) string {
	switch v := p.(type) {
	case nil, UnknownError:
		return UnknownText
	case StringError:
		return string(v)
	case StructuredError:
		if v.HasDetail() {
			var s string
			if err := json.Unmarshal(v.Detail, &s); err == nil {
				return s
			}
			return compact(v.Detail)
		}
		if len(v.Body) == 0 {
			return UnknownText
		}
		return compact(v.Body)
	default:
		return FallbackText
	}
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

func marshal(value any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
