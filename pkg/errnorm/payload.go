package errnorm

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// Payload is a failure value in one of three shapes. The set is closed:
// only StringError, StructuredError and UnknownError implement it.
type Payload interface {
	payload()
}

// StringError is a failure that is already display text.
type StringError string

// StructuredError is a failure carried as a JSON document. Body holds the
// whole document; Detail holds its "detail" member when one was present.
type StructuredError struct {
	Detail json.RawMessage
	Body   json.RawMessage
}

// UnknownError stands for an absent failure value.
type UnknownError struct{}

func (StringError) payload()     {}
func (StructuredError) payload() {}
func (UnknownError) payload()    {}

// HasDetail reports whether the document exposed a usable "detail" member.
func (s StructuredError) HasDetail() bool {
	return len(s.Detail) > 0
}

// BodyCarrier is implemented by errors that hold a backend response body.
type BodyCarrier interface {
	ResponseBody() []byte
}

// FromBody classifies a raw response body. Text that is not JSON is kept as
// a StringError so the backend's wording reaches the user unchanged.
func FromBody(body []byte) Payload {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return UnknownError{}
	}
	if !json.Valid(trimmed) {
		return StringError(string(body))
	}
	return classifyJSON(trimmed)
}

// FromError extracts the most specific payload from err. A non-empty body
// held by a BodyCarrier wins over the error's own message.
func FromError(err error) Payload {
	if err == nil {
		return UnknownError{}
	}

	var carrier BodyCarrier
	if errors.As(err, &carrier) {
		body := bytes.TrimSpace(carrier.ResponseBody())
		if len(body) > 0 && !(json.Valid(body) && isFalsyJSON(body)) {
			return FromBody(body)
		}
	}

	msg := err.Error()
	if msg == "" {
		return UnknownError{}
	}
	return StringError(msg)
}

func classifyJSON(raw []byte) Payload {
	switch raw[0] {
	case 'n':
		return UnknownError{}
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return StringError(string(raw))
		}
		return StringError(s)
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return StructuredError{Body: raw}
		}
		detail, ok := fields["detail"]
		if !ok || isFalsyJSON(detail) {
			return StructuredError{Body: raw}
		}
		return StructuredError{Detail: bytes.TrimSpace(detail), Body: raw}
	default:
		return StructuredError{Body: raw}
	}
}

// isFalsyJSON mirrors the truthiness test applied to a detail member:
// null, false, "" and zero count as absent.
func isFalsyJSON(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null", "false", `""`:
		return true
	}
	if raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9') {
		f, err := strconv.ParseFloat(string(raw), 64)
		return err == nil && f == 0
	}
	return false
}
