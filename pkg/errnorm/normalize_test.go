package errnorm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type detailed struct {
	Detail any    `json:"detail"`
	Code   string `json:"code,omitempty"`
}

type bodyErr struct {
	body []byte
}

func (e *bodyErr) Error() string        { return "request failed" }
func (e *bodyErr) ResponseBody() []byte { return e.body }

type label string

func TestNormalize(t *testing.T) {
	var nilErr *bodyErr
	var nilMap map[string]any

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "nil", value: nil, want: UnknownText},
		{name: "typed nil pointer", value: nilErr, want: UnknownText},
		{name: "nil map", value: nilMap, want: UnknownText},
		{name: "plain string", value: "boom", want: "boom"},
		{name: "empty string", value: "", want: ""},
		{name: "named string type", value: label("bad label"), want: "bad label"},
		{name: "detail string", value: map[string]any{"detail": "Bad file"}, want: "Bad file"},
		{name: "detail object", value: map[string]any{"detail": map[string]any{"a": 1}}, want: `{"a":1}`},
		{name: "detail list", value: map[string]any{"detail": []any{"x", 2}}, want: `["x",2]`},
		{name: "detail on struct", value: detailed{Detail: "from struct"}, want: "from struct"},
		{name: "empty detail falls back to body", value: map[string]any{"detail": ""}, want: `{"detail":""}`},
		{name: "null detail falls back to body", value: map[string]any{"detail": nil, "x": 1}, want: `{"detail":null,"x":1}`},
		{name: "zero detail falls back to body", value: map[string]any{"detail": 0}, want: `{"detail":0}`},
		{name: "false detail falls back to body", value: map[string]any{"detail": false}, want: `{"detail":false}`},
		{name: "no detail", value: map[string]any{"message": "x"}, want: `{"message":"x"}`},
		{name: "html is not escaped", value: map[string]any{"message": "<b>&</b>"}, want: `{"message":"<b>&</b>"}`},
		{name: "number", value: 42, want: "42"},
		{name: "bool", value: true, want: "true"},
		{name: "list", value: []int{1, 2}, want: "[1,2]"},
		{name: "unserializable", value: func() {}, want: FallbackText},
		{name: "channel", value: make(chan int), want: FallbackText},
		{name: "plain error", value: errors.New("boom"), want: "boom"},
		{name: "wrapped error", value: fmt.Errorf("outer: %w", errors.New("inner")), want: "outer: inner"},
		{name: "error with empty message", value: errors.New(""), want: UnknownText},
		{name: "raw json body", value: []byte(`{"detail":"Bad file"}`), want: "Bad file"},
		{name: "raw text body", value: []byte("Internal Server Error"), want: "Internal Server Error"},
		{name: "payload", value: StringError("given"), want: "given"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.value))
		})
	}
}

func TestNormalize_SelfReferentialValue(t *testing.T) {
	cyclic := map[string]any{}
	cyclic["self"] = cyclic

	assert.NotPanics(t, func() {
		assert.Equal(t, FallbackText, Normalize(cyclic))
	})
}

func TestNormalize_StringIsIdentity(t *testing.T) {
	for _, s := range []string{"x", "  padded  ", `{"detail":"not parsed"}`, "Error: nested", "ünïcödé"} {
		assert.Equal(t, s, Normalize(s))
	}
}

func TestNormalize_BodyCarrier(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		want string
	}{
		{name: "detail wins over message", body: []byte(`{"detail":"Unsupported file type"}`), want: "Unsupported file type"},
		{name: "structured detail", body: []byte(`{"detail":[{"loc":["body","question"],"msg":"field required"}]}`), want: `[{"loc":["body","question"],"msg":"field required"}]`},
		{name: "text body", body: []byte("upstream timeout"), want: "upstream timeout"},
		{name: "json string body", body: []byte(`"quoted"`), want: "quoted"},
		{name: "empty body uses message", body: nil, want: "request failed"},
		{name: "null body uses message", body: []byte("null"), want: "request failed"},
		{name: "body without detail", body: []byte(`{ "error": "nope" }`), want: `{"error":"nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fmt.Errorf("ingest: %w", &bodyErr{body: tt.body})
			got := Normalize(err)
			if tt.body == nil || string(tt.body) == "null" {
				assert.Equal(t, "ingest: "+tt.want, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromBody(t *testing.T) {
	assert.Equal(t, UnknownError{}, FromBody(nil))
	assert.Equal(t, UnknownError{}, FromBody([]byte("   ")))
	assert.Equal(t, UnknownError{}, FromBody([]byte("null")))
	assert.Equal(t, StringError("plain"), FromBody([]byte("plain")))

	p, ok := FromBody([]byte(`{"detail":{"a":1}}`)).(StructuredError)
	assert.True(t, ok)
	assert.True(t, p.HasDetail())
	assert.JSONEq(t, `{"a":1}`, string(p.Detail))

	p, ok = FromBody([]byte(`{"detail":""}`)).(StructuredError)
	assert.True(t, ok)
	assert.False(t, p.HasDetail())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, UnknownText, Describe(nil))
	assert.Equal(t, UnknownText, Describe(UnknownError{}))
	assert.Equal(t, UnknownText, Describe(StructuredError{}))
	assert.Equal(t, "x", Describe(StringError("x")))
	assert.Equal(t, `{"a":1}`, Describe(StructuredError{Detail: []byte(`{ "a" : 1 }`)}))
}
