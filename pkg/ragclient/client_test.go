package ragclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"rag-lab-ui/pkg/errnorm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_BaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, NewClient(Config{}).BaseURL)
	assert.Equal(t, "http://rag:9000", NewClient(Config{BaseURL: "http://rag:9000/"}).BaseURL)
}

func TestIngest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ingest", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Len(t, r.MultipartForm.File, 1)

		fh := r.MultipartForm.File["file"][0]
		assert.Equal(t, "notes.md", fh.Filename)
		assert.Equal(t, "text/markdown", fh.Header.Get("Content-Type"))

		f, err := fh.Open()
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "# hello", string(data))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"inserted":7}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	resp, err := c.Ingest(context.Background(), File{Name: "notes.md", MediaType: "text/markdown", Data: []byte("# hello")})

	require.NoError(t, err)
	assert.Equal(t, 7, resp.Inserted)
}

func TestIngest_QuotedFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, `my "draft".txt`, r.MultipartForm.File["file"][0].Filename)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	resp, err := NewClient(Config{BaseURL: srv.URL}).Ingest(context.Background(), File{Name: `my "draft".txt`, Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Inserted)
}

func TestAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ask", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"question": "What is X?"}, body)

		w.Write([]byte(`{"answer":"42","sources":["doc1","doc2"]}`))
	}))
	defer srv.Close()

	resp, err := NewClient(Config{BaseURL: srv.URL}).Ask(context.Background(), "What is X?")

	require.NoError(t, err)
	assert.Equal(t, "42", resp.Answer)
	assert.Equal(t, []string{"doc1", "doc2"}, resp.Sources)
}

func TestAsk_ErrorStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "detail string", status: 400, body: `{"detail":"Bad file"}`, wantMsg: "Bad file"},
		{name: "detail object", status: 422, body: `{"detail":{"a":1}}`, wantMsg: `{"a":1}`},
		{name: "plain text", status: 502, body: "Bad Gateway", wantMsg: "Bad Gateway"},
		{name: "empty body", status: 500, body: "", wantMsg: "rag error: /ask returned status 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(Config{BaseURL: srv.URL}).Ask(context.Background(), "q")
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, errnorm.Normalize(err))
		})
	}
}

func TestAsk_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(Config{BaseURL: url}).Ask(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rag request failed")

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestAsk_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).Ask(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response")
}
