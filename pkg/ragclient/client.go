package ragclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBaseURL = "http://localhost:8001"

	ingestPath = "/ingest"
	askPath    = "/ask"

	fileField = "file"
)

// Config holds the backend origin. Timeout of zero leaves the call bounded
// only by the transport.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the RAG backend. It never retries.
type Client struct {
	BaseURL string
	Client  *http.Client
	tracer  trace.Tracer
}

type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.Client = hc
	}
}

// WithTracer overrides the tracer used for client spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: cfg.Timeout},
		tracer:  otel.Tracer("rag-lab-ui/ragclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- Wire types ---

// File is one document handed to the ingestion endpoint.
type File struct {
	Name      string
	MediaType string
	Data      []byte
}

type IngestResponse struct {
	Inserted int `json:"inserted"`
}

type askRequest struct {
	Question string `json:"question"`
}

type AskResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// --- Operations ---

// Ingest uploads file as a multipart form with a single "file" field.
func (c *Client) Ingest(ctx context.Context, file File) (*IngestResponse, error) {
	ctx, span := c.tracer.Start(ctx, "ragclient.Ingest", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("rag.file.name", file.Name),
		attribute.Int("rag.file.size", len(file.Data)),
	)

	body, contentType, err := encodeMultipart(file)
	if err != nil {
		return nil, fail(span, fmt.Errorf("encode multipart: %w", err))
	}

	var out IngestResponse
	if err := c.post(ctx, ingestPath, contentType, body, &out); err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Int("rag.inserted", out.Inserted))
	return &out, nil
}

// Ask sends question as {"question": ...}.
func (c *Client) Ask(ctx context.Context, question string) (*AskResponse, error) {
	ctx, span := c.tracer.Start(ctx, "ragclient.Ask", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	payload, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		return nil, fail(span, fmt.Errorf("marshal request: %w", err))
	}

	var out AskResponse
	if err := c.post(ctx, askPath, "application/json", bytes.NewReader(payload), &out); err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Int("rag.sources", len(out.Sources)))
	return &out, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	url := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("rag request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Path:       path,
			Body:       respBody,
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(file File) (io.Reader, string, error) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	mediaType := file.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(fileField), quoteEscaper.Replace(file.Name)))
	header.Set("Content-Type", mediaType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
