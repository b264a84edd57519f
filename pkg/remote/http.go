package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kittclouds/chronicle/pkg/story"
)

const tracerName = "github.com/kittclouds/chronicle/pkg/remote"

// HTTPConfig holds configuration for the HTTP client.
type HTTPConfig struct {
	BaseURL string        // e.g. "http://localhost:8000"
	Timeout time.Duration // per request; 0 means no client-side timeout
	Client  *http.Client  // optional; overrides Timeout
}

// HTTPClient talks to the generation service over its JSON REST API.
// Under js/wasm net/http is backed by the browser's fetch.
type HTTPClient struct {
	base   string
	client *http.Client
	tracer trace.Tracer
}

// NewHTTPClient creates a client for the service at cfg.BaseURL.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote: invalid base url %q", cfg.BaseURL)
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPClient{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		client: client,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// CreateCharacter creates a character and its first scene.
func (c *HTTPClient) CreateCharacter(ctx context.Context, draft story.CharacterDraft) (*CreateResult, error) {
	var out CreateResult
	if err := c.do(ctx, "create character", http.MethodPost, "/api/characters", draft, &out); err != nil {
		return nil, err
	}
	if out.Character == nil || out.FirstScene == nil {
		return nil, &Error{Op: "create character", Message: "response missing character or first scene"}
	}
	return &out, nil
}

// SubmitEdit asks the service to apply an edit. A rejection is returned as a result.
func (c *HTTPClient) SubmitEdit(ctx context.Context, req EditRequest) (*EditResult, error) {
	var out EditResult
	if err := c.do(ctx, "submit edit", http.MethodPost, "/api/edits", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Recap returns a narrative summary of the character's journey.
func (c *HTTPClient) Recap(ctx context.Context, characterID string) (string, error) {
	var out RecapResult
	path := "/api/characters/" + url.PathEscape(characterID) + "/recap"
	if err := c.do(ctx, "recap", http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	return out.Recap, nil
}

// DeleteCharacter removes the character and its scenes on the service.
func (c *HTTPClient) DeleteCharacter(ctx context.Context, characterID string) (string, error) {
	var out MessageResult
	path := "/api/characters/" + url.PathEscape(characterID)
	if err := c.do(ctx, "delete character", http.MethodDelete, path, nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// LoadDemo loads the pre-built demo character.
func (c *HTTPClient) LoadDemo(ctx context.Context) (*DemoResult, error) {
	var out DemoResult
	if err := c.do(ctx, "load demo", http.MethodPost, "/api/demo/load", nil, &out); err != nil {
		return nil, err
	}
	if out.Character == nil {
		return nil, &Error{Op: "load demo", Message: "response missing character"}
	}
	return &out, nil
}

// =============================================================================
// Transport
// =============================================================================

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "remote."+strings.ReplaceAll(op, " ", "_"),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: op, Status: resp.StatusCode, Message: errorDetail(data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// errorDetail extracts the "detail" field of an error body.
func errorDetail(data []byte) string {
	var body ErrorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return "API request failed"
}

var _ Service = (*HTTPClient)(nil)
