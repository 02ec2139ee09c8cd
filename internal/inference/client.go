package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// DefaultBaseURL is where the local inference engine listens.
const DefaultBaseURL = "http://localhost:8000"

// Client implements Service over plain JSON request/response.
type Client struct {
	baseURL string
	client  *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeout bounds every request. Zero leaves the transport default.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d <= 0 {
			return
		}
		c.client = &http.Client{Transport: c.client.Transport, Timeout: d}
	}
}

// NewClient creates a client for the inference endpoint at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", req, chatSchema, &resp); err != nil {
		return ChatResponse{}, err
	}
	resp.DetectedLanguage = normalizeLanguage(resp.DetectedLanguage)
	return resp, nil
}

func (c *Client) Assessment(ctx context.Context, req AssessmentRequest) (AssessmentResponse, error) {
	var resp AssessmentResponse
	if err := c.do(ctx, http.MethodPost, "/assessment", req, assessmentSchema, &resp); err != nil {
		return AssessmentResponse{}, err
	}
	return resp, nil
}

func (c *Client) Mission(ctx context.Context, req MissionRequest) (MissionResponse, error) {
	var resp MissionResponse
	if err := c.do(ctx, http.MethodPost, "/mission", req, missionSchema, &resp); err != nil {
		return MissionResponse{}, err
	}
	return resp, nil
}

func (c *Client) Library(ctx context.Context) (LibraryResponse, error) {
	var resp LibraryResponse
	if err := c.do(ctx, http.MethodGet, "/library", nil, librarySchema, &resp); err != nil {
		return LibraryResponse{}, err
	}
	return resp, nil
}

// HealthCheck pings the endpoint root.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in any, rs responseSchema, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Endpoint: rs.name, Code: resp.StatusCode, Body: string(respBody)}
	}

	if err := rs.validate(respBody); err != nil {
		return err
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &InvalidResponseError{Endpoint: rs.name, Body: respBody, Err: err}
	}

	slog.Debug("inference request completed",
		"endpoint", rs.name,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// normalizeLanguage canonicalises a detected language as a BCP 47 tag,
// keeping the raw value when it does not parse.
func normalizeLanguage(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return raw
	}
	return tag.String()
}
