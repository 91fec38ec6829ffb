// Package remote is the client for the order desk REST API. Every
// authenticated call waits for a bearer token before it is sent.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/cloo-solutions/orderdesk/internal/domain"
	"github.com/cloo-solutions/orderdesk/internal/telemetry"
)

const defaultTimeout = 30 * time.Second

// TokenSource yields the bearer token, blocking until one is available.
type TokenSource interface {
	Wait(ctx context.Context) (string, error)
}

type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
}

type Option func(*Client)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit paces outbound requests to rps per second. Zero means unlimited.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	c := &Client{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Blob is a non-JSON response body, such as a rendered report.
type Blob struct {
	ContentType string
	Data        []byte
}

// envelope is the JSON shape of every API response.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// APIError is returned for HTTP status codes of 400 and above.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d - %s %s", e.StatusCode, e.Status, e.Message)
}

// EnvelopeError is returned when the API answers success:false.
type EnvelopeError struct {
	Message string
}

func (e *EnvelopeError) Error() string {
	return e.Message
}

// response is either decoded envelope data or a blob.
type response struct {
	data json.RawMessage
	blob *Blob
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	noAuth      bool
}

// Get fetches path and decodes the envelope data into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.call(ctx, request{method: http.MethodGet, path: path}, out)
}

// GetNoAuth is Get without waiting for or sending a token.
func (c *Client) GetNoAuth(ctx context.Context, path string, out any) error {
	return c.call(ctx, request{method: http.MethodGet, path: path, noAuth: true}, out)
}

// Post sends body to path. A string body is sent as is; anything else is
// JSON-encoded.
func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	req := request{method: http.MethodPost, path: path}
	switch v := body.(type) {
	case nil:
	case string:
		req.body = strings.NewReader(v)
		req.contentType = "text/plain;charset=UTF-8"
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		req.body = bytes.NewReader(data)
		req.contentType = "application/json"
	}
	return c.call(ctx, req, out)
}

// PostForm sends fields url-encoded.
func (c *Client) PostForm(ctx context.Context, path string, fields url.Values, out any) error {
	return c.call(ctx, request{
		method:      http.MethodPost,
		path:        path,
		body:        strings.NewReader(fields.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, out)
}

// Download fetches a file. A JSON answer is an error.
func (c *Client) Download(ctx context.Context, path string) (*Blob, error) {
	resp, err := c.do(ctx, request{method: http.MethodGet, path: path})
	if err != nil {
		return nil, err
	}
	if resp.blob == nil {
		return nil, domain.ErrNotABlob
	}
	return resp.blob, nil
}

func (c *Client) call(ctx context.Context, req request, out any) error {
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}

	if resp.blob != nil {
		if b, ok := out.(*Blob); ok {
			*b = *resp.blob
			return nil
		}
		err := fmt.Errorf("unexpected %s response from %s", resp.blob.ContentType, req.path)
		log.Printf("remote: %v", err)
		return err
	}

	if out == nil || len(resp.data) == 0 || string(resp.data) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.data, out); err != nil {
		err = fmt.Errorf("failed to decode %s response: %w", req.path, err)
		log.Printf("remote: %v", err)
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, req request) (*response, error) {
	ctx, span := telemetry.StartSpan(ctx, "remote."+req.method, telemetry.SpanAttributes{
		Path:      req.path,
		Operation: req.method,
	})
	defer span.End()

	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		log.Printf("remote: %s %s: %v", req.method, req.path, err)
		if !errors.Is(err, context.Canceled) {
			span.SetError(err)
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, req request) (*response, error) {
	var token string
	if !req.noAuth {
		tok, err := c.tokens.Wait(ctx)
		if err != nil {
			return nil, fmt.Errorf("waiting for api token: %w", err)
		}
		token = tok
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+strings.TrimPrefix(req.path, "/"), req.body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return processResponse(httpResp, body)
}

func processResponse(resp *http.Response, body []byte) (*response, error) {
	contentType := resp.Header.Get("Content-Type")
	isJSON := false
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		isJSON = mediaType == "application/json"
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Message:    errorMessage(body, isJSON),
		}
	}

	if !isJSON {
		return &response{blob: &Blob{ContentType: contentType, Data: body}}, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !env.Success {
		return nil, &EnvelopeError{Message: env.Error}
	}
	return &response{data: env.Data}, nil
}

// errorMessage prefers the envelope error and falls back to the raw body.
func errorMessage(body []byte, isJSON bool) string {
	if isJSON {
		var env envelope
		if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
			return env.Error
		}
	}
	return strings.TrimSpace(string(body))
}
