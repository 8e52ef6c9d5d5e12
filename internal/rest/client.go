package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxBodyBytes = 10 << 20

// Request describes one call against the school API.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON-encoded when non-nil.
	Body any
	// ExpectBlob returns the raw body in Envelope.Blob instead of decoding JSON.
	ExpectBlob bool
}

// Client is the generic request wrapper every typed service goes through.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client rooted at baseURL (scheme + host, optional path prefix).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Token returns the bearer token.
func (c *Client) Token() string { return c.token }

// HasToken reports whether a bearer token is configured.
func (c *Client) HasToken() bool {
	return c.Token() != ""
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) *Envelope {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) *Envelope {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Do performs the request. It never returns nil: every failure mode is
// translated into an error envelope.
func (c *Client) Do(ctx context.Context, r Request) *Envelope {
	start := time.Now()
	env := c.do(ctx, r)
	c.logger.Debug("api request",
		zap.String("method", r.Method),
		zap.String("path", r.Path),
		zap.String("status", env.Status),
		zap.Int("status_code", env.StatusCode),
		zap.Duration("took", time.Since(start)),
	)
	return env
}

func (c *Client) do(ctx context.Context, r Request) *Envelope {
	var body io.Reader
	if r.Body != nil {
		buf, err := json.Marshal(r.Body)
		if err != nil {
			return errorEnvelope(0, "encode request: "+err.Error(), err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.url(r.Path, r.Query), body)
	if err != nil {
		return errorEnvelope(0, "build request: "+err.Error(), err)
	}
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !r.ExpectBlob {
		req.Header.Set("Accept", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errorEnvelope(0, err.Error(), errors.Join(ErrTransport, err))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errorEnvelope(resp.StatusCode, "read response: "+err.Error(), errors.Join(ErrTransport, err))
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok && resp.StatusCode != http.StatusNotModified {
		return errorEnvelope(resp.StatusCode, failureMessage(resp.StatusCode, raw), nil)
	}
	if resp.StatusCode == http.StatusNotModified {
		return &Envelope{Status: StatusSuccess, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if r.ExpectBlob {
		return &Envelope{Status: StatusSuccess, StatusCode: resp.StatusCode, Blob: raw, ContentType: contentType}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &Envelope{Status: StatusSuccess, StatusCode: resp.StatusCode}
	}
	if !isJSON(contentType) {
		return errorEnvelope(resp.StatusCode, fmt.Sprintf("unexpected content type %q", contentType), ErrMalformed)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return errorEnvelope(resp.StatusCode, "decode envelope: "+err.Error(), ErrMalformed)
	}
	switch env.Status {
	case StatusSuccess, StatusError:
	case "":
		// Bare JSON body without an envelope: treat it as the data payload.
		env = Envelope{Status: StatusSuccess, Data: raw}
	default:
		return errorEnvelope(resp.StatusCode, fmt.Sprintf("unknown envelope status %q", env.Status), ErrMalformed)
	}
	env.StatusCode = resp.StatusCode
	return &env
}

func (c *Client) url(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// failureMessage extracts a human message from an error body, falling back
// to the HTTP status text.
func failureMessage(code int, raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if text := http.StatusText(code); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", code)
}
