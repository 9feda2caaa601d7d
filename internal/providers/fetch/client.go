// Package fetch holds the HTTP plumbing shared by the sponsor providers.
package fetch

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

	"github.com/rs/zerolog"

	"sponsorkit/internal/domain"
	"sponsorkit/internal/infra"
)

// maxBodyBytes bounds a single provider response.
const maxBodyBytes = 32 << 20

// Options configures a provider client.
type Options struct {
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	// BaseURL replaces the provider's public endpoint. Tests point it at an
	// httptest server.
	BaseURL string
	// Now overrides the clock for date arithmetic.
	Now func() time.Time
}

// Client performs provider HTTP calls and maps failures onto
// domain.ErrProviderFailure.
type Client struct {
	name       string
	httpClient *http.Client
	logger     *infra.Logger
	now        func() time.Time
}

// New constructs a client named after its provider.
func New(name string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{name: name, httpClient: httpClient, logger: logger, now: now}
}

// Now returns the current time in UTC.
func (c *Client) Now() time.Time {
	return c.now().UTC()
}

// BaseURL returns opts.BaseURL without a trailing slash, or fallback.
func BaseURL(opts Options, fallback string) string {
	if v := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); v != "" {
		return v
	}
	return fallback
}

func (c *Client) Logger() *infra.Logger {
	return c.logger
}

// Do sends req and returns the response body.
func (c *Client) Do(req *http.Request) ([]byte, error) {
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: http request: %w: %w", c.name, domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w: %w", c.name, domain.ErrProviderFailure, err)
	}
	c.logger.Debug().
		Str("provider", c.name).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(started)).
		Msg("fetch: response")
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: status %d: %s: %w", c.name, resp.StatusCode, truncate(strings.TrimSpace(string(raw)), 300), domain.ErrProviderFailure)
	}
	return raw, nil
}

// GetBytes issues a GET and returns the raw body.
func (c *Client) GetBytes(ctx context.Context, endpoint string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.name, err)
	}
	copyHeader(req.Header, header)
	return c.Do(req)
}

// GetJSON issues a GET and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, endpoint string, header http.Header, out any) error {
	raw, err := c.GetBytes(ctx, endpoint, header)
	if err != nil {
		return err
	}
	return c.decode(raw, out)
}

// PostJSON encodes body as JSON, posts it and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, endpoint string, header http.Header, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", c.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.name, err)
	}
	copyHeader(req.Header, header)
	req.Header.Set("Content-Type", "application/json")
	raw, err := c.Do(req)
	if err != nil {
		return err
	}
	return c.decode(raw, out)
}

// PostForm posts url-encoded form values and decodes the JSON response.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	raw, err := c.Do(req)
	if err != nil {
		return err
	}
	return c.decode(raw, out)
}

func (c *Client) decode(raw []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w: %w", c.name, domain.ErrProviderFailure, err)
	}
	return nil
}

func copyHeader(dst, src http.Header) {
	for k, values := range src {
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
