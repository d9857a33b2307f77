package infrastructure

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	apperrors "gridcli/internal/errors"
)

// MaxResponseBytes bounds every remote response body
const MaxResponseBytes = 64 << 20

// HTTPClientOptions configures a rate-limited HTTP client
type HTTPClientOptions struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
	// HostHeader overrides the Host header, for sources addressed by IP
	HostHeader  string
	InsecureTLS bool
	// MaxBodyBytes bounds response bodies; 0 means MaxResponseBytes
	MaxBodyBytes int64
}

// HTTPClient is an http.Client sharing one rate limiter across goroutines
type HTTPClient struct {
	client  *http.Client
	limiter *rate.Limiter
	opts    HTTPClientOptions
	logger  *slog.Logger
}

// NewHTTPClient builds a client from opts. A zero rate disables limiting.
func NewHTTPClient(opts HTTPClientOptions, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = MaxResponseBytes
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // publisher serves a certificate for its hostname only
	}

	return &HTTPClient{
		client:  &http.Client{Timeout: opts.Timeout, Transport: transport},
		limiter: rate.NewLimiter(limit, opts.Burst),
		opts:    opts,
		logger:  logger.With(slog.String("component", "http_client")),
	}
}

// Do waits for the limiter, sends req and returns the body of a 200
// response. Any other status, or a body over the size limit, is a network
// error.
func (c *HTTPClient) Do(ctx context.Context, req *http.Request) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, apperrors.NewNetworkError("rate limiter wait cancelled", err)
	}

	req = req.WithContext(ctx)
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	if c.opts.HostHeader != "" {
		req.Host = c.opts.HostHeader
	}

	url := req.URL.String()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, apperrors.NewNetworkError("request failed", err).WithContext("url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, resp.StatusCode, apperrors.NewHTTPStatusError(url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, resp.StatusCode, apperrors.NewNetworkError("failed to read response body", err).WithContext("url", url)
	}
	if int64(len(body)) > c.opts.MaxBodyBytes {
		return nil, resp.StatusCode, apperrors.NewNetworkError(fmt.Sprintf("response body exceeds %d bytes", c.opts.MaxBodyBytes), nil).
			WithContext("url", url)
	}

	c.logger.DebugContext(ctx, "Fetched",
		slog.String("url", url),
		slog.Int("bytes", len(body)))
	return body, resp.StatusCode, nil
}

// Get fetches url
func (c *HTTPClient) Get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, apperrors.NewNetworkError("invalid request", err)
	}
	return c.Do(ctx, req)
}
