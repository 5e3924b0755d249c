package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ClientOptions configures the HTTP transport shared by the REST adapters.
type ClientOptions struct {
	// Timeout bounds one request, including reading the body. Zero means 30s.
	Timeout time.Duration
	// RequestsPerSecond paces outbound requests. Zero disables pacing.
	RequestsPerSecond float64
	// HTTPClient overrides the underlying client (tests).
	HTTPClient *http.Client
}

// Client performs paced requests against one upstream source and converts
// non-2xx responses into *UpstreamError.
type Client struct {
	provider string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a Client whose errors are attributed to provider.
func NewClient(provider string, opts ClientOptions) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{provider: provider, http: hc, limiter: limiter}
}

// Do sends req and returns the response body of a 2xx response.
func (c *Client) Do(req *http.Request) ([]byte, error) {
	ctx := req.Context()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit: %w", c.provider, Timeout(err))
	}

	req.Header.Set("User-Agent", UserAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: http %s: %w", c.provider, req.Method, Timeout(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", c.provider, Timeout(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Provider: c.provider, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// Get is a convenience wrapper around Do for GET requests.
func (c *Client) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.provider, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.Do(req)
}

// Timeout marks err with ErrTimeout when it was caused by a deadline.
func Timeout(err error) error {
	if err == nil {
		return nil
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
