package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "https://query2.finance.yahoo.com"
	defaultCookieURL = "https://fc.yahoo.com/"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/91.0.4472.124"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=yahoo_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ErrAuthUnavailable marks a fetch that failed because no session token could
// be obtained, including the case where a refresh after 401/403 did not help.
var ErrAuthUnavailable = errors.New("session token unavailable")

// ErrMalformedResponse marks an upstream payload missing expected fields.
var ErrMalformedResponse = errors.New("malformed chart response")

// UpstreamError is a non-success HTTP status from the chart endpoint.
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d", e.Status)
}

// Client fetches quotes and price history from the Yahoo Finance chart API.
type Client struct {
	httpClient HTTPClient
	baseURL    string
	userAgent  string
	auth       TokenSource
	limiter    *rate.Limiter
	log        *zap.Logger
}

// ClientOption is a configuration option for the chart API client.
type ClientOption func(*Client)

// WithBaseURL sets the chart/crumb API host.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient sets the HTTP client used for chart requests.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithUserAgent sets the User-Agent sent on chart requests.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// WithTokenSource sets the session token source. Without this option the
// client builds an Authenticator against the default endpoints, reusing the
// chart HTTP client.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) { c.auth = ts }
}

// WithLimiter gates every upstream call through l. Nil means unlimited.
func WithLimiter(l *rate.Limiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

// WithLogger sets the client logger.
func WithLogger(log *zap.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient creates a chart API client.
func NewClient(options ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		log:        zap.NewNop(),
	}
	for _, option := range options {
		option(c)
	}
	if c.auth == nil {
		c.auth = NewAuthenticator(c.httpClient, defaultCookieURL, c.baseURL+"/v1/test/getcrumb", c.userAgent, c.log)
	}
	return c
}

// PrimeToken attempts one session acquisition, for process startup. A failure
// is not fatal: fetchers acquire lazily on demand.
func (c *Client) PrimeToken(ctx context.Context) error {
	_, err := c.auth.Token(ctx)
	return err
}

// fetchChart issues one authorized chart request and decodes its single
// result. Any non-2xx status comes back as *UpstreamError so callers can
// distinguish auth expiry (401/403) from other failures.
func (c *Client) fetchChart(ctx context.Context, sess Session, symbol, rng, interval string) (*chartResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s&crumb=%s",
		c.baseURL, url.PathEscape(symbol), rng, interval, url.QueryEscape(sess.Crumb))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("chart request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Cookie", sess.Cookie)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode}
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: empty result for %q", ErrMalformedResponse, symbol)
	}
	return &chart.Chart.Result[0], nil
}
