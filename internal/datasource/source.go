// Package datasource talks to the simulation backend over HTTP.
//
// Client covers the snapshot endpoint polled by the viewer, the simulation
// control endpoints, the analytics queries and form submission. Every
// request carries an X-Request-ID so backend logs can be correlated with
// the viewer's.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/daviddao/mobsinet_viewer/internal/metrics"
	"github.com/daviddao/mobsinet_viewer/internal/snapshot"
)

// DefaultBaseURL is where the Django app mounts the graph endpoints.
const DefaultBaseURL = "http://localhost:8000/mobsinet/graph/"

// Client is the simulation backend client.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	csrfToken  string
	withLogs   bool
	log        *slog.Logger

	projects *ttlcache.Cache[string, []string]
	configs  *ttlcache.Cache[string, []ConfigEntry]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. A cookie jar is added if it has
// none, since CSRF tokens travel as cookies.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithCSRFToken uses a fixed CSRF token instead of fetching one.
func WithCSRFToken(token string) Option {
	return func(c *Client) { c.csrfToken = token }
}

// WithLogs controls the with_logs flag on snapshot requests.
func WithLogs(on bool) Option {
	return func(c *Client) { c.withLogs = on }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithCacheTTL sets how long project names and configs are cached.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) {
		c.projects = newCache[[]string](d)
		c.configs = newCache[[]ConfigEntry](d)
	}
}

func newCache[V any](ttl time.Duration) *ttlcache.Cache[string, V] {
	return ttlcache.New[string, V](
		ttlcache.WithTTL[string, V](ttl),
		ttlcache.WithDisableTouchOnHit[string, V](),
	)
}

// New creates a client for the given base URL, e.g.
// "http://localhost:8000/mobsinet/graph/".
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:       base,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		withLogs:   true,
		log:        slog.New(slog.DiscardHandler),
		projects:   newCache[[]string](30 * time.Second),
		configs:    newCache[[]ConfigEntry](30 * time.Second),
	}
	for _, o := range opts {
		o(c)
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// FetchSnapshot requests the current round snapshot.
func (c *Client) FetchSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	params := url.Values{}
	params.Set("with_logs", strconv.FormatBool(c.withLogs))
	body, err := c.get(ctx, "update_graph", params)
	if err != nil {
		return nil, err
	}
	return snapshot.Decode(body)
}

// endpoint resolves a path relative to the base URL, keeping the trailing
// slash the Django routes expect.
func (c *Client) endpoint(path string, params url.Values) string {
	u := c.base.ResolveReference(&url.URL{Path: path + "/"})
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

// do executes a request and returns the body of a successful response.
func (c *Client) do(req *http.Request, endpoint string) ([]byte, error) {
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", endpoint, err)
	}
	c.log.Debug("backend request", "endpoint", endpoint, "status", resp.StatusCode,
		"request_id", reqID, "duration", time.Since(start))

	if resp.StatusCode >= 400 {
		return nil, parseAPIError(endpoint, resp.StatusCode, body)
	}
	return body, nil
}

// get issues a GET to one of the backend endpoints.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(endpoint, params), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", endpoint, err)
	}
	return c.do(req, endpoint)
}

// postForm issues a url-encoded POST carrying the CSRF token header.
func (c *Client) postForm(ctx context.Context, endpoint string, params, form url.Values) ([]byte, error) {
	token, err := c.CSRFToken(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(endpoint, params),
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRFToken", token)
	// Django also checks the referer on https.
	req.Header.Set("Referer", c.base.String())
	return c.do(req, endpoint)
}

// ErrNoCSRFToken is returned when the backend did not hand out a token.
var ErrNoCSRFToken = errors.New("backend did not set a csrftoken cookie")

// CSRFToken returns the configured token, or the csrftoken cookie obtained
// by loading the graph page.
func (c *Client) CSRFToken(ctx context.Context) (string, error) {
	if c.csrfToken != "" {
		return c.csrfToken, nil
	}
	if tok := c.cookie("csrftoken"); tok != "" {
		return tok, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String(), nil)
	if err != nil {
		return "", fmt.Errorf("csrf: create request: %w", err)
	}
	if _, err := c.do(req, "graph"); err != nil {
		return "", fmt.Errorf("csrf: %w", err)
	}
	if tok := c.cookie("csrftoken"); tok != "" {
		return tok, nil
	}
	return "", ErrNoCSRFToken
}

func (c *Client) cookie(name string) string {
	for _, ck := range c.httpClient.Jar.Cookies(c.base) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}
