package figma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/srares76/figmaFeeder/internal/model"
)

// DefaultBaseURL is the production Figma REST API endpoint.
const DefaultBaseURL = "https://api.figma.com"

// tokenHeader is the header carrying the personal access token.
const tokenHeader = "X-Figma-Token"

// Retry policy defaults. The schedule is base * 2^attempt plus bounded
// jitter, capped at maxAttempts total requests per call.
const (
	// DefaultMaxAttempts is the total number of attempts per request,
	// including the first one.
	DefaultMaxAttempts = 6

	// DefaultBackoffBase is the base wait before the first retry.
	// 500ms is generous enough that six doubled attempts span roughly
	// half a minute, which covers most Figma rate-limit windows.
	DefaultBackoffBase = 500 * time.Millisecond
)

// maxResponseBody limits how much of a response body is read.
// Node documents for a 50-id batch stay well under this; the limit
// protects against a misbehaving proxy rather than the API itself.
const maxResponseBody = 50 * 1024 * 1024

// Client talks to the Figma REST API on behalf of one feed run.
//
// Design decision: The rate limiter lives on the client, so two clients
// never share a request budget. Independent crawls are independent; a
// caller wanting a shared budget can share one Client instead.
type Client struct {
	// httpClient performs the requests. Replaceable for tests.
	httpClient *http.Client

	// baseURL is the API origin, without a trailing slash.
	baseURL string

	// token is the personal access token sent in tokenHeader.
	token string

	// limiter throttles outgoing requests. Nil disables throttling.
	limiter *rate.Limiter

	// maxAttempts caps attempts per request, first try included.
	maxAttempts int

	// backoffBase is the base of the exponential retry schedule.
	backoffBase time.Duration

	// logger records fetches and retries.
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the API origin. Used by tests to point the client
// at a local stub server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMaxAttempts sets the total attempts per request. Values below 1 are
// ignored.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n >= 1 {
			c.maxAttempts = n
		}
	}
}

// WithBackoffBase sets the base of the retry schedule. Values at or below
// zero are ignored.
func WithBackoffBase(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.backoffBase = d
		}
	}
}

// WithRateLimit throttles the client to rps requests per second with a
// burst of one. Zero or negative rps disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// NewClient creates a Client authenticated with the given token.
//
// Design decision: The token is validated here rather than on first use
// because a missing token fails every call, and failing fast at
// construction gives the CLI a clean error before any crawl state exists.
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     DefaultBaseURL,
		token:       token,
		maxAttempts: DefaultMaxAttempts,
		backoffBase: DefaultBackoffBase,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c, nil
}

// FileMeta is the file-level metadata returned by the files endpoint.
type FileMeta struct {
	// Name is the file's display name.
	Name string `json:"name"`

	// Version is the file's version identifier.
	Version string `json:"version"`

	// LastModified is when the file last changed.
	LastModified time.Time `json:"lastModified"`

	// Document is the file's root node, fetched at depth 1 so its
	// children are the canvas stubs.
	Document model.RawNode `json:"document"`
}

// File fetches a file's metadata and root node at depth 1. The root node's
// ID seeds the crawl when the caller did not pick a root explicitly.
func (c *Client) File(ctx context.Context, fileKey string) (*FileMeta, error) {
	query := url.Values{}
	query.Set("depth", "1")

	body, err := c.get(ctx, "/v1/files/"+url.PathEscape(fileKey), query)
	if err != nil {
		return nil, err
	}

	var meta FileMeta
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("figma: decode file response: %w", err)
	}
	return &meta, nil
}

// nodesResponse is the wire shape of the nodes endpoint. Entries the API
// could not resolve come back as null and are dropped during decoding.
type nodesResponse struct {
	Nodes map[string]*struct {
		Document model.RawNode `json:"document"`
	} `json:"nodes"`
}

// FetchNodes fetches the documents for a batch of node identifiers at the
// given traversal depth. The returned map has no entry for identifiers the
// API could not resolve; that is not an error.
//
// The batch must be non-empty and should respect the caller's batch limit;
// the API rejects oversized id lists with a plain 400.
func (c *Client) FetchNodes(ctx context.Context, fileKey string, ids []model.NodeID, depth int) (map[model.NodeID]model.RawNode, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyBatch
	}

	joined := make([]string, len(ids))
	for i, id := range ids {
		joined[i] = string(id)
	}

	query := url.Values{}
	query.Set("ids", strings.Join(joined, ","))
	query.Set("depth", strconv.Itoa(depth))

	body, err := c.get(ctx, "/v1/files/"+url.PathEscape(fileKey)+"/nodes", query)
	if err != nil {
		return nil, err
	}

	var decoded nodesResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("figma: decode nodes response: %w", err)
	}

	docs := make(map[model.NodeID]model.RawNode, len(decoded.Nodes))
	for id, entry := range decoded.Nodes {
		if entry == nil || entry.Document == nil {
			continue
		}
		docs[model.NodeID(id)] = entry.Document
	}
	return docs, nil
}

// get performs an authenticated GET with the retry policy applied and
// returns the response body.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		body, retry, err := c.doOnce(ctx, requestURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry || attempt == c.maxAttempts-1 {
			return nil, err
		}

		wait := c.backoffWait(attempt)
		c.logger.Debug("retrying figma request",
			"url", requestURL,
			"attempt", attempt+1,
			"wait", wait,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

// doOnce performs a single request. The second return value reports
// whether the failure is worth retrying.
func (c *Client) doOnce(ctx context.Context, requestURL string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set(tokenHeader, c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failures (resets, timeouts) are at least as
		// transient as a 503, so they share the backoff schedule.
		return nil, true, fmt.Errorf("figma: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, true, fmt.Errorf("figma: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, retryable(resp.StatusCode), newRemoteError(resp.StatusCode, data)
	}
	return data, false, nil
}

// backoffWait computes the wait after a failed attempt (0-based):
// base * 2^attempt plus jitter drawn from [0, base/2]. The exponential
// component is deterministic; the jitter is intentionally not.
func (c *Client) backoffWait(attempt int) time.Duration {
	wait := c.backoffBase << uint(attempt)
	jitter := rand.N(c.backoffBase/2 + 1)
	return wait + jitter
}
