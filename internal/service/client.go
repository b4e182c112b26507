package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/nao1215/sitegraph/internal/model"
)

const (
	// DefaultTimeout bounds a single request to the crawl service.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize limits how much of a response body is read.
	// Results grow with the crawl, so this is well above a page limit of
	// a few thousand nodes.
	DefaultMaxBodySize = 32 * 1024 * 1024

	// pingTimeout is the timeout of the reachability check.
	pingTimeout = 5 * time.Second

	crawlPath   = "/crawl"
	resultsPath = "/results/"
)

// Client talks to the crawl service.
type Client struct {
	// baseURL is the service root, without trailing slash.
	baseURL *url.URL

	// httpClient performs the requests.
	httpClient *http.Client

	// timeout is the per-request timeout.
	timeout time.Duration

	// proxyAddress is an optional SOCKS5 proxy in "host:port" format.
	proxyAddress string

	// headers are injected into every request.
	headers map[string]string

	// cookie is injected into every request.
	cookie string

	// userAgent is sent as the User-Agent header.
	userAgent string

	// maxBodySize limits response bodies.
	maxBodySize int64

	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithProxy routes every request through the SOCKS5 proxy at address.
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithHeaders injects static headers into every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		if len(headers) == 0 {
			return
		}
		if c.headers == nil {
			c.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithCookie injects a raw cookie string into every request.
func WithCookie(cookie string) Option {
	return func(c *Client) {
		c.cookie = cookie
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithMaxBodySize limits the size of response bodies.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client. The client's transport is still
// wrapped to inject headers. Proxy settings are ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the crawl service at baseURL.
// It does not contact the service; call Ping to verify reachability.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidServiceURL
	}
	u.Path = strings.TrimRight(u.Path, "/")

	c := &Client{
		baseURL:     u,
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	if c.httpClient == nil {
		transport, err := c.newTransport()
		if err != nil {
			return nil, err
		}
		c.httpClient = &http.Client{
			Transport: transport,
			Timeout:   c.timeout,
		}
	}

	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client := *c.httpClient
	client.Transport = &headerInjectingTransport{
		base:      base,
		cookie:    c.cookie,
		headers:   c.headers,
		userAgent: c.userAgent,
	}
	c.httpClient = &client

	return c, nil
}

// newTransport builds the HTTP transport, dialing through the SOCKS5
// proxy when one is configured.
func (c *Client) newTransport() (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if c.proxyAddress == "" {
		return transport, nil
	}

	if !isValidProxyAddress(c.proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}
	dialer, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	transport.Proxy = nil
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return transport, nil
}

// isValidProxyAddress checks that address is "host:port" with a port in 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ProxyAddress returns the configured proxy address, if any.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

type startResponse struct {
	ID string `json:"id"`
}

// StartCrawl submits req with POST /crawl and returns the session id.
// The request is validated first; an invalid request returns a
// *model.ValidationError without any network call. Every other failure
// is a *model.CrawlStartError.
func (c *Client) StartCrawl(ctx context.Context, req model.CrawlRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	req.URL = strings.TrimSpace(req.URL)

	body, err := json.Marshal(req)
	if err != nil {
		return "", &model.CrawlStartError{Message: "failed to encode crawl request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(crawlPath), bytes.NewReader(body))
	if err != nil {
		return "", &model.CrawlStartError{Message: "failed to build crawl request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug("starting crawl",
		"service", c.BaseURL(),
		"url", req.URL,
		"maxDepth", req.MaxDepth,
		"maxPages", req.MaxPages,
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &model.CrawlStartError{Message: "failed to reach crawl service", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drain(resp.Body)
		return "", &model.CrawlStartError{StatusCode: resp.StatusCode}
	}

	var sr startResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxBodySize)).Decode(&sr); err != nil {
		return "", &model.CrawlStartError{Message: "failed to decode crawl response", Err: err}
	}
	if strings.TrimSpace(sr.ID) == "" {
		return "", &model.CrawlStartError{Message: "crawl response did not contain a session id"}
	}

	c.logger.Debug("crawl started", "session", sr.ID)
	return sr.ID, nil
}

// FetchSnapshot returns the accumulated graph of a session with
// GET /results/{id}. Every failure is a *model.PollError.
// The snapshot is returned as sent; see model.Normalize.
func (c *Client) FetchSnapshot(ctx context.Context, sessionID string) (*model.Snapshot, error) {
	if sessionID == "" {
		return nil, &model.PollError{Message: "failed to get results", Err: ErrEmptySessionID}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint(resultsPath+url.PathEscape(sessionID)), nil)
	if err != nil {
		return nil, &model.PollError{SessionID: sessionID, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &model.PollError{SessionID: sessionID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drain(resp.Body)
		return nil, &model.PollError{SessionID: sessionID, StatusCode: resp.StatusCode}
	}

	var snapshot model.Snapshot
	if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxBodySize)).Decode(&snapshot); err != nil {
		return nil, &model.PollError{SessionID: sessionID, Message: "failed to decode results", Err: err}
	}
	if snapshot.Nodes == nil {
		snapshot.Nodes = []model.Node{}
	}
	if snapshot.Links == nil {
		snapshot.Links = []model.Link{}
	}

	c.logger.Debug("fetched snapshot",
		"session", sessionID,
		"nodes", len(snapshot.Nodes),
		"links", len(snapshot.Links),
	)
	return &snapshot, nil
}

// Ping checks that the crawl service answers HTTP requests at its root.
// Any response below 500 counts as reachable.
func (c *Client) Ping(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/"), nil)
	if err != nil {
		return StatusCannotConnect
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return StatusTimeout
		}
		return StatusCannotConnect
	}
	defer resp.Body.Close()
	drain(resp.Body)

	if resp.StatusCode >= 500 {
		return StatusUnexpectedResponse
	}
	return StatusOK
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawPath = ""
	return u.String()
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// drain discards a bounded amount of the body so the connection can be reused.
func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64*1024)) //nolint:errcheck // best effort
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers and cookies into every request.
type headerInjectingTransport struct {
	base      http.RoundTripper
	cookie    string
	headers   map[string]string
	userAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.userAgent != "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}
	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
