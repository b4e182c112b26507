package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/sitegraph/internal/model"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("valid base url", func(t *testing.T) {
		t.Parallel()

		c, err := NewClient("http://localhost:8080/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.BaseURL() != "http://localhost:8080" {
			t.Errorf("expected trailing slash to be trimmed, got %q", c.BaseURL())
		}
	})

	invalid := []string{"", "localhost:8080", "ftp://example.com", "http://"}
	for _, in := range invalid {
		t.Run("rejects "+in, func(t *testing.T) {
			t.Parallel()

			_, err := NewClient(in)
			if !errors.Is(err, ErrInvalidServiceURL) {
				t.Errorf("expected ErrInvalidServiceURL, got %v", err)
			}
		})
	}

	t.Run("invalid proxy address", func(t *testing.T) {
		t.Parallel()

		_, err := NewClient("http://localhost:8080", WithProxy("127.0.0.1"))
		if !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})

	t.Run("valid proxy address", func(t *testing.T) {
		t.Parallel()

		c, err := NewClient("http://localhost:8080", WithProxy("127.0.0.1:1080"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.ProxyAddress() != "127.0.0.1:1080" {
			t.Errorf("expected proxy address to be kept, got %q", c.ProxyAddress())
		}
	})
}

func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		address  string
		expected bool
	}{
		{"valid IPv4 with port", "127.0.0.1:1080", true},
		{"valid hostname with port", "proxy.example.com:9050", true},
		{"valid IPv6 with port", "[::1]:1080", true},
		{"empty string", "", false},
		{"no port", "127.0.0.1", false},
		{"empty host", ":1080", false},
		{"port zero", "127.0.0.1:0", false},
		{"port too large", "127.0.0.1:65536", false},
		{"non numeric port", "127.0.0.1:http", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := isValidProxyAddress(tc.address); got != tc.expected {
				t.Errorf("isValidProxyAddress(%q) = %v, expected %v", tc.address, got, tc.expected)
			}
		})
	}
}

func TestStartCrawl(t *testing.T) {
	t.Parallel()

	t.Run("posts request and returns id", func(t *testing.T) {
		t.Parallel()

		var got model.CrawlRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/crawl" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON content type, got %q", ct)
			}
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("failed to decode body: %v", err)
			}
			_, _ = w.Write([]byte(`{"id":"session-1"}`))
		}))
		defer srv.Close()

		c, err := NewClient(srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		req := model.CrawlRequest{URL: "https://example.com", MaxDepth: 2, MaxPages: 20, SameHostOnly: true, IncludeAssets: true}
		id, err := c.StartCrawl(context.Background(), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "session-1" {
			t.Errorf("expected id 'session-1', got %q", id)
		}
		if diff := cmp.Diff(req, got); diff != "" {
			t.Errorf("request body mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("invalid url makes no network call", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			_, _ = w.Write([]byte(`{"id":"x"}`))
		}))
		defer srv.Close()

		c, err := NewClient(srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = c.StartCrawl(context.Background(), model.CrawlRequest{URL: "ftp://x.com", MaxDepth: 1, MaxPages: 1})
		var vErr *model.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if calls.Load() != 0 {
			t.Errorf("expected no request, got %d", calls.Load())
		}
	})

	t.Run("non-2xx is a start error with status", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		c, err := NewClient(srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = c.StartCrawl(context.Background(), model.CrawlRequest{URL: "http://example.com", MaxDepth: 1, MaxPages: 1})
		var sErr *model.CrawlStartError
		if !errors.As(err, &sErr) {
			t.Fatalf("expected CrawlStartError, got %v", err)
		}
		if sErr.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", sErr.StatusCode)
		}
	})

	t.Run("missing id is a start error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c, err := NewClient(srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = c.StartCrawl(context.Background(), model.CrawlRequest{URL: "http://example.com", MaxDepth: 1, MaxPages: 1})
		var sErr *model.CrawlStartError
		if !errors.As(err, &sErr) {
			t.Fatalf("expected CrawlStartError, got %v", err)
		}
	})

	t.Run("transport failure is a start error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c, err := NewClient(url, WithTimeout(time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = c.StartCrawl(context.Background(), model.CrawlRequest{URL: "http://example.com", MaxDepth: 1, MaxPages: 1})
		var sErr *model.CrawlStartError
		if !errors.As(err, &sErr) {
			t.Fatalf("expected CrawlStartError, got %v", err)
		}
		if sErr.StatusCode != 0 {
			t.Errorf("expected no status code, got %d", sErr.StatusCode)
		}
	})
}

func TestFetchSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("decodes nodes and links", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/results/abc" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			_, _ = w.Write([]byte(`{
				"nodes": [
					{"id":"https://example.com/","label":"/","url":"https://example.com/","contentType":"text/html","linksCount":3,"responseTime":12},
					{"label":"no id","url":"https://example.com/a"}
				],
				"links": [{"source":"https://example.com/","target":"https://example.com/a"}]
			}`))
		}))
		defer srv.Close()

		c, err := NewClient(srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		snap, err := c.FetchSnapshot(context.Background(), "abc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap.NodeCount() != 2 || snap.LinkCount() != 1 {
			t.Errorf("expected 2 nodes and 1 link, got %d and %d", snap.NodeCount(), snap.LinkCount())
		}
		if snap.Nodes[0].LinksCount != 3 || snap.Nodes[0].ResponseTime != 12 {
			t.Errorf("unexpected node metadata: %+v", snap.Nodes[0])
		}
		if snap.Nodes[1].ID != "" {
			t.Error("expected the raw snapshot to keep missing ids")
		}
	})

	t.Run("null arrays become empty", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"nodes":null,"links":null}`))
		}))
		defer srv.Close()

		c, err := NewClient(srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		snap, err := c.FetchSnapshot(context.Background(), "abc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap.Nodes == nil || snap.Links == nil {
			t.Error("expected non-nil slices")
		}
	})

	t.Run("non-2xx is a poll error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		c, err := NewClient(srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = c.FetchSnapshot(context.Background(), "missing")
		var pErr *model.PollError
		if !errors.As(err, &pErr) {
			t.Fatalf("expected PollError, got %v", err)
		}
		if pErr.StatusCode != http.StatusNotFound || pErr.SessionID != "missing" {
			t.Errorf("unexpected poll error %+v", pErr)
		}
	})

	t.Run("malformed body is a poll error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer srv.Close()

		c, err := NewClient(srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = c.FetchSnapshot(context.Background(), "abc")
		var pErr *model.PollError
		if !errors.As(err, &pErr) {
			t.Fatalf("expected PollError, got %v", err)
		}
	})

	t.Run("empty session id", func(t *testing.T) {
		t.Parallel()

		c, err := NewClient("http://localhost:1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err = c.FetchSnapshot(context.Background(), "")
		if !errors.Is(err, ErrEmptySessionID) {
			t.Errorf("expected ErrEmptySessionID, got %v", err)
		}
	})
}

func TestHeaderInjection(t *testing.T) {
	t.Parallel()

	var auth, cookie, ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		cookie.Store(r.Header.Get("Cookie"))
		ua.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"nodes":[],"links":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL,
		WithHeaders(map[string]string{"Authorization": "Bearer secret"}),
		WithCookie("sid=1"),
		WithUserAgent("sitegraph-test"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := c.FetchSnapshot(context.Background(), "abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if auth.Load() != "Bearer secret" {
		t.Errorf("expected Authorization header, got %v", auth.Load())
	}
	if cookie.Load() != "sid=1" {
		t.Errorf("expected Cookie header, got %v", cookie.Load())
	}
	if ua.Load() != "sitegraph-test" {
		t.Errorf("expected User-Agent header, got %v", ua.Load())
	}
}

func TestWithHTTPClient(t *testing.T) {
	t.Parallel()

	var auth atomic.Value
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"nodes":[{"id":"a","url":"https://example.com/"}],"links":[]}`))
	}))
	defer srv.Close()

	// Only the test server's client trusts its certificate.
	c, err := NewClient(srv.URL,
		WithHTTPClient(srv.Client()),
		WithHeaders(map[string]string{"Authorization": "Bearer secret"}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := c.FetchSnapshot(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.NodeCount() != 1 {
		t.Errorf("expected 1 node, got %d", snap.NodeCount())
	}
	if auth.Load() != "Bearer secret" {
		t.Errorf("headers should still be injected, got %v", auth.Load())
	}
}

func TestWithMaxBodySize(t *testing.T) {
	t.Parallel()

	body := []byte(`{"nodes":[{"id":"https://example.com/","label":"/","url":"https://example.com/"}],"links":[]}`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	tests := []struct {
		name    string
		size    int64
		wantErr bool
	}{
		{"limit above body", int64(len(body)) + 1, false},
		{"limit below body", 16, true},
		{"non-positive keeps default", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := NewClient(srv.URL, WithMaxBodySize(tt.size))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			_, err = c.FetchSnapshot(context.Background(), "abc")
			if !tt.wantErr {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var pollErr *model.PollError
			if !errors.As(err, &pollErr) {
				t.Fatalf("expected *model.PollError, got %v", err)
			}
			if pollErr.SessionID != "abc" {
				t.Errorf("SessionID = %q, want abc", pollErr.SessionID)
			}
		})
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	t.Run("reachable service", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		c, err := NewClient(srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status := c.Ping(context.Background()); status != StatusOK {
			t.Errorf("expected OK, got %s", status)
		}
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c, err := NewClient(srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status := c.Ping(context.Background()); status != StatusUnexpectedResponse {
			t.Errorf("expected unexpected response, got %s", status)
		}
	})

	t.Run("closed server", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c, err := NewClient(url)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status := c.Ping(context.Background()); status != StatusCannotConnect {
			t.Errorf("expected cannot connect, got %s", status)
		}
	})
}

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status Status
		str    string
		err    error
	}{
		{StatusOK, "OK", nil},
		{StatusUnexpectedResponse, "unexpected response", ErrServiceUnexpectedResponse},
		{StatusCannotConnect, "cannot connect", ErrServiceCannotConnect},
		{StatusTimeout, "timeout", ErrServiceTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			t.Parallel()
			if tt.status.String() != tt.str {
				t.Errorf("expected %q, got %q", tt.str, tt.status.String())
			}
			if !errors.Is(tt.status.Error(), tt.err) {
				t.Errorf("expected %v, got %v", tt.err, tt.status.Error())
			}
		})
	}
}
