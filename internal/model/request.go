package model

import (
	"net/url"
	"strconv"
	"strings"
)

// CrawlRequest is the body of POST /crawl.
type CrawlRequest struct {
	// URL is the seed page. Only http and https are accepted.
	URL string `json:"url"`

	// MaxDepth is the maximum link distance from the seed.
	MaxDepth int `json:"maxDepth"`

	// MaxPages is the page limit. Reaching it completes the crawl.
	MaxPages int `json:"maxPages"`

	// SameHostOnly restricts the crawl to the seed host.
	SameHostOnly bool `json:"sameHostOnly"`

	// IncludeAssets adds images, scripts and stylesheets as nodes.
	IncludeAssets bool `json:"includeAssets,omitempty"`

	// CrawlJavaScript asks the service to follow links found in scripts.
	CrawlJavaScript bool `json:"crawlJavaScript,omitempty"`
}

// Validate checks the request before it is sent.
// It returns a *ValidationError describing the first problem found.
func (r CrawlRequest) Validate() error {
	if err := ValidateSeedURL(r.URL); err != nil {
		return err
	}
	if r.MaxDepth <= 0 {
		return &ValidationError{Field: "maxDepth", Value: strconv.Itoa(r.MaxDepth), Reason: "must be a positive integer"}
	}
	if r.MaxPages <= 0 {
		return &ValidationError{Field: "maxPages", Value: strconv.Itoa(r.MaxPages), Reason: "must be a positive integer"}
	}
	return nil
}

// Host returns the lowercased host of the seed URL, without port.
// It returns an empty string when the URL does not parse.
func (r CrawlRequest) Host() string {
	u, err := url.Parse(strings.TrimSpace(r.URL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// ValidateSeedURL accepts absolute http and https URLs with a host.
func ValidateSeedURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &ValidationError{Field: "url", Reason: "please enter a valid URL starting with http:// or https://"}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Field: "url", Value: raw, Reason: "not a valid URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "url", Value: raw, Reason: "URL must start with http:// or https://"}
	}
	if u.Hostname() == "" {
		return &ValidationError{Field: "url", Value: raw, Reason: "URL has no host"}
	}
	return nil
}
