package config

import "strings"

// SiteConfig holds per-host configuration for crawls of a single site.
type SiteConfig struct {
	// Cookie is sent to the crawl service with every request for this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers sent to the crawl service, for example
	// an Authorization header.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global crawl depth for this site.
	// If zero, the global CrawlDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// MaxPages overrides the global page limit for this site.
	MaxPages int `yaml:"maxPages,omitempty"`

	// SameHostOnly overrides the same-host restriction when set.
	SameHostOnly *bool `yaml:"sameHostOnly,omitempty"`

	// IncludeAssets overrides asset crawling when set.
	IncludeAssets *bool `yaml:"includeAssets,omitempty"`

	// StableThreshold overrides the stabilization threshold for slow sites.
	StableThreshold int `yaml:"stableThreshold,omitempty"`

	// ContentTypes restricts the rendered graph to these media types.
	ContentTypes []string `yaml:"contentTypes,omitempty"`
}

// File represents the structure of the .sitegraph configuration file.
type File struct {
	// Service is the crawl service URL. Empty means the default.
	Service string `yaml:"service,omitempty"`

	// Sites maps hosts to their site-specific configurations.
	// Keys are host names without scheme or port (e.g., "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains configuration applied to all sites unless
	// overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific host.
// It merges the site-specific configuration with defaults.
// Host matching is case-insensitive.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		siteConfig, ok = cf.lookupFold(host)
	}
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if siteConfig.MaxPages != 0 {
		result.MaxPages = siteConfig.MaxPages
	}
	if siteConfig.SameHostOnly != nil {
		result.SameHostOnly = siteConfig.SameHostOnly
	}
	if siteConfig.IncludeAssets != nil {
		result.IncludeAssets = siteConfig.IncludeAssets
	}
	if siteConfig.StableThreshold != 0 {
		result.StableThreshold = siteConfig.StableThreshold
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}
	if len(siteConfig.ContentTypes) > 0 {
		result.ContentTypes = siteConfig.ContentTypes
	}

	return result
}

func (cf *File) lookupFold(host string) (SiteConfig, bool) {
	for k, v := range cf.Sites {
		if strings.EqualFold(k, host) {
			return v, true
		}
	}
	return SiteConfig{}, false
}
