package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultServiceURL is where the crawl service listens when run locally.
	DefaultServiceURL = "http://localhost:8080"

	// DefaultTimeout bounds a single request to the crawl service.
	DefaultTimeout = 30 * time.Second

	// DefaultCrawlDepth is the link distance from the seed the service follows.
	DefaultCrawlDepth = 3

	// DefaultMaxPages is the page limit of a crawl. Reaching it completes the crawl.
	DefaultMaxPages = 100

	// DefaultInterval is the delay between two polls of the results endpoint.
	DefaultInterval = 2000 * time.Millisecond

	// DefaultStableThreshold is the number of consecutive polls that must
	// report the same node count before a crawl is considered stabilized.
	// It is a heuristic: the service never signals completion itself.
	DefaultStableThreshold = 3

	// DefaultBatchSize is the number of concurrent fetches of the show command.
	DefaultBatchSize = 4

	// DefaultTopNodes is the number of most connected pages listed in reports.
	DefaultTopNodes = 10

	// DefaultMaxResponseMB limits how much of one results response is read.
	DefaultMaxResponseMB = 32

	// LogFileName is the name of the log file in the XDG state directory.
	LogFileName = "sitegraph.log"

	// AppName is the application name used for XDG directory paths.
	AppName = "sitegraph"

	// DefaultUserAgent identifies sitegraph in requests to the crawl service.
	DefaultUserAgent = "sitegraph/1.0 (+https://github.com/nao1215/sitegraph)"
)

// Config holds all configuration options for sitegraph.
// It is populated from CLI flags and the optional config file, then passed
// through the application rather than kept in global state.
type Config struct {
	// ServiceURL is the root URL of the crawl service.
	ServiceURL string

	// Timeout is the per-request timeout for the crawl service.
	// It bounds each request, not the duration of a crawl.
	Timeout time.Duration

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format used to
	// reach the crawl service.
	ProxyAddress string

	// UserAgent is sent with every request to the crawl service.
	UserAgent string

	// MaxResponseMB limits the size of a results response in megabytes.
	// Large crawls return large snapshots.
	MaxResponseMB int

	// === Crawl request ===

	// CrawlDepth is the maximum link distance from the seed URL.
	CrawlDepth int

	// MaxPages is the page limit of the crawl.
	MaxPages int

	// SameHostOnly restricts the crawl to the seed host.
	SameHostOnly bool

	// IncludeAssets asks the service to add images, scripts and stylesheets as nodes.
	IncludeAssets bool

	// CrawlJavaScript asks the service to follow links found in scripts.
	CrawlJavaScript bool

	// === Polling ===

	// Interval is the delay between two polls.
	Interval time.Duration

	// StableThreshold is the number of equal consecutive node counts that
	// completes a crawl.
	StableThreshold int

	// BatchSize is the number of concurrent fetches when showing several sessions.
	BatchSize int

	// === Output ===

	// Verbose enables debug logging and verbose text reports.
	Verbose bool

	// JSONReport enables JSON output. Mutually exclusive with the other formats.
	JSONReport bool

	// MarkdownReport enables Markdown output. Mutually exclusive with the other formats.
	MarkdownReport bool

	// DOTReport enables Graphviz DOT output. Mutually exclusive with the other formats.
	DOTReport bool

	// ReportFile is the output file path for the report.
	// When empty, the report is written to stdout.
	ReportFile string

	// TopNodes is the number of most connected pages listed in reports.
	TopNodes int

	// SearchTerm keeps only pages whose label or URL contains it.
	SearchTerm string

	// ContentTypes keeps only pages whose media type is listed.
	ContentTypes []string

	// === Files ===

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// SiteConfigs holds per-host configurations loaded from the config file.
	SiteConfigs *File

	// DBDir is the directory of the crawl archive.
	// Defaults to the XDG data directory (~/.local/share/sitegraph on Linux).
	DBDir string

	// SaveToDB indicates whether completed crawls are archived.
	SaveToDB bool

	// LogFile is an optional path for a rotated log file.
	LogFile string

	// Targets are the seed URLs (crawl) or session ids (show) given on the
	// command line.
	Targets []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		ServiceURL:      DefaultServiceURL,
		Timeout:         DefaultTimeout,
		UserAgent:       DefaultUserAgent,
		MaxResponseMB:   DefaultMaxResponseMB,
		CrawlDepth:      DefaultCrawlDepth,
		MaxPages:        DefaultMaxPages,
		SameHostOnly:    true,
		Interval:        DefaultInterval,
		StableThreshold: DefaultStableThreshold,
		BatchSize:       DefaultBatchSize,
		TopNodes:        DefaultTopNodes,
		DBDir:           XDGDataDir(),
		SaveToDB:        true,
	}
}

// XDGDataDir returns the XDG data directory for sitegraph.
// On Linux: ~/.local/share/sitegraph
// On macOS: ~/Library/Application Support/sitegraph
// On Windows: %LOCALAPPDATA%\sitegraph
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitegraph.
// On Linux: ~/.config/sitegraph
// On macOS: ~/Library/Application Support/sitegraph
// On Windows: %APPDATA%\sitegraph
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGStateDir returns the XDG state directory for sitegraph, where log
// files are kept by default.
func XDGStateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// DefaultLogFile returns the log file used when --log-file is given
// without a path.
func DefaultLogFile() string {
	return filepath.Join(XDGStateDir(), LogFileName)
}

// MaxResponseBytes returns MaxResponseMB in bytes.
func (c *Config) MaxResponseBytes() int64 {
	return int64(c.MaxResponseMB) * 1024 * 1024
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the sentinel errors.
// Seed URLs are validated separately when the crawl request is built.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	u, err := url.Parse(strings.TrimSpace(c.ServiceURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidServiceURL
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxResponseMB <= 0 {
		return ErrInvalidMaxResponseSize
	}
	if c.CrawlDepth <= 0 {
		return ErrInvalidCrawlDepth
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.Interval <= 0 {
		return ErrInvalidInterval
	}
	if c.StableThreshold < 1 {
		return ErrInvalidStableThreshold
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	formats := 0
	for _, enabled := range []bool{c.JSONReport, c.MarkdownReport, c.DOTReport} {
		if enabled {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}

	return nil
}

// ApplySite merges the overrides configured for host into c.
// CLI flags explicitly set by the user should be applied afterwards so they
// take precedence.
func (c *Config) ApplySite(host string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	site := c.SiteConfigs.GetSiteConfig(host)
	if site.Depth > 0 {
		c.CrawlDepth = site.Depth
	}
	if site.MaxPages > 0 {
		c.MaxPages = site.MaxPages
	}
	if site.SameHostOnly != nil {
		c.SameHostOnly = *site.SameHostOnly
	}
	if site.IncludeAssets != nil {
		c.IncludeAssets = *site.IncludeAssets
	}
	if site.StableThreshold > 0 {
		c.StableThreshold = site.StableThreshold
	}
	return site
}
