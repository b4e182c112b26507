package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and can be matched with
// errors.Is.
var (
	// ErrNoTarget is returned when no seed URL is specified.
	ErrNoTarget = errors.New("no target specified: provide a seed URL starting with http:// or https://")

	// ErrInvalidServiceURL is returned when the crawl service URL is not an
	// absolute http or https URL.
	ErrInvalidServiceURL = errors.New("invalid service URL: must start with http:// or https://")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxResponseSize is returned when the response size limit is
	// not positive.
	ErrInvalidMaxResponseSize = errors.New("invalid max response size: must be a positive number of megabytes")

	// ErrInvalidCrawlDepth is returned when the crawl depth is not positive.
	ErrInvalidCrawlDepth = errors.New("invalid crawl depth: must be a positive integer")

	// ErrInvalidMaxPages is returned when the page limit is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be a positive integer")

	// ErrInvalidInterval is returned when the poll interval is not positive.
	ErrInvalidInterval = errors.New("invalid poll interval: must be positive")

	// ErrInvalidStableThreshold is returned when the stabilization threshold
	// is less than one.
	ErrInvalidStableThreshold = errors.New("invalid stable threshold: must be at least 1")

	// ErrConflictingReportFormats is returned when more than one of --json,
	// --markdown and --dot is specified. Only one output format can be used
	// at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json, --markdown and --dot cannot be combined")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")
)
