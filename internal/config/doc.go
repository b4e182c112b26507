// Package config provides configuration structures and utilities for sitegraph.
// It defines the crawl request defaults, polling settings, report output
// preferences and the optional per-host overrides read from a YAML file.
package config
