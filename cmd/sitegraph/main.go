// Package main provides the entry point for the sitegraph CLI.
//
// sitegraph submits a crawl to a crawl service, polls the growing page graph
// until it stops changing or reaches its page limit, and renders the final
// graph once as a terminal summary, JSON, Markdown or Graphviz DOT.
//
// Usage:
//
//	sitegraph crawl https://example.com
//	sitegraph history example.com
//	sitegraph compare example.com
//
// See --help for all available options.
package main

func main() {
	Execute()
}
