// Package model defines the core data structures used throughout sitegraph.
//
// This package contains the following main types:
//   - Node, Link, Snapshot: the page/link graph returned by the crawl service
//   - CrawlRequest, Session: a submitted crawl and the session that tracks it
//   - PollState, Outcome: the completion detector state and its per-tick result
//   - GraphStats, SnapshotDiff: derived views used by reports and comparisons
//   - CrawlReport: the final result handed to the report writers and the archive
//
// The models are serializable to JSON for report output and database storage.
package model
