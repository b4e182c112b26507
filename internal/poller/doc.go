// Package poller drives a crawl session from submission to its single final render.
//
// A Watcher submits a crawl request to the crawl service, then fetches the
// accumulated page graph at a fixed interval. Each snapshot is normalized and
// handed to Advance, which decides whether the crawl is still pending, still
// growing, or complete. Completion is either reaching the page limit or the
// node count staying unchanged for a number of consecutive polls.
//
// The first completion of a session is rendered exactly once; polling stops
// on completion, on the first fetch failure, on Stop, or when the context is
// cancelled.
//
// Ticks are single-flight: a tick that fires while the previous fetch is
// still outstanding is skipped rather than issuing a second request.
package poller
