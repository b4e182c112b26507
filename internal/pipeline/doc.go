// Package pipeline runs the finalisation steps of a completed crawl.
//
// When the poller detects that a crawl is complete it hands the final
// snapshot to a Renderer, which builds a CrawlReport and runs it through a
// Pipeline: the graph is analysed, archived, narrowed by the user's filter and
// finally written by a report writer. Each stage is a Step that receives the
// current report and can modify it.
//
// The package also provides a BatchProcessor that fetches several sessions
// concurrently and runs a fresh pipeline for each of them, using errgroup to
// bound concurrency.
package pipeline
