// Package report renders completed crawl reports.
//
// Writers are provided for a terminal summary (SimpleWriter), JSON for tool
// integration (JSONWriter, FullJSONWriter), Markdown for sharing
// (MarkdownWriter) and Graphviz DOT for drawing the page graph (DOTWriter).
// MultiWriter fans one report out to several writers.
package report
