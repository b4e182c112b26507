package report

import (
	"errors"
	"io"

	"github.com/nao1215/sitegraph/internal/model"
)

// Writer defines the interface for report output.
// Implementations write crawl reports in various formats.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.CrawlReport) (int, error)
}

// MultiWriter sends one report to several destinations, typically the
// report file and a terminal summary.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
// Nil writers are ignored.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	m := &MultiWriter{writers: make([]Writer, 0, len(writers))}
	for _, w := range writers {
		if w != nil {
			m.writers = append(m.writers, w)
		}
	}
	return m
}

// Write outputs the report to every writer. A failing writer does not stop
// the ones after it. Returns the total bytes written and the joined errors.
func (m *MultiWriter) Write(report *model.CrawlReport) (int, error) {
	var (
		total int
		errs  []error
	)
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statsOf returns the report statistics, computing them when the analyze
// step did not run.
func statsOf(report *model.CrawlReport) model.GraphStats {
	if report.Stats != nil {
		return *report.Stats
	}
	return model.ComputeStats(report.Snapshot, model.DefaultTopNodes)
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// dashIfEmpty replaces an empty table cell.
func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
