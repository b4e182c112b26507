package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/nao1215/sitegraph/internal/model"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// SimpleWriter outputs human-readable text reports for terminal display.
// Plain ASCII formatting is used so output can be piped to files.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no data are shown.
	showEmpty bool

	// verbose lists every page of the graph.
	verbose bool

	// summaryOnly omits every section after the summary.
	summaryOnly bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with every page listed.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithSummaryOnly limits the output to the header and summary block.
// It is used for the terminal summary when the full report goes to a file.
func WithSummaryOnly() SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.summaryOnly = true
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder
	stats := statsOf(report)

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report, stats)
	if w.summaryOnly {
		w.writeFooter(&sb)
		return w.output.Write([]byte(sb.String()))
	}
	w.writeCategories(&sb, stats)
	w.writeTopNodes(&sb, stats)
	w.writeDomains(&sb, stats)
	if w.verbose {
		w.writePages(&sb, report)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         SITEGRAPH REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	if report.SeedURL != "" {
		fmt.Fprintf(sb, "Seed URL:       %s\n", report.SeedURL)
	}
	fmt.Fprintf(sb, "Session:        %s\n", report.SessionID)
	if !report.CompletedAt.IsZero() {
		fmt.Fprintf(sb, "Completed:      %s\n", report.CompletedAt.Format(timeLayout))
	}
	if d := report.Duration(); d > 0 {
		fmt.Fprintf(sb, "Duration:       %s\n", d.Round(time.Millisecond))
	}
	fmt.Fprintf(sb, "Status:         %s\n", report.Status())
	if report.IsFiltered() {
		fmt.Fprintf(sb, "Filter:         %s (%d of %d pages)\n",
			report.Filter.String(), report.Snapshot.NodeCount(), report.TotalNodes)
	}
	if report.ID > 0 {
		fmt.Fprintf(sb, "Archive ID:     %d\n", report.ID)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.CrawlReport, stats model.GraphStats) {
	writeSection(sb, "GRAPH SUMMARY")

	fmt.Fprintf(sb, "  Pages:          %d\n", stats.NodeCount)
	fmt.Fprintf(sb, "  Links:          %d\n", stats.LinkCount)
	fmt.Fprintf(sb, "  Internal links: %d\n", stats.InternalLinks)
	fmt.Fprintf(sb, "  External links: %d\n", stats.ExternalLinks)
	if stats.UnknownLinks > 0 {
		fmt.Fprintf(sb, "  Unknown links:  %d\n", stats.UnknownLinks)
	}
	if stats.DanglingLinks > 0 {
		fmt.Fprintf(sb, "  Dropped links:  %d (endpoint missing)\n", stats.DanglingLinks)
	}
	if stats.SyntheticIDs > 0 {
		fmt.Fprintf(sb, "  Placeholder ids: %d\n", stats.SyntheticIDs)
	}
	if stats.AvgResponseTime > 0 {
		fmt.Fprintf(sb, "  Avg response:   %.0f ms\n", stats.AvgResponseTime)
	}
	if stats.TotalWords > 0 {
		fmt.Fprintf(sb, "  Words:          %d\n", stats.TotalWords)
	}
	if report.Fingerprint != "" {
		fmt.Fprintf(sb, "  Fingerprint:    %s\n", truncateString(report.Fingerprint, 16))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCategories(sb *strings.Builder, stats model.GraphStats) {
	if stats.NodeCount == 0 && !w.showEmpty {
		return
	}
	writeSection(sb, "CONTENT TYPES")

	for _, c := range model.Categories {
		n := stats.CategoryCount(c)
		if n == 0 && !w.showEmpty {
			continue
		}
		fmt.Fprintf(sb, "  %-12s %5d\n", c.Label()+":", n)
	}
	if len(stats.ContentTypes) > 0 {
		fmt.Fprintf(sb, "\n  Seen: %s\n", strings.Join(stats.ContentTypes, ", "))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeTopNodes(sb *strings.Builder, stats model.GraphStats) {
	if len(stats.TopNodes) == 0 && !w.showEmpty {
		return
	}
	writeSection(sb, "MOST CONNECTED PAGES")

	if len(stats.TopNodes) == 0 {
		sb.WriteString("  No pages\n\n")
		return
	}
	for _, n := range stats.TopNodes {
		fmt.Fprintf(sb, "  [%3d] %s\n", n.Connections, truncateString(displayName(n.URL, n.Label, n.ID), 60))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeDomains(sb *strings.Builder, stats model.GraphStats) {
	if len(stats.Domains) < 2 && !w.showEmpty {
		return
	}
	writeSection(sb, "DOMAINS")

	for _, d := range sortedCounts(stats.Domains) {
		fmt.Fprintf(sb, "  [+] %s (%d)\n", d.key, d.count)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writePages(sb *strings.Builder, report *model.CrawlReport) {
	writeSection(sb, "PAGES")

	for _, n := range report.Snapshot.Nodes {
		ct := n.MediaType()
		if ct == "" {
			ct = "unknown"
		}
		fmt.Fprintf(sb, "  * %s\n    Type: %s\n", displayName(n.URL, n.Label, n.ID), ct)
		if n.ResponseTime > 0 {
			fmt.Fprintf(sb, "    Response: %d ms\n", n.ResponseTime)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by sitegraph\n")
	sb.WriteString("https://github.com/nao1215/sitegraph\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// displayName prefers the URL, then the label, then the id.
func displayName(url, label, id string) string {
	switch {
	case url != "":
		return url
	case label != "":
		return label
	default:
		return id
	}
}

type keyCount struct {
	key   string
	count int
}

// sortedCounts orders a count map by count, highest first, then by key.
func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, v := range m {
		out = append(out, keyCount{key: k, count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}
