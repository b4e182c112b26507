package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitegraph/internal/model"
)

// defaultMaxPageRows caps the page table of a Markdown report.
const defaultMaxPageRows = 200

// MarkdownWriter outputs reports in Markdown format for documentation and
// sharing, built with the nao1215/markdown library.
type MarkdownWriter struct {
	baseWriter

	maxPageRows int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMaxPageRows limits the number of rows of the page table.
// Zero or less hides the table.
func WithMaxPageRows(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.maxPageRows = n
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter:  newBaseWriter(output),
		maxPageRows: defaultMaxPageRows,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	stats := statsOf(report)

	w.writeHeader(md, report)
	w.writeSummary(md, report, stats)
	w.writeTopNodes(md, stats)
	w.writeDomains(md, stats)
	w.writePages(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Site Graph Report")
	md.PlainText("")

	rows := [][]string{
		{"Seed URL", "`" + dashIfEmpty(report.SeedURL) + "`"},
		{"Session", "`" + report.SessionID + "`"},
	}
	if !report.CompletedAt.IsZero() {
		rows = append(rows, []string{"Completed", report.CompletedAt.Format(timeLayout)})
	}
	if d := report.Duration(); d > 0 {
		rows = append(rows, []string{"Duration", d.String()})
	}
	rows = append(rows, []string{"Status", w.getStatusText(report)})
	if report.IsFiltered() {
		rows = append(rows, []string{"Filter", "`" + report.Filter.String() + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) getStatusText(report *model.CrawlReport) string {
	switch {
	case report.ErrorMessage != "":
		return "❌ Error - " + report.ErrorMessage
	case report.Cancelled:
		return "⚠️ Cancelled (partial results)"
	default:
		return "✅ " + report.Status()
	}
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport, stats model.GraphStats) {
	md.H2("Graph Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Pages", strconv.Itoa(stats.NodeCount)},
			{"Links", strconv.Itoa(stats.LinkCount)},
			{"Internal links", strconv.Itoa(stats.InternalLinks)},
			{"External links", strconv.Itoa(stats.ExternalLinks)},
			{"Dropped links", strconv.Itoa(stats.DanglingLinks)},
			{"Total pages crawled", strconv.Itoa(report.TotalNodes)},
		},
	})
	md.PlainText("")

	if stats.NodeCount > 0 {
		w.writePieChart(md, stats)
	}
	w.writeAlert(md, report, stats)
}

// writePieChart writes a mermaid pie chart of the content categories.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, stats model.GraphStats) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Content Types"),
		piechart.WithShowData(true),
	)

	for _, c := range model.Categories {
		if n := stats.CategoryCount(c); n > 0 {
			chart.LabelAndIntValue(c.Label(), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.CrawlReport, stats model.GraphStats) {
	switch {
	case report.ErrorMessage != "":
		md.Cautionf("The crawl report is incomplete: %s", report.ErrorMessage)
	case report.Cancelled:
		md.Cautionf("The crawl was cancelled before completion. Results are partial.")
	case stats.NodeCount == 0:
		md.Importantf("The graph contains no pages.")
	case stats.DanglingLinks > 0:
		md.Warningf("%d link(s) pointed at pages missing from the graph and were dropped.", stats.DanglingLinks)
	case stats.SyntheticIDs > 0:
		md.Note(fmt.Sprintf("%d page(s) had no id and were given a placeholder.", stats.SyntheticIDs))
	default:
		md.Tip("Every link in the graph points at a known page.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeTopNodes(md *markdown.Markdown, stats model.GraphStats) {
	md.H2("Most Connected Pages")
	md.PlainText("")

	if len(stats.TopNodes) == 0 {
		md.PlainText("No pages.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(stats.TopNodes))
	for i, n := range stats.TopNodes {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			truncateString(dashIfEmpty(n.Label), 40),
			truncateString(dashIfEmpty(n.URL), 60),
			strconv.Itoa(n.Connections),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Label", "URL", "Connections"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeDomains(md *markdown.Markdown, stats model.GraphStats) {
	if len(stats.Domains) == 0 {
		return
	}
	md.H2("Domains")
	md.PlainText("")

	items := make([]string, 0, len(stats.Domains))
	for _, d := range sortedCounts(stats.Domains) {
		items = append(items, "`"+d.key+"` ("+strconv.Itoa(d.count)+")")
	}
	md.BulletList(items...)
	md.PlainText("")
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.CrawlReport) {
	nodes := report.Snapshot.Nodes
	if w.maxPageRows <= 0 || len(nodes) == 0 {
		return
	}
	md.H2("Pages")
	md.PlainText("")

	limit := min(len(nodes), w.maxPageRows)
	rows := make([][]string, 0, limit)
	for _, n := range nodes[:limit] {
		rows = append(rows, []string{
			truncateString(dashIfEmpty(n.Label), 40),
			truncateString(dashIfEmpty(n.URL), 60),
			dashIfEmpty(n.MediaType()),
			n.Category().Label(),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Label", "URL", "Content Type", "Category"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(nodes) > limit {
		md.PlainTextf("*%d more page(s) not shown.*", len(nodes)-limit)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitegraph](https://github.com/nao1215/sitegraph)*")
}
