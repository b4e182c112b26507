package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/sitegraph/internal/model"
)

// DOTWriter outputs the page graph in Graphviz DOT format.
//
// Nodes are filled with the colour of their content category. Links are
// drawn with a pen width derived from the degree of their target, and links
// that leave the seed host are dashed.
type DOTWriter struct {
	baseWriter

	graphName string
	rankdir   string
}

// DOTWriterOption configures a DOTWriter.
type DOTWriterOption func(*DOTWriter)

// WithGraphName sets the name of the digraph.
func WithGraphName(name string) DOTWriterOption {
	return func(w *DOTWriter) {
		if name != "" {
			w.graphName = name
		}
	}
}

// WithRankDir sets the layout direction (TB, LR, BT, RL).
func WithRankDir(dir string) DOTWriterOption {
	return func(w *DOTWriter) {
		if dir != "" {
			w.rankdir = dir
		}
	}
}

// NewDOTWriter creates a DOTWriter that outputs to the given writer.
func NewDOTWriter(output io.Writer, opts ...DOTWriterOption) *DOTWriter {
	w := &DOTWriter{
		baseWriter: newBaseWriter(output),
		graphName:  "sitegraph",
		rankdir:    "LR",
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report graph in DOT format.
// Links whose endpoints are missing are never drawn.
func (w *DOTWriter) Write(report *model.CrawlReport) (int, error) {
	snapshot := model.FilterSnapshot(report.Snapshot, nil)
	var connections map[string]int
	if report.Stats != nil && report.Stats.NodeCount == snapshot.NodeCount() {
		connections = report.Stats.Connections
	} else {
		connections = model.ComputeStats(snapshot, 0).Connections
	}

	urls := make(map[string]string, len(snapshot.Nodes))
	for _, n := range snapshot.Nodes {
		urls[n.ID] = n.URL
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "digraph %s {\n", dotQuote(w.graphName))
	fmt.Fprintf(&sb, "  rankdir=%s;\n", w.rankdir)
	if report.SeedURL != "" {
		fmt.Fprintf(&sb, "  label=%s;\n", dotQuote(report.SeedURL))
	}
	sb.WriteString("  node [shape=box, style=\"rounded,filled\", fontname=\"Helvetica\", fontcolor=\"white\"];\n")
	sb.WriteString("  edge [color=\"#999999\", arrowsize=0.6];\n")

	for _, n := range snapshot.Nodes {
		label := n.Label
		if label == "" {
			label = displayName(n.URL, "", n.ID)
		}
		color := n.Category().Color()
		fmt.Fprintf(&sb, "  %s [label=%s, fillcolor=%s, color=%s",
			dotQuote(n.ID), dotQuote(truncateString(label, 40)), dotQuote(color), dotQuote(color))
		if n.URL != "" {
			fmt.Fprintf(&sb, ", URL=%s, tooltip=%s", dotQuote(n.URL), dotQuote(n.URL))
		}
		sb.WriteString("];\n")
	}

	for _, l := range snapshot.Links {
		width := max(1.0, model.LinkWeight(connections, l))
		fmt.Fprintf(&sb, "  %s -> %s [penwidth=%.1f", dotQuote(l.Source), dotQuote(l.Target), width)
		if model.ClassifyLink(urls[l.Source], urls[l.Target]) == model.LinkExternal {
			sb.WriteString(", style=dashed")
		}
		sb.WriteString("];\n")
	}

	sb.WriteString("}\n")
	return w.output.Write([]byte(sb.String()))
}

// dotQuote returns s as a double-quoted DOT string.
func dotQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", "")
	return `"` + r.Replace(s) + `"`
}
