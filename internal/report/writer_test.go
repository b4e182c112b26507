package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitegraph/internal/model"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *model.CrawlReport {
	snapshot := &model.Snapshot{
		Nodes: []model.Node{
			{ID: "https://example.com/", Label: "Home", URL: "https://example.com/", ContentType: "text/html; charset=utf-8", ResponseTime: 120},
			{ID: "https://example.com/about", Label: "About \"us\"", URL: "https://example.com/about", ContentType: "text/html"},
			{ID: "https://example.com/logo.png", Label: "logo.png", URL: "https://example.com/logo.png", ContentType: "image/png"},
			{ID: "https://cdn.example.net/app.js", Label: "app.js", URL: "https://cdn.example.net/app.js", ContentType: "application/javascript"},
		},
		Links: []model.Link{
			{Source: "https://example.com/", Target: "https://example.com/about"},
			{Source: "https://example.com/", Target: "https://example.com/logo.png"},
			{Source: "https://example.com/", Target: "https://cdn.example.net/app.js"},
			{Source: "https://example.com/about", Target: "https://example.com/missing"},
		},
	}

	req := model.CrawlRequest{URL: "https://example.com/", MaxDepth: 2, MaxPages: 50, SameHostOnly: true}
	started := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	session := model.NewSession("session-42", req, started)
	report := model.NewCrawlReport(session, snapshot, model.ReasonStabilized, started.Add(90*time.Second))

	stats := model.ComputeStats(snapshot, model.DefaultTopNodes)
	report.Stats = &stats
	report.Fingerprint = model.Fingerprint(snapshot)
	return report
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"SITEGRAPH REPORT",
			"Seed URL:       https://example.com/",
			"Session:        session-42",
			"Status:         Stabilized",
			"Duration:       1m30s",
			"GRAPH SUMMARY",
			"Pages:          4",
			"Links:          3",
			"External links: 1",
			"Dropped links:  1",
			"CONTENT TYPES",
			"HTML:",
			"JavaScript:",
			"MOST CONNECTED PAGES",
			"DOMAINS",
			"example.net",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "PAGES\n") && strings.Contains(output, "Type: image/png") {
			t.Error("expected page list only in verbose mode")
		}
	})

	t.Run("verbose lists pages", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Type: image/png") {
			t.Error("expected page content types in verbose output")
		}
		if !strings.Contains(buf.String(), "Response: 120 ms") {
			t.Error("expected response time in verbose output")
		}
	})

	t.Run("shows filter and error", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Filter = model.Filter{Search: "about"}
		report.ErrorMessage = "failed to archive"

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Filter:         search=about") {
			t.Error("expected filter line")
		}
		if !strings.Contains(buf.String(), "Status:         Error - failed to archive") {
			t.Error("expected error status")
		}
	})

	t.Run("computes stats when missing", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Stats = nil

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Pages:          4") {
			t.Error("expected computed page count")
		}
	})

	t.Run("empty sections", func(t *testing.T) {
		t.Parallel()

		report := model.NewCrawlReport(nil, nil, "", time.Time{})
		report.SessionID = "empty"

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithShowEmpty(true)).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No pages") {
			t.Error("expected empty marker with WithShowEmpty")
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded["sessionId"] != "session-42" {
			t.Errorf("expected sessionId, got %v", decoded["sessionId"])
		}
		graph, ok := decoded["graph"].(map[string]any)
		if !ok {
			t.Fatal("expected graph object")
		}
		if nodes, _ := graph["nodes"].([]any); len(nodes) != 4 {
			t.Errorf("expected 4 nodes, got %d", len(nodes))
		}
		if _, ok := decoded["stats"]; !ok {
			t.Error("expected stats")
		}
		if strings.Contains(buf.String(), "\n  ") {
			t.Error("expected compact output")
		}
	})

	t.Run("graph only", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithGraphOnly()).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.Snapshot
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.NodeCount() != 4 || decoded.LinkCount() != 4 {
			t.Errorf("unexpected graph %d nodes %d links", decoded.NodeCount(), decoded.LinkCount())
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"sessionId\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("full writer wraps version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewFullJSONWriter(&buf, "v1.2.3").Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded struct {
			Version string             `json:"version"`
			Report  *model.CrawlReport `json:"report"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Version != "v1.2.3" {
			t.Errorf("expected version v1.2.3, got %q", decoded.Version)
		}
		if decoded.Report == nil || decoded.Report.SessionID != "session-42" {
			t.Error("expected wrapped report")
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables chart and alert", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewMarkdownWriter(&buf).Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n == 0 {
			t.Error("expected a non-zero byte count")
		}

		output := buf.String()
		for _, want := range []string{
			"# Site Graph Report",
			"## Graph Summary",
			"```mermaid",
			"pie",
			"HTML",
			"[!WARNING]",
			"## Most Connected Pages",
			"## Domains",
			"## Pages",
			"`example.com` (3)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("page table limit", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf, WithMaxPageRows(1)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "3 more page(s) not shown") {
			t.Error("expected truncation note")
		}
	})

	t.Run("cancelled report", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Cancelled = true

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf, WithMaxPageRows(0)).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!CAUTION]") {
			t.Error("expected caution alert")
		}
		if strings.Contains(buf.String(), "## Pages") {
			t.Error("expected page table to be hidden")
		}
	})
}

// TestDOTWriter tests the Graphviz writer.
func TestDOTWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewDOTWriter(&buf, WithGraphName("site")).Write(createTestReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"digraph \"site\" {",
		"rankdir=LR;",
		`"https://example.com/" [label="Home", fillcolor="#4285f4"`,
		`"https://example.com/logo.png" [label="logo.png", fillcolor="#34a853"`,
		`"https://cdn.example.net/app.js" [label="app.js", fillcolor="#fbbc05"`,
		`label="About \"us\""`,
		`"https://example.com/" -> "https://example.com/about" [penwidth=1.0];`,
		`"https://example.com/" -> "https://cdn.example.net/app.js" [penwidth=1.0, style=dashed];`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
	if strings.Contains(output, "missing") {
		t.Error("expected dangling link to be dropped")
	}
	if !strings.HasSuffix(output, "}\n") {
		t.Error("expected closing brace")
	}
}

func TestDotQuote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"plain", `"plain"`},
		{`a"b`, `"a\"b"`},
		{`back\slash`, `"back\\slash"`},
		{"two\nlines", `"two\nlines"`},
	}
	for _, tt := range tests {
		if got := dotQuote(tt.in); got != tt.want {
			t.Errorf("dotQuote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write(*model.CrawlReport) (int, error) {
	return 0, errors.New("write failed")
}

// TestMultiWriter tests writing to multiple destinations.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&a), nil, NewJSONWriter(&b))

		n, err := mw.Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != a.Len()+b.Len() {
			t.Errorf("expected %d bytes, got %d", a.Len()+b.Len(), n)
		}
		if a.Len() == 0 || b.Len() == 0 {
			t.Error("expected both writers to receive output")
		}
	})

	t.Run("keeps writing after a failure", func(t *testing.T) {
		t.Parallel()

		var b bytes.Buffer
		mw := NewMultiWriter(failingWriter{}, NewJSONWriter(&b), failingWriter{})

		n, err := mw.Write(createTestReport())
		if err == nil {
			t.Fatal("expected error")
		}
		if b.Len() == 0 {
			t.Error("expected the writer after the failure to receive output")
		}
		if n != b.Len() {
			t.Errorf("expected %d bytes, got %d", b.Len(), n)
		}
		if got := strings.Count(err.Error(), "write failed"); got != 2 {
			t.Errorf("expected both failures joined, got %q", err.Error())
		}
	})

	t.Run("file report with terminal summary", func(t *testing.T) {
		t.Parallel()

		var file, terminal bytes.Buffer
		mw := NewMultiWriter(NewMarkdownWriter(&file), NewSimpleWriter(&terminal, WithSummaryOnly()))

		if _, err := mw.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(file.String(), "# Site Graph Report") {
			t.Errorf("expected a Markdown report in the file, got:\n%s", file.String())
		}
		summary := terminal.String()
		if !strings.Contains(summary, "SITEGRAPH REPORT") || !strings.Contains(summary, "session-42") {
			t.Errorf("expected a summary on the terminal, got:\n%s", summary)
		}
		if strings.Contains(summary, "example.com/about") {
			t.Errorf("summary should not list pages, got:\n%s", summary)
		}
	})
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"日本語のテキスト", 5, "日本..."},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
