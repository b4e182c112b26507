package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitegraph/internal/database"
	"github.com/nao1215/sitegraph/internal/model"
)

// maxListedChanges caps the nodes and links listed per section in text output.
const maxListedChanges = 20

// NewCompareCmd creates the compare command.
// This command compares two archived crawls of the same host.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <host>",
		Short: "Compare archived crawls of a host",
		Long: `Compare displays the pages and links that appeared or disappeared between
two archived crawls of a host.

By default the latest crawl is compared with the one before it. Use
'sitegraph history <host>' to list the archived crawl ids.

Examples:
  # Compare the latest two crawls
  sitegraph compare example.com

  # Compare the latest crawl with crawl #3
  sitegraph compare --with-id 3 example.com

  # Output the comparison as JSON
  sitegraph compare --json example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare with a specific archived crawl by ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	host := normalizeHost(args[0])
	if host == "" {
		return fmt.Errorf("invalid host: %q", args[0])
	}

	withID, err := cmd.Flags().GetInt64("with-id")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	db, err := database.Open(getDBDir(cmd), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	result, err := runComparison(cmd.Context(), db, host, withID)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	outputComparisonText(cmd.OutOrStdout(), result)
	return nil
}

// runComparison loads the two crawls to compare and diffs their graphs.
func runComparison(ctx context.Context, db *database.CrawlDB, host string, withID int64) (*ComparisonResult, error) {
	reports, err := db.GetLatestCrawls(ctx, host, 2)
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl history: %w", err)
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("no archived crawls found for %s", host)
	}

	current := reports[0]
	var previous *model.CrawlReport

	switch {
	case withID > 0:
		previous, err = db.GetCrawlByID(ctx, withID)
		if err != nil {
			return nil, fmt.Errorf("failed to get crawl with ID %d: %w", withID, err)
		}
		if previous == nil {
			return nil, fmt.Errorf("crawl with ID %d not found", withID)
		}
		if previous.Host != host {
			return nil, fmt.Errorf("crawl ID %d belongs to %s, not %s", withID, previous.Host, host)
		}
		if previous.ID == current.ID {
			return nil, errors.New("cannot compare a crawl with itself")
		}
	case len(reports) < 2:
		return nil, fmt.Errorf("at least 2 crawls are required for comparison (found %d)", len(reports))
	default:
		previous = reports[1]
	}

	return compareReports(previous, current), nil
}

// ComparisonResult holds the result of comparing two archived crawls.
type ComparisonResult struct {
	// Host is the crawled host.
	Host string `json:"host"`

	// PreviousCrawl and CurrentCrawl describe the compared crawls.
	PreviousCrawl CrawlSummary `json:"previousCrawl"`
	CurrentCrawl  CrawlSummary `json:"currentCrawl"`

	// Unchanged is true when both graphs have the same fingerprint.
	Unchanged bool `json:"unchanged"`

	// Diff lists the added and removed pages and links.
	Diff *model.SnapshotDiff `json:"diff"`
}

// CrawlSummary contains metadata about a crawl for comparison display.
type CrawlSummary struct {
	ID          int64     `json:"id"`
	CompletedAt time.Time `json:"completedAt"`
	Nodes       int       `json:"nodes"`
	Links       int       `json:"links"`
	Reason      string    `json:"reason,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
}

func summarize(r *model.CrawlReport) CrawlSummary {
	return CrawlSummary{
		ID:          r.ID,
		CompletedAt: r.CompletedAt,
		Nodes:       r.Snapshot.NodeCount(),
		Links:       model.ValidLinkCount(r.Snapshot),
		Reason:      string(r.Reason),
		Fingerprint: r.Fingerprint,
	}
}

// compareReports compares two archived crawls of the same host.
func compareReports(previous, current *model.CrawlReport) *ComparisonResult {
	result := &ComparisonResult{
		Host:          current.Host,
		PreviousCrawl: summarize(previous),
		CurrentCrawl:  summarize(current),
		Diff:          model.DiffSnapshots(previous.Snapshot, current.Snapshot),
	}
	result.Unchanged = previous.Fingerprint != "" && previous.Fingerprint == current.Fingerprint
	return result
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) {
	fmt.Fprintf(out, "Crawl Comparison: %s\n", result.Host)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nPrevious crawl: #%d  %s\n", result.PreviousCrawl.ID,
		result.PreviousCrawl.CompletedAt.Local().Format(timeLayout))
	fmt.Fprintf(out, "Current crawl:  #%d  %s\n", result.CurrentCrawl.ID,
		result.CurrentCrawl.CompletedAt.Local().Format(timeLayout))

	fmt.Fprintf(out, "\n  %-8s  %-10s  %-10s  %-10s\n", "", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 44))
	fmt.Fprintf(out, "  %-8s  %-10d  %-10d  %-10s\n", "Pages",
		result.PreviousCrawl.Nodes, result.CurrentCrawl.Nodes, formatDelta(result.Diff.NodeDelta))
	fmt.Fprintf(out, "  %-8s  %-10d  %-10d  %-10s\n", "Links",
		result.PreviousCrawl.Links, result.CurrentCrawl.Links, formatDelta(result.Diff.LinkDelta))

	if result.Unchanged || !result.Diff.HasChanges() {
		fmt.Fprintln(out, "\nGraph structure unchanged.")
		return
	}

	printNodes(out, "New pages", result.Diff.AddedNodes)
	printNodes(out, "Removed pages", result.Diff.RemovedNodes)
	printLinks(out, "New links", result.Diff.AddedLinks)
	printLinks(out, "Removed links", result.Diff.RemovedLinks)

	if result.Diff.UnchangedNodes > 0 {
		fmt.Fprintf(out, "\n%d pages unchanged\n", result.Diff.UnchangedNodes)
	}
}

func printNodes(out io.Writer, title string, nodes []model.Node) {
	if len(nodes) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s (%d):\n", title, len(nodes))
	for i, n := range nodes {
		if i == maxListedChanges {
			fmt.Fprintf(out, "  ... and %d more\n", len(nodes)-maxListedChanges)
			break
		}
		fmt.Fprintf(out, "  • %s\n", n.ID)
	}
}

func printLinks(out io.Writer, title string, links []model.Link) {
	if len(links) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s (%d):\n", title, len(links))
	for i, l := range links {
		if i == maxListedChanges {
			fmt.Fprintf(out, "  ... and %d more\n", len(links)-maxListedChanges)
			break
		}
		fmt.Fprintf(out, "  • %s -> %s\n", l.Source, l.Target)
	}
}

// formatDelta formats a delta value with a sign.
func formatDelta(delta int) string {
	if delta > 0 {
		return fmt.Sprintf("+%d", delta)
	}
	return fmt.Sprintf("%d", delta)
}
