package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitegraph/internal/database"
	"github.com/nao1215/sitegraph/internal/model"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [host]",
		Short: "List archived crawls",
		Long: `History lists the hosts with archived crawls, or the archived crawls of
one host, newest first.

Examples:
  # List every archived host
  sitegraph history

  # List the crawls of a host
  sitegraph history example.com

  # Remove every archived crawl of a host
  sitegraph history --delete example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Output the history in JSON format")
	cmd.Flags().Bool("delete", false, "Delete every archived crawl of the host")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	deleteHost, err := cmd.Flags().GetBool("delete")
	if err != nil {
		return err
	}
	if deleteHost && len(args) == 0 {
		return errors.New("a host is required with --delete")
	}

	db, err := database.Open(getDBDir(cmd), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case len(args) == 0:
		return listHosts(ctx, db, out, jsonOutput)
	case deleteHost:
		n, err := db.DeleteHost(ctx, normalizeHost(args[0]))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d archived crawl(s) of %s\n", n, normalizeHost(args[0]))
		return nil
	default:
		return listHistory(ctx, db, out, normalizeHost(args[0]), jsonOutput)
	}
}

// normalizeHost accepts either a host or a URL and returns the lowercased host.
func normalizeHost(arg string) string {
	arg = strings.TrimSpace(arg)
	if !strings.Contains(arg, "://") {
		arg = "http://" + arg
	}
	return model.CrawlRequest{URL: arg}.Host()
}

// listHosts lists every host with archived crawls.
func listHosts(ctx context.Context, db *database.CrawlDB, out io.Writer, jsonOutput bool) error {
	hosts, err := db.ListHosts(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		if hosts == nil {
			hosts = []string{}
		}
		return writeJSON(out, hosts)
	}

	if len(hosts) == 0 {
		fmt.Fprintln(out, "No archived crawls found in the database.")
		fmt.Fprintln(out, "\nUse 'sitegraph crawl <url>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(out, "Archived hosts (%d):\n\n", len(hosts))
	for _, host := range hosts {
		fmt.Fprintf(out, "  • %s\n", host)
	}
	fmt.Fprintln(out, "\nUse 'sitegraph history <host>' to see the crawls of a host.")
	return nil
}

// historyEntry is the JSON form of one archived crawl.
type historyEntry struct {
	ID          int64  `json:"id"`
	SessionID   string `json:"sessionId"`
	SeedURL     string `json:"seedUrl"`
	Reason      string `json:"reason"`
	Nodes       int    `json:"nodes"`
	Links       int    `json:"links"`
	Fingerprint string `json:"fingerprint"`
	Timestamp   string `json:"timestamp"`
}

// listHistory lists the archived crawls of host.
func listHistory(ctx context.Context, db *database.CrawlDB, out io.Writer, host string, jsonOutput bool) error {
	history, err := db.GetHistoryWithMetadata(ctx, host)
	if err != nil {
		return err
	}

	if jsonOutput {
		entries := make([]historyEntry, 0, len(history))
		for _, m := range history {
			entries = append(entries, historyEntry{
				ID:          m.ID,
				SessionID:   m.SessionID,
				SeedURL:     m.SeedURL,
				Reason:      string(m.Reason),
				Nodes:       m.NodeCount,
				Links:       m.LinkCount,
				Fingerprint: m.Fingerprint,
				Timestamp:   m.Timestamp.Format(timeLayout),
			})
		}
		return writeJSON(out, entries)
	}

	if len(history) == 0 {
		fmt.Fprintf(out, "No archived crawls found for %s\n", host)
		return nil
	}

	fmt.Fprintf(out, "Crawl history for %s (%d crawls):\n\n", host, len(history))
	fmt.Fprintf(out, "  %-6s  %-20s  %6s  %6s  %-13s  %s\n", "ID", "Date", "Pages", "Links", "Reason", "Fingerprint")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 76))
	for _, m := range history {
		fmt.Fprintf(out, "  %-6d  %-20s  %6d  %6d  %-13s  %s\n",
			m.ID,
			m.Timestamp.Local().Format(timeLayout),
			m.NodeCount,
			m.LinkCount,
			dashIfEmpty(string(m.Reason)),
			shortFingerprint(m.Fingerprint),
		)
	}
	fmt.Fprintf(out, "\nUse 'sitegraph compare %s' to compare the latest two crawls.\n", host)
	return nil
}

// timeLayout is the date format of history and compare output.
const timeLayout = "2006-01-02 15:04:05"

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return dashIfEmpty(fp)
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
