package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitegraph/internal/config"
)

// NewRootCmd creates the root command for sitegraph.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitegraph",
		Short: "Crawl a website through a crawl service and map its page graph",
		Long: `sitegraph is a client for a crawl service. It starts a crawl, polls the
page and link graph while it grows, detects when the crawl is finished and
renders the final graph once.

A crawl is finished when the number of pages reaches the page limit, or when
several consecutive polls report the same number of pages. Completed crawls
are archived locally so that later crawls of the same host can be compared.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-file", "",
		"Also write debug logs to this file (rotated); --log-file alone writes to "+config.DefaultLogFile())
	cmd.PersistentFlags().Lookup("log-file").NoOptDefVal = config.DefaultLogFile()
	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(), "Directory of the crawl archive")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
