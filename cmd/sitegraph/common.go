package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitegraph/internal/config"
	applog "github.com/nao1215/sitegraph/internal/log"
	"github.com/nao1215/sitegraph/internal/report"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getPersistentString retrieves a string flag defined on the root command.
func getPersistentString(cmd *cobra.Command, name string) string {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return value
}

// getDBDir returns the archive directory, defaulting to the XDG data dir.
func getDBDir(cmd *cobra.Command) string {
	if dir := getPersistentString(cmd, "db-dir"); dir != "" {
		return dir
	}
	return config.XDGDataDir()
}

// setupLogger creates the secure logger for a command and sets it as the
// slog default. The returned closer flushes the log file, if any.
func setupLogger(cmd *cobra.Command) (*slog.Logger, io.Closer, error) {
	logger, closer, err := applog.New(applog.Options{
		Writer:  cmd.ErrOrStderr(),
		Verbose: getVerboseFlag(cmd),
		File:    getPersistentString(cmd, "log-file"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	slog.SetDefault(logger)
	return logger, closer, nil
}

// loadSiteConfigs loads the configuration file.
// An explicitly given path must exist. Without a path, a missing file
// yields an empty configuration.
func loadSiteConfigs(path string) (*config.File, error) {
	found := config.FindConfigFile(path)
	switch {
	case found != "":
		cf, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
		return cf, nil
	case path != "":
		return nil, fmt.Errorf("configuration file not found: %s", path)
	default:
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}
}

// openOutput returns the report destination: the file at path, or stdout
// when path is empty. Parent directories are created as needed.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter returns the writer for the configured output format.
// When the report goes to a file, a short summary is also written to stdout.
func newReportWriter(cfg *config.Config, output, stdout io.Writer) report.Writer {
	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	case cfg.DOTReport:
		w = report.NewDOTWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	if cfg.ReportFile == "" {
		return w
	}
	return report.NewMultiWriter(w, report.NewSimpleWriter(stdout, report.WithSummaryOnly()))
}

// addOutputFlags registers the report format flags shared by crawl and show.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown and --dot)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json and --dot)")
	cmd.Flags().Bool("dot", false,
		"Output the graph in Graphviz DOT format (mutually exclusive with --json and --markdown)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().String("search", "",
		"Only show pages whose URL or label contains this text")
	cmd.Flags().StringSlice("content-type", nil,
		"Only show pages of these content types (e.g. text/html,image)")
	cmd.Flags().Int("top", config.DefaultTopNodes,
		"Number of most connected pages listed in the report")
}

// readOutputFlags copies the report format flags into cfg.
// Flags the user did not set leave cfg untouched.
func readOutputFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.DOTReport, err = cmd.Flags().GetBool("dot"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	if cfg.SearchTerm, err = cmd.Flags().GetString("search"); err != nil {
		return err
	}
	if cmd.Flags().Changed("content-type") {
		if cfg.ContentTypes, err = cmd.Flags().GetStringSlice("content-type"); err != nil {
			return err
		}
	}
	if cfg.TopNodes, err = cmd.Flags().GetInt("top"); err != nil {
		return err
	}
	cfg.Verbose = getVerboseFlag(cmd)
	return nil
}
