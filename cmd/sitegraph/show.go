package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitegraph/internal/config"
	"github.com/nao1215/sitegraph/internal/pipeline"
)

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <session-id>...",
		Short: "Fetch and render the current graph of crawl sessions",
		Long: `Show fetches the current results of one or more crawl sessions once,
without waiting for them to finish, and renders each graph.

The sessions are fetched concurrently; reports are written in the order the
session ids were given.

Examples:
  # Show a running crawl
  sitegraph show 1700000000123

  # Show only the images of two sessions as JSON
  sitegraph show --json --content-type image 1700000000123 1700000000456`,
		Args: cobra.MinimumNArgs(1),
		RunE: runShowCmd,
	}

	cmd.Flags().StringP("service", "s", config.DefaultServiceURL,
		"Crawl service URL")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request to the crawl service")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent fetches")
	cmd.Flags().Int("max-response-mb", config.DefaultMaxResponseMB,
		"Largest results response read from the crawl service, in megabytes")

	addOutputFlags(cmd)

	return cmd
}

// runShowCmd executes the show command.
func runShowCmd(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()
	cfg.Targets = args

	var err error
	if cfg.ServiceURL, err = cmd.Flags().GetString("service"); err != nil {
		return err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return err
	}
	if cfg.MaxResponseMB, err = cmd.Flags().GetInt("max-response-mb"); err != nil {
		return err
	}
	if err := readOutputFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closer, err := setupLogger(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	return runShow(cmd.Context(), cfg, logger, cmd.OutOrStdout())
}

// runShow fetches every session of cfg.Targets and writes one report each.
func runShow(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	client, err := newServiceClient(cfg, config.SiteConfig{}, logger)
	if err != nil {
		return err
	}

	output, closeOutput, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // closed again below to report write errors

	bp := pipeline.NewBatchProcessor(client,
		func() *pipeline.Pipeline {
			return createPipeline(cfg, nil, nil, logger)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	reports, err := bp.ProcessBatch(ctx, cfg.Targets)
	if err != nil {
		return err
	}

	writer := newReportWriter(cfg, output, stdout)
	failed := 0
	for _, r := range reports {
		if r == nil {
			continue
		}
		if r.Error != nil {
			failed++
			logger.Warn("session could not be shown", "session", r.SessionID, "error", r.Error)
		}
		if _, err := writer.Write(r); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	if err := closeOutput(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sessions could not be fetched", failed, len(cfg.Targets))
	}
	return nil
}
