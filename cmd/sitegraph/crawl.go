package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitegraph/internal/config"
	"github.com/nao1215/sitegraph/internal/database"
	"github.com/nao1215/sitegraph/internal/model"
	"github.com/nao1215/sitegraph/internal/pipeline"
	"github.com/nao1215/sitegraph/internal/poller"
	"github.com/nao1215/sitegraph/internal/service"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl a website and render its page graph",
		Long: `Crawl submits the seed URL to the crawl service and polls the results
until the crawl is finished, then renders the final page graph once.

The crawl is finished when the number of pages reaches --max-pages, or when
--stable-ticks consecutive polls report the same number of pages. The crawl
service never signals completion itself, so a slow site may need a larger
--stable-ticks or --interval.

Examples:
  # Crawl a site with the defaults
  sitegraph crawl https://example.com

  # Crawl deeper and follow links to other hosts
  sitegraph crawl -d 5 -p 500 --same-host=false https://example.com

  # Use a remote crawl service
  sitegraph crawl -s http://crawler.internal:8080 https://example.com

  # Write a Graphviz graph of the HTML pages only
  sitegraph crawl --dot --content-type text/html -o site.dot https://example.com

Configuration file (.sitegraph) example:
  service: http://localhost:8080
  sites:
    example.com:
      maxPages: 500
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	// Crawl service flags
	cmd.Flags().StringP("service", "s", config.DefaultServiceURL,
		"Crawl service URL")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request to the crawl service")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy used to reach the crawl service (host:port)")
	cmd.Flags().Int("max-response-mb", config.DefaultMaxResponseMB,
		"Largest results response read from the crawl service, in megabytes")

	// Crawl request flags
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum link distance from the seed URL")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Page limit; reaching it completes the crawl")
	cmd.Flags().Bool("same-host", true,
		"Only crawl pages on the seed host")
	cmd.Flags().Bool("include-assets", false,
		"Add images, scripts and stylesheets to the graph")
	cmd.Flags().Bool("crawl-js", false,
		"Follow links found in JavaScript")

	// Polling flags
	cmd.Flags().DurationP("interval", "i", config.DefaultInterval,
		"Delay between two polls of the results")
	cmd.Flags().Int("stable-ticks", config.DefaultStableThreshold,
		"Consecutive polls with the same page count that complete the crawl")

	// Configuration and archive
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitegraph in current or home directory)")
	cmd.Flags().Bool("no-save", false,
		"Do not archive the completed crawl")

	addOutputFlags(cmd)

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, site, err := buildCrawlConfig(cmd, args)
	if err != nil {
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

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, site, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildCrawlConfig creates a Config from the config file and the flags.
// Per-host settings from the config file apply first; flags the user set
// explicitly take precedence over them.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, config.SiteConfig, error) {
	cfg := config.NewConfig()
	cfg.Targets = args
	cfg.DBDir = getDBDir(cmd)

	var err error
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, config.SiteConfig{}, err
	}
	if cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath); err != nil {
		return nil, config.SiteConfig{}, err
	}
	if cfg.SiteConfigs.Service != "" {
		cfg.ServiceURL = cfg.SiteConfigs.Service
	}

	var site config.SiteConfig
	if len(args) > 0 {
		site = cfg.ApplySite(model.CrawlRequest{URL: args[0]}.Host())
	}
	if len(site.ContentTypes) > 0 {
		cfg.ContentTypes = site.ContentTypes
	}

	flags := cmd.Flags()
	if flags.Changed("service") {
		if cfg.ServiceURL, err = flags.GetString("service"); err != nil {
			return nil, site, err
		}
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, site, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, site, err
	}
	if cfg.MaxResponseMB, err = flags.GetInt("max-response-mb"); err != nil {
		return nil, site, err
	}
	if flags.Changed("depth") {
		if cfg.CrawlDepth, err = flags.GetInt("depth"); err != nil {
			return nil, site, err
		}
	}
	if flags.Changed("max-pages") {
		if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
			return nil, site, err
		}
	}
	if flags.Changed("same-host") {
		if cfg.SameHostOnly, err = flags.GetBool("same-host"); err != nil {
			return nil, site, err
		}
	}
	if flags.Changed("include-assets") {
		if cfg.IncludeAssets, err = flags.GetBool("include-assets"); err != nil {
			return nil, site, err
		}
	}
	if cfg.CrawlJavaScript, err = flags.GetBool("crawl-js"); err != nil {
		return nil, site, err
	}
	if cfg.Interval, err = flags.GetDuration("interval"); err != nil {
		return nil, site, err
	}
	if flags.Changed("stable-ticks") {
		if cfg.StableThreshold, err = flags.GetInt("stable-ticks"); err != nil {
			return nil, site, err
		}
	}

	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, site, err
	}
	cfg.SaveToDB = !noSave

	if err := readOutputFlags(cmd, cfg); err != nil {
		return nil, site, err
	}
	cfg.LogFile = getPersistentString(cmd, "log-file")

	return cfg, site, nil
}

// crawlRequest builds the request sent to the crawl service.
func crawlRequest(cfg *config.Config) model.CrawlRequest {
	return model.CrawlRequest{
		URL:             cfg.Targets[0],
		MaxDepth:        cfg.CrawlDepth,
		MaxPages:        cfg.MaxPages,
		SameHostOnly:    cfg.SameHostOnly,
		IncludeAssets:   cfg.IncludeAssets,
		CrawlJavaScript: cfg.CrawlJavaScript,
	}
}

// newServiceClient creates the crawl service client for cfg and site.
func newServiceClient(cfg *config.Config, site config.SiteConfig, logger *slog.Logger) (*service.Client, error) {
	client, err := service.NewClient(cfg.ServiceURL,
		service.WithTimeout(cfg.Timeout),
		service.WithProxy(cfg.ProxyAddress),
		service.WithHeaders(site.Headers),
		service.WithCookie(site.Cookie),
		service.WithUserAgent(cfg.UserAgent),
		service.WithMaxBodySize(cfg.MaxResponseBytes()),
		service.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create crawl service client: %w", err)
	}
	return client, nil
}

// runCrawl starts the crawl, polls it to completion and renders the result.
func runCrawl(ctx context.Context, cfg *config.Config, site config.SiteConfig, logger *slog.Logger, stdout, stderr io.Writer) error {
	req := crawlRequest(cfg)
	if err := req.Validate(); err != nil {
		return err
	}

	client, err := newServiceClient(cfg, site, logger)
	if err != nil {
		return err
	}
	if status := client.Ping(ctx); status != service.StatusOK {
		return fmt.Errorf("crawl service check failed: %s (make sure the service is running at %s): %w",
			status, cfg.ServiceURL, status.Error())
	}

	var db *database.CrawlDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Debug("database opened", "path", db.Path())
	}

	output, closeOutput, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // closed again below to report write errors

	renderer := pipeline.NewRenderer(func() *pipeline.Pipeline {
		return createPipeline(cfg, db, newReportWriter(cfg, output, stdout), logger)
	})

	watcher, err := poller.New(client, renderer, poller.Options{
		Interval:        cfg.Interval,
		StableThreshold: cfg.StableThreshold,
		OnStatus: func(s model.Status) {
			fmt.Fprintln(stderr, s.Message)
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer watcher.Stop()

	session, err := watcher.Start(ctx, req)
	if err != nil {
		return err
	}

	started := time.Now()
	if _, err := watcher.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintf(stderr, "Crawl %s cancelled; no report was written\n", session.ID)
		}
		return err
	}

	stats := watcher.Stats()
	logger.Debug("crawl finished",
		"session", session.ID,
		"elapsed", time.Since(started).Round(time.Millisecond),
		"ticks", stats.Ticks,
		"skipped", stats.Skipped,
		"fetches", stats.Fetches,
	)

	if r := renderer.Report(); r != nil {
		if r.Error != nil {
			return fmt.Errorf("failed to finalise crawl %s: %w", session.ID, r.Error)
		}
		if r.ID > 0 {
			fmt.Fprintf(stderr, "Saved as crawl #%d (see 'sitegraph history %s')\n", r.ID, r.Host)
		}
	}

	if cfg.ReportFile != "" {
		if err := closeOutput(); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Fprintf(stderr, "Report written to %s\n", cfg.ReportFile)
	}
	return nil
}

// createPipeline creates the finalisation pipeline for one crawl.
// The archive step is added only when db is set.
func createPipeline(cfg *config.Config, db *database.CrawlDB, writer pipeline.ReportWriter, logger *slog.Logger) *pipeline.Pipeline {
	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	}

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineFilter(model.Filter{Search: cfg.SearchTerm, ContentTypes: cfg.ContentTypes}),
		pipeline.WithPipelineTopNodes(cfg.TopNodes),
		pipeline.WithPipelineLogger(logger),
	}
	if db != nil {
		configOpts = append(configOpts, pipeline.WithPipelineArchive(db))
	}
	if writer != nil {
		configOpts = append(configOpts, pipeline.WithPipelineWriter(writer))
	}

	return pipeline.DefaultPipeline(pipelineOpts, configOpts...)
}
