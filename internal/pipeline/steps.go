package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/sitegraph/internal/model"
)

// ErrNoWriter is returned by a WriteStep created without a writer.
var ErrNoWriter = errors.New("no report writer configured")

// AnalyzeStep computes graph statistics and the structural fingerprint of
// the crawl. Run it before FilterStep so the fingerprint and the archived
// statistics describe the whole crawl.
type AnalyzeStep struct {
	topNodes int
	logger   *slog.Logger
}

// AnalyzeStepOption configures an AnalyzeStep.
type AnalyzeStepOption func(*AnalyzeStep)

// WithTopNodes sets how many of the most connected nodes are kept.
func WithTopNodes(n int) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		if n > 0 {
			s.topNodes = n
		}
	}
}

// WithAnalyzeLogger sets a custom logger for the analyze step.
func WithAnalyzeLogger(logger *slog.Logger) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		s.logger = logger
	}
}

// NewAnalyzeStep creates a new analyze step.
func NewAnalyzeStep(opts ...AnalyzeStepOption) *AnalyzeStep {
	s := &AnalyzeStep{
		topNodes: model.DefaultTopNodes,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string {
	return "analyze"
}

// Do executes the analyze step.
func (s *AnalyzeStep) Do(_ context.Context, report *model.CrawlReport) error {
	stats := model.ComputeStats(report.Snapshot, s.topNodes)
	report.Stats = &stats
	report.TotalNodes = stats.NodeCount
	if report.Fingerprint == "" {
		report.Fingerprint = model.Fingerprint(report.Snapshot)
	}

	if stats.DanglingLinks > 0 {
		s.logger.Debug("dropped dangling links",
			"session", report.SessionID,
			"count", stats.DanglingLinks,
		)
	}
	if stats.SyntheticIDs > 0 {
		s.logger.Warn("graph contains nodes without an id from the service",
			"session", report.SessionID,
			"count", stats.SyntheticIDs,
		)
	}
	return nil
}

// FilterStep narrows the report snapshot to the nodes matching a Filter.
// Links survive only when both endpoints survive. When the report already
// carries statistics they are recomputed for the narrowed graph.
type FilterStep struct {
	filter   model.Filter
	topNodes int
	logger   *slog.Logger
}

// FilterStepOption configures a FilterStep.
type FilterStepOption func(*FilterStep)

// WithFilterLogger sets a custom logger for the filter step.
func WithFilterLogger(logger *slog.Logger) FilterStepOption {
	return func(s *FilterStep) {
		s.logger = logger
	}
}

// NewFilterStep creates a filter step for f.
func NewFilterStep(f model.Filter, opts ...FilterStepOption) *FilterStep {
	s := &FilterStep{
		filter:   f,
		topNodes: model.DefaultTopNodes,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *FilterStep) Name() string {
	return "filter"
}

// Do executes the filter step.
func (s *FilterStep) Do(_ context.Context, report *model.CrawlReport) error {
	report.Filter = s.filter
	if s.filter.IsZero() {
		return nil
	}

	before := report.Snapshot.NodeCount()
	report.Snapshot = s.filter.Apply(report.Snapshot)

	if report.Stats != nil {
		stats := model.ComputeStats(report.Snapshot, s.topNodes)
		report.Stats = &stats
	}

	s.logger.Info("filtered graph",
		"session", report.SessionID,
		"filter", s.filter.String(),
		"before", before,
		"after", report.Snapshot.NodeCount(),
	)
	return nil
}

// CrawlSaver persists completed crawls. *database.CrawlDB satisfies it.
type CrawlSaver interface {
	SaveCrawl(ctx context.Context, report *model.CrawlReport) (int64, error)
}

// ArchiveStep stores the report in the crawl archive.
// Reports without nodes are not archived.
type ArchiveStep struct {
	saver  CrawlSaver
	logger *slog.Logger
}

// ArchiveStepOption configures an ArchiveStep.
type ArchiveStepOption func(*ArchiveStep)

// WithArchiveLogger sets a custom logger for the archive step.
func WithArchiveLogger(logger *slog.Logger) ArchiveStepOption {
	return func(s *ArchiveStep) {
		s.logger = logger
	}
}

// NewArchiveStep creates an archive step backed by saver.
func NewArchiveStep(saver CrawlSaver, opts ...ArchiveStepOption) *ArchiveStep {
	s := &ArchiveStep{
		saver:  saver,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ArchiveStep) Name() string {
	return "archive"
}

// Do executes the archive step.
func (s *ArchiveStep) Do(ctx context.Context, report *model.CrawlReport) error {
	if s.saver == nil {
		return nil
	}
	if report.Snapshot.IsEmpty() {
		s.logger.Debug("skipping archive of empty graph", "session", report.SessionID)
		return nil
	}

	id, err := s.saver.SaveCrawl(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to archive crawl %s: %w", report.SessionID, err)
	}
	report.ID = id

	s.logger.Debug("archived crawl",
		"session", report.SessionID,
		"id", id,
		"host", report.Host,
	)
	return nil
}

// ReportWriter writes a finished report. Every report.Writer satisfies it.
type ReportWriter interface {
	Write(report *model.CrawlReport) (int, error)
}

// WriteStep hands the report to a report writer.
type WriteStep struct {
	writer ReportWriter
}

// NewWriteStep creates a write step.
func NewWriteStep(writer ReportWriter) *WriteStep {
	return &WriteStep{writer: writer}
}

// Name returns the step name.
func (s *WriteStep) Name() string {
	return "write"
}

// Do executes the write step.
func (s *WriteStep) Do(_ context.Context, report *model.CrawlReport) error {
	if s.writer == nil {
		return ErrNoWriter
	}
	if _, err := s.writer.Write(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// Filter narrows the graph before it is written.
	Filter model.Filter

	// TopNodes is the number of most connected nodes kept in the stats.
	TopNodes int

	// Saver archives the crawl. Nil disables archiving.
	Saver CrawlSaver

	// Writer renders the report. Nil skips writing.
	Writer ReportWriter

	// Logger is passed to every step.
	Logger *slog.Logger
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineFilter sets the filter applied before writing.
func WithPipelineFilter(f model.Filter) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Filter = f
	}
}

// WithPipelineTopNodes sets the number of top nodes kept in the stats.
func WithPipelineTopNodes(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.TopNodes = n
	}
}

// WithPipelineArchive enables archiving through saver.
func WithPipelineArchive(saver CrawlSaver) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Saver = saver
	}
}

// WithPipelineWriter sets the report writer.
func WithPipelineWriter(w ReportWriter) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Writer = w
	}
}

// WithPipelineLogger sets the logger used by the steps.
func WithPipelineLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Logger = logger
	}
}

// DefaultPipeline creates the standard finalisation pipeline:
// analyze, archive (when a saver is set), filter, write (when a writer is set).
//
// The first parameter accepts pipeline options (WithLogger, etc).
// The variadic parameter accepts step configuration.
func DefaultPipeline(pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		TopNodes: model.DefaultTopNodes,
		Logger:   p.logger,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	p.AddStep(NewAnalyzeStep(WithTopNodes(cfg.TopNodes), WithAnalyzeLogger(cfg.Logger)))
	if cfg.Saver != nil {
		p.AddStep(NewArchiveStep(cfg.Saver, WithArchiveLogger(cfg.Logger)))
	}
	p.AddStep(NewFilterStep(cfg.Filter, WithFilterLogger(cfg.Logger)))
	if cfg.Writer != nil {
		p.AddStep(NewWriteStep(cfg.Writer))
	}

	return p
}
