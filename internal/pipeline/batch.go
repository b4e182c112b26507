package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitegraph/internal/model"
)

// Fetcher loads the current snapshot of a session.
// *service.Client satisfies it.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, sessionID string) (*model.Snapshot, error)
}

// BatchProcessor fetches several crawl sessions concurrently and runs a fresh
// pipeline for each snapshot. It is used for one-off views of sessions that
// are not being polled.
type BatchProcessor struct {
	fetcher Fetcher

	// pipelineFactory creates a new pipeline for each session.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent fetches.
	concurrency int

	logger *slog.Logger
	now    func() time.Time
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent sessions.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchClock overrides the clock used for report timestamps.
func WithBatchClock(now func() time.Time) BatchOption {
	return func(b *BatchProcessor) {
		b.now = now
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(fetcher Fetcher, pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		fetcher:         fetcher,
		pipelineFactory: pipelineFactory,
		concurrency:     4,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	if bp.now == nil {
		bp.now = time.Now
	}

	return bp
}

// ProcessBatch fetches every session and runs the pipeline on it.
// The returned reports are in the order of sessionIDs. A session that fails
// to fetch or to process still gets a report with its error recorded; the
// returned error is only set when ctx is cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, sessionIDs []string) ([]*model.CrawlReport, error) {
	var mu sync.Mutex
	results := make([]*model.CrawlReport, len(sessionIDs))

	err := bp.ProcessBatchWithCallback(ctx, sessionIDs, func(report *model.CrawlReport, index int) {
		mu.Lock()
		results[index] = report
		mu.Unlock()
	})

	return results, err
}

// ProcessBatchWithCallback processes the sessions and calls callback for each
// finished report. The callback is called from the goroutine that processed
// the session, so it must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	sessionIDs []string,
	callback func(report *model.CrawlReport, index int),
) error {
	bp.logger.Debug("starting batch processing",
		"sessions", len(sessionIDs),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, id := range sessionIDs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			report := bp.process(ctx, id)
			callback(report, i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Debug("batch processing complete",
		"sessions", len(sessionIDs),
		"elapsed", time.Since(startTime),
	)
	return err
}

func (bp *BatchProcessor) process(ctx context.Context, id string) *model.CrawlReport {
	raw, err := bp.fetcher.FetchSnapshot(ctx, id)
	if err != nil {
		bp.logger.Warn("failed to fetch session", "session", id, "error", err)
		report := model.NewCrawlReport(nil, nil, "", bp.now())
		report.SessionID = id
		report.Error = err
		report.ErrorMessage = err.Error()
		return report
	}

	snapshot, _ := model.Normalize(raw)
	report := model.NewCrawlReport(nil, snapshot, "", bp.now())
	report.SessionID = id

	if err := bp.pipelineFactory().Execute(ctx, report); err != nil {
		bp.logger.Warn("failed to process session", "session", id, "error", err)
		if report.Error == nil {
			report.Error = fmt.Errorf("session %s: %w", id, err)
			report.ErrorMessage = report.Error.Error()
		}
	}
	return report
}
