package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nao1215/sitegraph/internal/model"
)

// ErrNoSnapshot is returned when a completed outcome carries no graph.
var ErrNoSnapshot = errors.New("completed crawl has no snapshot")

// Renderer builds a CrawlReport from the final poll outcome and runs it
// through a fresh pipeline. It satisfies poller.Renderer.
type Renderer struct {
	factory func() *Pipeline
	now     func() time.Time

	mu     sync.Mutex
	report *model.CrawlReport
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithRendererClock overrides the clock used for the completion timestamp.
func WithRendererClock(now func() time.Time) RendererOption {
	return func(r *Renderer) {
		r.now = now
	}
}

// NewRenderer creates a Renderer that runs the pipeline returned by factory.
func NewRenderer(factory func() *Pipeline, opts ...RendererOption) *Renderer {
	r := &Renderer{
		factory: factory,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render runs the pipeline on the final snapshot of session.
func (r *Renderer) Render(ctx context.Context, session *model.Session, outcome model.Outcome) error {
	if outcome.Snapshot == nil {
		return ErrNoSnapshot
	}

	report := model.NewCrawlReport(session, outcome.Snapshot, outcome.Reason, r.now())

	r.mu.Lock()
	r.report = report
	r.mu.Unlock()

	return r.factory().Execute(ctx, report)
}

// Report returns the last rendered report, or nil.
func (r *Renderer) Report() *model.CrawlReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report
}
