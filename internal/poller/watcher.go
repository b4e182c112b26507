package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitegraph/internal/model"
)

// Service is the part of the crawl service the watcher talks to.
// *service.Client satisfies it.
type Service interface {
	StartCrawl(ctx context.Context, req model.CrawlRequest) (string, error)
	FetchSnapshot(ctx context.Context, sessionID string) (*model.Snapshot, error)
}

// Renderer receives the final snapshot of a session.
// It is called at most once per session.
type Renderer interface {
	Render(ctx context.Context, session *model.Session, outcome model.Outcome) error
}

// RendererFunc adapts an ordinary function to the Renderer interface.
type RendererFunc func(ctx context.Context, session *model.Session, outcome model.Outcome) error

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, session *model.Session, outcome model.Outcome) error {
	return f(ctx, session, outcome)
}

// StatusFunc receives every status line the watcher produces.
// It is called from the polling goroutine and must not block for long.
type StatusFunc func(model.Status)

// Options tunes the watcher behaviour.
type Options struct {
	// Interval is the polling frequency. Default: 2s.
	Interval time.Duration
	// StableThreshold is the number of equal consecutive node counts that
	// completes a crawl. Default: 3.
	StableThreshold int
	// OnStatus receives status lines. Default: discard.
	OnStatus StatusFunc
	// Logger overrides the default slog logger.
	Logger *slog.Logger
	// Now overrides the clock used for session timestamps.
	Now func() time.Time
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.StableThreshold <= 0 {
		o.StableThreshold = DefaultStableThreshold
	}
	if o.OnStatus == nil {
		o.OnStatus = func(model.Status) {}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Stats are point-in-time counters.
type Stats struct {
	Ticks   int64 `json:"ticks"`
	Skipped int64 `json:"skipped"`
	Fetches int64 `json:"fetches"`
	Errors  int64 `json:"errors"`
}

// Watcher owns at most one active crawl session and its polling loop.
// It is safe for concurrent use.
type Watcher struct {
	svc      Service
	renderer Renderer
	opts     Options

	mu      sync.Mutex
	session *model.Session
	state   model.PollState
	last    model.Outcome
	loopErr error
	cancel  context.CancelFunc
	done    chan struct{}

	ticks   atomic.Int64
	skipped atomic.Int64
	fetches atomic.Int64
	errors  atomic.Int64
}

// New creates a Watcher. A nil renderer discards the final snapshot.
func New(svc Service, renderer Renderer, opts Options) (*Watcher, error) {
	if svc == nil {
		return nil, ErrNilService
	}
	if renderer == nil {
		renderer = RendererFunc(func(context.Context, *model.Session, model.Outcome) error { return nil })
	}
	opts.defaults()
	return &Watcher{svc: svc, renderer: renderer, opts: opts}, nil
}

// Start validates req, submits it to the crawl service and begins polling the
// new session. Any previous polling loop is stopped before the new one starts.
//
// The loop runs until the crawl completes, a fetch fails, Stop is called or ctx
// is cancelled. Use Wait to block until then.
func (w *Watcher) Start(ctx context.Context, req model.CrawlRequest) (*model.Session, error) {
	w.emit(model.Status{Kind: model.StatusLoading, Message: "Starting crawl..."})

	if err := req.Validate(); err != nil {
		w.startFailed(err)
		return nil, err
	}

	id, err := w.svc.StartCrawl(ctx, req)
	if err != nil {
		w.startFailed(err)
		return nil, err
	}

	session := model.NewSession(id, req, w.opts.Now())
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	// The swap happens in one critical section so that concurrent Starts
	// each retire exactly the loop they replaced.
	w.mu.Lock()
	oldCancel, oldDone := w.cancel, w.done
	w.session = session
	w.state = model.NewPollState()
	w.last = model.Pending()
	w.loopErr = nil
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	if oldCancel != nil {
		oldCancel()
		<-oldDone
	}

	w.opts.Logger.Info("crawl started",
		"session", session.ID,
		"url", req.URL,
		"max_pages", req.MaxPages,
		"interval", w.opts.Interval,
	)
	w.emit(model.Pending().Status())

	go w.run(loopCtx, session, done)
	return session, nil
}

// Stop cancels the active polling loop, if any, and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Wait blocks until the current polling loop exits and returns its last
// outcome. The error is nil for a completed crawl, the fetch or render error
// when polling failed, and context.Canceled when the loop was stopped.
func (w *Watcher) Wait(ctx context.Context) (model.Outcome, error) {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()

	if done == nil {
		return model.Outcome{}, ErrNoSession
	}

	select {
	case <-done:
	case <-ctx.Done():
		return model.Outcome{}, ctx.Err()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last, w.loopErr
}

// Session returns the current session, or nil before the first Start.
func (w *Watcher) Session() *model.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

// State returns a copy of the poll state of the current session.
func (w *Watcher) State() model.PollState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	return Stats{
		Ticks:   w.ticks.Load(),
		Skipped: w.skipped.Load(),
		Fetches: w.fetches.Load(),
		Errors:  w.errors.Load(),
	}
}

func (w *Watcher) run(ctx context.Context, session *model.Session, done chan struct{}) {
	defer close(done)
	log := w.opts.Logger.With("session", session.ID)

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(1)

	for {
		select {
		case <-gctx.Done():
			err := g.Wait()
			if errors.Is(err, errStopPolling) {
				err = nil
			} else if err == nil {
				err = ctx.Err()
			}
			w.mu.Lock()
			if w.session == session {
				w.loopErr = err
			}
			w.mu.Unlock()
			log.Debug("polling stopped", "error", err)
			return

		case <-ticker.C:
			w.ticks.Add(1)
			if gctx.Err() != nil {
				continue
			}
			if !g.TryGo(func() error { return w.tick(gctx, session) }) {
				w.skipped.Add(1)
				log.Debug("previous fetch still in flight, skipping tick")
			}
		}
	}
}

// tick performs one poll. A non-nil error ends the loop.
func (w *Watcher) tick(ctx context.Context, session *model.Session) error {
	w.fetches.Add(1)
	raw, err := w.svc.FetchSnapshot(ctx, session.ID)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		w.errors.Add(1)
		outcome := model.Failed(err)
		w.mu.Lock()
		current := w.session == session
		if current {
			w.last = outcome
		}
		w.mu.Unlock()
		if !current {
			return nil
		}
		w.opts.Logger.Error("failed to fetch crawl results", "session", session.ID, "error", err)
		w.emit(outcome.Status())
		return err
	}

	snapshot, synthetic := model.Normalize(raw)
	if synthetic > 0 {
		w.opts.Logger.Warn("assigned placeholder ids to nodes without id",
			"session", session.ID,
			"count", synthetic,
		)
	}

	w.mu.Lock()
	if w.session != session {
		w.mu.Unlock()
		return nil
	}
	outcome, next := Advance(w.state, snapshot, session.MaxPages, w.opts.StableThreshold)
	w.state = next
	w.last = outcome
	w.mu.Unlock()

	w.opts.Logger.Debug("poll",
		"session", session.ID,
		"outcome", outcome.Kind.String(),
		"nodes", outcome.NodeCount,
		"links", outcome.LinkCount,
	)
	w.emit(outcome.Status())

	if !outcome.IsTerminal() {
		return nil
	}

	w.opts.Logger.Info("crawl complete",
		"session", session.ID,
		"reason", string(outcome.Reason),
		"nodes", outcome.NodeCount,
	)
	if outcome.Rendered {
		if err := w.renderer.Render(ctx, session, outcome); err != nil {
			w.errors.Add(1)
			return fmt.Errorf("failed to render crawl %s: %w", session.ID, err)
		}
	}
	return errStopPolling
}

func (w *Watcher) startFailed(err error) {
	w.errors.Add(1)
	w.opts.Logger.Error("failed to start crawl", "error", err)
	w.emit(model.Status{Kind: model.StatusError, Message: "Error: " + err.Error()})
}

func (w *Watcher) emit(status model.Status) {
	w.opts.OnStatus(status)
}
