package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nao1215/sitegraph/internal/model"
	"github.com/nao1215/sitegraph/internal/poller"
)

var _ poller.Renderer = (*Renderer)(nil)

func TestRenderer(t *testing.T) {
	t.Parallel()

	t.Run("builds report and runs pipeline", func(t *testing.T) {
		t.Parallel()

		completed := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
		writer := &fakeWriter{}
		r := NewRenderer(func() *Pipeline {
			return DefaultPipeline(nil, WithPipelineWriter(writer))
		}, WithRendererClock(func() time.Time { return completed }))

		req := model.CrawlRequest{URL: "https://example.com/", MaxDepth: 1, MaxPages: 4}
		session := model.NewSession("abc", req, completed.Add(-time.Minute))
		outcome := model.Complete(4, 3, model.ReasonLimitReached, testSnapshot())

		if err := r.Render(context.Background(), session, outcome); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		report := r.Report()
		if report == nil {
			t.Fatal("expected a report")
		}
		if report.SessionID != "abc" || report.Host != "example.com" {
			t.Errorf("unexpected identity %q %q", report.SessionID, report.Host)
		}
		if report.Reason != model.ReasonLimitReached {
			t.Errorf("unexpected reason %q", report.Reason)
		}
		if report.Duration() != time.Minute {
			t.Errorf("expected 1m duration, got %s", report.Duration())
		}
		if writer.buf.String() != "abc 4\n" {
			t.Errorf("unexpected output %q", writer.buf.String())
		}
	})

	t.Run("missing snapshot", func(t *testing.T) {
		t.Parallel()

		r := NewRenderer(func() *Pipeline { return New() })
		err := r.Render(context.Background(), nil, model.Complete(0, 0, model.ReasonStabilized, nil))
		if !errors.Is(err, ErrNoSnapshot) {
			t.Errorf("expected ErrNoSnapshot, got %v", err)
		}
		if r.Report() != nil {
			t.Error("expected no report")
		}
	})
}
