package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitegraph/internal/config"
	"github.com/nao1215/sitegraph/internal/model"
)

func TestRunShow(t *testing.T) {
	t.Parallel()

	fake := &fakeService{
		sessions: map[string]model.Snapshot{
			"first":  siteSnapshot(2),
			"second": siteSnapshot(5),
		},
	}
	srv := startFakeService(t, fake)

	newConfig := func(targets ...string) *config.Config {
		cfg := config.NewConfig()
		cfg.ServiceURL = srv.URL
		cfg.Timeout = 5 * time.Second
		cfg.Targets = targets
		return cfg
	}

	t.Run("reports are written in argument order", func(t *testing.T) {
		t.Parallel()

		var stdout bytes.Buffer
		if err := runShow(testContext(t), newConfig("second", "first"), discardLogger(), &stdout); err != nil {
			t.Fatalf("runShow() error = %v", err)
		}

		output := stdout.String()
		second := strings.Index(output, "second")
		first := strings.Index(output, "first")
		if second < 0 || first < 0 {
			t.Fatalf("missing sessions in output:\n%s", output)
		}
		if second > first {
			t.Error("reports are not in argument order")
		}
	})

	t.Run("failed sessions are reported", func(t *testing.T) {
		t.Parallel()

		var stdout bytes.Buffer
		err := runShow(testContext(t), newConfig("first", "missing"), discardLogger(), &stdout)
		if err == nil || !strings.Contains(err.Error(), "1 of 2 sessions") {
			t.Errorf("expected partial failure error, got %v", err)
		}
		if !strings.Contains(stdout.String(), "first") {
			t.Errorf("successful session should still be written:\n%s", stdout.String())
		}
	})

	t.Run("dot output", func(t *testing.T) {
		t.Parallel()

		cfg := newConfig("first")
		cfg.DOTReport = true

		var stdout bytes.Buffer
		if err := runShow(testContext(t), cfg, discardLogger(), &stdout); err != nil {
			t.Fatalf("runShow() error = %v", err)
		}
		if !strings.HasPrefix(stdout.String(), "digraph") {
			t.Errorf("expected DOT output, got:\n%s", stdout.String())
		}
	})
}
