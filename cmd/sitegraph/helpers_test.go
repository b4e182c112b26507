package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/sitegraph/internal/database"
	"github.com/nao1215/sitegraph/internal/model"
)

// fakeService is an in-process crawl service. Each results request for a
// known session returns the next snapshot of its sequence; the last one is
// repeated.
type fakeService struct {
	sessionID string
	snapshots []model.Snapshot
	sessions  map[string]model.Snapshot
	polls     atomic.Int32
	started   atomic.Int32
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/crawl":
		f.started.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": f.sessionID})
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/results/"):
		id := strings.TrimPrefix(r.URL.Path, "/results/")
		snapshot, ok := f.lookup(id)
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snapshot)
	case r.URL.Path == "/":
		w.WriteHeader(http.StatusOK)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeService) lookup(id string) (model.Snapshot, bool) {
	if s, ok := f.sessions[id]; ok {
		return s, true
	}
	if id != f.sessionID || len(f.snapshots) == 0 {
		return model.Snapshot{}, false
	}
	n := int(f.polls.Add(1)) - 1
	if n >= len(f.snapshots) {
		n = len(f.snapshots) - 1
	}
	return f.snapshots[n], true
}

func startFakeService(t *testing.T, f *fakeService) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return srv
}

// siteSnapshot returns a graph of example.com with n pages linked from the
// home page.
func siteSnapshot(n int) model.Snapshot {
	s := model.Snapshot{Nodes: []model.Node{}, Links: []model.Link{}}
	for i := range n {
		path := "/"
		if i > 0 {
			path = "/page" + string(rune('a'+i-1))
		}
		url := "https://example.com" + path
		s.Nodes = append(s.Nodes, model.Node{ID: url, Label: path, URL: url, ContentType: "text/html"})
		if i > 0 {
			s.Links = append(s.Links, model.Link{Source: "https://example.com/", Target: url})
		}
	}
	return s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedArchive stores one crawl per snapshot for example.com, oldest first,
// and returns their ids.
func seedArchive(t *testing.T, dir string, snapshots ...model.Snapshot) []int64 {
	t.Helper()

	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ids := make([]int64, 0, len(snapshots))
	for i, s := range snapshots {
		req := model.CrawlRequest{URL: "https://example.com/", MaxDepth: 3, MaxPages: 100, SameHostOnly: true}
		completed := base.Add(time.Duration(i) * time.Hour)
		session := model.NewSession("session-"+string(rune('a'+i)), req, completed.Add(-time.Minute))
		report := model.NewCrawlReport(session, &s, model.ReasonStabilized, completed)
		id, err := db.SaveCrawl(context.Background(), report)
		if err != nil {
			t.Fatalf("failed to save crawl: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}
