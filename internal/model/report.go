package model

import (
	"time"
)

// CrawlReport is the final result of one crawl session.
// It is filled by the finalisation pipeline and consumed by the report
// writers and the archive.
type CrawlReport struct {
	// === Identity ===

	// ID is the archive row id. Zero until the report is saved.
	ID int64 `json:"id,omitempty"`

	// SessionID is the crawl service session id.
	SessionID string `json:"sessionId"`

	// SeedURL is the URL the crawl started from.
	SeedURL string `json:"seedUrl"`

	// Host is the lowercased seed host. Archived crawls are grouped by it.
	Host string `json:"host"`

	// Request is the crawl request that started the session.
	Request CrawlRequest `json:"request"`

	// === Completion ===

	// Reason explains why the crawl was considered finished.
	// Empty for reports built from a one-off fetch.
	Reason CompletionReason `json:"reason,omitempty"`

	// StartedAt is when the crawl was accepted by the service.
	StartedAt time.Time `json:"startedAt"`

	// CompletedAt is when completion was detected.
	CompletedAt time.Time `json:"completedAt"`

	// === Graph ===

	// Snapshot is the final graph, after filtering.
	Snapshot *Snapshot `json:"graph"`

	// Filter is the filter applied to Snapshot.
	Filter Filter `json:"filter"`

	// TotalNodes is the node count before filtering.
	TotalNodes int `json:"totalNodes"`

	// Stats is filled by the analyze step.
	Stats *GraphStats `json:"stats,omitempty"`

	// Fingerprint identifies the graph structure of the unfiltered crawl.
	Fingerprint string `json:"fingerprint,omitempty"`

	// === Execution ===

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performedSteps,omitempty"`

	// FailedSteps lists the pipeline steps that returned an error.
	FailedSteps []string `json:"failedSteps,omitempty"`

	// StepDurations holds the wall time of each step that ran, by step name.
	StepDurations map[string]time.Duration `json:"stepDurations,omitempty"`

	// Cancelled is true if the pipeline was interrupted.
	Cancelled bool `json:"cancelled"`

	// Error is the last step error. Not serialized.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error.
	ErrorMessage string `json:"error,omitempty"`
}

// NewCrawlReport builds the report for a completed session.
func NewCrawlReport(session *Session, snapshot *Snapshot, reason CompletionReason, completedAt time.Time) *CrawlReport {
	r := &CrawlReport{
		Reason:      reason,
		CompletedAt: completedAt,
		Snapshot:    snapshot,
		TotalNodes:  snapshot.NodeCount(),
	}
	if session != nil {
		r.SessionID = session.ID
		r.SeedURL = session.Request.URL
		r.Host = session.Request.Host()
		r.Request = session.Request
		r.StartedAt = session.CreatedAt
	}
	if r.Snapshot == nil {
		r.Snapshot = &Snapshot{Nodes: []Node{}, Links: []Link{}}
	}
	return r
}

// Duration is the time between session start and completion.
func (r *CrawlReport) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// IsFiltered reports whether the snapshot was narrowed by a filter.
func (r *CrawlReport) IsFiltered() bool {
	return !r.Filter.IsZero()
}

// Status returns the status line describing the report.
func (r *CrawlReport) Status() string {
	switch {
	case r.ErrorMessage != "":
		return "Error - " + r.ErrorMessage
	case r.Cancelled:
		return "Cancelled (partial results)"
	case r.Reason == ReasonStabilized:
		return "Stabilized"
	case r.Reason == ReasonLimitReached:
		return "Page limit reached"
	default:
		return "Snapshot"
	}
}
