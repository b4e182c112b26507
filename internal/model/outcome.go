package model

import "fmt"

// OutcomeKind classifies the result of a single poll.
type OutcomeKind int

const (
	// OutcomePending means the service has not produced any node yet.
	OutcomePending OutcomeKind = iota

	// OutcomeProgress means the crawl is still growing or not yet stable.
	OutcomeProgress

	// OutcomeComplete means the crawl is considered finished.
	OutcomeComplete

	// OutcomeError means the snapshot could not be fetched.
	OutcomeError
)

// String returns the name of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomePending:
		return "pending"
	case OutcomeProgress:
		return "progress"
	case OutcomeComplete:
		return "complete"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// CompletionReason explains why a crawl was considered finished.
type CompletionReason string

const (
	// ReasonLimitReached means the node count reached the page limit.
	ReasonLimitReached CompletionReason = "limit reached"

	// ReasonStabilized means the node count stopped changing.
	ReasonStabilized CompletionReason = "stabilized"
)

// Outcome is the result of one poll of the results endpoint.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`

	// NodeCount and LinkCount describe the normalized snapshot.
	// LinkCount only counts links whose endpoints both exist.
	NodeCount int `json:"nodeCount"`
	LinkCount int `json:"linkCount"`

	// Reason is set when Kind is OutcomeComplete.
	Reason CompletionReason `json:"reason,omitempty"`

	// Snapshot is the normalized snapshot when Kind is OutcomeProgress or
	// OutcomeComplete.
	Snapshot *Snapshot `json:"-"`

	// Rendered is true on the single completion that handed the snapshot
	// to the renderer.
	Rendered bool `json:"rendered"`

	// Err is the fetch error when Kind is OutcomeError.
	Err error `json:"-"`
}

// Pending returns an OutcomePending.
func Pending() Outcome {
	return Outcome{Kind: OutcomePending}
}

// Progress returns an OutcomeProgress for the given snapshot counts.
func Progress(nodes, links int, snapshot *Snapshot) Outcome {
	return Outcome{Kind: OutcomeProgress, NodeCount: nodes, LinkCount: links, Snapshot: snapshot}
}

// Complete returns an OutcomeComplete.
func Complete(nodes, links int, reason CompletionReason, snapshot *Snapshot) Outcome {
	return Outcome{Kind: OutcomeComplete, NodeCount: nodes, LinkCount: links, Reason: reason, Snapshot: snapshot}
}

// Failed returns an OutcomeError wrapping err.
func Failed(err error) Outcome {
	return Outcome{Kind: OutcomeError, Err: err}
}

// IsTerminal reports whether polling must stop after this outcome.
func (o Outcome) IsTerminal() bool {
	return o.Kind == OutcomeComplete || o.Kind == OutcomeError
}

// Status converts the outcome into the user-visible status line.
func (o Outcome) Status() Status {
	switch o.Kind {
	case OutcomePending:
		return Status{Kind: StatusLoading, Message: "Crawling in progress..."}
	case OutcomeProgress:
		return Status{
			Kind:    StatusLoading,
			Message: fmt.Sprintf("Crawling: found %d nodes and %d links...", o.NodeCount, o.LinkCount),
		}
	case OutcomeComplete:
		if o.Reason == ReasonStabilized {
			return Status{Kind: StatusSuccess, Message: fmt.Sprintf("Crawl stabilized: %d pages found", o.NodeCount)}
		}
		return Status{Kind: StatusSuccess, Message: fmt.Sprintf("Crawl complete: %d pages found", o.NodeCount)}
	case OutcomeError:
		msg := "unknown error"
		if o.Err != nil {
			msg = o.Err.Error()
		}
		return Status{Kind: StatusError, Message: "Error checking status: " + msg}
	default:
		return Status{Kind: StatusError, Message: "unknown poll outcome"}
	}
}

// StatusKind is the severity of a status line.
type StatusKind string

const (
	// StatusLoading is shown while work is in progress.
	StatusLoading StatusKind = "loading"
	// StatusSuccess is shown when the crawl completed.
	StatusSuccess StatusKind = "success"
	// StatusError is shown on any failure.
	StatusError StatusKind = "error"
)

// Status is a user-visible status line.
type Status struct {
	Kind    StatusKind `json:"kind"`
	Message string     `json:"message"`
}

// String returns the status message.
func (s Status) String() string {
	return s.Message
}
