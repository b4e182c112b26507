package poller

import (
	"time"

	"github.com/nao1215/sitegraph/internal/model"
)

const (
	// DefaultInterval is the time between two polls of the results endpoint.
	DefaultInterval = 2000 * time.Millisecond

	// DefaultStableThreshold is the number of consecutive polls that must
	// report the same non-zero node count before the crawl is considered
	// stabilized. The service has no explicit "done" signal, so this is a
	// heuristic and can be tuned per crawl.
	DefaultStableThreshold = 3
)

// Advance applies one normalized snapshot to the poll state of a session and
// returns the outcome together with the next state. It is a pure function:
// the input state is never modified.
//
// An empty snapshot yields a pending outcome and leaves the state untouched.
// A completed outcome has Rendered set only while the initial render is still
// pending; the returned state then has InitialPending cleared.
func Advance(state model.PollState, snapshot *model.Snapshot, maxPages, threshold int) (model.Outcome, model.PollState) {
	nodes := snapshot.NodeCount()
	if nodes == 0 {
		return model.Pending(), state
	}
	if threshold <= 0 {
		threshold = DefaultStableThreshold
	}
	links := model.ValidLinkCount(snapshot)

	var reason model.CompletionReason
	switch {
	case nodes >= maxPages:
		reason = model.ReasonLimitReached
	case nodes == state.LastCount:
		state.StableCount++
		// The poll that first saw this count is part of the streak.
		if state.StableCount+1 >= threshold {
			reason = model.ReasonStabilized
		}
	default:
		state.LastCount = nodes
		state.StableCount = 0
	}

	if reason == "" {
		return model.Progress(nodes, links, snapshot), state
	}

	outcome := model.Complete(nodes, links, reason, snapshot)
	outcome.Rendered = state.InitialPending
	state.InitialPending = false
	return outcome, state
}
