package model

import "time"

// Session is one crawl run known to the crawl service.
type Session struct {
	// ID is the opaque identifier returned by POST /crawl.
	ID string `json:"id"`

	// MaxPages is the page limit the completion detector compares against.
	MaxPages int `json:"maxPages"`

	// CreatedAt is when the crawl was accepted.
	CreatedAt time.Time `json:"createdAt"`

	// Request is the request that created the session.
	Request CrawlRequest `json:"request"`
}

// NewSession creates a session for an accepted crawl request.
func NewSession(id string, req CrawlRequest, createdAt time.Time) *Session {
	return &Session{
		ID:        id,
		MaxPages:  req.MaxPages,
		CreatedAt: createdAt,
		Request:   req,
	}
}

// PollState is the completion detector state of one session.
// It lives only in memory and is reset whenever a new crawl starts.
type PollState struct {
	// LastCount is the node count of the last snapshot that changed it.
	LastCount int `json:"lastCount"`

	// StableCount is the number of consecutive polls that repeated LastCount.
	StableCount int `json:"stableCount"`

	// InitialPending is true until the final snapshot has been rendered.
	InitialPending bool `json:"initialPending"`
}

// NewPollState returns the state of a freshly started session.
func NewPollState() PollState {
	return PollState{LastCount: 0, StableCount: 0, InitialPending: true}
}
