package model

import (
	"fmt"
	"net/http"
)

// ValidationError reports a crawl request that was rejected before any
// network call was made.
type ValidationError struct {
	// Field is the request field that failed validation (e.g. "url").
	Field string

	// Value is the offending input.
	Value string

	// Reason describes what is wrong with Value.
	Reason string
}

// Error implements error.
func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// CrawlStartError reports a failed POST /crawl: a non-2xx status, a
// transport failure or a response without a session id.
type CrawlStartError struct {
	// StatusCode is the HTTP status returned by the service, or 0 when the
	// request never completed.
	StatusCode int

	// Message describes the failure.
	Message string

	// Err is the underlying transport or decoding error, if any.
	Err error
}

// Error implements error.
func (e *CrawlStartError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("server returned error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

// Unwrap returns the underlying error.
func (e *CrawlStartError) Unwrap() error {
	return e.Err
}

// PollError reports a failed GET /results/{id}. It is fatal to the
// polling loop of the session.
type PollError struct {
	// SessionID is the session whose snapshot could not be fetched.
	SessionID string

	// StatusCode is the HTTP status returned by the service, or 0 when the
	// request never completed.
	StatusCode int

	// Message describes the failure.
	Message string

	// Err is the underlying transport or decoding error, if any.
	Err error
}

// Error implements error.
func (e *PollError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "failed to get results"
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *PollError) Unwrap() error {
	return e.Err
}
