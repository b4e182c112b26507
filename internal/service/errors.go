package service

import "errors"

// Client configuration and reachability errors.
var (
	// ErrInvalidServiceURL is returned when the service base URL is not an
	// absolute http or https URL.
	ErrInvalidServiceURL = errors.New("invalid service URL: expected http:// or https:// with a host")

	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrEmptySessionID is returned when a results fetch is attempted
	// without a session id.
	ErrEmptySessionID = errors.New("session id is empty")

	// ErrServiceCannotConnect is returned when no TCP connection to the
	// service could be established.
	ErrServiceCannotConnect = errors.New("cannot connect to crawl service")

	// ErrServiceTimeout is returned when the service did not answer in time.
	ErrServiceTimeout = errors.New("timeout connecting to crawl service")

	// ErrServiceUnexpectedResponse is returned when the service answered
	// with a server error.
	ErrServiceUnexpectedResponse = errors.New("crawl service returned an unexpected response")
)

// Status represents the result of checking the crawl service.
type Status int

const (
	// StatusOK indicates the service answered.
	StatusOK Status = iota

	// StatusUnexpectedResponse indicates the service answered with a 5xx.
	StatusUnexpectedResponse

	// StatusCannotConnect indicates the connection failed.
	StatusCannotConnect

	// StatusTimeout indicates the check timed out.
	StatusTimeout
)

// String returns a human-readable description of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusUnexpectedResponse:
		return "unexpected response"
	case StatusCannotConnect:
		return "cannot connect"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error returns the error for this status, or nil if OK.
func (s Status) Error() error {
	switch s {
	case StatusOK:
		return nil
	case StatusUnexpectedResponse:
		return ErrServiceUnexpectedResponse
	case StatusCannotConnect:
		return ErrServiceCannotConnect
	case StatusTimeout:
		return ErrServiceTimeout
	default:
		return errors.New("unknown service status")
	}
}
