package poller

import "errors"

var (
	// ErrNoSession is returned when no crawl has been started yet.
	ErrNoSession = errors.New("no crawl session has been started")

	// ErrNilService is returned when a Watcher is created without a crawl service.
	ErrNilService = errors.New("crawl service must not be nil")

	// errStopPolling ends the polling loop after a completed crawl.
	errStopPolling = errors.New("polling finished")
)
