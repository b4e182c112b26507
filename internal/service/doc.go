// Package service provides the HTTP client for the crawl service.
//
// The crawl service exposes two endpoints:
//
//	POST /crawl          -> {"id": "..."}
//	GET  /results/{id}   -> {"nodes": [...], "links": [...]}
//
// Every results call returns the full accumulated graph of the session;
// there is no pagination and no explicit "done" signal.
//
// The Client can route requests through a SOCKS5 proxy and inject static
// headers (for example an Authorization header) into every request. It is
// safe for concurrent use.
package service
