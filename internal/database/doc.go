// Package database provides the SQLite archive of completed crawls.
//
// Every crawl that reaches completion can be stored with its final graph,
// statistics and structural fingerprint, grouped by the host of its seed URL.
// The archive backs the history and compare commands. In-flight poll state is
// never stored here; it lives only in memory while a crawl is being watched.
//
// The database is a single file opened through modernc.org/sqlite, a CGO-free
// driver, with WAL mode enabled by default.
package database
