// Package log provides secure logging for sitegraph, built on top of the
// standard slog package.
//
// The SecureHandler masks sensitive attribute values before they reach the
// underlying handler: HTTP credentials sent to the crawl service
// (Authorization, Cookie, X-Api-Key), secrets detected by key name, and
// values that look like bearer tokens, JWTs or private keys. Crawl session
// ids are opaque public identifiers and are logged as-is.
//
// # Usage
//
//	logger, closer, err := log.New(log.Options{
//	    Writer:  os.Stderr,
//	    Verbose: true,
//	    File:    "/var/log/sitegraph.log", // optional, rotated
//	})
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//	slog.SetDefault(logger)
//
// When a log file is configured, records go to both the writer and a file
// rotated by gopkg.in/natefinch/lumberjack.v2.
package log
