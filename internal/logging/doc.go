// Package logging provides structured logging for yeesearch.
//
// This package wraps a package-level zap logger with convenience functions,
// plus a few domain helpers for discovery records and light status changes.
//
// # Configuration
//
// Initialize logging once at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// An empty level falls back to the YEESEARCH_LOG_LEVEL environment variable;
// if that is also empty the logger is a no-op, so library users see nothing
// unless they opt in.
//
// Logs go to stderr in console format so they never mix with command output
// written to stdout.
package logging
