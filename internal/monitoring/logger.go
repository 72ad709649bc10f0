// Package monitoring holds the process-wide diagnostic logger.
//
// The volume writers and the CLI emit informational lines ("Volume size is
// [...]", "Volume for time ... written") through Logf rather than a fixed
// output stream, so tests can capture or mute them.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf and
// may be swapped with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. A nil argument installs a no-op
// logger, silencing all diagnostics.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
