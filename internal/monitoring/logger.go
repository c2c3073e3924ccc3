// Package monitoring holds the shared diagnostic logger indirection.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf;
// export warnings (missing images, skipped copies) go through it so tests
// can capture or mute them.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
