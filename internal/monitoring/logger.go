// Package monitoring holds the diagnostic logger shared by the generator,
// the event loop and the storage layer.
package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// verbosity gates Verbosef output. 0 prints nothing extra. Workers change and
// read it concurrently.
var verbosity atomic.Int32

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetVerbosity sets the level Verbosef compares against.
func SetVerbosity(level int) {
	verbosity.Store(int32(level))
}

// Verbosity returns the current verbosity level.
func Verbosity() int {
	return int(verbosity.Load())
}

// Verbosef logs through Logf only when the verbosity is at least level.
func Verbosef(level int, format string, v ...interface{}) {
	if Verbosity() < level {
		return
	}
	Logf(format, v...)
}
