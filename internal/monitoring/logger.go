package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf and
// may be swapped with SetLogger so noisy subsystems can be muted in tests.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Debugf logs only when verbose diagnostics are enabled.
var verbose bool

// SetVerbose toggles Debugf output.
func SetVerbose(enabled bool) {
	verbose = enabled
}

// Debugf writes through Logf when verbose mode is on.
func Debugf(format string, v ...interface{}) {
	if verbose {
		Logf(format, v...)
	}
}
