// Package obslog is dimcalc's structured logging wrapper around
// go-kit/log. The VM and core packages never log directly
// (single-threaded, the host supplies the print sink, per spec.md §5);
// only cmd/dimcalc uses this.
package obslog

import (
	"os"

	kitlog "github.com/go-kit/log"
)

// Config names the running program for every log line it emits.
type Config struct {
	Service string
	Version string
}

// New returns a logfmt logger with a timestamp, caller, and
// service/version prefix attached to every line.
func New(config Config) kitlog.Logger {
	logger := kitlog.NewLogfmtLogger(os.Stderr)
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
	logger = kitlog.With(logger, "caller", kitlog.DefaultCaller)
	logger = kitlog.With(logger, "service", config.Service, "version", config.Version)
	return logger
}

// PrintSink adapts a logger into the func(string) print sink
// internal/ffi's "print" procedure and the VM's PrintString (which emits
// "type" renderings) call into, logging each emitted line at "msg"
// instead of writing straight to stdout.
func PrintSink(logger kitlog.Logger) func(string) {
	return func(s string) {
		logger.Log("msg", s)
	}
}
