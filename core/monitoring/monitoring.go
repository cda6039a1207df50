// Package monitoring holds the process wide error reporter. Core packages call
// the package functions; main installs the concrete backend with Init.
package monitoring

import (
	"sync/atomic"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

// NopMonitor discards everything.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

type holder struct{ m Monitor }

var current atomic.Pointer[holder]

func init() { current.Store(&holder{m: NopMonitor{}}) }

// Init installs m as the global monitor. A nil m is ignored.
func Init(m Monitor) {
	if m != nil {
		current.Store(&holder{m: m})
	}
}

// Current returns the installed monitor.
func Current() Monitor { return current.Load().m }

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	current.Load().m.CaptureException(err, tags)
}

// Recover must be deferred; it reports a panic and re-raises it.
func Recover() {
	current.Load().m.Recover()
}

// Flush waits up to d for buffered events to be sent.
func Flush(d time.Duration) {
	current.Load().m.Flush(d)
}
