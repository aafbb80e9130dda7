//go:build windows

package uvloop

import (
	"time"

	"github.com/go-dnscpp/dnscpp/internal/transport"
)

// Loop is a reduced transport.Loop for Windows. AddReader/AddWriter
// are accepted but never fire: internal/transport has no raw-fd
// socket pools on this platform (see transport.errWindowsUnsupported),
// so nothing ever registers a real fd here. Timers and idle callbacks
// still work, since resolver-side scheduling doesn't depend on fds.
type Loop struct {
	timers  timerHeap
	idle    []func()
	stopped bool
}

// New returns a ready-to-run Loop.
func New() *Loop { return &Loop{} }

func (l *Loop) AddReader(fd uintptr, cb func()) transport.Watcher { return newWatcher(func() {}) }
func (l *Loop) AddWriter(fd uintptr, cb func()) transport.Watcher { return newWatcher(func() {}) }
func (l *Loop) RemoveFd(fd uintptr)                               {}

// Run drives timers and idle callbacks until Stop is called or
// nothing remains scheduled.
func (l *Loop) Run() error {
	l.stopped = false
	for !l.stopped {
		timeout := l.nextTimeout()
		if timeout < 0 {
			break
		}
		if timeout > 0 {
			time.Sleep(timeout)
		}
		l.runTimersAndIdle()
	}
	return nil
}
