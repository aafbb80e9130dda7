// Package uvloop provides a ready-to-use transport.Loop so this
// module is runnable standalone (see cmd/dnscpp-dig) without forcing
// every caller to bring their own libuv/epoll bindings. It is built on
// golang.org/x/sys/unix's portable poll(2) wrapper, which is available
// identically on Linux and Darwin — a single implementation in place
// of separate epoll and kqueue backends, since poll() already gives
// this loop everything it needs (level-triggered readiness on a
// handful of fds) without the bookkeeping either native API requires
// for edge-triggering or kqueue's changelist protocol. Windows gets a
// reduced fallback (see loop_windows.go) since the transport layer
// itself has no raw-fd story there.
package uvloop

import (
	"container/heap"
	"time"

	"github.com/go-dnscpp/dnscpp/internal/transport"
)

// watcher is the transport.Watcher returned by every registration
// method; Cancel flips a flag the owning Loop checks before acting on
// the registration again.
type watcher struct {
	cancel func()
}

func (w *watcher) Cancel() {
	if w.cancel != nil {
		w.cancel()
	}
}

func newWatcher(cancel func()) transport.Watcher { return &watcher{cancel: cancel} }

// SetTimer arranges for cb to run once after d elapses.
func (l *Loop) SetTimer(d time.Duration, cb func()) transport.Watcher {
	entry := &timerEntry{at: time.Now().Add(d), cb: cb}
	heap.Push(&l.timers, entry)
	return newWatcher(func() { entry.cancelled = true })
}

// Idle arranges for cb to run once, after the current tick's I/O and
// timer callbacks have all completed.
func (l *Loop) Idle(cb func()) transport.Watcher {
	cancelled := false
	l.idle = append(l.idle, func() {
		if !cancelled {
			cb()
		}
	})
	return newWatcher(func() { cancelled = true })
}

// Stop arranges for Run to return once the current iteration
// finishes.
func (l *Loop) Stop() { l.stopped = true }

// nextTimeout reports how long Run's poll should block: 0 if idle
// work is pending, the time until the earliest live timer, or -1
// (block indefinitely) if nothing is scheduled at all.
func (l *Loop) nextTimeout() time.Duration {
	if len(l.idle) > 0 {
		return 0
	}
	for l.timers.Len() > 0 && l.timers[0].cancelled {
		heap.Pop(&l.timers)
	}
	if l.timers.Len() == 0 {
		return -1
	}
	if d := time.Until(l.timers[0].at); d > 0 {
		return d
	}
	return 0
}

// runTimersAndIdle fires every timer whose deadline has passed and
// every pending idle callback, draining both queues for this tick.
func (l *Loop) runTimersAndIdle() {
	now := time.Now()
	for l.timers.Len() > 0 && !l.timers[0].at.After(now) {
		entry := heap.Pop(&l.timers).(*timerEntry)
		if !entry.cancelled {
			entry.cb()
		}
	}

	pending := l.idle
	l.idle = nil
	for _, cb := range pending {
		cb()
	}
}
