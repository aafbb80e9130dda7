//go:build !windows

package uvloop

import (
	"sync"

	"github.com/go-dnscpp/dnscpp/internal/transport"
	"golang.org/x/sys/unix"
)

// fdWatch is one registered fd interest: a read callback, a write
// callback, or both, plus the cancellation flags that let Cancel
// silence a half without tearing down the other half.
type fdWatch struct {
	fd             uintptr
	onReadable     func()
	onWritable     func()
	readCancelled  bool
	writeCancelled bool
}

func (w *fdWatch) events() int16 {
	var ev int16
	if w.onReadable != nil && !w.readCancelled {
		ev |= unix.POLLIN
	}
	if w.onWritable != nil && !w.writeCancelled {
		ev |= unix.POLLOUT
	}
	return ev
}

func (w *fdWatch) idle() bool {
	return (w.onReadable == nil || w.readCancelled) && (w.onWritable == nil || w.writeCancelled)
}

// Loop is a transport.Loop backed by unix.Poll. It is single
// threaded: Run must be called from one goroutine, and every watch
// registered through it is expected to be manipulated from that same
// goroutine, matching the cooperative no-locks scheduling the rest of
// this module assumes.
type Loop struct {
	mu      sync.Mutex // guards watches only, so AddReader/AddWriter/RemoveFd stay safe if called from a signal handler or another goroutine during shutdown
	watches map[uintptr]*fdWatch

	timers  timerHeap
	idle    []func()
	stopped bool
}

// New returns a ready-to-run Loop.
func New() *Loop {
	return &Loop{watches: make(map[uintptr]*fdWatch)}
}

func (l *Loop) watchFor(fd uintptr) *fdWatch {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.watches[fd]
	if !ok {
		w = &fdWatch{fd: fd}
		l.watches[fd] = w
	}
	return w
}

// AddReader registers cb to run whenever fd becomes readable.
func (l *Loop) AddReader(fd uintptr, cb func()) transport.Watcher {
	w := l.watchFor(fd)
	w.onReadable = cb
	w.readCancelled = false
	return newWatcher(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		w.readCancelled = true
	})
}

// AddWriter registers cb to run whenever fd becomes writable.
func (l *Loop) AddWriter(fd uintptr, cb func()) transport.Watcher {
	w := l.watchFor(fd)
	w.onWritable = cb
	w.writeCancelled = false
	return newWatcher(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		w.writeCancelled = true
	})
}

// RemoveFd drops every registration held against fd.
func (l *Loop) RemoveFd(fd uintptr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.watches, fd)
}

// pollFds builds the unix.PollFd slice for the current watch set,
// alongside a parallel slice of the watches it came from so results
// can be matched back up after Poll returns.
func (l *Loop) pollFds() ([]unix.PollFd, []*fdWatch) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fds := make([]unix.PollFd, 0, len(l.watches))
	owners := make([]*fdWatch, 0, len(l.watches))
	for _, w := range l.watches {
		if w.idle() {
			continue
		}
		fds = append(fds, unix.PollFd{Fd: int32(w.fd), Events: w.events()})
		owners = append(owners, w)
	}
	return fds, owners
}

// Run drives the loop until Stop is called or there is nothing left
// to wait on (no live fd watches, timers, or idle callbacks).
func (l *Loop) Run() error {
	l.stopped = false
	for !l.stopped {
		fds, owners := l.pollFds()
		timeout := l.nextTimeout()

		if len(fds) == 0 && timeout < 0 {
			break
		}

		ms := -1
		if timeout >= 0 {
			ms = int(timeout.Milliseconds())
		}

		n, err := unix.Poll(fds, ms)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}

		if n > 0 {
			l.dispatch(fds, owners)
		}
		l.runTimersAndIdle()
	}
	return nil
}

func (l *Loop) dispatch(fds []unix.PollFd, owners []*fdWatch) {
	for i, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		w := owners[i]
		if pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 && w.onReadable != nil && !w.readCancelled {
			w.onReadable()
		}
		if pfd.Revents&unix.POLLOUT != 0 && w.onWritable != nil && !w.writeCancelled {
			w.onWritable()
		}
	}
}
