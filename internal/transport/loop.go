// Package transport owns every byte that crosses a socket: the
// event-loop interface the resolver is driven by, the UDP socket pool
// queries go out on, and the TCP connection pool truncated answers
// fall back to.
//
// Nothing in this package spawns a goroutine or takes a lock. Every
// socket is opened non-blocking and handed to the caller's Loop for
// readiness notification; the resolver only ever does work inside a
// callback the Loop invokes.
package transport

import "time"

// Watcher is a handle to a registration made against a Loop: an fd
// watch, a timer, or an idle callback. Cancel is idempotent.
type Watcher interface {
	Cancel()
}

// Loop is the event-loop abstraction this package and
// internal/scheduler are driven by. A caller embedding this resolver
// in an existing event loop (libuv, a custom epoll reactor, a GUI
// toolkit's run loop) implements Loop once; internal/uvloop supplies
// a ready-to-use standalone implementation for callers with no loop
// of their own.
//
// Every method must be safe to call from within a callback Loop
// itself is in the middle of invoking (re-entrant add/remove), since
// the resolver routinely installs a new timer or cancels a watch as
// the direct result of handling readiness.
type Loop interface {
	// AddReader arranges for cb to be invoked whenever fd is ready to
	// read, until the returned Watcher is cancelled.
	AddReader(fd uintptr, cb func()) Watcher

	// AddWriter arranges for cb to be invoked whenever fd is ready to
	// write, until the returned Watcher is cancelled. Used only by TCP
	// connections: while connecting, and to finish a short write.
	AddWriter(fd uintptr, cb func()) Watcher

	// RemoveFd cancels every watch (reader and writer) registered
	// against fd. Called once, right before the fd is closed.
	RemoveFd(fd uintptr)

	// SetTimer arranges for cb to be invoked once after d elapses.
	// Recurring timeouts (e.g. a lookup's retry schedule) re-arm by
	// calling SetTimer again from inside cb.
	SetTimer(d time.Duration, cb func()) Watcher

	// Idle arranges for cb to be invoked on the next pass through the
	// loop, after all pending I/O callbacks for the current tick have
	// run. The resolver uses this to prune drained TCP connections
	// from its pool once the loop's current pass is done.
	Idle(cb func()) Watcher
}
