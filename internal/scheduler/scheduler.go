// Package scheduler runs the queue of in-progress lookups against a
// configurable concurrency cap, driven entirely by a single timer
// registered with a transport.Loop. Nothing in this package blocks or
// spawns a goroutine: every state transition happens inside a Loop
// callback, so a caller's event loop stays in full control of when
// this library gets to run.
package scheduler

import (
	"time"

	"github.com/go-dnscpp/dnscpp/internal/idgen"
	"github.com/go-dnscpp/dnscpp/internal/transport"
)

// Lookup is one in-progress operation the Scheduler drives to
// completion. Implementations are internal/lookup's RemoteLookup,
// LocalLookup, and SearchLookup.
type Lookup interface {
	// Delay reports how long to wait, from now, before the next call
	// to Execute is useful. A zero or negative duration means "run
	// immediately".
	Delay(now time.Time) time.Duration

	// Execute performs the next step (send a datagram, check a
	// timeout, deliver a result) and reports whether it resulted in a
	// terminal callback to user space — once true, the Scheduler
	// forgets this Lookup entirely.
	Execute(now time.Time) bool

	// Exhausted reports whether no more network activity will ever be
	// initiated by this Lookup (it is just waiting to report in, or
	// waiting for already-sent datagrams to come back).
	Exhausted() bool

	// Finished reports whether the Lookup has already reported to its
	// handler, e.g. because the caller cancelled it out of band.
	Finished() bool
}

// MaxCapacity bounds the concurrency cap at the birthday-paradox
// comfort zone for 16-bit transaction IDs (see internal/idgen).
const MaxCapacity = idgen.Capacity

// defaultMaxCalls bounds how many buffered datagrams/frames a single
// tick drains across every registered Backlog, so one socket with a
// deep backlog can't starve the active/ready queues from ever running
// on the same tick.
const defaultMaxCalls = 64

// Backlog is a transport-layer source of inbound data buffered outside
// of any user callback (internal/transport's UDPPool and TCPPool both
// implement it). DrainBacklog delivers up to budget buffered
// datagrams/frames — each delivery may invoke a user callback — and
// reports how many it actually delivered.
type Backlog interface {
	DrainBacklog(budget int) int
}

// Scheduler runs three queues, mirroring the upstream Core:
//   - scheduled: waiting for room under the capacity cap
//   - active:    already executing, waiting for a retry or a timeout
//   - ready:     exhausted, waiting only to report to user space
type Scheduler struct {
	loop     transport.Loop
	capacity int
	inflight int
	maxCalls int

	scheduled []Lookup
	active    []Lookup
	ready     []Lookup
	backlogs  []Backlog

	timer     transport.Watcher
	immediate bool

	now   func() time.Time
	alive *bool
}

// New returns a Scheduler with the given concurrency capacity, driven
// by loop. now is injectable for deterministic tests; production
// callers pass time.Now.
func New(loop transport.Loop, capacity int, now func() time.Time) *Scheduler {
	if capacity < 1 {
		capacity = 1
	}
	if capacity > MaxCapacity {
		capacity = MaxCapacity
	}
	alive := true
	return &Scheduler{loop: loop, capacity: capacity, maxCalls: defaultMaxCalls, now: now, alive: &alive}
}

// AddBacklog registers a transport pool whose buffered inbound data is
// drained here, at the front of every tick, instead of inside the
// pool's own socket-readiness callback — per-datagram parsing and user
// callbacks only ever run from inside a tick this way.
func (s *Scheduler) AddBacklog(b Backlog) {
	s.backlogs = append(s.backlogs, b)
}

// Invalidate marks this Scheduler as torn down. A tick already running
// notices on its next liveness check (taken after every step that may
// have run user code) and returns immediately without touching further
// state. Callers that tear a Scheduler down — Resolver.Close, in
// practice — call this first, including when that teardown happens
// from inside a user callback that decided to destroy the resolver
// mid-dispatch.
func (s *Scheduler) Invalidate() {
	*s.alive = false
}

func (s *Scheduler) live() bool {
	return s.alive != nil && *s.alive
}

// Add enrolls a new Lookup. Exhausted lookups (hosts-table hits with
// nothing left to send) go straight to the ready queue so they report
// on the very next tick instead of waiting behind network lookups.
// The returned bool reports whether l landed in the scheduled queue
// (true) rather than starting immediately (false) — callers pass it
// straight back into Cancel if they later give up on l.
func (s *Scheduler) Add(l Lookup) bool {
	now := s.now()

	switch {
	case l.Exhausted():
		s.ready = append([]Lookup{l}, s.ready...)
		s.inflight++
		s.setTimer(0)
		return false

	case s.inflight >= s.capacity:
		wasEmpty := len(s.scheduled) == 0
		s.scheduled = append(s.scheduled, l)
		if wasEmpty {
			s.reschedule(now)
		}
		return true

	default:
		l.Execute(now)
		s.inflight++
		wasEmpty := len(s.active) == 0
		s.active = append(s.active, l)
		if wasEmpty {
			s.reschedule(now)
		}
		return false
	}
}

// NotifyReadable should be called whenever a transport pool has data
// it wants delivered (datagrams waiting to be parsed and matched).
// It collapses any existing timer to fire on the very next tick,
// mirroring Core::onActive.
func (s *Scheduler) NotifyReadable() {
	if s.timer != nil && s.immediate {
		return
	}
	s.setTimer(0)
}

// Cancel adjusts bookkeeping after a Lookup outside the scheduled
// queue self-cancels, freeing capacity for whatever is waiting.
func (s *Scheduler) Cancel(wasScheduled bool) {
	if wasScheduled {
		return
	}
	s.inflight--
	if s.inflight >= s.capacity || len(s.scheduled) == 0 {
		return
	}
	s.setTimer(0)
}

func (s *Scheduler) delay(now time.Time) time.Duration {
	if len(s.active) == 0 && len(s.ready) == 0 {
		return -1
	}
	if len(s.active) == 0 {
		return s.ready[0].Delay(now)
	}
	if len(s.ready) == 0 {
		return s.active[0].Delay(now)
	}
	a, r := s.active[0].Delay(now), s.ready[0].Delay(now)
	if a < r {
		return a
	}
	return r
}

func (s *Scheduler) setTimer(d time.Duration) {
	if d < 0 && s.timer == nil {
		return
	}
	if s.timer != nil {
		s.timer.Cancel()
		s.timer = nil
	}
	if d < 0 {
		return
	}
	s.immediate = d == 0
	s.timer = s.loop.SetTimer(d, s.expire)
}

func (s *Scheduler) reschedule(now time.Time) {
	s.setTimer(s.delay(now))
}

// process runs one step for a single lookup already popped from a
// queue, re-filing it into whichever queue matches its new state.
func (s *Scheduler) process(l Lookup, now time.Time) bool {
	if l.Finished() {
		return true
	}
	if l.Delay(now) > 0 {
		return false
	}

	completed := l.Execute(now)
	if completed {
		s.inflight--
		return true
	}

	if l.Exhausted() {
		s.ready = append(s.ready, l)
	} else {
		s.active = append(s.active, l)
	}
	return true
}

// proceed pulls as many scheduled lookups into active execution as
// the capacity cap allows.
func (s *Scheduler) proceed(now time.Time) {
	for s.inflight < s.capacity && len(s.scheduled) > 0 {
		if !s.live() {
			return
		}
		l := s.scheduled[0]
		s.scheduled = s.scheduled[1:]
		if l.Finished() {
			continue
		}
		s.inflight++
		s.process(l, now)
	}
}

// drainBacklogs delivers buffered inbound data across every registered
// Backlog, up to maxCalls total for this tick, so a socket's readiness
// handler never itself runs a user callback — only this call does.
func (s *Scheduler) drainBacklogs() {
	budget := s.maxCalls
	for _, b := range s.backlogs {
		if budget <= 0 || !s.live() {
			return
		}
		budget -= b.DrainBacklog(budget)
	}
}

// expire is the Loop timer callback: it drains buffered inbound data,
// walks the active and ready queues once, then tops back up from
// scheduled, then rearms the timer for whatever is due next. A
// liveness check follows every step that may have run user code,
// since that code may have torn down this Scheduler (Resolver.Close)
// from inside its own callback.
func (s *Scheduler) expire() {
	s.timer = nil
	now := s.now()

	s.drainBacklogs()
	if !s.live() {
		return
	}

	for len(s.active) > 0 {
		l := s.active[0]
		if !s.process(l, now) {
			break
		}
		s.active = s.active[1:]
		if !s.live() {
			return
		}
	}

	for len(s.ready) > 0 {
		l := s.ready[0]
		if !s.process(l, now) {
			break
		}
		s.ready = s.ready[1:]
		if !s.live() {
			return
		}
	}

	s.proceed(now)
	if !s.live() {
		return
	}
	s.reschedule(now)
}

// Inflight reports the number of lookups currently counted against
// the capacity cap; exposed for tests and diagnostics.
func (s *Scheduler) Inflight() int { return s.inflight }
