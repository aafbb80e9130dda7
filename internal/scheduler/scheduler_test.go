package scheduler

import (
	"testing"
	"time"

	"github.com/go-dnscpp/dnscpp/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWatcher is a no-op transport.Watcher for tests that don't care
// about cancellation.
type fakeWatcher struct{ cancelled *bool }

func (w *fakeWatcher) Cancel() { *w.cancelled = true }

// fakeLoop is a minimal synchronous transport.Loop good enough to
// drive the scheduler's timer in tests without any real I/O.
type fakeLoop struct {
	timerCb func()
}

func (l *fakeLoop) AddReader(uintptr, func()) transport.Watcher { return newFakeWatcher() }
func (l *fakeLoop) AddWriter(uintptr, func()) transport.Watcher { return newFakeWatcher() }
func (l *fakeLoop) RemoveFd(uintptr)                            {}
func (l *fakeLoop) Idle(cb func()) transport.Watcher            { cb(); return newFakeWatcher() }
func (l *fakeLoop) SetTimer(_ time.Duration, cb func()) transport.Watcher {
	l.timerCb = cb
	return newFakeWatcher()
}

func newFakeWatcher() transport.Watcher {
	cancelled := false
	return &fakeWatcher{cancelled: &cancelled}
}

var _ transport.Loop = (*fakeLoop)(nil)

// fakeLookup is a trivial Lookup used to exercise the Scheduler in
// isolation from internal/lookup.
type fakeLookup struct {
	executed  int
	exhausted bool
	finished  bool
	delay     time.Duration
	complete  bool // Execute returns this on every call
}

func (f *fakeLookup) Delay(time.Time) time.Duration { return f.delay }
func (f *fakeLookup) Execute(time.Time) bool {
	f.executed++
	return f.complete
}
func (f *fakeLookup) Exhausted() bool { return f.exhausted }
func (f *fakeLookup) Finished() bool  { return f.finished }

func TestAddExecutesImmediatelyWhenCapacityAvailable(t *testing.T) {
	loop := &fakeLoop{}
	s := New(loop, 4, time.Now)

	l := &fakeLookup{delay: time.Second}
	s.Add(l)

	assert.Equal(t, 1, l.executed)
	assert.Equal(t, 1, s.Inflight())
}

func TestAddQueuesWhenCapacityExhausted(t *testing.T) {
	loop := &fakeLoop{}
	s := New(loop, 1, time.Now)

	first := &fakeLookup{delay: time.Hour}
	second := &fakeLookup{delay: time.Hour}

	s.Add(first)
	s.Add(second)

	assert.Equal(t, 1, first.executed)
	assert.Equal(t, 0, second.executed)
	require.Len(t, s.scheduled, 1)
}

func TestExhaustedLookupGoesToReadyQueue(t *testing.T) {
	loop := &fakeLoop{}
	s := New(loop, 4, time.Now)

	l := &fakeLookup{exhausted: true}
	s.Add(l)

	require.NotNil(t, loop.timerCb)
	require.Len(t, s.ready, 1)
}

func TestExpireCompletesReadyLookupAndFreesCapacity(t *testing.T) {
	loop := &fakeLoop{}
	s := New(loop, 1, time.Now)

	l := &fakeLookup{exhausted: true, complete: true}
	s.Add(l)
	require.NotNil(t, loop.timerCb)

	loop.timerCb()

	assert.Equal(t, 1, l.executed)
	assert.Equal(t, 0, s.Inflight())
}

// fakeBacklog is a Backlog whose DrainBacklog pops a fixed count per
// call, down to zero, so tests can exercise the maxCalls budget split
// across more than one registered Backlog.
type fakeBacklog struct {
	available int
	drained   int
}

func (b *fakeBacklog) DrainBacklog(budget int) int {
	n := b.available
	if n > budget {
		n = budget
	}
	b.available -= n
	b.drained += n
	return n
}

func TestDrainBacklogsDeliversAcrossEveryRegisteredBacklog(t *testing.T) {
	loop := &fakeLoop{}
	s := New(loop, 4, time.Now)

	a := &fakeBacklog{available: 3}
	b := &fakeBacklog{available: 5}
	s.AddBacklog(a)
	s.AddBacklog(b)

	l := &fakeLookup{exhausted: true, complete: true}
	s.Add(l)
	require.NotNil(t, loop.timerCb)

	loop.timerCb()

	assert.Equal(t, 3, a.drained)
	assert.Equal(t, 5, b.drained)
}

func TestDrainBacklogsRespectsMaxCallsBudget(t *testing.T) {
	loop := &fakeLoop{}
	s := New(loop, 4, time.Now)
	s.maxCalls = 10

	a := &fakeBacklog{available: 8}
	b := &fakeBacklog{available: 8}
	s.AddBacklog(a)
	s.AddBacklog(b)

	l := &fakeLookup{exhausted: true, complete: true}
	s.Add(l)
	require.NotNil(t, loop.timerCb)

	loop.timerCb()

	assert.Equal(t, 8, a.drained, "first backlog drains its own full budget")
	assert.Equal(t, 2, b.drained, "second backlog only gets what's left of the shared budget")
}

// invalidatingLookup is a Lookup whose Execute tears the Scheduler
// down mid-tick, simulating a user callback that calls Resolver.Close
// from inside its own handler.
type invalidatingLookup struct {
	sched       *Scheduler
	executed    int
	laterCalled bool
}

func (l *invalidatingLookup) Delay(time.Time) time.Duration { return 0 }
func (l *invalidatingLookup) Execute(time.Time) bool {
	l.executed++
	l.sched.Invalidate()
	return true
}
func (l *invalidatingLookup) Exhausted() bool { return true }
func (l *invalidatingLookup) Finished() bool  { return false }

func TestInvalidateStopsATickInProgress(t *testing.T) {
	loop := &fakeLoop{}
	s := New(loop, 4, time.Now)

	bad := &invalidatingLookup{sched: s}
	s.ready = append(s.ready, bad)
	s.inflight++

	after := &fakeLookup{exhausted: true}
	s.ready = append(s.ready, after)
	s.inflight++

	s.setTimer(0)
	require.NotNil(t, loop.timerCb)

	loop.timerCb()

	assert.Equal(t, 1, bad.executed)
	assert.Equal(t, 0, after.executed, "a lookup queued behind the one that invalidated the scheduler must not run this tick")
}

func TestDrainBacklogsSkippedOnceInvalidated(t *testing.T) {
	loop := &fakeLoop{}
	s := New(loop, 4, time.Now)
	s.Invalidate()

	a := &fakeBacklog{available: 5}
	s.AddBacklog(a)

	s.drainBacklogs()

	assert.Equal(t, 0, a.drained)
}
