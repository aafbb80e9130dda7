package lookup

import (
	"time"

	"github.com/go-dnscpp/dnscpp/internal/hosts"
	"github.com/go-dnscpp/dnscpp/internal/message"
)

// LocalLookup answers entirely out of a hosts.Table, with no network
// I/O at all: it is already Exhausted() the moment it is created, so
// the Scheduler reports it on the very next tick instead of waiting
// behind any in-flight remote lookup. Grounded on
// original_source/src/locallookup.h, which likewise does all of its
// work in the constructor and only waits for its turn to call back.
type LocalLookup struct {
	handler Handler
	wire    []byte
	found   bool
	done    bool
}

// NewLocalLookup synthesizes the response up front. found reports
// whether anything matched in table; the caller decides whether a
// LocalLookup was even worth creating (normally only once
// table.LookupHost/LookupAddr already found something).
func NewLocalLookup(table *hosts.Table, id uint16, question message.Question, handler Handler) *LocalLookup {
	wire, found := table.Answer(id, question)
	return &LocalLookup{handler: handler, wire: wire, found: found}
}

func (l *LocalLookup) Delay(time.Time) time.Duration { return 0 }

// Execute delivers the synthesized response (or an empty-but-still
// successful NOERROR answer is not applicable here — callers only
// build a LocalLookup once they already know table has a match, so
// found is always true by the time Execute runs).
func (l *LocalLookup) Execute(time.Time) bool {
	if l.done {
		return true
	}
	l.done = true
	if l.found {
		l.handler.OnReceived(l.wire)
	} else {
		l.handler.OnTimeout()
	}
	return true
}

func (l *LocalLookup) Exhausted() bool { return true }
func (l *LocalLookup) Finished() bool  { return l.done }

// Cancel matches RemoteLookup's Cancel for a uniform Operation handle,
// even though a LocalLookup never actually has anything in flight to
// tear down.
func (l *LocalLookup) Cancel() {
	if l.done {
		return
	}
	l.done = true
	l.handler.OnCancelled()
}
