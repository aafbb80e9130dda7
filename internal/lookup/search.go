package lookup

import (
	"github.com/go-dnscpp/dnscpp/internal/message"
	"github.com/go-dnscpp/dnscpp/internal/protocol"
)

// QueryFunc issues one lookup attempt (typically a RemoteLookup added
// to the Scheduler) and returns a function that cancels it.
type QueryFunc func(domain string, rtype protocol.RecordType, handler Handler) func()

// SearchLookup tries domain with each of searchPaths appended in
// turn, reporting the first response with at least one answer of the
// requested type to handler. Once every search path has been tried
// without success, a final sub-query for the bare domain is issued and
// its result — success or not — is forwarded verbatim. Unlike
// RemoteLookup/LocalLookup, it holds no network state of its own —
// every attempt is a fresh operation issued through query — so it does
// not implement the Scheduler's Lookup interface; it is a Handler
// composing other Handlers. Grounded on
// original_source/src/searchlookuphandler.h's tryNextLookup/onFailure
// chain.
type SearchLookup struct {
	searchPaths []string
	baseDomain  string
	rtype       protocol.RecordType
	handler     Handler
	query       QueryFunc

	index         int
	bare          bool // the final, unconditionally-forwarded bare-domain attempt is in flight
	cancelCurrent func()
	done          bool
}

// NewSearchLookup starts the first attempt (baseDomain + "." +
// searchPaths[0]) immediately.
func NewSearchLookup(searchPaths []string, baseDomain string, rtype protocol.RecordType, handler Handler, query QueryFunc) *SearchLookup {
	l := &SearchLookup{searchPaths: searchPaths, baseDomain: baseDomain, rtype: rtype, handler: handler, query: query}
	if !l.tryNext() {
		// no search paths configured at all: go straight to the bare
		// lookup of the original domain.
		l.queryBare()
	}
	return l
}

func (l *SearchLookup) tryNext() bool {
	if l.index >= len(l.searchPaths) {
		return false
	}
	next := l.baseDomain + "." + l.searchPaths[l.index]
	l.index++
	l.cancelCurrent = l.query(next, l.rtype, l)
	return true
}

// queryBare issues the final, unconditional fallback attempt against
// the undecorated domain once every search path has come up empty.
func (l *SearchLookup) queryBare() {
	l.bare = true
	l.cancelCurrent = l.query(l.baseDomain, l.rtype, l)
}

// answered reports whether wire parses as a response carrying at
// least one answer record of the requested type — a plain RCode check
// isn't enough, since a NOERROR/NODATA response with zero matching
// answers (e.g. a CNAME-only reply to an A query at this name) must
// still advance to the next search path.
func (l *SearchLookup) answered(wire []byte) bool {
	msg, err := message.ParseMessage(wire)
	if err != nil || msg.RCode() != protocol.RCodeSuccess {
		return false
	}
	for _, rr := range msg.Answers {
		if rr.Type == l.rtype {
			return true
		}
	}
	return false
}

// OnReceived implements Handler for each attempt: a response with at
// least one answer of the requested type is reported immediately;
// anything else advances to the next search path, then to the bare
// fallback attempt once the path list is exhausted. The bare attempt's
// own result is always forwarded, whatever it is.
func (l *SearchLookup) OnReceived(wire []byte) {
	if l.done {
		return
	}
	if l.bare || l.answered(wire) {
		l.finish(func() { l.handler.OnReceived(wire) })
		return
	}
	l.advance()
}

// OnTimeout advances to the next search path, then to the bare
// fallback attempt, reporting the timeout only once the bare attempt
// has also timed out.
func (l *SearchLookup) OnTimeout() {
	if l.done {
		return
	}
	if l.bare {
		l.finish(l.handler.OnTimeout)
		return
	}
	l.advance()
}

// advance moves from the current exhausted attempt to the next one:
// the next configured search path, or the bare-domain fallback once
// the path list runs out.
func (l *SearchLookup) advance() {
	if l.tryNext() {
		return
	}
	l.queryBare()
}

// OnCancelled reports cancellation once: a sub-lookup only cancels
// when Cancel below cancelled it, so there is nothing left to retry.
func (l *SearchLookup) OnCancelled() {
	if l.done {
		return
	}
	l.finish(l.handler.OnCancelled)
}

func (l *SearchLookup) finish(report func()) {
	l.done = true
	report()
}

// Cancel tears down whichever attempt is currently in flight.
func (l *SearchLookup) Cancel() {
	if l.done || l.cancelCurrent == nil {
		return
	}
	cancel := l.cancelCurrent
	l.cancelCurrent = nil
	cancel()
}
