//go:build !windows

package transport

import "net"

// TCPPool holds at most one TCPConn per peer IP, per spec.md §4.1's
// truncation fallback. A lookup that needs TCP asks the pool for a
// connection to a specific nameserver; if one is already open (or
// connecting) it is reused, otherwise a fresh one is dialed.
type TCPPool struct {
	loop   Loop
	conns  map[string]*TCPConn
	notify func()
}

// NewTCPPool creates an empty pool driven by loop. notify, if non-nil,
// is called whenever any connection buffers a message or error, so a
// scheduler can arrange to drain it soon.
func NewTCPPool(loop Loop, notify func()) *TCPPool {
	return &TCPPool{loop: loop, conns: make(map[string]*TCPConn), notify: notify}
}

// Get returns the existing connection to peer, if any and still live.
func (p *TCPPool) Get(peer *net.TCPAddr) (*TCPConn, bool) {
	c, ok := p.conns[peer.String()]
	if !ok || c.State() == ConnClosed {
		return nil, false
	}
	return c, true
}

// Dial opens a new connection to peer, replacing any closed entry
// previously held for the same address.
func (p *TCPPool) Dial(peer *net.TCPAddr, onMessage func([]byte), onError func(error)) (*TCPConn, error) {
	key := peer.String()
	wrappedError := func(err error) {
		delete(p.conns, key)
		onError(err)
	}
	wrappedMessage := func(payload []byte) {
		onMessage(payload)
	}

	c, err := dialTCP(p.loop, peer, wrappedMessage, wrappedError, p.notify)
	if err != nil {
		return nil, err
	}
	p.conns[key] = c
	return c, nil
}

// DrainBacklog delivers buffered events across every connection in the
// pool, up to budget total, and reports how many it delivered. It
// satisfies scheduler.Backlog.
func (p *TCPPool) DrainBacklog(budget int) int {
	delivered := 0
	for _, c := range p.conns {
		if budget-delivered <= 0 {
			break
		}
		delivered += c.DrainBacklog(budget - delivered)
	}
	return delivered
}

// Reap closes and forgets every connection sitting in ConnDraining
// with no event still waiting to be drained, plus anything already
// ConnClosed, and returns the count removed. A draining connection
// whose buffered event hasn't been delivered yet is left alone —
// closing it here would discard the event before DrainBacklog ever
// gets a turn. Callers run this from an idle callback rather than a
// timer, since a drained connection can be cleaned up as soon as the
// loop is otherwise quiet.
func (p *TCPPool) Reap() int {
	removed := 0
	for key, c := range p.conns {
		if c.State() == ConnDraining && c.event == nil {
			c.Close()
		}
		if c.State() == ConnClosed {
			delete(p.conns, key)
			removed++
		}
	}
	return removed
}

// Close tears down every connection in the pool.
func (p *TCPPool) Close() {
	for key, c := range p.conns {
		c.Close()
		delete(p.conns, key)
	}
}
