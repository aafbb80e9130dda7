package lookup

import (
	"net"
	"time"

	"github.com/go-dnscpp/dnscpp/internal/hosts"
	"github.com/go-dnscpp/dnscpp/internal/message"
	"github.com/go-dnscpp/dnscpp/internal/protocol"
)

// RemoteLookup sends a query to each configured nameserver in turn,
// spreading repeats across a round before advancing to the next
// round, until either a matching response arrives or the lookup's
// overall expire deadline passes. Falls back to TCP once a response
// comes back truncated. Grounded on original_source's RemoteLookup
// FSM (retry/delay/expire arithmetic) adapted to a timer driven by
// the Scheduler rather than a libuv timer owned by the lookup itself.
type RemoteLookup struct {
	config   NameserverConfig
	domain   string
	rtype    protocol.RecordType
	handler  Handler
	sender   Sender
	reg      *Registry
	hostsTbl *hosts.Table

	id      uint16
	query   []byte
	started time.Time

	count       int  // datagrams sent so far
	awaitingTCP bool // a truncated response triggered a TCP fallback already
	done        bool
}

// NewRemoteLookup builds a RemoteLookup and its query message; it
// sends nothing itself. The first datagram goes out on the first
// Execute call (with no configured nameservers, that call times the
// lookup out instead). hostsTbl may be nil; when non-nil it is
// consulted on an NXDOMAIN answer (see HandleDatagram) so a name also
// present in the hosts file never surfaces as nonexistent.
func NewRemoteLookup(config NameserverConfig, domain string, rtype protocol.RecordType, id uint16, handler Handler, sender Sender, reg *Registry, hostsTbl *hosts.Table, now time.Time) (*RemoteLookup, error) {
	query, err := message.BuildQuery(id, domain, rtype, message.QueryOptions{Recursive: config.Recursive, DNSSEC: config.DNSSEC})
	if err != nil {
		return nil, err
	}

	l := &RemoteLookup{
		config:   config,
		domain:   domain,
		rtype:    rtype,
		handler:  handler,
		sender:   sender,
		reg:      reg,
		hostsTbl: hostsTbl,
		id:       id,
		query:    query,
		started:  now,
	}
	return l, nil
}

// Delay reports how long until the next datagram should go out, or
// until the whole lookup should time out.
func (l *RemoteLookup) Delay(now time.Time) time.Duration {
	servers := len(l.config.Nameservers)
	if servers == 0 {
		return 0
	}

	if l.count%servers != 0 {
		return l.config.Spread
	}

	rounds := l.count / servers
	nextRoundStart := l.started.Add(time.Duration(rounds) * l.config.Interval)
	expiry := l.expires()

	next := nextRoundStart
	if expiry.Before(next) {
		next = expiry
	}
	if d := next.Sub(now); d > 0 {
		return d
	}
	return 0
}

func (l *RemoteLookup) expires() time.Time {
	if len(l.config.Nameservers) == 0 {
		return l.started
	}
	return l.started.Add(l.config.Expire)
}

// Execute sends the next datagram, or times the lookup out once its
// expire deadline has passed. It returns true once the lookup is
// finished: on the call that fires the timeout callback, and on every
// call after the lookup has completed by any route.
func (l *RemoteLookup) Execute(now time.Time) bool {
	if l.done {
		return true
	}

	if !now.Before(l.expires()) || len(l.config.Nameservers) == 0 {
		l.timeout()
		return true
	}

	if l.awaitingTCP {
		// waiting on the TCP fallback; nothing more to send.
		return false
	}

	l.retry()
	return false
}

// retry sends one more datagram to the next nameserver in rotation.
func (l *RemoteLookup) retry() {
	servers := l.config.Nameservers
	n := len(servers)

	base := 0
	if l.config.Rotate {
		base = int(l.started.UnixNano() % int64(n))
	}
	target := (l.count + base) % n

	if l.count < n {
		l.reg.Subscribe(l.id, l)
	}

	to := &net.UDPAddr{IP: servers[target], Port: protocol.Port}
	l.sender.SendUDP(l.query, to)
	l.count++
}

// Exhausted reports whether this lookup will never send another
// datagram on its own (it is purely waiting for a reply or a TCP
// fallback to resolve).
func (l *RemoteLookup) Exhausted() bool {
	if l.done {
		return true
	}
	if len(l.config.Nameservers) == 0 {
		return true
	}
	return l.awaitingTCP
}

// Finished reports whether a terminal callback has already fired.
func (l *RemoteLookup) Finished() bool { return l.done }

// HandleDatagram implements Receiver: it is invoked by the Registry
// for every datagram sharing this lookup's transaction ID.
func (l *RemoteLookup) HandleDatagram(data []byte) bool {
	if l.done || l.awaitingTCP {
		return false
	}

	query, err := message.ParseMessage(l.query)
	if err != nil {
		return false
	}
	response, err := message.ParseMessage(data)
	if err != nil {
		return false
	}
	if !message.Matches(query, response) {
		return false
	}

	if response.Truncated() {
		l.startTCPFallback(data)
		return false
	}

	wire := data
	if response.RCode() == protocol.RCodeNameError && l.hostsTbl != nil {
		question := message.Question{Name: l.domain, Type: l.rtype, Class: protocol.ClassIN}
		if l.hostsTbl.Contains(question) {
			if synthesized, err := message.BuildResponse(l.id, question, nil); err == nil {
				wire = synthesized
			}
		}
	}

	l.cleanup()
	l.done = true
	l.handler.OnReceived(wire)
	return true
}

func (l *RemoteLookup) startTCPFallback(truncated []byte) {
	l.awaitingTCP = true
	l.reg.Unsubscribe(l.id, l)

	server := l.lastServer()
	to := &net.TCPAddr{IP: server, Port: protocol.Port}

	err := l.sender.DialTCP(to, l.query, func(wire []byte) {
		l.done = true
		l.handler.OnReceived(wire)
	}, func(error) {
		// TCP failed too: fall back to the truncated UDP answer,
		// same as the upstream RemoteLookup::onFailure.
		l.done = true
		l.handler.OnReceived(truncated)
	})
	if err != nil {
		l.done = true
		l.handler.OnReceived(truncated)
	}
}

func (l *RemoteLookup) lastServer() net.IP {
	servers := l.config.Nameservers
	n := len(servers)
	base := 0
	if l.config.Rotate {
		base = int(l.started.UnixNano() % int64(n))
	}
	target := (l.count - 1 + base) % n
	return servers[target]
}

func (l *RemoteLookup) timeout() {
	if l.done {
		return
	}
	l.cleanup()
	l.done = true
	l.handler.OnTimeout()
}

// Cancel is called by the owning Operation handle when the caller
// gives up on the lookup before it completed on its own.
func (l *RemoteLookup) Cancel() {
	if l.done {
		return
	}
	l.cleanup()
	l.done = true
	l.handler.OnCancelled()
}

func (l *RemoteLookup) cleanup() {
	l.reg.Unsubscribe(l.id, l)
}
