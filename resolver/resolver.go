package resolver

import (
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/go-dnscpp/dnscpp/internal/direrr"
	"github.com/go-dnscpp/dnscpp/internal/hosts"
	"github.com/go-dnscpp/dnscpp/internal/idgen"
	"github.com/go-dnscpp/dnscpp/internal/lookup"
	"github.com/go-dnscpp/dnscpp/internal/message"
	"github.com/go-dnscpp/dnscpp/internal/protocol"
	"github.com/go-dnscpp/dnscpp/internal/resolvconf"
	"github.com/go-dnscpp/dnscpp/internal/reverse"
	"github.com/go-dnscpp/dnscpp/internal/scheduler"
	"github.com/go-dnscpp/dnscpp/internal/transport"
)

// defaultResolvConf and defaultHostsFile are read by every call to
// New, even when WithNameserver overrides the nameserver list;
// either file's absence is tolerated (a fresh, empty Config/Table is
// used instead), since plenty of deployments supply nameservers
// purely through options.
const (
	defaultResolvConf = "/etc/resolv.conf"
	defaultHostsFile  = "/etc/hosts"
)

// Handler receives the outcome of a Query or QueryPTR call. Exactly
// one method fires exactly once per call.
type Handler interface {
	// OnResolved delivers a decoded response, successful or not (a
	// NXDOMAIN or SERVFAIL answer still arrives here; only "nobody
	// answered in time" and "the caller cancelled" route elsewhere).
	OnResolved(resp *Response)

	// OnTimeout reports that no nameserver answered before the
	// configured expire deadline, across every search path tried.
	OnTimeout()

	// OnCancelled reports that the OperationHandle was cancelled
	// before the lookup could complete on its own.
	OnCancelled()
}

// OperationHandle lets a caller cancel a Query or QueryPTR call still
// in progress. Cancel is idempotent and safe to call after the
// operation has already completed on its own.
type OperationHandle struct {
	cancel    func()
	cancelled bool
}

// Cancel gives up on the operation. If it hasn't already completed,
// the Handler's OnCancelled method fires synchronously.
func (h *OperationHandle) Cancel() {
	if h.cancelled {
		return
	}
	h.cancelled = true
	h.cancel()
}

// Resolver issues asynchronous DNS lookups against a configured set
// of nameservers, driven entirely by a caller-supplied transport.Loop.
type Resolver struct {
	loop transport.Loop
	log  zerolog.Logger

	scheduler   *scheduler.Scheduler
	registry    *lookup.Registry
	ids         *idgen.Generator
	udpPool     *transport.UDPPool
	tcpPool     *transport.TCPPool
	hostsTbl    *hosts.Table
	idleWatcher transport.Watcher

	nsConfig    lookup.NameserverConfig
	searchPaths []string
	ndots       int
}

// New constructs a Resolver driven by loop. It loads /etc/resolv.conf
// and /etc/hosts when present; opts are applied afterward and take
// precedence over whatever those files contained.
func New(loop transport.Loop, opts ...Option) (*Resolver, error) {
	conf, err := resolvconf.Load(defaultResolvConf)
	if err != nil {
		conf = resolvconf.New()
	}

	table := hosts.New()
	_ = table.Load(defaultHostsFile) // absence is not an error; an empty table just never short-circuits

	cfg := defaultSettings(conf)
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "resolver").Logger()

	r := &Resolver{
		loop:     loop,
		log:      logger,
		registry: lookup.NewRegistry(),
		ids:      idgen.New(),
		hostsTbl: table,
		nsConfig: lookup.NameserverConfig{
			Nameservers: cfg.nameservers,
			Interval:    cfg.interval,
			Expire:      cfg.expire,
			Spread:      cfg.spread,
			Attempts:    cfg.attempts,
			Rotate:      cfg.rotate,
			Recursive:   true,
			DNSSEC:      cfg.dnssec,
		},
		searchPaths: conf.SearchPaths,
		ndots:       conf.Ndots,
	}

	r.scheduler = scheduler.New(loop, cfg.capacity, time.Now)
	r.udpPool = transport.NewUDPPool(loop, cfg.sockets, cfg.bufferSize, r.onDatagram, r.scheduler.NotifyReadable)
	r.tcpPool = transport.NewTCPPool(loop, r.scheduler.NotifyReadable)
	r.scheduler.AddBacklog(r.udpPool)
	r.scheduler.AddBacklog(r.tcpPool)

	r.idleWatcher = loop.Idle(r.reapTCP)

	return r, nil
}

// reapTCP prunes drained TCP connections from the pool and re-arms
// itself for the loop's next pass, so a connection is released as
// soon as it has no subscribers left rather than lingering until
// Close.
func (r *Resolver) reapTCP() {
	r.tcpPool.Reap()
	r.idleWatcher = r.loop.Idle(r.reapTCP)
}

// Close tears down every socket this Resolver opened and marks the
// scheduler invalid first, so a user callback still unwinding from
// inside a tick (e.g. one that calls Close on itself) can't run any
// further work against torn-down pools.
func (r *Resolver) Close() {
	r.scheduler.Invalidate()
	if r.idleWatcher != nil {
		r.idleWatcher.Cancel()
	}
	r.udpPool.Close()
	r.tcpPool.Close()
}

// onDatagram is the UDP pool's receive callback: every inbound
// datagram is handed to the registry, which routes it to whichever
// RemoteLookup is waiting on its transaction ID, then the scheduler
// is nudged to run immediately rather than wait for its timer.
func (r *Resolver) onDatagram(data []byte, src *net.UDPAddr) {
	id, err := message.ParseHeader(data)
	if err != nil {
		r.log.Warn().Err(err).Str("src", src.String()).Msg("dropped malformed datagram")
		return
	}
	if !r.registry.Dispatch(id.ID, data) {
		r.log.Debug().Uint16("id", id.ID).Str("src", src.String()).Msg("no lookup waiting for this transaction id")
		return
	}
	r.scheduler.NotifyReadable()
}

// handlerAdapter bridges the public, Response-typed Handler to
// internal/lookup's wire-bytes-typed Handler: it is the one place
// this package parses an inbound message before handing it to a
// caller.
type handlerAdapter struct {
	handler Handler
}

func (a *handlerAdapter) OnReceived(wire []byte) {
	msg, err := message.ParseMessage(wire)
	if err != nil {
		// A response that matched the transaction ID/question but
		// fails to parse is vanishingly rare in practice (it would
		// mean a nameserver echoed a corrupt answer); treat it the
		// same as no answer ever arriving.
		a.handler.OnTimeout()
		return
	}
	a.handler.OnResolved(newResponse(wire, msg))
}

func (a *handlerAdapter) OnTimeout()   { a.handler.OnTimeout() }
func (a *handlerAdapter) OnCancelled() { a.handler.OnCancelled() }

// sender adapts this Resolver's transport pools to lookup.Sender; it
// is also the one place every outbound attempt and TCP failure passes
// through, so it is where the scheduler/resolver boundary's leveled
// logging lives.
type sender struct {
	udp *transport.UDPPool
	tcp *transport.TCPPool
	log zerolog.Logger
}

func (s *sender) SendUDP(data []byte, to *net.UDPAddr) error {
	s.log.Debug().Str("to", to.String()).Int("bytes", len(data)).Msg("sending query datagram")
	return s.udp.Send(data, to)
}

func (s *sender) DialTCP(to *net.TCPAddr, query []byte, onMessage func([]byte), onError func(error)) error {
	wrappedError := func(err error) {
		s.log.Error().Err(err).Str("to", to.String()).Msg("tcp fallback connection failed")
		onError(err)
	}

	if conn, ok := s.tcp.Get(to); ok {
		return conn.Send(query)
	}
	conn, err := s.tcp.Dial(to, onMessage, wrappedError)
	if err != nil {
		s.log.Error().Err(err).Str("to", to.String()).Msg("tcp dial failed")
		return err
	}
	return conn.Send(query)
}

// Query resolves name against the given record type, respecting the
// configured search path and hosts table. name is validated and
// IDNA-converted before anything is sent.
func (r *Resolver) Query(name string, rtype RecordType, handler Handler) (*OperationHandle, error) {
	ascii, err := protocol.ToASCII(name)
	if err != nil {
		return nil, err
	}
	if err := protocol.ValidateName(ascii); err != nil {
		return nil, err
	}
	if err := protocol.ValidateRecordType(uint16(rtype)); err != nil {
		return nil, err
	}

	adapter := &handlerAdapter{handler: handler}

	var cancel func()
	if r.searchable(ascii) {
		qf := func(domain string, rt protocol.RecordType, h lookup.Handler) func() {
			return r.issue(domain, rt, h)
		}
		sl := lookup.NewSearchLookup(r.searchPaths, ascii, protocol.RecordType(rtype), adapter, qf)
		cancel = sl.Cancel
	} else {
		cancel = r.issue(ascii, protocol.RecordType(rtype), adapter)
	}

	return &OperationHandle{cancel: cancel}, nil
}

// QueryPTR resolves the hostname(s) associated with ip via a reverse
// (PTR) lookup, consulting the hosts table first.
func (r *Resolver) QueryPTR(ip net.IP, handler Handler) (*OperationHandle, error) {
	if ip == nil {
		return nil, &direrr.ValidationError{Field: "ip", Value: ip, Message: "ip must not be nil"}
	}
	adapter := &handlerAdapter{handler: handler}
	cancel := r.issue(reverse.Name(ip), protocol.TypePTR, adapter)
	return &OperationHandle{cancel: cancel}, nil
}

// searchable reports whether domain should be expanded against the
// configured search path rather than queried as-is: it must not
// already be a fully-qualified (trailing-dot) name, and it must carry
// fewer dots than the configured ndots threshold.
func (r *Resolver) searchable(domain string) bool {
	if domain == "" || strings.HasSuffix(domain, ".") {
		return false
	}
	if len(r.searchPaths) == 0 {
		return false
	}
	return strings.Count(domain, ".") < r.ndots
}

// issue sends a single lookup attempt (no search expansion) and
// returns the function that cancels it: a hosts-table hit becomes a
// LocalLookup, everything else becomes a RemoteLookup against the
// configured nameservers.
func (r *Resolver) issue(domain string, rtype protocol.RecordType, handler lookup.Handler) func() {
	id := r.ids.Next()
	question := message.Question{Name: fqdn(domain), Type: rtype, Class: protocol.ClassIN}

	if (rtype == protocol.TypeA || rtype == protocol.TypeAAAA || rtype == protocol.TypePTR) && r.hostsTbl != nil {
		if _, found := r.hostsTbl.Answer(id, question); found {
			l := lookup.NewLocalLookup(r.hostsTbl, id, question, handler)
			r.scheduler.Add(l)
			return l.Cancel
		}
	}

	l, err := lookup.NewRemoteLookup(r.nsConfig, domain, rtype, id, handler, &sender{udp: r.udpPool, tcp: r.tcpPool, log: r.log}, r.registry, r.hostsTbl, time.Now())
	if err != nil {
		r.log.Error().Err(err).Str("domain", domain).Msg("failed to build query")
		handler.OnCancelled()
		return func() {}
	}

	wasScheduled := r.scheduler.Add(l)
	return func() {
		l.Cancel()
		r.scheduler.Cancel(wasScheduled)
	}
}

func fqdn(domain string) string {
	if strings.HasSuffix(domain, ".") {
		return domain
	}
	return domain + "."
}
