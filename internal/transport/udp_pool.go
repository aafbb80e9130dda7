//go:build !windows

package transport

import "net"

// defaultDatagramSize is large enough for an EDNS(0) response
// advertising protocol.EDNSUDPPayloadSize, with headroom for servers
// that ignore the advertised limit. Callers expecting larger
// responses (a bigger advertised UDP payload size) can request a
// larger buffer via NewUDPPool's bufferSize parameter.
const defaultDatagramSize = 4096

// udpFamily is one address family's worth of the pool's sockets: up to
// size of them, opened lazily, round-robined independently from the
// other family's.
type udpFamily struct {
	sockets  []*UDPSocket
	watchers []Watcher
	cursor   int
}

// datagram is one inbound datagram buffered by drain until a
// scheduler tick drains it back out via DrainBacklog.
type datagram struct {
	data []byte
	src  *net.UDPAddr
}

// UDPPool is a small set of lazily-opened UDP sockets that outbound
// queries are spread across by round robin, and that every inbound
// datagram on any of them is delivered back through a single
// callback. Spreading queries across more than one socket keeps a
// single slow or dropped datagram from head-of-line blocking every
// other in-flight lookup's receive path.
//
// A socket's address family is decided by the first destination IP
// sent to it, not fixed at pool construction: an IPv4 and an IPv6
// nameserver can both be queried from the same pool, each opening and
// round-robining its own family's sockets on demand.
//
// Inbound datagrams are never handed to onReceive from inside a
// socket-readiness callback: drain only buffers them, and delivery
// happens from DrainBacklog, called by a scheduler tick. This keeps
// user code from ever running underneath the event loop's fd-ready
// notification, where a callback that tears down the pool (via
// Resolver.Close) would otherwise corrupt the readiness scan in
// progress.
type UDPPool struct {
	loop       Loop
	size       int
	bufferSize int
	onReceive  func(data []byte, src *net.UDPAddr)
	notify     func()

	families map[string]*udpFamily
	buf      []byte
	backlog  []datagram
}

// NewUDPPool creates a pool backed by up to size sockets per address
// family; sockets are opened on first use, not at construction.
// bufferSize is the per-read buffer capacity; a value of 0 falls back
// to defaultDatagramSize. notify, if non-nil, is called whenever a
// datagram is buffered so a scheduler can arrange to drain it soon;
// it may be nil in tests that drive DrainBacklog directly.
func NewUDPPool(loop Loop, size int, bufferSize int, onReceive func(data []byte, src *net.UDPAddr), notify func()) *UDPPool {
	if bufferSize <= 0 {
		bufferSize = defaultDatagramSize
	}
	return &UDPPool{
		loop:       loop,
		size:       size,
		bufferSize: bufferSize,
		onReceive:  onReceive,
		notify:     notify,
		families:   make(map[string]*udpFamily),
		buf:        make([]byte, bufferSize),
	}
}

// networkFor picks "udp4" or "udp6" for dst, the way a socket opened
// for dst would need to be bound.
func networkFor(dst *net.UDPAddr) string {
	if dst.IP.To4() != nil {
		return "udp4"
	}
	return "udp6"
}

// Send picks the next socket of dst's address family in round-robin
// order (opening it if this is its first use) and sends data to dst.
func (p *UDPPool) Send(data []byte, dst *net.UDPAddr) error {
	network := networkFor(dst)
	fam := p.familyPool(network)

	idx := fam.cursor % len(fam.sockets)
	fam.cursor++

	sock, err := p.socketAt(fam, network, idx)
	if err != nil {
		return err
	}
	return sock.Send(data, dst)
}

func (p *UDPPool) familyPool(network string) *udpFamily {
	fam, ok := p.families[network]
	if !ok {
		fam = &udpFamily{sockets: make([]*UDPSocket, p.size), watchers: make([]Watcher, p.size)}
		p.families[network] = fam
	}
	return fam
}

func (p *UDPPool) socketAt(fam *udpFamily, network string, i int) (*UDPSocket, error) {
	if fam.sockets[i] != nil {
		return fam.sockets[i], nil
	}

	sock, err := newUDPSocket(network)
	if err != nil {
		return nil, err
	}

	fam.sockets[i] = sock
	fam.watchers[i] = p.loop.AddReader(sock.Fd(), func() { p.drain(sock) })
	return sock, nil
}

// drain reads every datagram currently queued on sock into the
// backlog, until the socket reports it would block. It never calls
// onReceive itself; a scheduler tick does that via DrainBacklog.
func (p *UDPPool) drain(sock *UDPSocket) {
	arrived := false
	for {
		n, src, err := sock.Recv(p.buf[:])
		if err != nil {
			break
		}
		p.backlog = append(p.backlog, datagram{data: append([]byte(nil), p.buf[:n]...), src: src})
		arrived = true
	}
	if arrived && p.notify != nil {
		p.notify()
	}
}

// DrainBacklog delivers up to budget buffered datagrams to onReceive,
// oldest first, and reports how many it delivered. It satisfies
// scheduler.Backlog.
func (p *UDPPool) DrainBacklog(budget int) int {
	n := len(p.backlog)
	if n > budget {
		n = budget
	}
	for i := 0; i < n; i++ {
		d := p.backlog[i]
		p.onReceive(d.data, d.src)
	}
	p.backlog = p.backlog[n:]
	return n
}

// Close shuts down every socket this pool has opened, across every
// address family it ever used.
func (p *UDPPool) Close() {
	for _, fam := range p.families {
		for i, sock := range fam.sockets {
			if sock == nil {
				continue
			}
			if fam.watchers[i] != nil {
				fam.watchers[i].Cancel()
			}
			p.loop.RemoveFd(sock.Fd())
			sock.Close()
			fam.sockets[i] = nil
		}
	}
}
