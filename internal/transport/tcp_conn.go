//go:build !windows

package transport

import (
	"encoding/binary"
	"errors"
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/go-dnscpp/dnscpp/internal/direrr"
)

// errPeerClosed signals a zero-length read: the peer closed its end
// of the connection.
var errPeerClosed = errors.New("transport: peer closed connection")

// ConnState is the lifecycle of one TCPConn, per spec.md §4.1's
// truncation fallback: opened on demand when a UDP answer arrives
// truncated, closed once the follow-up answer has been delivered.
type ConnState int

const (
	ConnConnecting ConnState = iota
	ConnConnected
	ConnDraining
	ConnClosed
)

func (s ConnState) String() string {
	switch s {
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnDraining:
		return "draining"
	default:
		return "closed"
	}
}

// tcpMaxMessageSize bounds a single length-prefixed DNS-over-TCP
// message (RFC 7766 §8): the 2-byte length field itself caps this at
// 65535, so this is just the buffer we pre-allocate to avoid resizing.
const tcpMaxMessageSize = 65535

// connEvent is a buffered, not-yet-delivered outcome of this
// connection: either the one response it will ever read, or the one
// error that ended it. DrainBacklog is what actually calls onMessage
// or onError; handleReadable/fail only ever buffer.
type connEvent struct {
	payload []byte
	err     error
}

// TCPConn is one DNS-over-TCP connection to a single peer, framed
// with the 2-byte big-endian length prefix of RFC 7766 §8. Exactly
// one query's response is ever read on a given TCPConn in this
// library; once it arrives, the connection transitions to draining
// and is torn down.
//
// A completed read or a failure is buffered as a connEvent rather
// than delivered straight from the fd-readiness callback: only
// DrainBacklog, called from a scheduler tick, ever invokes onMessage
// or onError, so user code never runs underneath the event loop's
// readiness scan.
type TCPConn struct {
	peer  *net.TCPAddr
	fd    uintptr
	state ConnState

	loop    Loop
	watcher Watcher
	pending []byte // outbound bytes not yet fully written
	inbuf   []byte // inbound bytes accumulated so far

	onMessage func(payload []byte)
	onError   func(error)
	notify    func()
	event     *connEvent
}

// DialTCP opens a non-blocking socket and issues a connect() to peer
// that is allowed to return EINPROGRESS; completion is observed via
// the Loop telling us the fd became writable, at which point SO_ERROR
// reveals whether the handshake actually succeeded. onMessage fires
// once with the framed message's payload (length prefix stripped)
// when a full response has been read; onError fires at most once,
// instead of onMessage, on any I/O or connect failure.
func DialTCP(loop Loop, peer *net.TCPAddr, onMessage func([]byte), onError func(error)) (*TCPConn, error) {
	return dialTCP(loop, peer, onMessage, onError, nil)
}

// dialTCP is DialTCP with an optional notify hook, called whenever a
// connEvent is buffered so a scheduler can arrange to drain it soon.
func dialTCP(loop Loop, peer *net.TCPAddr, onMessage func([]byte), onError func(error), notify func()) (*TCPConn, error) {
	family := unix.AF_INET
	if peer.IP.To4() == nil {
		family = unix.AF_INET6
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, &direrr.NetworkError{Operation: "open tcp socket", Err: err}
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, &direrr.NetworkError{Operation: "set tcp socket nonblocking", Err: err}
	}

	c := &TCPConn{
		peer:      peer,
		fd:        uintptr(fd),
		state:     ConnConnecting,
		loop:      loop,
		inbuf:     make([]byte, 0, 2+tcpMaxMessageSize),
		onMessage: onMessage,
		onError:   onError,
		notify:    notify,
	}

	connErr := unix.Connect(fd, toSockaddr(&net.UDPAddr{IP: peer.IP, Port: peer.Port}))
	if connErr != nil && connErr != unix.EINPROGRESS {
		unix.Close(fd)
		return nil, &direrr.NetworkError{Operation: "connect tcp", Err: connErr, Details: peer.String()}
	}

	c.watcher = loop.AddWriter(uintptr(fd), c.handleConnectComplete)
	return c, nil
}

// handleConnectComplete runs once the connecting socket first becomes
// writable, which for a stream socket means the handshake finished
// (successfully or not).
func (c *TCPConn) handleConnectComplete() {
	if c.watcher != nil {
		c.watcher.Cancel()
	}

	errno, err := unix.GetsockoptInt(int(c.fd), unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		c.fail(&direrr.NetworkError{Operation: "check tcp connect result", Err: err, Details: c.peer.String()})
		return
	}
	if errno != 0 {
		c.fail(&direrr.NetworkError{Operation: "connect tcp", Err: syscall.Errno(errno), Details: c.peer.String()})
		return
	}

	c.state = ConnConnected
	c.watcher = c.loop.AddReader(c.fd, c.handleReadable)
	if len(c.pending) > 0 {
		c.flushPending()
	}
}

func (c *TCPConn) flushPending() {
	n, err := c.writeRaw(c.pending)
	if err != nil {
		c.fail(err)
		return
	}
	c.pending = c.pending[n:]
	if len(c.pending) > 0 {
		c.loop.AddWriter(c.fd, c.handleWritable)
	}
}

// Send frames payload with its 2-byte length prefix and writes it.
// The write is attempted immediately; since DNS queries are small
// relative to the TCP send buffer this normally completes in one
// syscall, but a short write is retried on the next writable
// notification rather than assumed to be an error.
func (c *TCPConn) Send(payload []byte) error {
	if len(payload) > tcpMaxMessageSize {
		return &direrr.ValidationError{Field: "payload", Value: len(payload), Message: "message exceeds DNS-over-TCP 65535 byte limit"}
	}

	framed := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(framed, uint16(len(payload)))
	copy(framed[2:], payload)

	if c.state == ConnConnecting {
		c.pending = framed
		return nil
	}

	n, err := c.writeRaw(framed)
	if err != nil {
		return err
	}
	if n < len(framed) {
		c.pending = framed[n:]
		c.loop.AddWriter(c.fd, c.handleWritable)
	}
	return nil
}

// writeRaw issues a single non-blocking write() against the fd.
func (c *TCPConn) writeRaw(buf []byte) (int, error) {
	n, sysErr := unix.Write(int(c.fd), buf)
	if sysErr == unix.EAGAIN {
		return 0, nil
	}
	if sysErr != nil {
		return 0, &direrr.NetworkError{Operation: "write tcp", Err: sysErr, Details: c.peer.String()}
	}
	return n, nil
}

func (c *TCPConn) handleWritable() {
	if len(c.pending) == 0 {
		return
	}
	n, err := c.writeRaw(c.pending)
	if err != nil {
		c.fail(err)
		return
	}
	c.pending = c.pending[n:]
}

func (c *TCPConn) handleReadable() {
	var tmp [4096]byte
	for c.state == ConnConnected {
		n, sysErr := c.readRaw(tmp[:])
		if sysErr != nil {
			c.fail(sysErr)
			return
		}
		if n == 0 {
			return
		}
		c.inbuf = append(c.inbuf, tmp[:n]...)
		c.dispatchComplete()
	}
}

// readRaw issues a single non-blocking read() against the fd.
func (c *TCPConn) readRaw(buf []byte) (int, error) {
	n, sysErr := unix.Read(int(c.fd), buf)
	if sysErr == unix.EAGAIN {
		return 0, nil
	}
	if sysErr != nil {
		return 0, &direrr.NetworkError{Operation: "read tcp", Err: sysErr, Details: c.peer.String()}
	}
	if n == 0 {
		return 0, &direrr.NetworkError{Operation: "read tcp", Err: errPeerClosed, Details: c.peer.String()}
	}
	return n, nil
}

// dispatchComplete buffers the event delivering onMessage and moves to
// draining as soon as a full length-prefixed message has accumulated
// in inbuf. Actual delivery happens later, from DrainBacklog.
func (c *TCPConn) dispatchComplete() {
	if len(c.inbuf) < 2 {
		return
	}
	size := int(binary.BigEndian.Uint16(c.inbuf[0:2]))
	if len(c.inbuf) < 2+size {
		return
	}

	payload := append([]byte(nil), c.inbuf[2:2+size]...)
	c.state = ConnDraining
	c.buffer(&connEvent{payload: payload})
}

func (c *TCPConn) fail(err error) {
	if c.state == ConnClosed {
		return
	}
	c.state = ConnClosed
	c.buffer(&connEvent{err: err})
}

func (c *TCPConn) buffer(ev *connEvent) {
	c.event = ev
	if c.notify != nil {
		c.notify()
	}
}

// DrainBacklog delivers this connection's single buffered event, if
// any, and reports how many it delivered (0 or 1). It satisfies
// scheduler.Backlog.
func (c *TCPConn) DrainBacklog(budget int) int {
	if budget <= 0 || c.event == nil {
		return 0
	}
	ev := c.event
	c.event = nil
	if ev.err != nil {
		c.onError(ev.err)
	} else {
		c.onMessage(ev.payload)
	}
	return 1
}

// Close tears down the connection and removes it from the Loop.
func (c *TCPConn) Close() {
	if c.state == ConnClosed {
		return
	}
	c.state = ConnClosed
	if c.watcher != nil {
		c.watcher.Cancel()
	}
	c.loop.RemoveFd(c.fd)
	unix.Close(int(c.fd))
}

func (c *TCPConn) State() ConnState   { return c.state }
func (c *TCPConn) Peer() *net.TCPAddr { return c.peer }
