//go:build !windows

package transport

import (
	"context"
	"errors"
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/go-dnscpp/dnscpp/internal/direrr"
)

// errWouldBlock signals that a non-blocking socket call returned
// EAGAIN/EWOULDBLOCK: not an error, just nothing to do right now.
var errWouldBlock = errors.New("transport: operation would block")

// UDPSocket is one pool socket: a non-blocking, unconnected UDP
// endpoint that can send to and receive from any peer. All I/O goes
// through syscall.RawConn so the fd is never touched by the Go
// runtime's own blocking Read/Write path; the caller's Loop is the
// only thing deciding when to call Send or drain Recv.
type UDPSocket struct {
	conn *net.UDPConn
	raw  syscall.RawConn
	fd   uintptr
}

// newUDPSocket opens and binds an ephemeral UDP socket of the given
// network ("udp4" or "udp6"), tuned by platformControl.
func newUDPSocket(network string) (*UDPSocket, error) {
	lc := net.ListenConfig{Control: PlatformControl}
	pc, err := lc.ListenPacket(context.Background(), network, ":0")
	if err != nil {
		return nil, &direrr.NetworkError{Operation: "open udp socket", Err: err}
	}

	conn := pc.(*net.UDPConn)
	raw, err := conn.SyscallConn()
	if err != nil {
		conn.Close()
		return nil, &direrr.NetworkError{Operation: "access udp socket fd", Err: err}
	}

	var fd uintptr
	if ctrlErr := raw.Control(func(f uintptr) { fd = f }); ctrlErr != nil {
		conn.Close()
		return nil, &direrr.NetworkError{Operation: "read udp socket fd", Err: ctrlErr}
	}

	return &UDPSocket{conn: conn, raw: raw, fd: fd}, nil
}

// Fd returns the socket's file descriptor, for registration with a Loop.
func (s *UDPSocket) Fd() uintptr { return s.fd }

func (s *UDPSocket) LocalAddr() net.Addr { return s.conn.LocalAddr() }

func (s *UDPSocket) Close() error { return s.conn.Close() }

// Send performs a single non-blocking sendto.
func (s *UDPSocket) Send(data []byte, dst *net.UDPAddr) error {
	var sysErr error
	err := s.raw.Write(func(fd uintptr) bool {
		sysErr = unix.Sendto(int(fd), data, 0, toSockaddr(dst))
		return true
	})
	if err != nil {
		return &direrr.NetworkError{Operation: "send", Err: err, Details: dst.String()}
	}
	if sysErr == unix.EAGAIN {
		return errWouldBlock
	}
	if sysErr != nil {
		return &direrr.NetworkError{Operation: "send", Err: sysErr, Details: dst.String()}
	}
	return nil
}

// Recv performs a single non-blocking recvfrom into buf. It returns
// errWouldBlock, not an error, when nothing is currently queued.
func (s *UDPSocket) Recv(buf []byte) (n int, src *net.UDPAddr, err error) {
	var sysErr error
	readErr := s.raw.Read(func(fd uintptr) bool {
		var from unix.Sockaddr
		n, from, sysErr = unix.Recvfrom(int(fd), buf, 0)
		if from != nil {
			src = fromSockaddr(from)
		}
		return true
	})
	if readErr != nil {
		return 0, nil, &direrr.NetworkError{Operation: "receive", Err: readErr}
	}
	if sysErr == unix.EAGAIN {
		return 0, nil, errWouldBlock
	}
	if sysErr != nil {
		return 0, nil, &direrr.NetworkError{Operation: "receive", Err: sysErr}
	}
	return n, src, nil
}
