//go:build windows

package transport

import (
	"errors"
	"net"
)

// errWindowsUnsupported is returned by every constructor in this
// package on Windows: the socket pools are built directly on
// golang.org/x/sys/unix raw fd syscalls (SOCK_DGRAM/SOCK_STREAM with
// non-blocking connect), which has no Windows equivalent without a
// separate IOCP-based implementation. The upstream library this one
// is modeled on has the same gap; closing it is future work, not a
// silent behavior change.
var errWindowsUnsupported = errors.New("transport: raw non-blocking socket pools are not implemented on windows")

type UDPSocket struct{}

type UDPPool struct{}

func NewUDPPool(Loop, int, int, func([]byte, *net.UDPAddr), func()) *UDPPool { return &UDPPool{} }

func (p *UDPPool) Send([]byte, *net.UDPAddr) error { return errWindowsUnsupported }
func (p *UDPPool) Close()                          {}
func (p *UDPPool) DrainBacklog(int) int            { return 0 }

type ConnState int

const (
	ConnConnecting ConnState = iota
	ConnConnected
	ConnDraining
	ConnClosed
)

type TCPConn struct{}

func (c *TCPConn) Send([]byte) error  { return errWindowsUnsupported }
func (c *TCPConn) Close()             {}
func (c *TCPConn) State() ConnState   { return ConnClosed }
func (c *TCPConn) Peer() *net.TCPAddr { return nil }

type TCPPool struct{}

func NewTCPPool(Loop, func()) *TCPPool { return &TCPPool{} }

func (p *TCPPool) Get(*net.TCPAddr) (*TCPConn, bool) { return nil, false }
func (p *TCPPool) Dial(*net.TCPAddr, func([]byte), func(error)) (*TCPConn, error) {
	return nil, errWindowsUnsupported
}
func (p *TCPPool) Reap() int            { return 0 }
func (p *TCPPool) DrainBacklog(int) int { return 0 }
func (p *TCPPool) Close()               {}
