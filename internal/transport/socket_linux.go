//go:build linux

package transport

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// recvBufferBytes and sendBufferBytes size each pool socket's kernel
// buffers generously: a resolver issuing a burst of lookups across a
// handful of sockets can easily receive answers faster than the
// event loop drains them between ticks, and the kernel silently
// drops datagrams once its buffer fills.
const (
	recvBufferBytes = 1 << 20
	sendBufferBytes = 1 << 18
)

func setSocketOptions(fd uintptr) error {
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, recvBufferBytes); err != nil {
		return fmt.Errorf("failed to set SO_RCVBUF: %w", err)
	}
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, sendBufferBytes); err != nil {
		return fmt.Errorf("failed to set SO_SNDBUF: %w", err)
	}
	if err := unix.SetNonblock(int(fd), true); err != nil {
		return fmt.Errorf("failed to set O_NONBLOCK: %w", err)
	}
	return nil
}

// platformControl is passed to net.ListenConfig.Control / net.Dialer.Control
// so pool sockets come out already tuned and non-blocking before any
// data crosses them.
func platformControl(_, _ string, c syscall.RawConn) error {
	var sockoptErr error
	err := c.Control(func(fd uintptr) {
		sockoptErr = setSocketOptions(fd)
	})
	if err != nil {
		return fmt.Errorf("raw conn control failed: %w", err)
	}
	return sockoptErr
}

// PlatformControl exposes platformControl for the socket pool
// constructors in this package.
func PlatformControl(network, address string, c syscall.RawConn) error {
	return platformControl(network, address, c)
}
