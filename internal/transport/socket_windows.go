//go:build windows

package transport

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/windows"
)

const (
	recvBufferBytes = 1 << 20
	sendBufferBytes = 1 << 18
)

func setSocketOptions(fd uintptr) error {
	h := windows.Handle(fd)
	if err := windows.SetsockoptInt(h, windows.SOL_SOCKET, windows.SO_RCVBUF, recvBufferBytes); err != nil {
		return fmt.Errorf("failed to set SO_RCVBUF: %w", err)
	}
	if err := windows.SetsockoptInt(h, windows.SOL_SOCKET, windows.SO_SNDBUF, sendBufferBytes); err != nil {
		return fmt.Errorf("failed to set SO_SNDBUF: %w", err)
	}
	return nil
}

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
