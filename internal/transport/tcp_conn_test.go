//go:build !windows

package transport

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fireWriters invokes every writer callback currently registered for
// fd, standing in for what a real Loop would do once poll reports the
// fd writable.
func fireWriters(loop *mockLoop, fd uintptr) {
	for _, cb := range loop.writers[fd] {
		cb()
	}
}

func fireReaders(loop *mockLoop, fd uintptr) {
	for _, cb := range loop.readers[fd] {
		cb()
	}
}

func TestTCPConnConnectSendReceive(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var lenBuf [2]byte
		if _, err := conn.Read(lenBuf[:]); err != nil {
			return
		}
		size := binary.BigEndian.Uint16(lenBuf[:])
		payload := make([]byte, size)
		if _, err := conn.Read(payload); err != nil {
			return
		}

		response := append([]byte{0, byte(len(payload))}, payload...)
		conn.Write(response)
	}()

	loop := newMockLoop()
	peer := ln.Addr().(*net.TCPAddr)

	var received []byte
	var failed error
	done := make(chan struct{})

	c, err := DialTCP(loop, peer, func(payload []byte) {
		received = payload
		close(done)
	}, func(err error) {
		failed = err
		close(done)
	})
	require.NoError(t, err)
	assert.Equal(t, ConnConnecting, c.State())

	// allow the kernel to complete the loopback handshake, then
	// simulate the Loop noticing the fd is now writable.
	time.Sleep(20 * time.Millisecond)
	fireWriters(loop, c.fd)
	assert.Equal(t, ConnConnected, c.State())

	require.NoError(t, c.Send([]byte("ping")))

	// The response arrives on the fd-readiness callback, but per
	// Finding 1's deferred-dispatch rule that callback only buffers it;
	// onMessage/onError fire only once DrainBacklog is called.
	for i := 0; i < 50 && c.event == nil; i++ {
		time.Sleep(10 * time.Millisecond)
		fireReaders(loop, c.fd)
	}
	require.NotNil(t, c.event, "response should have been buffered by now")

	select {
	case <-done:
		t.Fatal("onMessage must not fire before DrainBacklog runs")
	default:
	}

	assert.Equal(t, 1, c.DrainBacklog(1))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for DrainBacklog to deliver")
	}

	require.NoError(t, failed)
	assert.Equal(t, "ping", string(received))
	assert.Equal(t, ConnDraining, c.State())

	c.Close()
	assert.Equal(t, ConnClosed, c.State())
	<-serverDone
}
