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

// echoServer accepts one connection, reads one length-prefixed frame,
// and echoes it straight back.
func echoServer(t *testing.T) (*net.TCPAddr, <-chan struct{}) {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer ln.Close()
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
		conn.Write(append(lenBuf[:], payload...))
	}()

	return ln.Addr().(*net.TCPAddr), done
}

// TestTCPPoolDrainBacklogDeliversBufferedMessage covers the
// pool-level aggregation of DrainBacklog across connections.
func TestTCPPoolDrainBacklogDeliversBufferedMessage(t *testing.T) {
	loop := newMockLoop()
	peer, serverDone := echoServer(t)

	notified := 0
	pool := NewTCPPool(loop, func() { notified++ })

	var received []byte
	done := make(chan struct{})
	c, err := pool.Dial(peer, func(payload []byte) {
		received = payload
		close(done)
	}, func(error) { close(done) })
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	fireWriters(loop, c.fd)
	require.NoError(t, c.Send([]byte("hi")))

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

	assert.Equal(t, 1, pool.DrainBacklog(10))
	<-done
	assert.Equal(t, "hi", string(received))
	assert.GreaterOrEqual(t, notified, 1)

	c.Close()
	<-serverDone
}

// TestTCPPoolReapLeavesPendingEventAlone covers the fix needed once
// Reap is wired alongside the backlog-draining machinery: a draining
// connection whose event hasn't been drained yet must survive a Reap
// pass, or its buffered response/error would be discarded.
func TestTCPPoolReapLeavesPendingEventAlone(t *testing.T) {
	loop := newMockLoop()
	peer, serverDone := echoServer(t)

	pool := NewTCPPool(loop, nil)

	done := make(chan struct{})
	c, err := pool.Dial(peer, func([]byte) { close(done) }, func(error) { close(done) })
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	fireWriters(loop, c.fd)
	require.NoError(t, c.Send([]byte("hi")))

	for i := 0; i < 50 && c.event == nil; i++ {
		time.Sleep(10 * time.Millisecond)
		fireReaders(loop, c.fd)
	}
	require.NotNil(t, c.event)
	require.Equal(t, ConnDraining, c.State())

	removed := pool.Reap()
	assert.Equal(t, 0, removed, "a draining connection with an undelivered event must not be reaped")
	_, stillThere := pool.Get(peer)
	assert.True(t, stillThere)

	require.Equal(t, 1, pool.DrainBacklog(10))
	<-done

	removed = pool.Reap()
	assert.Equal(t, 1, removed, "once its event is drained, a draining connection is reapable")
	_, stillThere = pool.Get(peer)
	assert.False(t, stillThere)

	<-serverDone
}
