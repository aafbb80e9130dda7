package lookup

import (
	"net"
	"testing"

	"github.com/go-dnscpp/dnscpp/internal/message"
	"github.com/go-dnscpp/dnscpp/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func successResponse(t *testing.T, name string) []byte {
	t.Helper()
	wire, err := message.BuildResponse(1, message.Question{Name: name, Type: protocol.TypeA, Class: protocol.ClassIN}, []message.Answer{
		{Name: name, Type: protocol.TypeA, TTL: 60, Data: net.ParseIP("1.2.3.4").To4()},
	})
	require.NoError(t, err)
	return wire
}

func TestSearchLookupTriesEachPathUntilSuccess(t *testing.T) {
	handler := &fakeHandler{}
	var attempted []string

	query := func(domain string, rtype protocol.RecordType, h Handler) func() {
		attempted = append(attempted, domain)
		if domain == "host.corp.example" {
			h.OnReceived(successResponse(t, domain+"."))
		} else {
			h.OnTimeout()
		}
		return func() {}
	}

	NewSearchLookup([]string{"local", "corp.example"}, "host", protocol.TypeA, handler, query)

	assert.Equal(t, []string{"host.local", "host.corp.example"}, attempted)
	assert.NotNil(t, handler.received)
}

func TestSearchLookupTriesBareDomainWhenExhausted(t *testing.T) {
	handler := &fakeHandler{}
	var attempted []string

	query := func(domain string, rtype protocol.RecordType, h Handler) func() {
		attempted = append(attempted, domain)
		h.OnTimeout()
		return func() {}
	}

	NewSearchLookup([]string{"a", "b"}, "host", protocol.TypeA, handler, query)

	assert.Equal(t, []string{"host.a", "host.b", "host"}, attempted)
	assert.True(t, handler.timedOut)
}

func TestSearchLookupReportsBareDomainSuccess(t *testing.T) {
	handler := &fakeHandler{}

	query := func(domain string, rtype protocol.RecordType, h Handler) func() {
		if domain == "host" {
			h.OnReceived(successResponse(t, domain+"."))
			return func() {}
		}
		h.OnTimeout()
		return func() {}
	}

	NewSearchLookup([]string{"a", "b"}, "host", protocol.TypeA, handler, query)

	assert.NotNil(t, handler.received)
}

func TestSearchLookupAdvancesOnNoData(t *testing.T) {
	handler := &fakeHandler{}
	var attempted []string

	nodata, err := message.BuildResponse(1, message.Question{Name: "host.a.", Type: protocol.TypeA, Class: protocol.ClassIN}, nil)
	require.NoError(t, err)

	query := func(domain string, rtype protocol.RecordType, h Handler) func() {
		attempted = append(attempted, domain)
		if domain == "host.corp.example" {
			h.OnReceived(successResponse(t, domain+"."))
			return func() {}
		}
		h.OnReceived(nodata)
		return func() {}
	}

	NewSearchLookup([]string{"a", "corp.example"}, "host", protocol.TypeA, handler, query)

	assert.Equal(t, []string{"host.a", "host.corp.example"}, attempted)
	assert.NotNil(t, handler.received)
}

func TestSearchLookupCancelStopsCurrentAttempt(t *testing.T) {
	handler := &fakeHandler{}
	cancelled := false

	query := func(domain string, rtype protocol.RecordType, h Handler) func() {
		return func() { cancelled = true }
	}

	l := NewSearchLookup([]string{"local"}, "host", protocol.TypeA, handler, query)
	l.Cancel()

	assert.True(t, cancelled)
}
