package rrdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-dnscpp/dnscpp/internal/message"
	"github.com/go-dnscpp/dnscpp/internal/protocol"
)

func TestA(t *testing.T) {
	rr := message.Record{Type: protocol.TypeA, RData: []byte{93, 184, 216, 34}}
	ip, err := A(rr)
	require.NoError(t, err)
	assert.Equal(t, "93.184.216.34", ip.String())
}

func TestAWrongType(t *testing.T) {
	rr := message.Record{Type: protocol.TypeAAAA, RData: []byte{1, 2, 3, 4}}
	_, err := A(rr)
	assert.Error(t, err)
}

func TestTXTMultipleSegments(t *testing.T) {
	rr := message.Record{Type: protocol.TypeTXT, RData: []byte{5, 'h', 'e', 'l', 'l', 'o', 5, 'w', 'o', 'r', 'l', 'd'}}
	segs, err := TXT(rr)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "world"}, segs)
}

func TestCAA(t *testing.T) {
	rr := message.Record{Type: protocol.TypeCAA, RData: append([]byte{0, 5}, []byte("issueletsencrypt.org")...)}
	data, err := CAA(rr)
	require.NoError(t, err)
	assert.Equal(t, "issue", data.Tag)
	assert.Equal(t, "letsencrypt.org", data.Value)
}

func TestSRV(t *testing.T) {
	qname, err := message.EncodeName("target.example.com")
	require.NoError(t, err)

	rdata := append([]byte{0, 1, 0, 2, 0x1F, 0x90}, qname...) // priority 1, weight 2, port 8080
	buf := rdata

	rr := message.Record{Type: protocol.TypeSRV, RData: rdata}
	data, err := SRV(buf, rr, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), data.Priority)
	assert.Equal(t, uint16(2), data.Weight)
	assert.Equal(t, uint16(8080), data.Port)
	assert.Equal(t, "target.example.com", data.Target)
}
