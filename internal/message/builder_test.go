package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-dnscpp/dnscpp/internal/protocol"
)

func TestBuildQueryRoundTrips(t *testing.T) {
	buf, err := BuildQuery(0x1234, "example.com", protocol.TypeA, QueryOptions{Recursive: true})
	require.NoError(t, err)

	msg, err := ParseMessage(buf)
	require.NoError(t, err)

	assert.Equal(t, uint16(0x1234), msg.Header.ID)
	assert.True(t, msg.Header.RD())
	assert.False(t, msg.Header.QR())
	require.Len(t, msg.Questions, 1)
	assert.Equal(t, "example.com", msg.Questions[0].Name)
	assert.Equal(t, protocol.TypeA, msg.Questions[0].Type)
	assert.Equal(t, protocol.ClassIN, msg.Questions[0].Class)
}

func TestBuildQueryWithDNSSECAppendsOPT(t *testing.T) {
	buf, err := BuildQuery(1, "example.com", protocol.TypeA, QueryOptions{DNSSEC: true})
	require.NoError(t, err)

	msg, err := ParseMessage(buf)
	require.NoError(t, err)

	require.Len(t, msg.Additionals, 1)
	opt, ok := msg.OPT()
	require.True(t, ok)
	assert.Equal(t, protocol.TypeOPT, opt.Type)
	assert.True(t, msg.DNSSECOK())
}

func TestBuildQueryWithoutDNSSECHasNoAdditional(t *testing.T) {
	buf, err := BuildQuery(1, "example.com", protocol.TypeA, QueryOptions{})
	require.NoError(t, err)

	msg, err := ParseMessage(buf)
	require.NoError(t, err)

	assert.Empty(t, msg.Additionals)
	assert.False(t, msg.DNSSECOK())
}

func TestBuildQueryRejectsInvalidName(t *testing.T) {
	_, err := BuildQuery(1, "-bad-.com", protocol.TypeA, QueryOptions{})
	assert.Error(t, err)
}

func TestBuildQueryRejectsUnsupportedType(t *testing.T) {
	_, err := BuildQuery(1, "example.com", protocol.RecordType(999), QueryOptions{})
	assert.Error(t, err)
}
