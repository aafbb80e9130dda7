package hosts

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-dnscpp/dnscpp/internal/message"
	"github.com/go-dnscpp/dnscpp/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHostsFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAndLookupHost(t *testing.T) {
	path := writeHostsFile(t, "127.0.0.1 localhost\n::1 localhost\n10.0.0.5 db.internal db\n# comment\n\n")

	table := New()
	require.NoError(t, table.Load(path))

	v4 := table.LookupHost("localhost", 4)
	require.Len(t, v4, 1)
	assert.Equal(t, "127.0.0.1", v4[0].String())

	v6 := table.LookupHost("LOCALHOST", 6)
	require.Len(t, v6, 1)
	assert.Equal(t, "::1", v6[0].String())

	both := table.LookupHost("db", 0)
	require.Len(t, both, 1)
	assert.Equal(t, "10.0.0.5", both[0].String())
}

func TestLookupAddr(t *testing.T) {
	path := writeHostsFile(t, "10.0.0.5 db.internal db\n")

	table := New()
	require.NoError(t, table.Load(path))

	name, ok := table.LookupAddr(net.ParseIP("10.0.0.5"))
	require.True(t, ok)
	assert.Equal(t, "db.internal", name)

	_, ok = table.LookupAddr(net.ParseIP("10.0.0.6"))
	assert.False(t, ok)
}

func TestAnswerSynthesizesA(t *testing.T) {
	path := writeHostsFile(t, "10.0.0.5 db.internal\n")
	table := New()
	require.NoError(t, table.Load(path))

	wire, ok := table.Answer(42, message.Question{Name: "db.internal.", Type: protocol.TypeA, Class: protocol.ClassIN})
	require.True(t, ok)

	parsed, err := message.ParseMessage(wire)
	require.NoError(t, err)
	require.Len(t, parsed.Answers, 1)
	assert.Equal(t, protocol.TypeA, parsed.Answers[0].Type)
	assert.True(t, parsed.Header.AA())
}

func TestAnswerNoMatchReturnsFalse(t *testing.T) {
	table := New()
	_, ok := table.Answer(1, message.Question{Name: "nowhere.example.", Type: protocol.TypeA, Class: protocol.ClassIN})
	assert.False(t, ok)
}

func TestAnswerPTRReverseLookup(t *testing.T) {
	path := writeHostsFile(t, "10.0.0.5 db.internal\n")
	table := New()
	require.NoError(t, table.Load(path))

	wire, ok := table.Answer(7, message.Question{Name: "5.0.0.10.in-addr.arpa.", Type: protocol.TypePTR, Class: protocol.ClassIN})
	require.True(t, ok)

	parsed, err := message.ParseMessage(wire)
	require.NoError(t, err)
	require.Len(t, parsed.Answers, 1)
	assert.Equal(t, protocol.TypePTR, parsed.Answers[0].Type)
}

func TestAnswerPTREmitsOneRecordPerHostname(t *testing.T) {
	path := writeHostsFile(t, "10.0.0.5 db.internal\n10.0.0.5 db\n")
	table := New()
	require.NoError(t, table.Load(path))

	wire, ok := table.Answer(7, message.Question{Name: "5.0.0.10.in-addr.arpa.", Type: protocol.TypePTR, Class: protocol.ClassIN})
	require.True(t, ok)

	parsed, err := message.ParseMessage(wire)
	require.NoError(t, err)
	require.Len(t, parsed.Answers, 2)
	assert.Equal(t, protocol.TypePTR, parsed.Answers[0].Type)
	assert.Equal(t, protocol.TypePTR, parsed.Answers[1].Type)
}

func TestContainsForwardAndReverse(t *testing.T) {
	path := writeHostsFile(t, "10.0.0.5 db.internal\n")
	table := New()
	require.NoError(t, table.Load(path))

	assert.True(t, table.Contains(message.Question{Name: "db.internal.", Type: protocol.TypeA, Class: protocol.ClassIN}))
	assert.False(t, table.Contains(message.Question{Name: "nowhere.example.", Type: protocol.TypeA, Class: protocol.ClassIN}))
	assert.True(t, table.Contains(message.Question{Name: "5.0.0.10.in-addr.arpa.", Type: protocol.TypePTR, Class: protocol.ClassIN}))
}
