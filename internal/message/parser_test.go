package message

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-dnscpp/dnscpp/internal/protocol"
)

// buildResponse hand-assembles a minimal A-record response for
// parser tests, independent of BuildQuery/Compressor.
func buildResponse(t *testing.T, id uint16) []byte {
	t.Helper()

	header := make([]byte, protocol.HeaderSize)
	binary.BigEndian.PutUint16(header[0:2], id)
	binary.BigEndian.PutUint16(header[2:4], protocol.FlagQR|protocol.FlagRD|protocol.FlagRA)
	binary.BigEndian.PutUint16(header[4:6], 1)
	binary.BigEndian.PutUint16(header[6:8], 1)

	qname, err := EncodeName("example.com")
	require.NoError(t, err)

	buf := append([]byte{}, header...)
	buf = append(buf, qname...)
	buf = appendUint16(buf, uint16(protocol.TypeA))
	buf = appendUint16(buf, protocol.ClassIN)

	buf = append(buf, 0xC0, protocol.HeaderSize) // pointer back to qname
	buf = appendUint16(buf, uint16(protocol.TypeA))
	buf = appendUint16(buf, protocol.ClassIN)
	buf = appendUint32(buf, 300)
	buf = appendUint16(buf, 4)
	buf = append(buf, 93, 184, 216, 34)

	return buf
}

func TestParseMessageResponse(t *testing.T) {
	buf := buildResponse(t, 0xABCD)

	msg, err := ParseMessage(buf)
	require.NoError(t, err)

	assert.Equal(t, uint16(0xABCD), msg.Header.ID)
	assert.True(t, msg.Header.QR())
	require.Len(t, msg.Questions, 1)
	assert.Equal(t, "example.com", msg.Questions[0].Name)

	require.Len(t, msg.Answers, 1)
	assert.Equal(t, "example.com", msg.Answers[0].Name)
	assert.Equal(t, protocol.TypeA, msg.Answers[0].Type)
	assert.Equal(t, uint32(300), msg.Answers[0].TTL)
	assert.Equal(t, []byte{93, 184, 216, 34}, msg.Answers[0].RData)
}

func TestParseHeaderRejectsShortBuffer(t *testing.T) {
	_, err := ParseHeader([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestParseRecordRejectsTruncatedRDATA(t *testing.T) {
	qname, _ := EncodeName("x")
	buf := append([]byte{}, qname...)
	buf = appendUint16(buf, uint16(protocol.TypeA))
	buf = appendUint16(buf, protocol.ClassIN)
	buf = appendUint32(buf, 1)
	buf = appendUint16(buf, 10) // claims 10 bytes of rdata but supplies none

	_, _, err := ParseRecord(buf, 0)
	assert.Error(t, err)
}
