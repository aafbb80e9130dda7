package message

import (
	"encoding/binary"

	"github.com/go-dnscpp/dnscpp/internal/protocol"
)

// QueryOptions controls the optional parts of an encoded query.
type QueryOptions struct {
	// Recursive sets the RD bit, asking the nameserver to recurse on
	// our behalf (the normal stub-resolver case).
	Recursive bool

	// DNSSEC appends an EDNS(0) OPT pseudo-record with the DO bit set,
	// requesting DNSSEC records in the response (RFC 3225, RFC 6891).
	DNSSEC bool
}

// BuildQuery encodes a single-question DNS query per RFC 1035 §4.1 and,
// when opts.DNSSEC is set, an EDNS(0) OPT additional record per
// RFC 6891 §6.1. id is the transaction ID to place in the header; the
// caller obtains it from internal/idgen so that query construction
// stays free of its own randomness source.
func BuildQuery(id uint16, name string, recordType protocol.RecordType, opts QueryOptions) ([]byte, error) {
	name, err := protocol.ToASCII(name)
	if err != nil {
		return nil, err
	}
	if err := protocol.ValidateName(name); err != nil {
		return nil, err
	}
	if err := protocol.ValidateRecordType(uint16(recordType)); err != nil {
		return nil, err
	}

	arCount := uint16(0)
	if opts.DNSSEC {
		arCount = 1
	}

	header := make([]byte, protocol.HeaderSize)
	binary.BigEndian.PutUint16(header[0:2], id)
	flags := uint16(0)
	if opts.Recursive {
		flags |= protocol.FlagRD
	}
	binary.BigEndian.PutUint16(header[2:4], flags)
	binary.BigEndian.PutUint16(header[4:6], 1) // one question
	binary.BigEndian.PutUint16(header[6:8], 0)
	binary.BigEndian.PutUint16(header[8:10], 0)
	binary.BigEndian.PutUint16(header[10:12], arCount)

	c := NewCompressor(header)
	if err := c.WriteName(name); err != nil {
		return nil, err
	}
	c.buf = appendUint16(c.buf, uint16(recordType))
	c.buf = appendUint16(c.buf, protocol.ClassIN)

	if opts.DNSSEC {
		appendOPTRecord(c)
	}

	return c.Bytes(), nil
}

// appendOPTRecord appends an empty-name EDNS(0) pseudo-record with the
// DNSSEC-OK bit set and no options (RFC 6891 §6.1, RFC 3225).
func appendOPTRecord(c *Compressor) {
	c.buf = append(c.buf, 0) // root name
	c.buf = appendUint16(c.buf, uint16(protocol.TypeOPT))
	c.buf = appendUint16(c.buf, protocol.EDNSUDPPayloadSize) // "class" carries UDP payload size
	ttl := uint32(0)<<24 | uint32(protocol.EDNSVersion0)<<16 | protocol.DOBit
	c.buf = appendUint32(c.buf, ttl)
	c.buf = appendUint16(c.buf, 0) // rdlength: no options
}

func appendUint16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}
