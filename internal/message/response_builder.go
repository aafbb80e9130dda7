package message

import "github.com/go-dnscpp/dnscpp/internal/protocol"

// Answer is one answer-section record to emit from BuildResponse. Data
// holds already wire-encoded rdata (e.g. a 4- or 16-byte address) for
// fixed-size types; DataName holds an uncompressed domain name for
// name-valued types (PTR, CNAME) and takes precedence over Data when
// set, since it still needs to go through the compressor.
type Answer struct {
	Name     string
	Type     protocol.RecordType
	TTL      uint32
	Data     []byte
	DataName string
}

// BuildResponse assembles a synthetic DNS response: one question plus
// zero or more answers, with AA set and RCode set to RCodeSuccess.
// It is used for local answers that never touch the network (the
// hosts table and any other static-answer source), mirroring a real
// nameserver reply closely enough that callers cannot tell the
// difference from the wire alone.
func BuildResponse(id uint16, question Question, answers []Answer) ([]byte, error) {
	header := make([]byte, protocol.HeaderSize)
	appendHeader(header, id, question, answers)

	c := NewCompressor(header)
	if err := c.WriteName(question.Name); err != nil {
		return nil, err
	}
	c.buf = appendUint16(c.buf, uint16(question.Type))
	c.buf = appendUint16(c.buf, question.Class)

	for _, a := range answers {
		if err := c.WriteName(a.Name); err != nil {
			return nil, err
		}
		c.buf = appendUint16(c.buf, uint16(a.Type))
		c.buf = appendUint16(c.buf, protocol.ClassIN)
		c.buf = appendUint32(c.buf, a.TTL)

		if a.DataName != "" {
			rdlenOffset := len(c.buf)
			c.buf = appendUint16(c.buf, 0) // placeholder, patched below
			before := len(c.buf)
			if err := c.WriteName(a.DataName); err != nil {
				return nil, err
			}
			rdlen := len(c.buf) - before
			c.buf[rdlenOffset] = byte(rdlen >> 8)
			c.buf[rdlenOffset+1] = byte(rdlen)
			continue
		}

		c.buf = appendUint16(c.buf, uint16(len(a.Data)))
		c.buf = append(c.buf, a.Data...)
	}

	return c.Bytes(), nil
}

func appendHeader(header []byte, id uint16, question Question, answers []Answer) {
	appendUint16InPlace(header[0:2], id)
	flags := uint16(protocol.FlagQR) | uint16(protocol.FlagAA)
	appendUint16InPlace(header[2:4], flags)
	appendUint16InPlace(header[4:6], 1)
	appendUint16InPlace(header[6:8], uint16(len(answers)))
	appendUint16InPlace(header[8:10], 0)
	appendUint16InPlace(header[10:12], 0)
}

func appendUint16InPlace(dst []byte, v uint16) {
	dst[0] = byte(v >> 8)
	dst[1] = byte(v)
}
