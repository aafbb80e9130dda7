package message

import (
	"encoding/binary"
	"fmt"

	"github.com/go-dnscpp/dnscpp/internal/direrr"
	"github.com/go-dnscpp/dnscpp/internal/protocol"
)

// ParseMessage parses a complete DNS message per RFC 1035 §4.1. Resource
// record RDATA is not interpreted here; callers needing typed data
// (addresses, targets, text) use internal/rrdata against the returned
// Record and the original buffer, since names embedded in RDATA may
// carry compression pointers into buf.
func ParseMessage(buf []byte) (*Message, error) {
	header, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}

	offset := protocol.HeaderSize

	questions := make([]Question, 0, header.QDCount)
	for i := uint16(0); i < header.QDCount; i++ {
		q, next, err := ParseQuestion(buf, offset)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
		offset = next
	}

	parseSection := func(count uint16) ([]Record, error) {
		records := make([]Record, 0, count)
		for i := uint16(0); i < count; i++ {
			rr, next, err := ParseRecord(buf, offset)
			if err != nil {
				return nil, err
			}
			records = append(records, rr)
			offset = next
		}
		return records, nil
	}

	answers, err := parseSection(header.ANCount)
	if err != nil {
		return nil, err
	}
	authorities, err := parseSection(header.NSCount)
	if err != nil {
		return nil, err
	}
	additionals, err := parseSection(header.ARCount)
	if err != nil {
		return nil, err
	}

	return &Message{
		Header:      header,
		Questions:   questions,
		Answers:     answers,
		Authorities: authorities,
		Additionals: additionals,
	}, nil
}

// ParseHeader parses the fixed 12-byte DNS message header.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < protocol.HeaderSize {
		return Header{}, &direrr.WireFormatError{
			Operation: "parse header",
			Offset:    0,
			Message:   fmt.Sprintf("message too short for header: %d bytes, expected at least %d", len(buf), protocol.HeaderSize),
		}
	}

	return Header{
		ID:      binary.BigEndian.Uint16(buf[0:2]),
		Flags:   binary.BigEndian.Uint16(buf[2:4]),
		QDCount: binary.BigEndian.Uint16(buf[4:6]),
		ANCount: binary.BigEndian.Uint16(buf[6:8]),
		NSCount: binary.BigEndian.Uint16(buf[8:10]),
		ARCount: binary.BigEndian.Uint16(buf[10:12]),
	}, nil
}

// ParseQuestion parses one question section entry (RFC 1035 §4.1.2).
func ParseQuestion(buf []byte, offset int) (Question, int, error) {
	name, next, err := ParseName(buf, offset)
	if err != nil {
		return Question{}, offset, err
	}

	if next+4 > len(buf) {
		return Question{}, offset, &direrr.WireFormatError{
			Operation: "parse question",
			Offset:    next,
			Message:   "truncated question: not enough bytes for QTYPE and QCLASS",
		}
	}

	qtype := binary.BigEndian.Uint16(buf[next : next+2])
	qclass := binary.BigEndian.Uint16(buf[next+2 : next+4])

	return Question{Name: name, Type: protocol.RecordType(qtype), Class: qclass}, next + 4, nil
}

// ParseRecord parses one resource record (RFC 1035 §4.1.3). RData
// aliases buf; it is not copied.
func ParseRecord(buf []byte, offset int) (Record, int, error) {
	name, next, err := ParseName(buf, offset)
	if err != nil {
		return Record{}, offset, err
	}

	if next+10 > len(buf) {
		return Record{}, offset, &direrr.WireFormatError{
			Operation: "parse record",
			Offset:    next,
			Message:   "truncated record: not enough bytes for fixed fields",
		}
	}

	rtype := binary.BigEndian.Uint16(buf[next : next+2])
	class := binary.BigEndian.Uint16(buf[next+2 : next+4])
	ttl := binary.BigEndian.Uint32(buf[next+4 : next+8])
	rdlength := binary.BigEndian.Uint16(buf[next+8 : next+10])
	next += 10

	if next+int(rdlength) > len(buf) {
		return Record{}, offset, &direrr.WireFormatError{
			Operation: "parse record",
			Offset:    next,
			Message:   fmt.Sprintf("truncated rdata: expected %d bytes, only %d available", rdlength, len(buf)-next),
		}
	}

	rr := Record{
		Name:  name,
		Type:  protocol.RecordType(rtype),
		Class: class,
		TTL:   ttl,
		RData: buf[next : next+int(rdlength)],
	}

	return rr, next + int(rdlength), nil
}
