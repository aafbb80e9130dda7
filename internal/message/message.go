// Package message implements the DNS wire format: message construction,
// parsing, name compression, and query/response matching, per RFC 1035
// and the EDNS(0)/DNSSEC-OK extensions (RFC 6891, RFC 3225).
//
// This package has no knowledge of sockets, retries, or scheduling; it
// only turns domain questions into bytes and bytes into typed messages.
package message

import "github.com/go-dnscpp/dnscpp/internal/protocol"

// Header is the fixed 12-byte DNS message header (RFC 1035 §4.1.1).
type Header struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

func (h Header) QR() bool { return h.Flags&protocol.FlagQR != 0 }
func (h Header) AA() bool { return h.Flags&protocol.FlagAA != 0 }
func (h Header) TC() bool { return h.Flags&protocol.FlagTC != 0 }
func (h Header) RD() bool { return h.Flags&protocol.FlagRD != 0 }
func (h Header) RA() bool { return h.Flags&protocol.FlagRA != 0 }
func (h Header) AD() bool { return h.Flags&protocol.FlagAD != 0 }
func (h Header) CD() bool { return h.Flags&protocol.FlagCD != 0 }

func (h Header) Opcode() protocol.Opcode {
	return protocol.Opcode((h.Flags >> 11) & 0x0F)
}

func (h Header) RCode() protocol.RCode {
	return protocol.RCode(h.Flags & 0x000F)
}

// Question is one entry of the question section (RFC 1035 §4.1.2).
type Question struct {
	Name  string
	Type  protocol.RecordType
	Class uint16
}

// Record is one entry of the answer/authority/additional section
// (RFC 1035 §4.1.3). RData aliases the buffer the message was parsed
// from; a caller that retains a Record beyond the buffer's lifetime
// must copy RData itself.
type Record struct {
	Name  string
	Type  protocol.RecordType
	Class uint16
	TTL   uint32
	RData []byte
}

// Message is a fully parsed (or about-to-be-encoded) DNS message.
type Message struct {
	Header      Header
	Questions   []Question
	Answers     []Record
	Authorities []Record
	Additionals []Record
}

// OPT returns the EDNS(0) pseudo-record (type 41) from the additional
// section, if present (RFC 6891 §6.1).
func (m *Message) OPT() (Record, bool) {
	for _, rr := range m.Additionals {
		if rr.Type == protocol.TypeOPT {
			return rr, true
		}
	}
	return Record{}, false
}

// RCode returns the full response code, combining the 4-bit header
// RCODE with the 8 extended bits carried in the OPT record's TTL field
// when present (RFC 6891 §6.1.3).
func (m *Message) RCode() protocol.RCode {
	base := uint16(m.Header.RCode())
	if opt, ok := m.OPT(); ok {
		extended := (opt.TTL >> 24) & 0xFF
		base |= uint16(extended) << 4
	}
	return protocol.RCode(base)
}

// DNSSECOK reports whether the OPT record, if any, carries the DO bit
// (RFC 3225).
func (m *Message) DNSSECOK() bool {
	opt, ok := m.OPT()
	if !ok {
		return false
	}
	return opt.TTL&protocol.DOBit != 0
}

// Truncated reports the TC bit unconditionally: this resolver always
// trusts the wire bit rather than second-guessing it (see the first
// Open Question in the design notes).
func (m *Message) Truncated() bool { return m.Header.TC() }
