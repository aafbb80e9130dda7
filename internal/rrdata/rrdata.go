// Package rrdata extracts typed values out of parsed resource record
// RDATA. None of this is part of the query/response engine itself:
// spec.md explicitly scopes per-record-type extractors out of the
// core library, but a usable resolver still needs callers to get a
// net.IP out of an A record rather than four raw bytes, so these
// thin, independent readers live alongside it.
package rrdata

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/go-dnscpp/dnscpp/internal/direrr"
	"github.com/go-dnscpp/dnscpp/internal/message"
	"github.com/go-dnscpp/dnscpp/internal/protocol"
)

// A extracts the IPv4 address of an A record (RFC 1035 §3.4.1).
func A(rr message.Record) (net.IP, error) {
	if rr.Type != protocol.TypeA {
		return nil, wrongType("A", rr.Type)
	}
	if len(rr.RData) != 4 {
		return nil, &direrr.WireFormatError{Operation: "parse A rdata", Message: fmt.Sprintf("expected 4 bytes, got %d", len(rr.RData))}
	}
	return net.IPv4(rr.RData[0], rr.RData[1], rr.RData[2], rr.RData[3]), nil
}

// AAAA extracts the IPv6 address of an AAAA record (RFC 3596 §2.2).
func AAAA(rr message.Record) (net.IP, error) {
	if rr.Type != protocol.TypeAAAA {
		return nil, wrongType("AAAA", rr.Type)
	}
	if len(rr.RData) != 16 {
		return nil, &direrr.WireFormatError{Operation: "parse AAAA rdata", Message: fmt.Sprintf("expected 16 bytes, got %d", len(rr.RData))}
	}
	ip := make(net.IP, 16)
	copy(ip, rr.RData)
	return ip, nil
}

// Name-bearing record types (PTR, CNAME, NS) and SRV/MX targets may be
// compressed, so the caller must supply the full message buffer and
// the record's absolute RDATA offset, not just rr.RData. absOffset is
// the offset of rr.RData[0] within buf.

// PTR extracts the target name of a PTR record (RFC 1035 §3.3.12).
func PTR(buf []byte, absOffset int) (string, error) {
	name, _, err := message.ParseName(buf, absOffset)
	return name, err
}

// CNAME extracts the target name of a CNAME record (RFC 1035 §3.3.1).
func CNAME(buf []byte, absOffset int) (string, error) {
	name, _, err := message.ParseName(buf, absOffset)
	return name, err
}

// TXT extracts the character-string segments of a TXT record
// (RFC 1035 §3.3.14).
func TXT(rr message.Record) ([]string, error) {
	if rr.Type != protocol.TypeTXT {
		return nil, wrongType("TXT", rr.Type)
	}
	var out []string
	offset := 0
	for offset < len(rr.RData) {
		length := int(rr.RData[offset])
		offset++
		if offset+length > len(rr.RData) {
			return nil, &direrr.WireFormatError{Operation: "parse TXT rdata", Offset: offset, Message: "truncated character-string"}
		}
		out = append(out, string(rr.RData[offset:offset+length]))
		offset += length
	}
	return out, nil
}

// MXData is the priority/target pair carried by an MX record.
type MXData struct {
	Preference uint16
	Target     string
}

// MX extracts an MX record's preference and mail exchange target
// (RFC 1035 §3.3.9). The target name may be compressed against buf.
func MX(buf []byte, rr message.Record, absOffset int) (MXData, error) {
	if rr.Type != protocol.TypeMX {
		return MXData{}, wrongType("MX", rr.Type)
	}
	if len(rr.RData) < 2 {
		return MXData{}, &direrr.WireFormatError{Operation: "parse MX rdata", Message: "truncated preference field"}
	}
	target, _, err := message.ParseName(buf, absOffset+2)
	if err != nil {
		return MXData{}, err
	}
	return MXData{Preference: binary.BigEndian.Uint16(rr.RData[0:2]), Target: target}, nil
}

// SRVData is the RFC 2782 payload of an SRV record.
type SRVData struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   string
}

// SRV extracts an SRV record's fields (RFC 2782). Target may be
// compressed against buf.
func SRV(buf []byte, rr message.Record, absOffset int) (SRVData, error) {
	if rr.Type != protocol.TypeSRV {
		return SRVData{}, wrongType("SRV", rr.Type)
	}
	if len(rr.RData) < 6 {
		return SRVData{}, &direrr.WireFormatError{Operation: "parse SRV rdata", Message: "truncated fixed fields"}
	}
	target, _, err := message.ParseName(buf, absOffset+6)
	if err != nil {
		return SRVData{}, err
	}
	return SRVData{
		Priority: binary.BigEndian.Uint16(rr.RData[0:2]),
		Weight:   binary.BigEndian.Uint16(rr.RData[2:4]),
		Port:     binary.BigEndian.Uint16(rr.RData[4:6]),
		Target:   target,
	}, nil
}

// SOAData is the fixed field set of an SOA record (RFC 1035 §3.3.13).
// MName and RName may be compressed against buf.
type SOAData struct {
	MName   string
	RName   string
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

func SOA(buf []byte, rr message.Record, absOffset int) (SOAData, error) {
	if rr.Type != protocol.TypeSOA {
		return SOAData{}, wrongType("SOA", rr.Type)
	}
	mname, next, err := message.ParseName(buf, absOffset)
	if err != nil {
		return SOAData{}, err
	}
	rname, next, err := message.ParseName(buf, next)
	if err != nil {
		return SOAData{}, err
	}
	if next+20 > len(buf) {
		return SOAData{}, &direrr.WireFormatError{Operation: "parse SOA rdata", Offset: next, Message: "truncated fixed fields"}
	}
	return SOAData{
		MName:   mname,
		RName:   rname,
		Serial:  binary.BigEndian.Uint32(buf[next : next+4]),
		Refresh: binary.BigEndian.Uint32(buf[next+4 : next+8]),
		Retry:   binary.BigEndian.Uint32(buf[next+8 : next+12]),
		Expire:  binary.BigEndian.Uint32(buf[next+12 : next+16]),
		Minimum: binary.BigEndian.Uint32(buf[next+16 : next+20]),
	}, nil
}

// CAAData is the payload of a CAA record (RFC 6844 §5).
type CAAData struct {
	Flag  uint8
	Tag   string
	Value string
}

func CAA(rr message.Record) (CAAData, error) {
	if rr.Type != protocol.TypeCAA {
		return CAAData{}, wrongType("CAA", rr.Type)
	}
	if len(rr.RData) < 2 {
		return CAAData{}, &direrr.WireFormatError{Operation: "parse CAA rdata", Message: "truncated flag/tag-length fields"}
	}
	tagLen := int(rr.RData[1])
	if 2+tagLen > len(rr.RData) {
		return CAAData{}, &direrr.WireFormatError{Operation: "parse CAA rdata", Message: "truncated tag"}
	}
	return CAAData{
		Flag:  rr.RData[0],
		Tag:   string(rr.RData[2 : 2+tagLen]),
		Value: string(rr.RData[2+tagLen:]),
	}, nil
}

// RRSIGData is the payload of an RRSIG record (RFC 4034 §3.1). The
// signer's name may be compressed against buf; the signature itself
// is opaque and returned as raw bytes.
type RRSIGData struct {
	TypeCovered protocol.RecordType
	Algorithm   uint8
	Labels      uint8
	OrigTTL     uint32
	Expiration  uint32
	Inception   uint32
	KeyTag      uint16
	SignerName  string
	Signature   []byte
}

func RRSIG(buf []byte, rr message.Record, absOffset int) (RRSIGData, error) {
	if rr.Type != protocol.TypeRRSIG {
		return RRSIGData{}, wrongType("RRSIG", rr.Type)
	}
	if len(rr.RData) < 18 {
		return RRSIGData{}, &direrr.WireFormatError{Operation: "parse RRSIG rdata", Message: "truncated fixed fields"}
	}
	d := rr.RData
	signer, next, err := message.ParseName(buf, absOffset+18)
	if err != nil {
		return RRSIGData{}, err
	}
	return RRSIGData{
		TypeCovered: protocol.RecordType(binary.BigEndian.Uint16(d[0:2])),
		Algorithm:   d[2],
		Labels:      d[3],
		OrigTTL:     binary.BigEndian.Uint32(d[4:8]),
		Expiration:  binary.BigEndian.Uint32(d[8:12]),
		Inception:   binary.BigEndian.Uint32(d[12:16]),
		KeyTag:      binary.BigEndian.Uint16(d[16:18]),
		SignerName:  signer,
		Signature:   buf[next:absOffset+len(rr.RData)],
	}, nil
}

// DNSKEYData is the payload of a DNSKEY record (RFC 4034 §2.1).
type DNSKEYData struct {
	Flags     uint16
	Protocol  uint8
	Algorithm uint8
	PublicKey []byte
}

func DNSKEY(rr message.Record) (DNSKEYData, error) {
	if rr.Type != protocol.TypeDNSKEY {
		return DNSKEYData{}, wrongType("DNSKEY", rr.Type)
	}
	if len(rr.RData) < 4 {
		return DNSKEYData{}, &direrr.WireFormatError{Operation: "parse DNSKEY rdata", Message: "truncated fixed fields"}
	}
	return DNSKEYData{
		Flags:     binary.BigEndian.Uint16(rr.RData[0:2]),
		Protocol:  rr.RData[2],
		Algorithm: rr.RData[3],
		PublicKey: rr.RData[4:],
	}, nil
}

// TLSAData is the payload of a TLSA record (RFC 6698 §2.1).
type TLSAData struct {
	CertUsage    uint8
	Selector     uint8
	MatchingType uint8
	CertData     []byte
}

func TLSA(rr message.Record) (TLSAData, error) {
	if rr.Type != protocol.TypeTLSA {
		return TLSAData{}, wrongType("TLSA", rr.Type)
	}
	if len(rr.RData) < 3 {
		return TLSAData{}, &direrr.WireFormatError{Operation: "parse TLSA rdata", Message: "truncated fixed fields"}
	}
	return TLSAData{
		CertUsage:    rr.RData[0],
		Selector:     rr.RData[1],
		MatchingType: rr.RData[2],
		CertData:     rr.RData[3:],
	}, nil
}

func wrongType(want string, got protocol.RecordType) error {
	return &direrr.ValidationError{Field: "recordType", Value: got.String(), Message: fmt.Sprintf("record is not a %s", want)}
}
