package resolver

import (
	"net"

	"github.com/go-dnscpp/dnscpp/internal/message"
	"github.com/go-dnscpp/dnscpp/internal/protocol"
	"github.com/go-dnscpp/dnscpp/internal/rrdata"
)

// RecordType is a DNS resource record type. The predeclared Type*
// constants, plus ANY, are the types Query accepts; any other value
// is rejected. Answer records whose type internal/rrdata does not
// decode keep a nil Record.Data, and the caller interprets
// Record.RawData itself.
type RecordType uint16

const (
	TypeA      RecordType = RecordType(protocol.TypeA)
	TypeNS     RecordType = RecordType(protocol.TypeNS)
	TypeCNAME  RecordType = RecordType(protocol.TypeCNAME)
	TypeSOA    RecordType = RecordType(protocol.TypeSOA)
	TypePTR    RecordType = RecordType(protocol.TypePTR)
	TypeMX     RecordType = RecordType(protocol.TypeMX)
	TypeTXT    RecordType = RecordType(protocol.TypeTXT)
	TypeAAAA   RecordType = RecordType(protocol.TypeAAAA)
	TypeSRV    RecordType = RecordType(protocol.TypeSRV)
	TypeDS     RecordType = RecordType(protocol.TypeDS)
	TypeRRSIG  RecordType = RecordType(protocol.TypeRRSIG)
	TypeDNSKEY RecordType = RecordType(protocol.TypeDNSKEY)
	TypeTLSA   RecordType = RecordType(protocol.TypeTLSA)
	TypeCAA    RecordType = RecordType(protocol.TypeCAA)
)

func (t RecordType) String() string { return protocol.RecordType(t).String() }

// Response is a resolved DNS message, handed to Handler.OnResolved.
type Response struct {
	// RCode is the response code the nameserver returned (e.g.
	// NOERROR, NXDOMAIN); a non-success RCode still carries a
	// Response rather than routing through OnTimeout or OnCancelled —
	// only "nobody answered in time" and "the caller gave up" do.
	RCode protocol.RCode

	// Authoritative reports whether the AA bit was set.
	Authoritative bool

	// Records holds every answer-section record, decoded where
	// internal/rrdata knows how.
	Records []Record
}

// Record is one decoded answer-section resource record.
type Record struct {
	Name  string
	Type  RecordType
	Class uint16
	TTL   uint32

	// Data holds the type-specific decoded value:
	//   - A/AAAA: net.IP
	//   - PTR/CNAME: string (target name)
	//   - MX: rrdata.MXData
	//   - SRV: rrdata.SRVData
	//   - TXT: []string
	//   - SOA: rrdata.SOAData
	//   - CAA: rrdata.CAAData
	//   - DNSKEY/TLSA/RRSIG: the corresponding rrdata struct
	//   - anything else: nil; use RawData for the undecoded bytes
	Data interface{}

	RawData []byte
}

// AsA returns the address for an A record, or nil otherwise.
func (r Record) AsA() net.IP {
	ip, _ := r.Data.(net.IP)
	if r.Type != TypeA {
		return nil
	}
	return ip
}

// AsAAAA returns the address for an AAAA record, or nil otherwise.
func (r Record) AsAAAA() net.IP {
	ip, _ := r.Data.(net.IP)
	if r.Type != TypeAAAA {
		return nil
	}
	return ip
}

// AsName returns the target name for a PTR or CNAME record, or "" otherwise.
func (r Record) AsName() string {
	switch r.Type {
	case TypePTR, TypeCNAME:
		name, _ := r.Data.(string)
		return name
	default:
		return ""
	}
}

// AsTXT returns the character-string segments of a TXT record, or
// nil otherwise.
func (r Record) AsTXT() []string {
	if r.Type != TypeTXT {
		return nil
	}
	txt, _ := r.Data.([]string)
	return txt
}

// AsMX returns the preference/target pair of an MX record, or nil
// otherwise.
func (r Record) AsMX() *rrdata.MXData {
	if r.Type != TypeMX {
		return nil
	}
	mx, ok := r.Data.(rrdata.MXData)
	if !ok {
		return nil
	}
	return &mx
}

// AsSRV returns the RFC 2782 fields of an SRV record, or nil
// otherwise.
func (r Record) AsSRV() *rrdata.SRVData {
	if r.Type != TypeSRV {
		return nil
	}
	srv, ok := r.Data.(rrdata.SRVData)
	if !ok {
		return nil
	}
	return &srv
}

// newResponse decodes every answer-section record of msg (buf is the
// original wire bytes, needed because compressible record types carry
// absolute offsets into it).
func newResponse(buf []byte, msg *message.Message) *Response {
	resp := &Response{
		RCode:         msg.RCode(),
		Authoritative: msg.Header.AA(),
	}

	for _, rr := range msg.Answers {
		rec := Record{Name: rr.Name, Type: RecordType(rr.Type), Class: rr.Class, TTL: rr.TTL, RawData: rr.RData}
		rec.Data = decodeRData(buf, rr)
		resp.Records = append(resp.Records, rec)
	}
	return resp
}

// decodeRData resolves rr's typed value, if internal/rrdata knows how
// to decode rr.Type. abs is rr.RData's absolute offset within buf,
// needed for record types whose target name may be compressed.
func decodeRData(buf []byte, rr message.Record) interface{} {
	abs := rdataOffset(buf, rr.RData)

	switch rr.Type {
	case protocol.TypeA:
		if ip, err := rrdata.A(rr); err == nil {
			return ip
		}
	case protocol.TypeAAAA:
		if ip, err := rrdata.AAAA(rr); err == nil {
			return ip
		}
	case protocol.TypePTR:
		if name, err := rrdata.PTR(buf, abs); err == nil {
			return name
		}
	case protocol.TypeCNAME:
		if name, err := rrdata.CNAME(buf, abs); err == nil {
			return name
		}
	case protocol.TypeTXT:
		if txt, err := rrdata.TXT(rr); err == nil {
			return txt
		}
	case protocol.TypeMX:
		if mx, err := rrdata.MX(buf, rr, abs); err == nil {
			return mx
		}
	case protocol.TypeSRV:
		if srv, err := rrdata.SRV(buf, rr, abs); err == nil {
			return srv
		}
	case protocol.TypeSOA:
		if soa, err := rrdata.SOA(buf, rr, abs); err == nil {
			return soa
		}
	case protocol.TypeCAA:
		if caa, err := rrdata.CAA(rr); err == nil {
			return caa
		}
	case protocol.TypeDNSKEY:
		if key, err := rrdata.DNSKEY(rr); err == nil {
			return key
		}
	case protocol.TypeTLSA:
		if tlsa, err := rrdata.TLSA(rr); err == nil {
			return tlsa
		}
	case protocol.TypeRRSIG:
		if sig, err := rrdata.RRSIG(buf, rr, abs); err == nil {
			return sig
		}
	}
	return nil
}

// rdataOffset recovers rr.RData's absolute position within buf by
// pointer arithmetic on the slice header; every Record this package
// decodes was produced by message.ParseMessage against buf, so RData
// is always a sub-slice of it.
func rdataOffset(buf []byte, rdata []byte) int {
	if len(buf) == 0 || len(rdata) == 0 {
		return 0
	}
	return cap(buf) - cap(rdata)
}
