package protocol

import (
	"fmt"
	"strings"

	"github.com/go-dnscpp/dnscpp/internal/direrr"
	"golang.org/x/net/idna"
)

// ToASCII converts a (possibly internationalized) domain name to its
// ASCII-compatible (punycode) wire form per RFC 5891. Already-ASCII
// names are returned unchanged without running them through the IDNA
// profile at all, since that profile is stricter than this resolver's
// own ValidateName (it rejects the leading underscores SRV/DKIM/ACME
// owner names rely on) and has nothing to convert on a pure-ASCII
// name anyway.
func ToASCII(name string) (string, error) {
	if isASCII(name) {
		return name, nil
	}
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", &direrr.ValidationError{Field: "name", Value: name, Message: "not a valid internationalized domain name: " + err.Error()}
	}
	return ascii, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// ValidateName validates a domain name per RFC 1035 §3.1 before it is
// handed to the wire codec. Invalid names never reach the scheduler: the
// resolver's query() returns a nil handle and issues no callback
// (spec.md §4.6.1 "Inputs at construction").
func ValidateName(name string) error {
	if name == "" {
		return &direrr.ValidationError{
			Field:   "name",
			Value:   name,
			Message: "name cannot be empty",
		}
	}

	trimmed := strings.TrimSuffix(name, ".")
	if trimmed == "" {
		// the root name "." is a valid (if useless) query target
		return nil
	}

	labels := strings.Split(trimmed, ".")

	wireLength := 1 // root terminator
	for _, label := range labels {
		wireLength += 1 + len(label)
	}
	if wireLength > MaxNameLength {
		return &direrr.ValidationError{
			Field:   "name",
			Value:   name,
			Message: fmt.Sprintf("name exceeds maximum wire length %d bytes (got %d) per RFC 1035 §3.1", MaxNameLength, wireLength),
		}
	}

	for i, label := range labels {
		if err := validateLabel(label, i); err != nil {
			return &direrr.ValidationError{Field: "name", Value: name, Message: err.Error()}
		}
	}

	return nil
}

func validateLabel(label string, position int) error {
	if label == "" {
		return fmt.Errorf("empty label at position %d (consecutive dots)", position)
	}
	if len(label) > MaxLabelLength {
		return fmt.Errorf("label %q exceeds maximum length %d bytes per RFC 1035 §3.1", label, MaxLabelLength)
	}
	if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
		return fmt.Errorf("label %q starts or ends with a hyphen (invalid per RFC 1035 §3.1)", label)
	}
	for i, ch := range label {
		if !isValidDNSChar(ch) {
			return fmt.Errorf("invalid character %q in label %q (position %d)", ch, label, i)
		}
	}
	return nil
}

// isValidDNSChar accepts the RFC 1035 letter-digit-hyphen alphabet plus
// underscore, which is not standards-compliant but ubiquitous in the wild
// for SRV-style owner names (_http._tcp.example.com) and DKIM/ACME
// records; rejecting it would break real-world lookups.
func isValidDNSChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' ||
		ch == '_'
}

// ValidateRecordType rejects query types this resolver cannot wire-encode
// or that are nonsensical for a stub resolver to ask for (e.g. AXFR).
func ValidateRecordType(t uint16) error {
	switch RecordType(t) {
	case TypeA, TypeAAAA, TypeNS, TypeCNAME, TypeSOA, TypePTR, TypeMX, TypeTXT,
		TypeSRV, TypeDS, TypeRRSIG, TypeDNSKEY, TypeTLSA, TypeCAA, TypeANY:
		return nil
	default:
		return &direrr.ValidationError{
			Field:   "recordType",
			Value:   t,
			Message: fmt.Sprintf("unsupported record type %d", t),
		}
	}
}
