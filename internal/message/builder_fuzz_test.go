package message

import (
	"testing"

	"github.com/go-dnscpp/dnscpp/internal/protocol"
)

// FuzzBuildQuery exercises the encoder with arbitrary name strings.
// BuildQuery validates its input before writing a single byte, so the
// only requirement here is the same as FuzzParseMessage's: no panics,
// regardless of how malformed or adversarial name is.
func FuzzBuildQuery(f *testing.F) {
	f.Add("example.com", uint16(protocol.TypeA))
	f.Add("", uint16(protocol.TypeA))
	f.Add(".", uint16(protocol.TypeA))
	f.Add("a.b.c.d.e.f.g.h.example.com.", uint16(protocol.TypeSRV))
	f.Add("-leading-hyphen.example.com", uint16(protocol.TypeMX))
	f.Add("très.café.example", uint16(protocol.TypeTXT))

	f.Fuzz(func(_ *testing.T, name string, rtype uint16) {
		_, _ = BuildQuery(1, name, protocol.RecordType(rtype), QueryOptions{Recursive: true})
	})
}
