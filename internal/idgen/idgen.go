// Package idgen generates DNS transaction IDs.
//
// A query's 16-bit ID is the only defense a stub resolver has against
// off-path response spoofing alongside the source port, so IDs are
// drawn from crypto/rand rather than math/rand (cf. CVE-2008-1447 /
// the Kaminsky attack class). 0 is excluded from the range so that a
// zeroed buffer can never be mistaken for a real in-flight ID.
package idgen

import (
	"crypto/rand"
	"encoding/binary"
)

// Capacity is the maximum number of transaction IDs that should ever
// be in flight at once: half the 16-bit space, so a free ID is found
// with at least even odds on the first draw.
const Capacity = 1 << 15

// Generator produces DNS transaction IDs.
type Generator struct{}

// New returns a ready-to-use Generator.
func New() *Generator { return &Generator{} }

// Next returns a uniformly random transaction ID in [1, 65535]. A read
// failure against the OS CSPRNG is not expected in practice and is
// treated as fatal rather than silently degrading to a weaker source.
func (g *Generator) Next() uint16 {
	for {
		var b [2]byte
		if _, err := rand.Read(b[:]); err != nil {
			panic("idgen: crypto/rand unavailable: " + err.Error())
		}
		if id := binary.BigEndian.Uint16(b[:]); id != 0 {
			return id
		}
	}
}
