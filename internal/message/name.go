package message

import (
	"fmt"
	"strings"

	"github.com/go-dnscpp/dnscpp/internal/direrr"
	"github.com/go-dnscpp/dnscpp/internal/protocol"
)

// ParseName decodes a DNS name from a message buffer starting at offset,
// following compression pointers per RFC 1035 §4.1.4. It returns the
// dotted name and the offset immediately following the name as it
// appears at the call site (i.e. after a pointer, not after whatever
// the pointer jumped to).
func ParseName(buf []byte, offset int) (name string, newOffset int, err error) {
	if offset < 0 || offset >= len(buf) {
		return "", offset, &direrr.WireFormatError{
			Operation: "parse name",
			Offset:    offset,
			Message:   "offset out of bounds",
		}
	}

	var labels []string
	jumps := 0
	pos := offset
	jumped := false

	for {
		if pos >= len(buf) {
			return "", offset, &direrr.WireFormatError{
				Operation: "parse name",
				Offset:    pos,
				Message:   "unexpected end of message while parsing name",
			}
		}

		length := buf[pos]

		if (length & protocol.CompressionMask) == protocol.CompressionMask {
			if pos+1 >= len(buf) {
				return "", offset, &direrr.WireFormatError{
					Operation: "parse name",
					Offset:    pos,
					Message:   "truncated compression pointer",
				}
			}

			pointerOffset := int(buf[pos]&0x3F)<<8 | int(buf[pos+1])

			if pointerOffset >= pos {
				return "", offset, &direrr.WireFormatError{
					Operation: "parse name",
					Offset:    pos,
					Message:   fmt.Sprintf("invalid compression pointer: points to offset %d (current position %d)", pointerOffset, pos),
				}
			}

			if !jumped {
				newOffset = pos + 2
				jumped = true
			}

			pos = pointerOffset

			jumps++
			if jumps > protocol.MaxCompressionPointers {
				return "", offset, &direrr.WireFormatError{
					Operation: "parse name",
					Offset:    pos,
					Message:   fmt.Sprintf("too many compression jumps (possible loop, exceeded %d jumps)", protocol.MaxCompressionPointers),
				}
			}

			continue
		}

		if length == 0 {
			if !jumped {
				newOffset = pos + 1
			}
			break
		}

		if length > protocol.MaxLabelLength {
			return "", offset, &direrr.WireFormatError{
				Operation: "parse name",
				Offset:    pos,
				Message:   fmt.Sprintf("label length %d exceeds maximum %d bytes per RFC 1035 §3.1", length, protocol.MaxLabelLength),
			}
		}

		if pos+1+int(length) > len(buf) {
			return "", offset, &direrr.WireFormatError{
				Operation: "parse name",
				Offset:    pos,
				Message:   fmt.Sprintf("truncated label: expected %d bytes, only %d available", length, len(buf)-pos-1),
			}
		}

		labels = append(labels, string(buf[pos+1:pos+1+int(length)]))
		pos += 1 + int(length)
	}

	name = strings.Join(labels, ".")

	if len(name) > protocol.MaxNameLength {
		return "", offset, &direrr.WireFormatError{
			Operation: "parse name",
			Offset:    offset,
			Message:   fmt.Sprintf("name length %d exceeds maximum %d bytes per RFC 1035 §3.1", len(name), protocol.MaxNameLength),
		}
	}

	return name, newOffset, nil
}

// splitLabels splits a dotted name into its wire labels, dropping a
// trailing empty label produced by a trailing dot (the root suffix).
func splitLabels(name string) ([]string, error) {
	if name == "" || name == "." {
		return nil, nil
	}

	labels := strings.Split(name, ".")
	if labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}

	for _, label := range labels {
		if label == "" {
			return nil, &direrr.ValidationError{Field: "name", Value: name, Message: "empty label (consecutive dots)"}
		}
		if len(label) > protocol.MaxLabelLength {
			return nil, &direrr.ValidationError{
				Field: "name", Value: name,
				Message: fmt.Sprintf("label %q exceeds maximum length %d bytes per RFC 1035 §3.1", label, protocol.MaxLabelLength),
			}
		}
	}

	return labels, nil
}

// EncodeName encodes a DNS name into wire format with no compression,
// per RFC 1035 §3.1.
func EncodeName(name string) ([]byte, error) {
	labels, err := splitLabels(name)
	if err != nil {
		return nil, err
	}

	encoded := make([]byte, 0, protocol.MaxNameLength)
	for _, label := range labels {
		encoded = append(encoded, byte(len(label)))
		encoded = append(encoded, label...)
	}
	encoded = append(encoded, 0)

	if len(encoded) > protocol.MaxNameLength {
		return nil, &direrr.ValidationError{
			Field: "name", Value: name,
			Message: fmt.Sprintf("encoded name length %d exceeds maximum %d bytes per RFC 1035 §3.1", len(encoded), protocol.MaxNameLength),
		}
	}

	return encoded, nil
}

// Compressor accumulates an encoded message body and maintains a table
// mapping previously-written name suffixes to their offset in the
// buffer, so later names can reuse a compression pointer instead of
// repeating labels (RFC 1035 §4.1.4). Per spec.md §4.1 the table is
// capped at 20 entries: beyond that, further suffixes are written out
// in full rather than tracked, trading a few wasted bytes for a bound
// on compressor bookkeeping.
type Compressor struct {
	buf   []byte
	table map[string]uint16 // canonical (lowercased) suffix -> wire offset
}

// NewCompressor creates a Compressor that will append to buf, treating
// buf's current contents (if any) as already on the wire for pointer
// offset purposes.
func NewCompressor(buf []byte) *Compressor {
	return &Compressor{buf: buf, table: make(map[string]uint16, 20)}
}

// Bytes returns the buffer built so far.
func (c *Compressor) Bytes() []byte { return c.buf }

const maxCompressionTableEntries = 20

// WriteName appends name to the buffer, emitting a compression pointer
// for the longest suffix already present in the table, and recording
// the offsets of its own new suffixes for reuse by later names.
func (c *Compressor) WriteName(name string) error {
	labels, err := splitLabels(name)
	if err != nil {
		return err
	}

	// suffixes[i] is the dotted suffix starting at labels[i].
	for i := 0; i < len(labels); i++ {
		suffix := strings.ToLower(strings.Join(labels[i:], "."))
		if ptr, ok := c.table[suffix]; ok {
			for j := 0; j < i; j++ {
				c.recordSuffix(strings.ToLower(strings.Join(labels[j:], ".")))
				c.buf = append(c.buf, byte(len(labels[j])))
				c.buf = append(c.buf, labels[j]...)
			}
			c.buf = append(c.buf, byte(protocol.CompressionMask)|byte(ptr>>8), byte(ptr))
			return nil
		}
	}

	// No reusable suffix found: write every label in full, recording
	// each suffix's offset as we go.
	for i := 0; i < len(labels); i++ {
		c.recordSuffix(strings.ToLower(strings.Join(labels[i:], ".")))
		c.buf = append(c.buf, byte(len(labels[i])))
		c.buf = append(c.buf, labels[i]...)
	}
	c.buf = append(c.buf, 0)
	return nil
}

func (c *Compressor) recordSuffix(suffix string) {
	if len(c.table) >= maxCompressionTableEntries {
		return
	}
	offset := len(c.buf)
	if offset > 0x3FFF {
		// beyond what a 14-bit pointer can address; not tracked
		return
	}
	if _, exists := c.table[suffix]; !exists {
		c.table[suffix] = uint16(offset)
	}
}
