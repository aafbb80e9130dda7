package message

import "testing"

// FuzzParseMessage exercises ParseMessage against arbitrary byte
// sequences. The only requirement is that it never panics: malformed
// input must surface as an error the caller can drop, not a crash —
// this package has no idea yet whether a given datagram came from a
// trusted nameserver or an off-path attacker.
func FuzzParseMessage(f *testing.F) {
	// A well-formed response: one question, one A answer.
	f.Add([]byte{
		0x12, 0x34, // ID
		0x84, 0x00, // Flags: QR=1, AA=1
		0x00, 0x01, // QDCOUNT
		0x00, 0x01, // ANCOUNT
		0x00, 0x00, // NSCOUNT
		0x00, 0x00, // ARCOUNT

		0x04, 't', 'e', 's', 't',
		0x07, 'e', 'x', 'a', 'm', 'p', 'l', 'e',
		0x00,
		0x00, 0x01, // QTYPE = A
		0x00, 0x01, // QCLASS = IN

		0xC0, 0x0C, // name: compression pointer to offset 12
		0x00, 0x01, // TYPE = A
		0x00, 0x01, // CLASS = IN
		0x00, 0x00, 0x00, 0x78, // TTL = 120
		0x00, 0x04, // RDLENGTH = 4
		192, 168, 1, 100,
	})

	// A response carrying an SRV answer, to exercise name decompression
	// inside RDATA once internal/rrdata is handed the buffer.
	f.Add([]byte{
		0x12, 0x34,
		0x84, 0x00,
		0x00, 0x01,
		0x00, 0x01,
		0x00, 0x00,
		0x00, 0x00,

		0x09, 'm', 'y', 's', 'e', 'r', 'v', 'i', 'c', 'e',
		0x05, '_', 'h', 't', 't', 'p',
		0x04, '_', 't', 'c', 'p',
		0x00,
		0x00, 0x21, // QTYPE = SRV
		0x00, 0x01,

		0xC0, 0x0C,
		0x00, 0x21,
		0x00, 0x01,
		0x00, 0x00, 0x00, 0x78,
		0x00, 0x0C,
		0x00, 0x0A, // priority
		0x00, 0x14, // weight
		0x1F, 0x90, // port
		0x04, 'h', 'o', 's', 't',
		0x00,
	})

	f.Add([]byte{0x12, 0x34, 0x84, 0x00}) // shorter than a header

	f.Add([]byte{ // self-referencing compression pointer
		0x12, 0x34,
		0x84, 0x00,
		0x00, 0x01,
		0x00, 0x00,
		0x00, 0x00,
		0x00, 0x00,
		0xC0, 0x0C, // points at its own offset
		0x00, 0x01,
		0x00, 0x01,
	})

	f.Add([]byte{ // compression pointer past the end of the buffer
		0x12, 0x34,
		0x84, 0x00,
		0x00, 0x01,
		0x00, 0x01,
		0x00, 0x00,
		0x00, 0x00,
		0x04, 't', 'e', 's', 't', 0x00,
		0x00, 0x01,
		0x00, 0x01,
		0xC0, 0xC8,
		0x00, 0x01,
		0x00, 0x01,
		0x00, 0x00, 0x00, 0x78,
		0x00, 0x04,
		192, 168, 1, 100,
	})

	f.Fuzz(func(_ *testing.T, data []byte) {
		_, _ = ParseMessage(data)
	})
}
