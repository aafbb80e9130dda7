package message

import (
	"strings"

	"github.com/go-dnscpp/dnscpp/internal/protocol"
)

// Matches reports whether response answers query: the transaction ID
// must agree, and either the opcode is UPDATE (which carries no
// question echo to check) or the question counts are equal and every
// question in response's question section appears (case-insensitively,
// per RFC 1035 §4.1.2 / RFC 4343) in query's. Checking counts and
// requiring every *response* question to be accounted for (not just
// every query question to appear somewhere in the response) guards
// against an off-path injection that pads extra or substituted
// questions alongside one correct one.
func Matches(query, response *Message) bool {
	if query.Header.ID != response.Header.ID {
		return false
	}

	if query.Header.Opcode() == protocol.OpcodeUpdate { // no question echo to verify
		return true
	}

	if len(query.Questions) != len(response.Questions) {
		return false
	}

	for _, rq := range response.Questions {
		if !containsQuestion(query.Questions, rq) {
			return false
		}
	}

	return true
}

func containsQuestion(haystack []Question, needle Question) bool {
	for _, q := range haystack {
		if q.Type == needle.Type && q.Class == needle.Class && strings.EqualFold(q.Name, needle.Name) {
			return true
		}
	}
	return false
}
