package hosts

import (
	"github.com/go-dnscpp/dnscpp/internal/message"
	"github.com/go-dnscpp/dnscpp/internal/protocol"
	"github.com/go-dnscpp/dnscpp/internal/reverse"
)

// staticTTL is the TTL reported for every synthesized answer. The
// underlying hosts file has no TTL concept of its own; a short,
// fixed value keeps callers from caching a hosts-table answer across
// a file edit for any meaningful length of time.
const staticTTL = 0

// Answer builds a synthetic wire-format response for question out of
// t's entries, and reports whether any matching entry was found. A
// PTR question is answered by reverse lookup; every other question
// type is answered by forward lookup, filtered to the matching
// address family.
func (t *Table) Answer(id uint16, question message.Question) ([]byte, bool) {
	var answers []message.Answer

	switch question.Type {
	case protocol.TypePTR:
		ip, err := reverse.ParseName(question.Name)
		if err == nil {
			for _, name := range t.LookupAddrAll(ip) {
				answers = append(answers, message.Answer{
					Name:     question.Name,
					Type:     protocol.TypePTR,
					TTL:      staticTTL,
					DataName: name,
				})
			}
		}

	case protocol.TypeA:
		for _, ip := range t.LookupHost(question.Name, 4) {
			answers = append(answers, message.Answer{
				Name: question.Name,
				Type: protocol.TypeA,
				TTL:  staticTTL,
				Data: ip.To4(),
			})
		}

	case protocol.TypeAAAA:
		for _, ip := range t.LookupHost(question.Name, 6) {
			answers = append(answers, message.Answer{
				Name: question.Name,
				Type: protocol.TypeAAAA,
				TTL:  staticTTL,
				Data: ip.To16(),
			})
		}
	}

	if len(answers) == 0 {
		return nil, false
	}

	wire, err := message.BuildResponse(id, question, answers)
	if err != nil {
		return nil, false
	}
	return wire, true
}

// Contains reports whether question's name is known to t at all,
// independent of address family or whether Answer would actually
// synthesize a record for it. It backs the NXDOMAIN-override case: a
// remote nameserver's "no such name" is only overridden when the
// hosts table recognizes the name as present, not when it happens to
// also be able to answer the specific type asked.
func (t *Table) Contains(question message.Question) bool {
	if question.Type == protocol.TypePTR {
		ip, err := reverse.ParseName(question.Name)
		if err != nil {
			return false
		}
		_, ok := t.LookupAddr(ip)
		return ok
	}
	return len(t.host2ip[canonical(question.Name)]) > 0
}
