// Package reverse converts between IP addresses and the in-addr.arpa /
// ip6.arpa names used for PTR lookups.
package reverse

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-dnscpp/dnscpp/internal/direrr"
)

// Name builds the PTR query name for ip: reversed dotted-decimal
// octets under in-addr.arpa for IPv4, reversed nibbles under ip6.arpa
// for IPv6.
func Name(ip net.IP) string {
	if v4 := ip.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.%d.in-addr.arpa.", v4[3], v4[2], v4[1], v4[0])
	}

	v6 := ip.To16()
	var b strings.Builder
	for i := len(v6) - 1; i >= 0; i-- {
		b.WriteString(strconv.FormatUint(uint64(v6[i]&0xf), 16))
		b.WriteByte('.')
		b.WriteString(strconv.FormatUint(uint64(v6[i]>>4), 16))
		b.WriteByte('.')
	}
	b.WriteString("ip6.arpa.")
	return b.String()
}

// ParseName recovers the IP address encoded in a PTR query name,
// rejecting anything that isn't a well-formed in-addr.arpa/ip6.arpa
// name.
func ParseName(name string) (net.IP, error) {
	name = strings.TrimSuffix(name, ".")
	lower := strings.ToLower(name)

	switch {
	case strings.HasSuffix(lower, ".in-addr.arpa"):
		return parseV4(name[:len(name)-len(".in-addr.arpa")])
	case strings.HasSuffix(lower, ".ip6.arpa"):
		return parseV6(name[:len(name)-len(".ip6.arpa")])
	default:
		return nil, &direrr.ValidationError{Field: "name", Value: name, Message: "not a reverse-lookup name"}
	}
}

func parseV4(labels string) (net.IP, error) {
	parts := strings.Split(labels, ".")
	if len(parts) != 4 {
		return nil, &direrr.ValidationError{Field: "name", Value: labels, Message: "malformed in-addr.arpa name"}
	}

	ip := make(net.IP, 4)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 255 {
			return nil, &direrr.ValidationError{Field: "name", Value: part, Message: "malformed in-addr.arpa octet"}
		}
		ip[3-i] = byte(n)
	}
	return ip, nil
}

func parseV6(labels string) (net.IP, error) {
	parts := strings.Split(labels, ".")
	if len(parts) != 32 {
		return nil, &direrr.ValidationError{Field: "name", Value: labels, Message: "malformed ip6.arpa name"}
	}

	ip := make(net.IP, 16)
	for i := 0; i < 16; i++ {
		lo, err := strconv.ParseUint(parts[i*2], 16, 8)
		if err != nil {
			return nil, &direrr.ValidationError{Field: "name", Value: parts[i*2], Message: "malformed ip6.arpa nibble"}
		}
		hi, err := strconv.ParseUint(parts[i*2+1], 16, 8)
		if err != nil {
			return nil, &direrr.ValidationError{Field: "name", Value: parts[i*2+1], Message: "malformed ip6.arpa nibble"}
		}
		ip[15-i] = byte(hi<<4 | lo)
	}
	return ip, nil
}
