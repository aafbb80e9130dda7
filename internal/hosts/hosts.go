// Package hosts parses /etc/hosts-style files and answers lookups
// against the host-to-address and address-to-host tables they define,
// same as the static entries any libc resolver consults before ever
// touching the network.
package hosts

import (
	"bufio"
	"net"
	"os"
	"strings"
)

// Table holds the parsed contents of one or more hosts files, merged
// together in the order they were loaded.
type Table struct {
	host2ip map[string][]net.IP
	ip2host map[string][]string
}

// New returns an empty table.
func New() *Table {
	return &Table{host2ip: make(map[string][]net.IP), ip2host: make(map[string][]string)}
}

// Load reads filename and merges its entries into t. Lines already
// present are not replaced; later files only add entries, matching the
// additive semantics of repeated /etc/hosts-style loads.
func (t *Table) Load(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		t.parseLine(scanner.Text())
	}
	return scanner.Err()
}

func (t *Table) parseLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return
	}

	ip := net.ParseIP(fields[0])
	if ip == nil {
		return
	}

	for _, hostname := range fields[1:] {
		if strings.HasPrefix(hostname, "#") {
			break
		}
		t.host2ip[canonical(hostname)] = append(t.host2ip[canonical(hostname)], ip)
		t.ip2host[ip.String()] = append(t.ip2host[ip.String()], hostname)
	}
}

func canonical(hostname string) string {
	return strings.ToLower(strings.TrimSuffix(hostname, "."))
}

// LookupHost returns every address on record for hostname, optionally
// filtered to IPv4-only (version 4) or IPv6-only (version 6). version
// 0 returns every address regardless of family.
func (t *Table) LookupHost(hostname string, version int) []net.IP {
	addrs := t.host2ip[canonical(hostname)]
	if version == 0 {
		return addrs
	}

	var out []net.IP
	for _, ip := range addrs {
		is4 := ip.To4() != nil
		if (version == 4) == is4 {
			out = append(out, ip)
		}
	}
	return out
}

// LookupAddr returns the hostname on record for ip, and whether one
// was found. When more than one hostname maps to ip, the first one
// encountered while loading is returned; callers needing every
// hostname (a PTR answer synthesizes one record per name) should use
// LookupAddrAll instead.
func (t *Table) LookupAddr(ip net.IP) (string, bool) {
	names := t.ip2host[ip.String()]
	if len(names) == 0 {
		return "", false
	}
	return names[0], true
}

// LookupAddrAll returns every hostname on record for ip, in the order
// they were loaded.
func (t *Table) LookupAddrAll(ip net.IP) []string {
	return t.ip2host[ip.String()]
}
