// dnscpp-dig is a minimal dig-style command line client exercising the
// resolver package end to end: it resolves a single name against a
// configured or auto-detected nameserver and prints whatever records
// come back, driven by a single internal/uvloop event loop.
//
// Usage:
//
//	dnscpp-dig [options] NAME [TYPE]
//
// TYPE defaults to A. Recognized types: A, AAAA, CNAME, MX, NS, TXT,
// SRV, PTR, SOA, CAA, DNSKEY, DS, RRSIG, TLSA.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/go-dnscpp/dnscpp/internal/uvloop"
	"github.com/go-dnscpp/dnscpp/resolver"
)

const usage = `Usage: dnscpp-dig [options] NAME [TYPE]

Resolve NAME against a configured (or system-default) nameserver.
TYPE defaults to A.

options:
  -server IP
        Nameserver to query, instead of /etc/resolv.conf's list.
  -timeout DURATION
        Overall deadline for the lookup (default 5s).
  -dnssec
        Set the DNSSEC-OK bit on the outgoing query.
`

var typesByName = map[string]resolver.RecordType{
	"A":      resolver.TypeA,
	"AAAA":   resolver.TypeAAAA,
	"CNAME":  resolver.TypeCNAME,
	"MX":     resolver.TypeMX,
	"NS":     resolver.TypeNS,
	"TXT":    resolver.TypeTXT,
	"SRV":    resolver.TypeSRV,
	"PTR":    resolver.TypePTR,
	"SOA":    resolver.TypeSOA,
	"CAA":    resolver.TypeCAA,
	"DNSKEY": resolver.TypeDNSKEY,
	"DS":     resolver.TypeDS,
	"RRSIG":  resolver.TypeRRSIG,
	"TLSA":   resolver.TypeTLSA,
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("dnscpp-dig", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }

	server := fs.String("server", "", "nameserver to query")
	timeout := fs.Duration("timeout", 5*time.Second, "overall lookup deadline")
	dnssec := fs.Bool("dnssec", false, "set the DNSSEC-OK bit")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) < 1 {
		fs.Usage()
		return 2
	}

	name := rest[0]
	rtype := resolver.TypeA
	if len(rest) > 1 {
		t, ok := typesByName[strings.ToUpper(rest[1])]
		if !ok {
			fmt.Fprintf(os.Stderr, "unrecognized type %q\n", rest[1])
			return 2
		}
		rtype = t
	}

	loop := uvloop.New()

	opts := []resolver.Option{resolver.WithExpire(*timeout), resolver.WithDNSSEC(*dnssec)}
	if *server != "" {
		ip := net.ParseIP(*server)
		if ip == nil {
			fmt.Fprintf(os.Stderr, "invalid -server address %q\n", *server)
			return 2
		}
		opts = append(opts, resolver.WithNameserver(ip))
	}

	res, err := resolver.New(loop, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build resolver: %v\n", err)
		return 1
	}
	defer res.Close()

	h := &digHandler{name: name, rtype: rtype, loop: loop}
	if _, err := res.Query(name, rtype, h); err != nil {
		fmt.Fprintf(os.Stderr, "query rejected: %v\n", err)
		return 1
	}

	if err := loop.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "event loop error: %v\n", err)
		return 1
	}
	return h.exitCode
}

// digHandler prints a single lookup's outcome and stops the loop once
// it has fired exactly one of its three callbacks.
type digHandler struct {
	name     string
	rtype    resolver.RecordType
	loop     *uvloop.Loop
	exitCode int
}

func (h *digHandler) OnResolved(resp *resolver.Response) {
	defer h.loop.Stop()

	if resp.RCode != 0 {
		fmt.Printf(";; response %s for %s %s\n", resp.RCode, h.name, h.rtype)
		h.exitCode = 1
		return
	}
	if len(resp.Records) == 0 {
		fmt.Printf(";; no %s records for %s\n", h.rtype, h.name)
		return
	}

	for _, rec := range resp.Records {
		fmt.Printf("%s\t%d\t%s\t%s\n", rec.Name, rec.TTL, rec.Type, formatData(rec))
	}
}

func (h *digHandler) OnTimeout() {
	fmt.Fprintf(os.Stderr, ";; timed out waiting for an answer\n")
	h.exitCode = 1
	h.loop.Stop()
}

func (h *digHandler) OnCancelled() {
	fmt.Fprintf(os.Stderr, ";; query cancelled\n")
	h.exitCode = 1
	h.loop.Stop()
}

func formatData(rec resolver.Record) string {
	switch rec.Type {
	case resolver.TypeA:
		return rec.AsA().String()
	case resolver.TypeAAAA:
		return rec.AsAAAA().String()
	case resolver.TypeCNAME, resolver.TypePTR:
		return rec.AsName()
	case resolver.TypeTXT:
		return strings.Join(rec.AsTXT(), " ")
	case resolver.TypeMX:
		if mx := rec.AsMX(); mx != nil {
			return fmt.Sprintf("%d %s", mx.Preference, mx.Target)
		}
	case resolver.TypeSRV:
		if srv := rec.AsSRV(); srv != nil {
			return fmt.Sprintf("%d %d %d %s", srv.Priority, srv.Weight, srv.Port, srv.Target)
		}
	}
	return fmt.Sprintf("% x", rec.RawData)
}
