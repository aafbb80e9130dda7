// Package resolver provides a high-level, event-loop-agnostic API for
// issuing asynchronous DNS lookups.
//
// # Overview
//
// The resolver package implements a stub resolver per RFC 1035: it
// sends queries to configured nameservers, retries across rounds,
// falls back from UDP to TCP on truncation, expands relative names
// against a search path, and short-circuits lookups already answered
// by a hosts file — all without blocking a goroutine or taking an
// internal lock. Every operation runs to completion inside callbacks
// driven by a caller-supplied transport.Loop.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//	    "net"
//
//	    "github.com/go-dnscpp/dnscpp/resolver"
//	    "github.com/go-dnscpp/dnscpp/internal/uvloop"
//	)
//
//	type printHandler struct{ done func() }
//
//	func (h *printHandler) OnResolved(r *resolver.Response) {
//	    for _, rec := range r.Records {
//	        if ip := rec.AsA(); ip != nil {
//	            fmt.Println("found", ip)
//	        }
//	    }
//	    h.done()
//	}
//	func (h *printHandler) OnTimeout()   { h.done() }
//	func (h *printHandler) OnCancelled() { h.done() }
//
//	func main() {
//	    loop := uvloop.New()
//	    res, err := resolver.New(loop, resolver.WithNameserver(net.ParseIP("1.1.1.1")))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer res.Close()
//
//	    _, err = res.Query("example.com", resolver.TypeA, &printHandler{done: loop.Stop})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    loop.Run()
//	}
//
// # Configuration
//
// New reads /etc/resolv.conf and /etc/hosts by default (when present)
// and accepts functional options to override individual settings:
// WithNameserver, WithCapacity, WithInterval, WithExpire, WithTimeout,
// WithAttempts, WithSpread, WithRotate, WithSockets, WithBufferSize,
// and WithDNSSEC.
//
// # Concurrency
//
// A Resolver is not safe for concurrent use from multiple goroutines.
// It is driven entirely by the transport.Loop passed to New, and every
// method is expected to be called from that same loop's goroutine —
// the same cooperative, single-threaded model as the loop itself.
package resolver
