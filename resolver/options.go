package resolver

import (
	"net"
	"time"

	"github.com/go-dnscpp/dnscpp/internal/direrr"
	"github.com/go-dnscpp/dnscpp/internal/resolvconf"
)

// settings accumulates the result of applying every Option over
// whatever New already loaded from resolv.conf; it is folded into the
// Resolver's own fields once all options have run.
type settings struct {
	nameservers []net.IP
	nameserverSet bool

	capacity int
	sockets  int

	interval time.Duration
	expire   time.Duration
	spread   time.Duration
	attempts int
	rotate   bool

	bufferSize int
	dnssec     bool
}

func defaultSettings(conf *resolvconf.Config) *settings {
	return &settings{
		nameservers: conf.Nameservers,
		capacity:    64,
		sockets:     4,
		interval:    time.Duration(conf.Timeout) * time.Second,
		expire:      time.Duration(conf.Timeout*conf.Attempts) * time.Second,
		spread:      50 * time.Millisecond,
		attempts:    conf.Attempts,
		rotate:      conf.Rotate,
		bufferSize:  0,
	}
}

// Option configures a Resolver at construction time.
type Option func(*settings) error

// WithNameserver adds a nameserver to query, appended in the order
// given. Supplying at least one WithNameserver replaces whatever
// /etc/resolv.conf provided rather than adding to it, matching how
// WithInterfaces overrides interface auto-selection in the mDNS
// querier this is modeled on.
func WithNameserver(ip net.IP) Option {
	return func(s *settings) error {
		if ip == nil {
			return &direrr.ValidationError{Field: "nameserver", Value: ip, Message: "nameserver IP must not be nil"}
		}
		if !s.nameserverSet {
			s.nameservers = nil
			s.nameserverSet = true
		}
		s.nameservers = append(s.nameservers, ip)
		return nil
	}
}

// WithCapacity bounds how many lookups may be in flight at once.
// Default: 64.
func WithCapacity(n int) Option {
	return func(s *settings) error {
		if n < 1 {
			return &direrr.ValidationError{Field: "capacity", Value: n, Message: "capacity must be at least 1"}
		}
		s.capacity = n
		return nil
	}
}

// WithSockets sets how many UDP sockets outbound queries are spread
// across. Default: 4.
func WithSockets(n int) Option {
	return func(s *settings) error {
		if n < 1 {
			return &direrr.ValidationError{Field: "sockets", Value: n, Message: "sockets must be at least 1"}
		}
		s.sockets = n
		return nil
	}
}

// WithBufferSize sets the per-read buffer capacity for inbound UDP
// datagrams. Default: 4096 bytes, already large enough for the
// EDNS(0) payload size this resolver advertises; raise it only if a
// nameserver is known to ignore that advertised limit.
func WithBufferSize(n int) Option {
	return func(s *settings) error {
		if n < 512 {
			return &direrr.ValidationError{Field: "bufferSize", Value: n, Message: "bufferSize must be at least 512 bytes"}
		}
		s.bufferSize = n
		return nil
	}
}

// WithInterval sets the delay between repeat rounds against the full
// nameserver list. Default: resolv.conf's timeout option, or 5s.
func WithInterval(d time.Duration) Option {
	return func(s *settings) error {
		if d <= 0 {
			return &direrr.ValidationError{Field: "interval", Value: d, Message: "interval must be positive"}
		}
		s.interval = d
		return nil
	}
}

// WithExpire sets the overall deadline for a single lookup, after
// which it reports a timeout regardless of how many rounds remain.
// Default: resolv.conf's timeout × attempts, or 10s.
func WithExpire(d time.Duration) Option {
	return func(s *settings) error {
		if d <= 0 {
			return &direrr.ValidationError{Field: "expire", Value: d, Message: "expire must be positive"}
		}
		s.expire = d
		return nil
	}
}

// WithTimeout is an alias for WithExpire, named to match resolv.conf's
// own "options timeout:N" vocabulary for callers porting settings
// directly from a resolv.conf file.
func WithTimeout(d time.Duration) Option {
	return WithExpire(d)
}

// WithAttempts sets the attempts value carried in each lookup's
// nameserver configuration. Default: resolv.conf's attempts option, or
// 2. The retry schedule does not read this value: a lookup starts a
// new round every interval until its expire deadline, however many
// rounds that is, and this option does not change the expire default.
func WithAttempts(n int) Option {
	return func(s *settings) error {
		if n < 1 {
			return &direrr.ValidationError{Field: "attempts", Value: n, Message: "attempts must be at least 1"}
		}
		s.attempts = n
		return nil
	}
}

// WithSpread sets the delay between successive datagrams within a
// single round across the nameserver list. Default: 50ms.
func WithSpread(d time.Duration) Option {
	return func(s *settings) error {
		if d < 0 {
			return &direrr.ValidationError{Field: "spread", Value: d, Message: "spread must not be negative"}
		}
		s.spread = d
		return nil
	}
}

// WithRotate enables round-robin nameserver selection starting from a
// pseudo-random offset instead of always starting at the first
// configured nameserver. Default: resolv.conf's rotate option, or
// false.
func WithRotate(enabled bool) Option {
	return func(s *settings) error {
		s.rotate = enabled
		return nil
	}
}

// WithDNSSEC requests the DNSSEC-OK bit on every outgoing query,
// asking nameservers to include signature records in their answers.
// This resolver never validates the chain itself; it only carries the
// bit through.
func WithDNSSEC(enabled bool) Option {
	return func(s *settings) error {
		s.dnssec = enabled
		return nil
	}
}
