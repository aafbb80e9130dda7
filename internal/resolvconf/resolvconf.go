// Package resolvconf parses resolv.conf-style configuration files:
// nameserver / search / domain / options directives.
package resolvconf

import (
	"bufio"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/go-dnscpp/dnscpp/internal/direrr"
)

// Defaults mirror the common libc resolver defaults applied whenever
// the relevant option is absent from the file.
const (
	DefaultTimeoutSeconds  = 5
	DefaultAttempts        = 2
	DefaultNdots           = 1
	MaxTimeoutSeconds      = 30
	MaxAttempts            = 5
)

// Config is the parsed contents of one or more resolv.conf files.
type Config struct {
	Nameservers []net.IP
	// SearchPaths holds the search list; the most recent "search"
	// directive in the file replaces the whole list rather than
	// appending to it (see DESIGN.md Open Question 2).
	SearchPaths []string
	Rotate      bool
	Timeout     int
	Attempts    int
	Ndots       int
}

// New returns a Config populated with defaults and no nameservers.
func New() *Config {
	return &Config{Timeout: DefaultTimeoutSeconds, Attempts: DefaultAttempts, Ndots: DefaultNdots}
}

// Load parses filename into a fresh Config.
func Load(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &direrr.NetworkError{Operation: "open resolv.conf", Err: err}
	}
	defer f.Close()

	cfg := New()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		cfg.parseLine(strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, &direrr.NetworkError{Operation: "read resolv.conf", Err: err}
	}

	if len(cfg.SearchPaths) == 0 {
		if hostname, err := os.Hostname(); err == nil {
			cfg.SearchPaths = []string{hostname}
		}
	}

	return cfg, nil
}

func (c *Config) parseLine(line string) {
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
		return
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return
	}

	directive, rest := strings.ToLower(fields[0]), fields[1:]
	switch directive {
	case "nameserver":
		if ip := net.ParseIP(rest[0]); ip != nil {
			c.Nameservers = append(c.Nameservers, ip)
		}
	case "search":
		// last directive wins: replace, don't append.
		c.SearchPaths = append([]string{}, rest...)
	case "domain":
		// a single domain behaves like a one-entry search list.
		c.SearchPaths = rest[:1]
	case "options":
		for _, opt := range rest {
			c.applyOption(opt)
		}
	}
}

func (c *Config) applyOption(opt string) {
	switch {
	case opt == "rotate":
		c.Rotate = true
	case strings.HasPrefix(opt, "timeout:"):
		if n, err := strconv.Atoi(opt[len("timeout:"):]); err == nil {
			c.Timeout = min(n, MaxTimeoutSeconds)
		}
	case strings.HasPrefix(opt, "attempts:"):
		if n, err := strconv.Atoi(opt[len("attempts:"):]); err == nil {
			c.Attempts = min(n, MaxAttempts)
		}
	case strings.HasPrefix(opt, "ndots:"):
		if n, err := strconv.Atoi(opt[len("ndots:"):]); err == nil {
			c.Ndots = n
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
