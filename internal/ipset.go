package internal

import (
	"fmt"
	"net"
	"strings"
)

// IPSet is a parsed set of IP addresses and CIDR blocks.
type IPSet struct {
	addrs map[string]struct{}
	nets  []*net.IPNet
}

// ParseIPSet parses a list of bare IPs and CIDR entries. Empty and
// whitespace-only entries are rejected rather than silently skipped.
func ParseIPSet(entries []string) (*IPSet, error) {
	set := &IPSet{addrs: map[string]struct{}{}}

	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			return nil, fmt.Errorf("empty ip filter entry")
		}
		if strings.Contains(entry, "/") {
			_, ipnet, err := net.ParseCIDR(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid cidr %q: %w", entry, err)
			}
			set.nets = append(set.nets, ipnet)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("invalid ip %q", entry)
		}
		set.addrs[ip.String()] = struct{}{}
	}

	return set, nil
}

// Empty reports whether the set holds no entries.
func (s *IPSet) Empty() bool {
	return s == nil || (len(s.addrs) == 0 && len(s.nets) == 0)
}

// Contains reports whether the given address matches the set. Unparseable
// addresses never match.
func (s *IPSet) Contains(addr string) bool {
	if s.Empty() {
		return false
	}
	ip := net.ParseIP(strings.TrimSpace(addr))
	if ip == nil {
		return false
	}
	if _, ok := s.addrs[ip.String()]; ok {
		return true
	}
	for _, n := range s.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
