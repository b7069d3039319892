// Package acl evaluates permit/deny address lists for phone connections.
//
// Rules are applied in order and the last matching rule decides. Lists built
// with New place deny rules before permit rules, so a typical
//
//	deny:   [0.0.0.0/0]
//	permit: [192.168.1.0/24]
//
// admits only the permitted subnet. An address no rule matches is allowed.
package acl

import (
	"fmt"
	"net/netip"
	"strings"
)

// Rule is one permit or deny entry.
type Rule struct {
	Permit bool
	Prefix netip.Prefix
}

func (r Rule) String() string {
	if r.Permit {
		return "permit " + r.Prefix.String()
	}
	return "deny " + r.Prefix.String()
}

// List is an ordered rule set. The zero value allows everything.
type List struct {
	rules []Rule
}

// New builds a list from deny entries followed by permit entries.
func New(permit, deny []string) (*List, error) {
	l := &List{}
	for _, s := range deny {
		p, err := ParsePrefix(s)
		if err != nil {
			return nil, fmt.Errorf("deny %q: %w", s, err)
		}
		l.rules = append(l.rules, Rule{Permit: false, Prefix: p})
	}
	for _, s := range permit {
		p, err := ParsePrefix(s)
		if err != nil {
			return nil, fmt.Errorf("permit %q: %w", s, err)
		}
		l.rules = append(l.rules, Rule{Permit: true, Prefix: p})
	}
	return l, nil
}

// MustNew is New for tests and constants; it panics on error.
func MustNew(permit, deny []string) *List {
	l, err := New(permit, deny)
	if err != nil {
		panic(err)
	}
	return l
}

// ParsePrefix accepts CIDR ("10.0.0.0/8"), address/netmask
// ("10.0.0.0/255.0.0.0"), a bare address, or "any".
func ParsePrefix(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if s == "any" || s == "all" {
		return netip.MustParsePrefix("0.0.0.0/0"), nil
	}
	addrPart, maskPart, hasMask := strings.Cut(s, "/")
	if !hasMask {
		a, err := netip.ParseAddr(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		a = a.Unmap()
		return netip.PrefixFrom(a, a.BitLen()), nil
	}
	if strings.Contains(maskPart, ".") {
		a, err := netip.ParseAddr(addrPart)
		if err != nil {
			return netip.Prefix{}, err
		}
		bits, err := maskBits(maskPart)
		if err != nil {
			return netip.Prefix{}, err
		}
		return netip.PrefixFrom(a.Unmap(), bits).Masked(), nil
	}
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	return p.Masked(), nil
}

// maskBits converts a dotted netmask to a prefix length, rejecting
// non-contiguous masks.
func maskBits(mask string) (int, error) {
	m, err := netip.ParseAddr(mask)
	if err != nil || !m.Is4() {
		return 0, fmt.Errorf("invalid netmask %q", mask)
	}
	b := m.As4()
	v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	bits := 0
	for v&0x80000000 != 0 {
		bits++
		v <<= 1
	}
	if v != 0 {
		return 0, fmt.Errorf("non-contiguous netmask %q", mask)
	}
	return bits, nil
}

// Allowed reports whether addr passes the list.
func (l *List) Allowed(addr netip.Addr) bool {
	if l == nil {
		return true
	}
	addr = addr.Unmap()
	allowed := true
	for _, r := range l.rules {
		if r.Prefix.Contains(addr) {
			allowed = r.Permit
		}
	}
	return allowed
}

// Empty reports whether the list has no rules.
func (l *List) Empty() bool {
	return l == nil || len(l.rules) == 0
}

// Rules returns a copy of the rule list.
func (l *List) Rules() []Rule {
	if l == nil {
		return nil
	}
	return append([]Rule(nil), l.rules...)
}

// String renders the rules as "deny a, permit b".
func (l *List) String() string {
	if l.Empty() {
		return "allow all"
	}
	parts := make([]string, len(l.rules))
	for i, r := range l.rules {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}
