// Package trafficfilter decides which frames a bridge forwards, using an
// ordered list of allow and deny rules over decoded headers.
package trafficfilter

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"sync"

	"rawstack/pkg/decode"
	"rawstack/pkg/packet/ethernet"
	"rawstack/pkg/packet/ipv4"
)

// Rule matches a frame when every constraint it sets matches. Unset
// constraints (invalid prefixes, zero EtherType, zero Protocol) match
// anything.
type Rule struct {
	// Source and Destination are IPv4 prefixes, compared with the IPv4
	// header addresses or the ARP protocol addresses.
	Source      netip.Prefix
	Destination netip.Prefix
	EtherType   uint16
	Protocol    uint8 // IPv4 protocol number
	Allow       bool
}

// ParseRule reads the form used in config files and on the command line:
//
//	allow|deny [src=PREFIX] [dst=PREFIX] [ethertype=TYPE] [proto=icmp|tcp|udp|N]
//
// A bare address is taken as a /32.
func ParseRule(s string) (Rule, error) {
	var r Rule
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return r, fmt.Errorf("empty rule")
	}
	switch strings.ToLower(fields[0]) {
	case "allow":
		r.Allow = true
	case "deny", "drop":
	default:
		return r, fmt.Errorf("rule %q: must start with allow or deny", s)
	}
	for _, f := range fields[1:] {
		key, val, ok := strings.Cut(f, "=")
		if !ok {
			return r, fmt.Errorf("rule %q: %q is not key=value", s, f)
		}
		var err error
		switch strings.ToLower(key) {
		case "src":
			r.Source, err = parsePrefix(val)
		case "dst":
			r.Destination, err = parsePrefix(val)
		case "ethertype", "type":
			r.EtherType, err = parseEtherType(val)
		case "proto":
			r.Protocol, err = parseProtocol(val)
		default:
			err = fmt.Errorf("unknown key %q", key)
		}
		if err != nil {
			return r, fmt.Errorf("rule %q: %w", s, err)
		}
	}
	return r, nil
}

func parsePrefix(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil || !p.Addr().Is4() {
			return netip.Prefix{}, fmt.Errorf("bad IPv4 prefix %q", s)
		}
		return p.Masked(), nil
	}
	a, err := netip.ParseAddr(s)
	if err != nil || !a.Is4() {
		return netip.Prefix{}, fmt.Errorf("bad IPv4 address %q", s)
	}
	return netip.PrefixFrom(a, 32), nil
}

func parseEtherType(s string) (uint16, error) {
	t, err := ethernet.ParseEtherType(s)
	if err == nil && t == 0 {
		err = fmt.Errorf("bad ethertype %q", s)
	}
	return t, err
}

func parseProtocol(s string) (uint8, error) {
	switch strings.ToLower(s) {
	case "icmp":
		return uint8(ipv4.ProtocolICMP), nil
	case "tcp":
		return uint8(ipv4.ProtocolTCP), nil
	case "udp":
		return uint8(ipv4.ProtocolUDP), nil
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("bad protocol %q", s)
	}
	return uint8(n), nil
}

func (r Rule) String() string {
	var b strings.Builder
	if r.Allow {
		b.WriteString("allow")
	} else {
		b.WriteString("deny")
	}
	if r.Source.IsValid() {
		fmt.Fprintf(&b, " src=%s", r.Source)
	}
	if r.Destination.IsValid() {
		fmt.Fprintf(&b, " dst=%s", r.Destination)
	}
	if r.EtherType != 0 {
		fmt.Fprintf(&b, " ethertype=0x%04x", r.EtherType)
	}
	if r.Protocol != 0 {
		fmt.Fprintf(&b, " proto=%d", r.Protocol)
	}
	return b.String()
}

// headers is what rules look at, pulled out of decoded layers once.
type headers struct {
	etherType    uint16
	hasEtherType bool
	src, dst     netip.Addr
	proto        uint8
	hasProto     bool
}

func headersOf(l *decode.Layers) headers {
	var h headers
	if l == nil {
		return h
	}
	if l.Ethernet != nil {
		h.etherType, h.hasEtherType = l.Ethernet.RawEtherType(), true
	} else if l.IPv4 != nil {
		h.etherType, h.hasEtherType = ethernet.EtherTypeIPv4.Value(), true
	}
	switch {
	case l.IPv4 != nil:
		h.src = netip.AddrFrom4(l.IPv4.Source())
		h.dst = netip.AddrFrom4(l.IPv4.Destination())
		h.proto, h.hasProto = l.IPv4.RawProtocol(), true
	case l.ARP != nil:
		if spa := l.ARP.SenderProtocolAddr(); len(spa) == 4 {
			h.src = netip.AddrFrom4([4]byte(spa))
		}
		if tpa := l.ARP.TargetProtocolAddr(); len(tpa) == 4 {
			h.dst = netip.AddrFrom4([4]byte(tpa))
		}
	}
	return h
}

func (r Rule) matches(h headers) bool {
	if r.EtherType != 0 && (!h.hasEtherType || h.etherType != r.EtherType) {
		return false
	}
	if r.Protocol != 0 && (!h.hasProto || h.proto != r.Protocol) {
		return false
	}
	if r.Source.IsValid() && (!h.src.IsValid() || !r.Source.Contains(h.src)) {
		return false
	}
	if r.Destination.IsValid() && (!h.dst.IsValid() || !r.Destination.Contains(h.dst)) {
		return false
	}
	return true
}

// Filter holds a set of filtering rules. The first matching rule decides;
// frames no rule matches are allowed.
type Filter struct {
	mu    sync.RWMutex
	rules []Rule
}

func NewFilter(rules ...Rule) *Filter {
	return &Filter{rules: append([]Rule(nil), rules...)}
}

// Parse builds a filter from rules in ParseRule form.
func Parse(rules []string) (*Filter, error) {
	f := NewFilter()
	for _, s := range rules {
		r, err := ParseRule(s)
		if err != nil {
			return nil, err
		}
		f.AddRule(r)
	}
	return f, nil
}

// AddRule adds a new filtering rule to the filter.
func (f *Filter) AddRule(rule Rule) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule)
}

// ClearRules removes all filtering rules.
func (f *Filter) ClearRules() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = f.rules[:0]
}

func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.rules)
}

// Allow reports whether the decoded frame should be forwarded. l may be
// partial or nil; constraints on missing headers do not match.
func (f *Filter) Allow(l *decode.Layers) bool {
	if f == nil {
		return true
	}
	h := headersOf(l)
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, rule := range f.rules {
		if rule.matches(h) {
			return rule.Allow
		}
	}
	return true
}
