package ethernet

import (
	"fmt"
	"strconv"
	"strings"
)

// EtherType is the closed set of payload types this package understands.
// Values outside the set decode as EtherTypeUnknown.
type EtherType uint16

const (
	EtherTypeUnknown EtherType = 0x0000
	EtherTypeIPv4    EtherType = 0x0800
	EtherTypeARP     EtherType = 0x0806
	EtherTypeIPv6    EtherType = 0x86dd
)

// EtherTypeFrom maps a wire value onto the closed enumeration.
func EtherTypeFrom(v uint16) EtherType {
	switch t := EtherType(v); t {
	case EtherTypeIPv4, EtherTypeARP, EtherTypeIPv6:
		return t
	default:
		return EtherTypeUnknown
	}
}

// Value returns the wire value. EtherTypeUnknown encodes as 0x0000.
func (e EtherType) Value() uint16 {
	return uint16(e)
}

func (e EtherType) String() string {
	switch e {
	case EtherTypeIPv4:
		return "IPv4"
	case EtherTypeARP:
		return "ARP"
	case EtherTypeIPv6:
		return "IPv6"
	case EtherTypeUnknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("0x%04x", uint16(e))
	}
}

// ParseEtherType reads a name (ipv4, arp, ipv6) or a number such as 0x88cc.
// Numbers outside the closed enumeration are returned as they are.
func ParseEtherType(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "ipv4", "ip":
		return EtherTypeIPv4.Value(), nil
	case "arp":
		return EtherTypeARP.Value(), nil
	case "ipv6":
		return EtherTypeIPv6.Value(), nil
	}
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("ethertype %q: not a name or 16-bit number", s)
	}
	return uint16(n), nil
}
