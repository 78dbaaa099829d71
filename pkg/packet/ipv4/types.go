package ipv4

import "fmt"

// Version is the high nibble of the first header byte.
type Version uint8

const (
	VersionUnknown Version = 0
	VersionIPv4    Version = 4
)

func VersionFrom(v uint8) Version {
	if Version(v) == VersionIPv4 {
		return VersionIPv4
	}
	return VersionUnknown
}

func (v Version) String() string {
	if v == VersionIPv4 {
		return "IPv4"
	}
	return "Unknown"
}

// Flag is the 3-bit flags field, as the top 3 bits of the flags/fragment
// word shifted down by 13.
type Flag uint8

const (
	FlagNoMore        Flag = 0
	FlagMoreFragments Flag = 1
	FlagDontFragment  Flag = 2
	FlagUnknown       Flag = 0xff
)

func FlagFrom(v uint16) Flag {
	switch f := Flag(v); f {
	case FlagNoMore, FlagMoreFragments, FlagDontFragment:
		return f
	default:
		return FlagUnknown
	}
}

// bits returns the 3 wire bits of f. FlagUnknown encodes as 0b111, which
// decodes back to FlagUnknown.
func (f Flag) bits() uint16 {
	return uint16(f) & 0x7
}

func (f Flag) String() string {
	switch f {
	case FlagNoMore:
		return "NoMore"
	case FlagMoreFragments:
		return "MoreFragments"
	case FlagDontFragment:
		return "DontFragment"
	default:
		return "Unknown"
	}
}

// Protocol is the payload protocol number.
type Protocol uint8

const (
	ProtocolUnknown Protocol = 0
	ProtocolICMP    Protocol = 0x01
	ProtocolTCP     Protocol = 0x06
	ProtocolUDP     Protocol = 0x11
)

func ProtocolFrom(v uint8) Protocol {
	switch p := Protocol(v); p {
	case ProtocolICMP, ProtocolTCP, ProtocolUDP:
		return p
	default:
		return ProtocolUnknown
	}
}

func (p Protocol) String() string {
	switch p {
	case ProtocolICMP:
		return "ICMP"
	case ProtocolTCP:
		return "TCP"
	case ProtocolUDP:
		return "UDP"
	case ProtocolUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("%#02x", uint8(p))
	}
}
