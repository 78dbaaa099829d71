package ipv4

import (
	"fmt"
	"net"
)

// Address is an IPv4 address in network byte order.
type Address [4]byte

// Broadcast is 255.255.255.255.
var Broadcast = Address{0xff, 0xff, 0xff, 0xff}

// AddressFrom copies the first 4 bytes of b.
func AddressFrom(b []byte) Address {
	var a Address
	copy(a[:], b[:4])
	return a
}

// ParseAddress parses a dotted-quad IPv4 address.
func ParseAddress(s string) (Address, error) {
	ip := net.ParseIP(s).To4()
	if ip == nil {
		return Address{}, fmt.Errorf("ipv4: invalid address %q", s)
	}
	return AddressFrom(ip), nil
}

func (a Address) IsBroadcast() bool { return a == Broadcast }

// IsLoopback reports whether a is in 127.0.0.0/8.
func (a Address) IsLoopback() bool { return a[0] == 127 }

// NetIP returns a as a 4-byte net.IP.
func (a Address) NetIP() net.IP {
	return net.IPv4(a[0], a[1], a[2], a[3]).To4()
}

func (a Address) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", a[0], a[1], a[2], a[3])
}
