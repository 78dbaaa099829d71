package ethernet

import (
	"bytes"
	"fmt"
	"net"
)

// MACAddress is a 6-byte hardware address. The zero value is 00:00:00:00:00:00.
type MACAddress [6]byte

// Broadcast is ff:ff:ff:ff:ff:ff.
var Broadcast = MACAddress{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// MACFromBytes copies the first 6 bytes of b. It panics if b is shorter,
// like a slice expression would.
func MACFromBytes(b []byte) MACAddress {
	var m MACAddress
	copy(m[:], b[:6])
	return m
}

// ParseMAC parses a 6-byte address in any notation accepted by net.ParseMAC.
func ParseMAC(s string) (MACAddress, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MACAddress{}, err
	}
	if len(hw) != 6 {
		return MACAddress{}, fmt.Errorf("ethernet: %q is not a 6-byte MAC address", s)
	}
	return MACFromBytes(hw), nil
}

// IsBroadcast reports whether m is the all-ones address.
func (m MACAddress) IsBroadcast() bool {
	return m == Broadcast
}

// IsMulticast reports whether the group bit of the first octet is set.
func (m MACAddress) IsMulticast() bool {
	return m[0]&0x01 == 0x01
}

// Compare orders addresses byte-wise.
func (m MACAddress) Compare(o MACAddress) int {
	return bytes.Compare(m[:], o[:])
}

// HardwareAddr returns a copy of m as a net.HardwareAddr.
func (m MACAddress) HardwareAddr() net.HardwareAddr {
	hw := make(net.HardwareAddr, 6)
	copy(hw, m[:])
	return hw
}

func (m MACAddress) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}
