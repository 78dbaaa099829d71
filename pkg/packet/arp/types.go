package arp

import "rawstack/pkg/packet/ethernet"

// HardwareType is the link-layer type of the hardware address fields.
type HardwareType uint16

const (
	HardwareUnknown  HardwareType = 0
	HardwareEthernet HardwareType = 1
)

// HardwareTypeFrom maps a wire value onto the known set.
func HardwareTypeFrom(v uint16) HardwareType {
	if HardwareType(v) == HardwareEthernet {
		return HardwareEthernet
	}
	return HardwareUnknown
}

// AddrLen is the hardware address length implied by the type.
func (h HardwareType) AddrLen() int {
	if h == HardwareEthernet {
		return 6
	}
	return 0
}

func (h HardwareType) String() string {
	if h == HardwareEthernet {
		return "Ethernet"
	}
	return "Unknown"
}

// ProtocolType reuses the Ethernet type numbering, as RFC 826 does.
type ProtocolType = ethernet.EtherType

// ProtocolAddrLen is the protocol address length implied by the type: 4 for
// IPv4, 0 for anything else.
func ProtocolAddrLen(p ProtocolType) int {
	if p == ethernet.EtherTypeIPv4 {
		return 4
	}
	return 0
}

// Operation is the ARP opcode.
type Operation uint16

const (
	OperationUnknown Operation = 0
	OperationRequest Operation = 1
	OperationReply   Operation = 2
)

// OperationFrom maps a wire value onto the known set.
func OperationFrom(v uint16) Operation {
	switch op := Operation(v); op {
	case OperationRequest, OperationReply:
		return op
	default:
		return OperationUnknown
	}
}

func (o Operation) String() string {
	switch o {
	case OperationRequest:
		return "request"
	case OperationReply:
		return "reply"
	default:
		return "unknown"
	}
}
