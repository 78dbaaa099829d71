package icmp

// Type is the ICMP message type.
type Type uint8

const (
	TypeEchoReply           Type = 0
	TypeDstUnreachable      Type = 3
	TypeSourceQuench        Type = 4
	TypeRedirect            Type = 5
	TypeEchoRequest         Type = 8
	TypeRouterAdvertisement Type = 9
	TypeRouterSolicitation  Type = 10
	TypeTimeExceeded        Type = 11
	TypeParameterProblem    Type = 12
	TypeTimestamp           Type = 13
	TypeTimestampReply      Type = 14
	TypeInformationRequest  Type = 15
	TypeInformationReply    Type = 16
	TypeAddressMaskRequest  Type = 17
	TypeAddressMaskReply    Type = 18
	TypeUnknown             Type = 0xff
)

var typeNames = map[Type]string{
	TypeEchoReply:           "echo reply",
	TypeDstUnreachable:      "destination unreachable",
	TypeSourceQuench:        "source quench",
	TypeRedirect:            "redirect",
	TypeEchoRequest:         "echo request",
	TypeRouterAdvertisement: "router advertisement",
	TypeRouterSolicitation:  "router solicitation",
	TypeTimeExceeded:        "time exceeded",
	TypeParameterProblem:    "parameter problem",
	TypeTimestamp:           "timestamp",
	TypeTimestampReply:      "timestamp reply",
	TypeInformationRequest:  "information request",
	TypeInformationReply:    "information reply",
	TypeAddressMaskRequest:  "address mask request",
	TypeAddressMaskReply:    "address mask reply",
}

// TypeFrom maps a wire value to a known Type, or TypeUnknown.
func TypeFrom(v uint8) Type {
	if _, ok := typeNames[Type(v)]; ok {
		return Type(v)
	}
	return TypeUnknown
}

// IsEcho reports whether t is an echo request or reply.
func (t Type) IsEcho() bool {
	return t == TypeEchoRequest || t == TypeEchoReply
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

// DstUnreachableCode is the code of a destination unreachable message.
type DstUnreachableCode uint8

const (
	CodeNetworkUnreachable  DstUnreachableCode = 0
	CodeHostUnreachable     DstUnreachableCode = 1
	CodeProtocolUnreachable DstUnreachableCode = 2
	CodePortUnreachable     DstUnreachableCode = 3
	CodeFragmentRequired    DstUnreachableCode = 4
	CodeSrcRoutingFailed    DstUnreachableCode = 5
	CodeUnknown             DstUnreachableCode = 0xff
)

func DstUnreachableCodeFrom(v uint8) DstUnreachableCode {
	if c := DstUnreachableCode(v); c <= CodeSrcRoutingFailed {
		return c
	}
	return CodeUnknown
}

func (c DstUnreachableCode) String() string {
	switch c {
	case CodeNetworkUnreachable:
		return "network unreachable"
	case CodeHostUnreachable:
		return "host unreachable"
	case CodeProtocolUnreachable:
		return "protocol unreachable"
	case CodePortUnreachable:
		return "port unreachable"
	case CodeFragmentRequired:
		return "fragmentation required"
	case CodeSrcRoutingFailed:
		return "source route failed"
	default:
		return "unknown"
	}
}
