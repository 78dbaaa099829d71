// Package decode walks a captured frame down through the packet views:
// Ethernet, then ARP or IPv4, then ICMP inside IPv4. Each inner view gets
// its own copy of the outer payload, so views never share a buffer.
package decode

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"rawstack/pkg/packet/arp"
	"rawstack/pkg/packet/ethernet"
	"rawstack/pkg/packet/icmp"
	"rawstack/pkg/packet/ipv4"
)

// Layers holds the views Decode could build. Absent layers are nil.
type Layers struct {
	Ethernet *ethernet.Frame
	ARP      *arp.Packet
	IPv4     *ipv4.Packet
	ICMP     *icmp.Packet
}

// Decode builds the views for an Ethernet frame. When an inner layer fails
// to parse, the layers decoded so far are returned along with the error.
func Decode(frame []byte) (*Layers, error) {
	eth, err := ethernet.NewFrame(frame)
	if err != nil {
		return nil, err
	}
	l := &Layers{Ethernet: eth}
	switch eth.EtherType() {
	case ethernet.EtherTypeARP:
		l.ARP, err = arp.NewPacket(bytes.Clone(eth.Payload()))
	case ethernet.EtherTypeIPv4:
		err = l.decodeIPv4(bytes.Clone(eth.Payload()))
	}
	if err != nil {
		return l, fmt.Errorf("decode %s payload: %w", eth.EtherType(), err)
	}
	return l, nil
}

// DecodeIP builds the views for a bare IP packet, as read from a TUN
// device.
func DecodeIP(pkt []byte) (*Layers, error) {
	l := &Layers{}
	if err := l.decodeIPv4(pkt); err != nil {
		return l, fmt.Errorf("decode ip packet: %w", err)
	}
	return l, nil
}

func (l *Layers) decodeIPv4(b []byte) error {
	ip, err := ipv4.NewPacket(b)
	if err != nil {
		return err
	}
	l.IPv4 = ip
	if ip.Protocol() != ipv4.ProtocolICMP || ip.FragmentOffset() != 0 {
		return nil
	}
	l.ICMP, err = icmp.NewPacket(bytes.Clone(ip.Payload()))
	return err
}

// Summary is a one-line description in the order the layers nest.
func (l *Layers) Summary() string {
	var parts []string
	if e := l.Ethernet; e != nil {
		parts = append(parts, fmt.Sprintf("%s > %s %s", e.Source(), e.Destination(), etherTypeName(e)))
	}
	if a := l.ARP; a != nil {
		parts = append(parts, fmt.Sprintf("arp %s %s > %s", a.Operation(),
			protoAddr(a.SenderProtocolAddr()), protoAddr(a.TargetProtocolAddr())))
	}
	if ip := l.IPv4; ip != nil {
		parts = append(parts, fmt.Sprintf("%s > %s %s ttl=%d len=%d", ip.Source(), ip.Destination(),
			protocolName(ip), ip.TTL(), ip.Length()))
	}
	if m := l.ICMP; m != nil {
		s := m.Type().String()
		if id, ok := m.EchoIdent(); ok {
			seq, _ := m.EchoSeq()
			s += fmt.Sprintf(" id=%d seq=%d", id, seq)
		}
		if mtu, ok := m.UnreachableNextHop(); ok && m.Code() == uint8(icmp.CodeFragmentRequired) {
			s += fmt.Sprintf(" mtu=%d", mtu)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " | ")
}

func (l *Layers) String() string { return l.Summary() }

// MarshalZerologObject lets a *Layers be logged with Event.Object.
func (l *Layers) MarshalZerologObject(e *zerolog.Event) {
	if f := l.Ethernet; f != nil {
		e.Dict("eth", zerolog.Dict().
			Stringer("src", f.Source()).
			Stringer("dst", f.Destination()).
			Str("type", etherTypeName(f)).
			Int("len", f.Len()))
	}
	if a := l.ARP; a != nil {
		e.Dict("arp", zerolog.Dict().
			Stringer("op", a.Operation()).
			Hex("sha", a.SenderHardwareAddr()).
			Str("spa", protoAddr(a.SenderProtocolAddr())).
			Hex("tha", a.TargetHardwareAddr()).
			Str("tpa", protoAddr(a.TargetProtocolAddr())))
	}
	if ip := l.IPv4; ip != nil {
		e.Dict("ipv4", zerolog.Dict().
			Stringer("src", ip.Source()).
			Stringer("dst", ip.Destination()).
			Str("proto", protocolName(ip)).
			Uint8("ttl", ip.TTL()).
			Int("len", ip.Length()).
			Stringer("flag", ip.Flag()).
			Uint16("frag", ip.FragmentOffset()).
			Bool("csum_ok", ip.VerifyChecksum()))
	}
	if m := l.ICMP; m != nil {
		d := zerolog.Dict().
			Stringer("type", m.Type()).
			Uint8("code", m.Code()).
			Bool("csum_ok", m.VerifyChecksum())
		if id, ok := m.EchoIdent(); ok {
			seq, _ := m.EchoSeq()
			d.Uint16("id", id).Uint16("seq", seq)
		}
		if mtu, ok := m.UnreachableNextHop(); ok {
			d.Uint16("next_hop_mtu", mtu)
		}
		e.Dict("icmp", d)
	}
}

func etherTypeName(f *ethernet.Frame) string {
	if t := f.EtherType(); t != ethernet.EtherTypeUnknown {
		return t.String()
	}
	return fmt.Sprintf("0x%04x", f.RawEtherType())
}

func protocolName(ip *ipv4.Packet) string {
	if p := ip.Protocol(); p != ipv4.ProtocolUnknown {
		return p.String()
	}
	return fmt.Sprintf("proto-%d", ip.RawProtocol())
}

func protoAddr(b []byte) string {
	if len(b) == 4 {
		return ipv4.AddressFrom(b).String()
	}
	return fmt.Sprintf("%x", b)
}
