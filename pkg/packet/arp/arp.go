// Package arp provides a view over ARP packets (RFC 826). The four address
// fields are variable length: their positions follow from the hlen and plen
// bytes of the packet itself and are recomputed on every access.
package arp

import (
	"encoding/binary"

	"rawstack/pkg/packet"
	"rawstack/pkg/packet/ethernet"
	"rawstack/pkg/packet/ipv4"
)

const layer = "arp"

// Fixed prefix
const (
	htypeOffset = 0
	ptypeOffset = 2
	hlenOffset  = 4
	plenOffset  = 5
	operOffset  = 6
	PrefixLen   = 8
)

// Range is a half-open byte range [Start, End).
type Range struct {
	Start, End int
}

// Len returns End - Start.
func (r Range) Len() int { return r.End - r.Start }

// SHA is the sender hardware address range.
func SHA(hlen, _ int) Range {
	return Range{PrefixLen, PrefixLen + hlen}
}

// SPA is the sender protocol address range.
func SPA(hlen, plen int) Range {
	start := SHA(hlen, plen).End
	return Range{start, start + plen}
}

// THA is the target hardware address range.
func THA(hlen, plen int) Range {
	start := SPA(hlen, plen).End
	return Range{start, start + hlen}
}

// TPA is the target protocol address range. Its end is the packet's minimum
// length.
func TPA(hlen, plen int) Range {
	start := THA(hlen, plen).End
	return Range{start, start + plen}
}

// Packet is a view over an ARP packet.
type Packet struct {
	buf []byte
}

// NewPacket wraps buf after checking that it holds the fixed prefix and all
// four address fields the prefix declares.
func NewPacket(buf []byte) (*Packet, error) {
	if len(buf) < PrefixLen {
		return nil, packet.Short(layer, PrefixLen, len(buf))
	}
	p := &Packet{buf: buf}
	if need := TPA(p.HardwareAddrLen(), p.ProtocolAddrLen()).End; len(buf) < need {
		return nil, packet.Short(layer, need, len(buf))
	}
	return p, nil
}

// WithType allocates a zeroed packet sized for the address lengths implied
// by htype and ptype, with the type and length bytes filled in.
func WithType(htype HardwareType, ptype ProtocolType) (*Packet, error) {
	hlen, plen := htype.AddrLen(), ProtocolAddrLen(ptype)
	buf := make([]byte, TPA(hlen, plen).End)
	binary.BigEndian.PutUint16(buf[htypeOffset:], uint16(htype))
	binary.BigEndian.PutUint16(buf[ptypeOffset:], ptype.Value())
	buf[hlenOffset] = byte(hlen)
	buf[plenOffset] = byte(plen)
	return NewPacket(buf)
}

// Gratuitous builds an Ethernet/IPv4 reply announcing ip at mac, with the
// sender and target fields both set to the announcing host.
func Gratuitous(mac ethernet.MACAddress, ip ipv4.Address) *Packet {
	p, err := WithType(HardwareEthernet, ethernet.EtherTypeIPv4)
	if err != nil {
		// WithType sizes the buffer itself; this cannot fail.
		panic(err)
	}
	p.SetOperation(OperationReply)
	p.mustSet(SHA, mac[:])
	p.mustSet(SPA, ip[:])
	p.mustSet(THA, mac[:])
	p.mustSet(TPA, ip[:])
	return p
}

func (p *Packet) Len() int      { return len(p.buf) }
func (p *Packet) Bytes() []byte { return p.buf }

// IntoBuffer returns the backing buffer and detaches it from p.
func (p *Packet) IntoBuffer() []byte {
	b := p.buf
	p.buf = nil
	return b
}

func (p *Packet) HardwareType() HardwareType {
	return HardwareTypeFrom(binary.BigEndian.Uint16(p.buf[htypeOffset:]))
}

func (p *Packet) ProtocolType() ProtocolType {
	return ethernet.EtherTypeFrom(binary.BigEndian.Uint16(p.buf[ptypeOffset:]))
}

func (p *Packet) HardwareAddrLen() int { return int(p.buf[hlenOffset]) }
func (p *Packet) ProtocolAddrLen() int { return int(p.buf[plenOffset]) }

func (p *Packet) Operation() Operation {
	return OperationFrom(binary.BigEndian.Uint16(p.buf[operOffset:]))
}

func (p *Packet) SetOperation(op Operation) {
	binary.BigEndian.PutUint16(p.buf[operOffset:], uint16(op))
}

// The address getters return slices aliasing the packet.

func (p *Packet) SenderHardwareAddr() []byte { return p.field(SHA) }
func (p *Packet) SenderProtocolAddr() []byte { return p.field(SPA) }
func (p *Packet) TargetHardwareAddr() []byte { return p.field(THA) }
func (p *Packet) TargetProtocolAddr() []byte { return p.field(TPA) }

func (p *Packet) SetSenderHardwareAddr(b []byte) error {
	return p.set(SHA, "sender hardware address", b)
}

func (p *Packet) SetSenderProtocolAddr(b []byte) error {
	return p.set(SPA, "sender protocol address", b)
}

func (p *Packet) SetTargetHardwareAddr(b []byte) error {
	return p.set(THA, "target hardware address", b)
}

func (p *Packet) SetTargetProtocolAddr(b []byte) error {
	return p.set(TPA, "target protocol address", b)
}

func (p *Packet) rangeOf(fn func(hlen, plen int) Range) Range {
	return fn(p.HardwareAddrLen(), p.ProtocolAddrLen())
}

func (p *Packet) field(fn func(hlen, plen int) Range) []byte {
	r := p.rangeOf(fn)
	return p.buf[r.Start:r.End]
}

func (p *Packet) set(fn func(hlen, plen int) Range, name string, b []byte) error {
	r := p.rangeOf(fn)
	if len(b) != r.Len() {
		return packet.Mismatch(layer, name, r.Len(), len(b))
	}
	copy(p.buf[r.Start:r.End], b)
	return nil
}

func (p *Packet) mustSet(fn func(hlen, plen int) Range, b []byte) {
	if err := p.set(fn, "address", b); err != nil {
		panic(err)
	}
}
