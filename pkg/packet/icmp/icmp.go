// Package icmp provides a view over ICMP messages (RFC 792).
//
// The bytes after the 4-byte prefix mean different things depending on the
// type byte. Echo and destination-unreachable accessors return ok=false
// when the current type does not carry that field; nothing is decided at
// parse time.
package icmp

import (
	"encoding/binary"

	"rawstack/pkg/packet"
	"rawstack/pkg/packet/checksum"
)

const layer = "icmp"

const (
	typeOffset     = 0
	codeOffset     = 1
	ChecksumOffset = 2
	dataOffset     = 4
	HeaderLen      = dataOffset

	// echo
	identOffset = 4
	seqOffset   = 6

	// destination unreachable
	nextHopOffset = 6

	bodyOffset = 8 // data of echo and unreachable messages
)

// Packet is a view over an ICMP message.
type Packet struct {
	buf []byte
}

// NewPacket wraps buf. Echo and destination-unreachable messages must also
// hold their 4-byte sub-header.
func NewPacket(buf []byte) (*Packet, error) {
	if len(buf) < HeaderLen {
		return nil, packet.Short(layer, HeaderLen, len(buf))
	}
	p := &Packet{buf: buf}
	if t := p.Type(); (t.IsEcho() || t == TypeDstUnreachable) && len(buf) < bodyOffset {
		return nil, packet.Short(layer, bodyOffset, len(buf))
	}
	return p, nil
}

// NewEcho builds an echo message of type t (request or reply) with its
// checksum already set.
func NewEcho(t Type, ident, seq uint16, data []byte) *Packet {
	p := &Packet{buf: make([]byte, bodyOffset+len(data))}
	p.SetType(t)
	binary.BigEndian.PutUint16(p.buf[identOffset:], ident)
	binary.BigEndian.PutUint16(p.buf[seqOffset:], seq)
	copy(p.buf[bodyOffset:], data)
	p.SetChecksum(p.CalcChecksum())
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

// Header returns the type, code and checksum bytes.
func (p *Packet) Header() []byte { return p.buf[:HeaderLen] }

func (p *Packet) Type() Type { return TypeFrom(p.buf[typeOffset]) }

// RawType is the type byte as found on the wire.
func (p *Packet) RawType() uint8 { return p.buf[typeOffset] }

func (p *Packet) Code() uint8 { return p.buf[codeOffset] }

func (p *Packet) Checksum() uint16 {
	return binary.BigEndian.Uint16(p.buf[ChecksumOffset:])
}

// Data returns everything after the 4-byte prefix, whatever the type.
func (p *Packet) Data() []byte { return p.buf[dataOffset:] }

func (p *Packet) hasBody(ok bool) bool {
	return ok && len(p.buf) >= bodyOffset
}

func (p *Packet) EchoIdent() (uint16, bool) {
	if !p.hasBody(p.Type().IsEcho()) {
		return 0, false
	}
	return binary.BigEndian.Uint16(p.buf[identOffset:]), true
}

func (p *Packet) EchoSeq() (uint16, bool) {
	if !p.hasBody(p.Type().IsEcho()) {
		return 0, false
	}
	return binary.BigEndian.Uint16(p.buf[seqOffset:]), true
}

func (p *Packet) EchoData() ([]byte, bool) {
	if !p.hasBody(p.Type().IsEcho()) {
		return nil, false
	}
	return p.buf[bodyOffset:], true
}

func (p *Packet) UnreachableCode() (DstUnreachableCode, bool) {
	if p.Type() != TypeDstUnreachable {
		return CodeUnknown, false
	}
	return DstUnreachableCodeFrom(p.Code()), true
}

// UnreachableNextHop is the next-hop MTU of a fragmentation-required
// message.
func (p *Packet) UnreachableNextHop() (uint16, bool) {
	if !p.hasBody(p.Type() == TypeDstUnreachable) {
		return 0, false
	}
	return binary.BigEndian.Uint16(p.buf[nextHopOffset:]), true
}

// UnreachableData is the original datagram excerpt carried by the message.
func (p *Packet) UnreachableData() ([]byte, bool) {
	if !p.hasBody(p.Type() == TypeDstUnreachable) {
		return nil, false
	}
	return p.buf[bodyOffset:], true
}

// CalcChecksum computes the checksum over the whole message, ignoring the
// stored one. Setters never update the checksum; call SetChecksum last.
func (p *Packet) CalcChecksum() uint16 {
	return checksum.Calc(p.buf, ChecksumOffset)
}

func (p *Packet) VerifyChecksum() bool {
	return checksum.Verify(p.buf, ChecksumOffset, p.Checksum())
}

func (p *Packet) SetType(t Type)  { p.buf[typeOffset] = uint8(t) }
func (p *Packet) SetCode(c uint8) { p.buf[codeOffset] = c }
func (p *Packet) SetChecksum(s uint16) {
	binary.BigEndian.PutUint16(p.buf[ChecksumOffset:], s)
}

// SetData overwrites everything after the prefix; b must match its length.
func (p *Packet) SetData(b []byte) error {
	return p.setFrom(dataOffset, "data", b)
}

// The sub-header setters write regardless of the current type so a message
// can be built in any order.

func (p *Packet) SetEchoIdent(id uint16) error { return p.put16(identOffset, id) }
func (p *Packet) SetEchoSeq(seq uint16) error  { return p.put16(seqOffset, seq) }

func (p *Packet) SetEchoData(b []byte) error {
	return p.setFrom(bodyOffset, "echo data", b)
}

func (p *Packet) SetUnreachableCode(c DstUnreachableCode) { p.SetCode(uint8(c)) }

func (p *Packet) SetUnreachableNextHop(mtu uint16) error {
	return p.put16(nextHopOffset, mtu)
}

func (p *Packet) SetUnreachableData(b []byte) error {
	return p.setFrom(bodyOffset, "unreachable data", b)
}

func (p *Packet) put16(off int, v uint16) error {
	if len(p.buf) < bodyOffset {
		return packet.Short(layer, bodyOffset, len(p.buf))
	}
	binary.BigEndian.PutUint16(p.buf[off:], v)
	return nil
}

func (p *Packet) setFrom(off int, name string, b []byte) error {
	if len(p.buf) < off {
		return packet.Short(layer, off, len(p.buf))
	}
	if n := len(p.buf) - off; len(b) != n {
		return packet.Mismatch(layer, name, n, len(b))
	}
	copy(p.buf[off:], b)
	return nil
}
