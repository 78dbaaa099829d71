// Package ipv4 provides a view over IPv4 packets (RFC 791).
//
// Where the options end depends on the header length nibble and where the
// payload ends depends on the total length field. Both are read from the
// buffer on every access, so a setter that changes either moves the regions
// for every later call.
package ipv4

import (
	"encoding/binary"

	"rawstack/pkg/packet"
	"rawstack/pkg/packet/checksum"
)

const layer = "ipv4"

// Field offsets
const (
	versionIHLOffset  = 0
	tosOffset         = 1
	lengthOffset      = 2
	identOffset       = 4
	flagFragOffset    = 6
	ttlOffset         = 8
	protocolOffset    = 9
	ChecksumOffset    = 10
	srcOffset         = 12
	dstOffset         = 16
	HeaderLen         = 20 // fixed part; also the minimum header length
	MinHeaderWords    = HeaderLen / 4
	fragmentMask      = 0x1fff
	flagMask          = 0xe000
	flagShift         = 13
	maxHeaderLenWords = 0x0f
)

// Range is a half-open byte range [Start, End).
type Range struct {
	Start, End int
}

func (r Range) Len() int { return r.End - r.Start }

// OptionsRange is where the options live for a header of ihl 32-bit words.
func OptionsRange(ihl int) Range {
	return Range{HeaderLen, max(ihl*4, HeaderLen)}
}

// PayloadRange is where the payload lives for a header of ihl words and a
// total length of totalLen bytes.
func PayloadRange(ihl, totalLen int) Range {
	start := ihl * 4
	return Range{start, max(totalLen, start)}
}

// Packet is a view over an IPv4 packet.
type Packet struct {
	buf []byte
}

// NewPacket wraps buf after checking the header length and total length
// fields against each other and against len(buf). Trailing bytes past the
// total length (link-layer padding) are allowed.
func NewPacket(buf []byte) (*Packet, error) {
	if len(buf) < HeaderLen {
		return nil, packet.Short(layer, HeaderLen, len(buf))
	}
	p := &Packet{buf: buf}
	ihl := p.HeaderLength()
	if ihl < MinHeaderWords {
		return nil, packet.Invalid(layer, "header length")
	}
	if len(buf) < ihl*4 {
		return nil, packet.Short(layer, ihl*4, len(buf))
	}
	total := p.Length()
	if total < ihl*4 {
		return nil, packet.Invalid(layer, "total length")
	}
	if len(buf) < total {
		return nil, packet.Short(layer, total, len(buf))
	}
	return p, nil
}

// Alloc returns a view over size zero bytes for building a packet field by
// field. Nothing is validated until the result is re-parsed with NewPacket;
// regions that do not fit the buffer yet read as empty.
func Alloc(size int) *Packet {
	return &Packet{buf: make([]byte, max(size, HeaderLen))}
}

func (p *Packet) Len() int      { return len(p.buf) }
func (p *Packet) Bytes() []byte { return p.buf }

// IntoBuffer returns the backing buffer and detaches it from p.
func (p *Packet) IntoBuffer() []byte {
	b := p.buf
	p.buf = nil
	return b
}

func (p *Packet) Version() Version {
	return VersionFrom(p.buf[versionIHLOffset] >> 4)
}

// HeaderLength is the header length in 32-bit words.
func (p *Packet) HeaderLength() int {
	return int(p.buf[versionIHLOffset] & 0x0f)
}

func (p *Packet) TOS() uint8 { return p.buf[tosOffset] }

// Length is the total length field in bytes.
func (p *Packet) Length() int {
	return int(binary.BigEndian.Uint16(p.buf[lengthOffset:]))
}

func (p *Packet) Identification() uint16 {
	return binary.BigEndian.Uint16(p.buf[identOffset:])
}

func (p *Packet) flagFrag() uint16 {
	return binary.BigEndian.Uint16(p.buf[flagFragOffset:])
}

func (p *Packet) Flag() Flag {
	return FlagFrom(p.flagFrag() >> flagShift)
}

// FragmentOffset is in 8-byte units.
func (p *Packet) FragmentOffset() uint16 {
	return p.flagFrag() & fragmentMask
}

func (p *Packet) TTL() uint8 { return p.buf[ttlOffset] }

func (p *Packet) Protocol() Protocol { return ProtocolFrom(p.buf[protocolOffset]) }

// RawProtocol is the protocol number as found on the wire.
func (p *Packet) RawProtocol() uint8 { return p.buf[protocolOffset] }

func (p *Packet) Checksum() uint16 {
	return binary.BigEndian.Uint16(p.buf[ChecksumOffset:])
}

func (p *Packet) Source() Address      { return AddressFrom(p.buf[srcOffset:dstOffset]) }
func (p *Packet) Destination() Address { return AddressFrom(p.buf[dstOffset:HeaderLen]) }

// Header returns the first HeaderLength()*4 bytes.
func (p *Packet) Header() []byte {
	return p.span(Range{0, p.HeaderLength() * 4})
}

// Options returns the bytes between the fixed header and HeaderLength()*4.
func (p *Packet) Options() []byte {
	return p.span(OptionsRange(p.HeaderLength()))
}

// Payload returns the bytes between the header and Length().
func (p *Packet) Payload() []byte {
	return p.span(PayloadRange(p.HeaderLength(), p.Length()))
}

// CalcChecksum computes the header checksum, ignoring the stored one.
func (p *Packet) CalcChecksum() uint16 {
	return checksum.Calc(p.Header(), ChecksumOffset)
}

// VerifyChecksum reports whether the stored checksum matches the header.
func (p *Packet) VerifyChecksum() bool {
	return checksum.Verify(p.Header(), ChecksumOffset, p.Checksum())
}

func (p *Packet) SetVersion(v Version) {
	p.buf[versionIHLOffset] = p.buf[versionIHLOffset]&0x0f | uint8(v)<<4
}

// SetHeaderLength sets the header length in 32-bit words (5..15).
func (p *Packet) SetHeaderLength(words int) error {
	if words < MinHeaderWords || words > maxHeaderLenWords {
		return packet.Invalid(layer, "header length")
	}
	p.buf[versionIHLOffset] = p.buf[versionIHLOffset]&0xf0 | uint8(words)
	return nil
}

func (p *Packet) SetTOS(tos uint8) { p.buf[tosOffset] = tos }

func (p *Packet) SetLength(n uint16) {
	binary.BigEndian.PutUint16(p.buf[lengthOffset:], n)
}

func (p *Packet) SetIdentification(id uint16) {
	binary.BigEndian.PutUint16(p.buf[identOffset:], id)
}

// SetFlag replaces the flag bits and keeps the fragment offset.
func (p *Packet) SetFlag(f Flag) {
	v := p.flagFrag()&^flagMask | f.bits()<<flagShift
	binary.BigEndian.PutUint16(p.buf[flagFragOffset:], v)
}

// SetFragmentOffset replaces the offset (8-byte units, 13 bits) and keeps
// the flag bits.
func (p *Packet) SetFragmentOffset(units uint16) {
	v := p.flagFrag()&flagMask | units&fragmentMask
	binary.BigEndian.PutUint16(p.buf[flagFragOffset:], v)
}

func (p *Packet) SetTTL(ttl uint8) { p.buf[ttlOffset] = ttl }

func (p *Packet) SetProtocol(proto Protocol) { p.buf[protocolOffset] = uint8(proto) }

func (p *Packet) SetChecksum(sum uint16) {
	binary.BigEndian.PutUint16(p.buf[ChecksumOffset:], sum)
}

func (p *Packet) SetSource(a Address)      { copy(p.buf[srcOffset:dstOffset], a[:]) }
func (p *Packet) SetDestination(a Address) { copy(p.buf[dstOffset:HeaderLen], a[:]) }

// SetOptions overwrites the options region; b must match its length.
func (p *Packet) SetOptions(b []byte) error {
	return p.setSpan(OptionsRange(p.HeaderLength()), "options", b)
}

// SetPayload overwrites the payload region; b must match its length.
func (p *Packet) SetPayload(b []byte) error {
	return p.setSpan(PayloadRange(p.HeaderLength(), p.Length()), "payload", b)
}

// span clamps r to the buffer.
func (p *Packet) span(r Range) []byte {
	end := min(r.End, len(p.buf))
	start := min(r.Start, end)
	return p.buf[start:end]
}

func (p *Packet) setSpan(r Range, name string, b []byte) error {
	if r.End > len(p.buf) {
		return packet.Short(layer, r.End, len(p.buf))
	}
	if len(b) != r.Len() {
		return packet.Mismatch(layer, name, r.Len(), len(b))
	}
	copy(p.buf[r.Start:r.End], b)
	return nil
}
