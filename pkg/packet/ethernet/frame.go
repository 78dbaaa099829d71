// Package ethernet provides a zero-copy view over Ethernet II frames.
package ethernet

import (
	"encoding/binary"

	"rawstack/pkg/packet"
)

const layer = "ethernet"

// Field offsets
const (
	DstOffset     = 0
	SrcOffset     = 6
	TypeOffset    = 12
	PayloadOffset = 14
	HeaderLen     = PayloadOffset // Minimum valid frame size (without FCS)
)

// Frame is a view over an Ethernet frame held in buf. Accessors always read
// the current bytes; nothing is cached. A Frame must be the only live
// mutable view of its buffer.
type Frame struct {
	buf []byte
}

// NewFrame wraps buf. It fails with packet.ErrInvalidFormat if buf cannot
// hold the 14-byte header.
func NewFrame(buf []byte) (*Frame, error) {
	if len(buf) < HeaderLen {
		return nil, packet.Short(layer, HeaderLen, len(buf))
	}
	return &Frame{buf: buf}, nil
}

// Build allocates a frame carrying a copy of payload.
func Build(dst, src MACAddress, typ EtherType, payload []byte) *Frame {
	buf := make([]byte, HeaderLen+len(payload))
	copy(buf[DstOffset:SrcOffset], dst[:])
	copy(buf[SrcOffset:TypeOffset], src[:])
	binary.BigEndian.PutUint16(buf[TypeOffset:PayloadOffset], typ.Value())
	copy(buf[PayloadOffset:], payload)
	return &Frame{buf: buf}
}

// Len returns the frame length in bytes.
func (f *Frame) Len() int { return len(f.buf) }

// Bytes returns the backing buffer.
func (f *Frame) Bytes() []byte { return f.buf }

// IntoBuffer returns the backing buffer and detaches it from f. f must not
// be used afterwards.
func (f *Frame) IntoBuffer() []byte {
	b := f.buf
	f.buf = nil
	return b
}

// Destination returns a copy of the destination address.
func (f *Frame) Destination() MACAddress {
	return MACFromBytes(f.buf[DstOffset:SrcOffset])
}

// Source returns a copy of the source address.
func (f *Frame) Source() MACAddress {
	return MACFromBytes(f.buf[SrcOffset:TypeOffset])
}

// RawEtherType returns the type field as found on the wire.
func (f *Frame) RawEtherType() uint16 {
	return binary.BigEndian.Uint16(f.buf[TypeOffset:PayloadOffset])
}

// EtherType returns the type field mapped onto the known set.
func (f *Frame) EtherType() EtherType {
	return EtherTypeFrom(f.RawEtherType())
}

// Payload returns everything after the header. The slice aliases the frame.
func (f *Frame) Payload() []byte {
	return f.buf[PayloadOffset:]
}

func (f *Frame) SetDestination(m MACAddress) {
	copy(f.buf[DstOffset:SrcOffset], m[:])
}

func (f *Frame) SetSource(m MACAddress) {
	copy(f.buf[SrcOffset:TypeOffset], m[:])
}

func (f *Frame) SetEtherType(t EtherType) {
	binary.BigEndian.PutUint16(f.buf[TypeOffset:PayloadOffset], t.Value())
}

// SetPayload overwrites the payload region. p must be exactly as long as
// the current payload; the frame is never truncated or grown, and nothing
// is written on mismatch.
func (f *Frame) SetPayload(p []byte) error {
	if len(p) != len(f.buf)-PayloadOffset {
		return packet.Mismatch(layer, "payload", len(f.buf)-PayloadOffset, len(p))
	}
	copy(f.buf[PayloadOffset:], p)
	return nil
}
