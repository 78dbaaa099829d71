package device

import "encoding/binary"

// bpfHdrLayout locates the fields of struct bpf_hdr, which differ between
// systems in the size of the leading timestamp and the record alignment.
type bpfHdrLayout struct {
	capLen int // offset of bh_caplen (uint32)
	hdrLen int // offset of bh_hdrlen (uint16)
	align  int // BPF_ALIGNMENT
}

func (l bpfHdrLayout) wordAlign(n int) int {
	return (n + l.align - 1) &^ (l.align - 1)
}

// next splits the first captured frame off a buffer filled by one read of a
// bpf device. ok is false when buf holds no complete record.
func (l bpfHdrLayout) next(buf []byte) (frame, rest []byte, ok bool) {
	if len(buf) < l.hdrLen+2 {
		return nil, nil, false
	}
	capLen := int(binary.NativeEndian.Uint32(buf[l.capLen:]))
	hdrLen := int(binary.NativeEndian.Uint16(buf[l.hdrLen:]))
	end := hdrLen + capLen
	if hdrLen < l.hdrLen+2 || end > len(buf) {
		return nil, nil, false
	}
	frame = buf[hdrLen:end]
	if adv := l.wordAlign(end); adv < len(buf) {
		rest = buf[adv:]
	}
	return frame, rest, true
}
