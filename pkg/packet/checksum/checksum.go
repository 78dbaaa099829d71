// Package checksum implements the Internet checksum (RFC 1071) used by the
// IPv4 header and ICMP messages.
package checksum

// NoSkip sums every word of the input.
const NoSkip = -1

// Calc returns the ones' complement checksum of b read as big-endian 16-bit
// words. The word starting at byte offset skip is left out of the sum, which
// lets callers recompute over a buffer that still carries a stale checksum.
//
// The accumulator is seeded with 0xffff and folded by subtracting 0xffff
// whenever it exceeds 0xffff. An odd trailing byte is summed as the high byte
// of a zero-padded word.
func Calc(b []byte, skip int) uint16 {
	acc := uint32(0xffff)
	n := len(b) &^ 1
	for i := 0; i < n; i += 2 {
		if i == skip {
			continue
		}
		acc = fold(acc + (uint32(b[i])<<8 | uint32(b[i+1])))
	}
	if len(b)&1 == 1 && n != skip {
		acc = fold(acc + uint32(b[n])<<8)
	}
	return ^uint16(acc)
}

// Verify reports whether Calc(b, skip) equals expected.
func Verify(b []byte, skip int, expected uint16) bool {
	return Calc(b, skip) == expected
}

func fold(acc uint32) uint32 {
	if acc > 0xffff {
		acc -= 0xffff
	}
	return acc
}
