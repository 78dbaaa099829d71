package checksum

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

var ipv4Header = []byte{
	0x45, 0x00, 0x00, 0x34,
	0x51, 0x25, 0x40, 0x00,
	0xff, 0x06, 0x00, 0x00,
	0x0a, 0x00, 0x0a, 0xbb,
	0x0a, 0x00, 0x03, 0xc3,
}

func TestCalcIPv4Header(t *testing.T) {
	assert.Equal(t, uint16(0x0821), Calc(ipv4Header, 10))
}

func TestCalcIgnoresSkippedWord(t *testing.T) {
	b := append([]byte(nil), ipv4Header...)
	binary.BigEndian.PutUint16(b[10:12], 0xbeef)
	assert.Equal(t, uint16(0x0821), Calc(b, 10))
	assert.True(t, Verify(b, 10, 0x0821))
	assert.False(t, Verify(b, 10, 0x0822))
}

func TestCalcICMPEcho(t *testing.T) {
	b := []byte{0x08, 0x00, 0x8e, 0xfe, 0x12, 0x34, 0xab, 0xcd, 0xaa, 0x00, 0x00, 0xff}
	assert.Equal(t, uint16(0x8efe), Calc(b, 2))
}

func TestCalcNoSkipFinalizes(t *testing.T) {
	// Summing a header together with its own correct checksum gives zero.
	b := append([]byte(nil), ipv4Header...)
	binary.BigEndian.PutUint16(b[10:12], 0x0821)
	assert.Equal(t, uint16(0), Calc(b, NoSkip))
}

func TestCalcOddLength(t *testing.T) {
	tests := []struct {
		name string
		odd  []byte
		even []byte
	}{
		{"single byte", []byte{0xab}, []byte{0xab, 0x00}},
		{"trailing byte", []byte{0x01, 0x02, 0x03}, []byte{0x01, 0x02, 0x03, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Calc(tt.even, NoSkip), Calc(tt.odd, NoSkip))
		})
	}
}

func TestCalcEmpty(t *testing.T) {
	assert.Equal(t, uint16(0), Calc(nil, NoSkip))
}

func TestCalcFoldSubtractsFFFF(t *testing.T) {
	// 0xffff + 0x0001 -> 0x10000 - 0xffff = 0x0001
	assert.Equal(t, ^uint16(0x0001), Calc([]byte{0x00, 0x01}, NoSkip))
	// seed absorbs an all-ones word: 0xffff + 0xffff - 0xffff = 0xffff
	assert.Equal(t, uint16(0), Calc([]byte{0xff, 0xff}, NoSkip))
}
