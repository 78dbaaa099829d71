package device

import (
	"fmt"

	"golang.org/x/net/bpf"

	"rawstack/pkg/packet/ethernet"
)

// snapLen is what the filter returns for an accepted frame: keep all of it.
const snapLen = 0x40000

// maxFilterTypes bounds the compare chain so every jump fits in 8 bits.
const maxFilterTypes = 255

// EtherTypeFilter assembles a classic BPF program that accepts a frame when
// its EtherType is one of types. With no types it returns nil.
func EtherTypeFilter(types ...uint16) ([]bpf.RawInstruction, error) {
	if len(types) == 0 {
		return nil, nil
	}
	n := len(types)
	if n > maxFilterTypes {
		return nil, fmt.Errorf("ethertype filter: %d types, at most %d", n, maxFilterTypes)
	}
	prog := []bpf.Instruction{
		bpf.LoadAbsolute{Off: ethernet.TypeOffset, Size: 2},
	}
	for i, t := range types {
		// a match jumps over the remaining compares and the drop
		prog = append(prog, bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(t), SkipTrue: uint8(n - i)})
	}
	prog = append(prog,
		bpf.RetConstant{Val: 0},
		bpf.RetConstant{Val: snapLen},
	)
	return bpf.Assemble(prog)
}
