//go:build freebsd

package device

import "unsafe"

var bpfHdr = bpfHdrLayout{
	capLen: int(unsafe.Sizeof(timeval{})),
	hdrLen: int(unsafe.Sizeof(timeval{})) + 8,
	align:  int(unsafe.Sizeof(uintptr(0))),
}

type timeval struct {
	sec, usec int
}
