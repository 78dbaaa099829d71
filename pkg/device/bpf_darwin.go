//go:build darwin

package device

// struct bpf_hdr starts with a 32-bit timeval on darwin.
var bpfHdr = bpfHdrLayout{capLen: 8, hdrLen: 16, align: 4}
