//go:build darwin || freebsd

package device

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"rawstack/pkg/log"
)

const maxBPFDevices = 256

// BPF is a packet filter device (/dev/bpfN) attached to one interface.
// A single read can return several frames; Recv hands them out one per
// call.
type BPF struct {
	*fdDevice
	iface   string
	buf     []byte
	pending []byte
}

// OpenBPF takes the first free /dev/bpfN and attaches it to iface.
func OpenBPF(iface string) (*BPF, error) {
	fd, path, err := openBPFNode()
	if err != nil {
		return nil, err
	}
	blen, err := bpfSetup(fd, iface)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	fdd, err := newFdDevice(fd, path, iface)
	if err != nil {
		return nil, err
	}
	log.Info().Str("iface", iface).Str("node", path).Int("buflen", blen).Msg("opened bpf device")
	return &BPF{fdDevice: fdd, iface: iface, buf: make([]byte, blen)}, nil
}

func openBPFNode() (int, string, error) {
	var lastErr error
	for i := 0; i < maxBPFDevices; i++ {
		path := fmt.Sprintf("/dev/bpf%d", i)
		fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err == nil {
			return fd, path, nil
		}
		lastErr = err
		if errors.Is(err, unix.ENOENT) {
			break
		}
	}
	return -1, "", Wrap("open", "/dev/bpf", lastErr)
}

// bpfSetup attaches fd to iface and returns the read buffer length the
// kernel expects.
func bpfSetup(fd int, iface string) (int, error) {
	blen, err := unix.IoctlGetInt(fd, unix.BIOCGBLEN)
	if err != nil {
		return 0, Wrap("ioctl BIOCGBLEN", iface, err)
	}
	if len(iface) >= unix.IFNAMSIZ {
		return 0, fmt.Errorf("interface name %q too long", iface)
	}
	var ifr [unix.IFNAMSIZ + 16]byte
	copy(ifr[:], iface)
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(unix.BIOCSETIF), uintptr(unsafe.Pointer(&ifr[0]))); errno != 0 {
		return 0, Wrap("ioctl BIOCSETIF", iface, errno)
	}
	if err := unix.IoctlSetPointerInt(fd, unix.BIOCIMMEDIATE, 1); err != nil {
		return 0, Wrap("ioctl BIOCIMMEDIATE", iface, err)
	}
	// frames we send carry their own source address
	if err := unix.IoctlSetPointerInt(fd, unix.BIOCSHDRCMPLT, 1); err != nil {
		return 0, Wrap("ioctl BIOCSHDRCMPLT", iface, err)
	}
	return blen, nil
}

// Recv copies the next captured frame into b. A frame longer than b is
// truncated.
func (d *BPF) Recv(b []byte) (int, error) {
	for {
		if frame, rest, ok := bpfHdr.next(d.pending); ok {
			d.pending = rest
			return copy(b, frame), nil
		}
		n, err := d.fdDevice.Recv(d.buf)
		if err != nil {
			return 0, err
		}
		d.pending = d.buf[:n]
	}
}

func (d *BPF) Name() string { return d.iface }
