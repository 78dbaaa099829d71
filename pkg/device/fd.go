//go:build unix

package device

import (
	"errors"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// fdDevice is the part every descriptor-backed device shares. The
// descriptor is switched to nonblocking and handed to os.File so reads park
// in the runtime poller and honour deadlines.
type fdDevice struct {
	name string
	file *os.File
}

func newFdDevice(fd int, path, name string) (*fdDevice, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, Wrap("set nonblock", name, err)
	}
	return &fdDevice{name: name, file: os.NewFile(uintptr(fd), path)}, nil
}

func (d *fdDevice) Name() string { return d.name }

func (d *fdDevice) Recv(b []byte) (int, error) {
	n, err := d.file.Read(b)
	if err != nil {
		return n, Wrap("recv", d.name, err)
	}
	return n, nil
}

func (d *fdDevice) Send(b []byte) (int, error) {
	n, err := d.file.Write(b)
	if err != nil {
		return n, Wrap("send", d.name, err)
	}
	return n, nil
}

// Close releases the descriptor. Closing twice is not an error.
func (d *fdDevice) Close() error {
	err := d.file.Close()
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return Wrap("close", d.name, err)
}

func (d *fdDevice) SetReadDeadline(t time.Time) error {
	return Wrap("set read deadline", d.name, d.file.SetReadDeadline(t))
}

func (d *fdDevice) SetWriteDeadline(t time.Time) error {
	return Wrap("set write deadline", d.name, d.file.SetWriteDeadline(t))
}
