// Package device gives TUN/TAP interfaces, AF_PACKET sockets and BSD packet
// filter devices one contract: Recv reads one link-layer frame, Send writes
// one. Interface configuration (MTU, addresses, bringing a link up) lives on
// the concrete types.
package device

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
)

// Device is a raw link-layer endpoint. A Device owns its descriptor; Close
// releases it once and later calls to Close are no-ops.
type Device interface {
	Recv(b []byte) (int, error)
	Send(b []byte) (int, error)
	Close() error
	Name() string
}

// Kind selects an implementation in Open.
type Kind string

const (
	KindTAP       Kind = "tap"
	KindTUN       Kind = "tun"
	KindRawSocket Kind = "rawsock"
	KindBPF       Kind = "bpf"
)

var ErrUnsupported = errors.New("device: kind not supported on this platform")

// ParseKind maps a config string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindTAP, KindTUN, KindRawSocket, KindBPF:
		return k, nil
	case "afpacket", "raw":
		return KindRawSocket, nil
	default:
		return "", fmt.Errorf("device: unknown kind %q", s)
	}
}

// Options carries the settings Open passes through to an implementation.
// Fields an implementation has no use for are ignored.
type Options struct {
	// EtherTypes restricts a raw socket to these EtherType values.
	EtherTypes []uint16
	// Promiscuous puts the underlying interface in promiscuous mode.
	Promiscuous bool
	// Persist keeps a TUN/TAP interface after the descriptor is closed.
	Persist bool
}

// Open opens name with the implementation for kind.
func Open(kind Kind, name string, opts Options) (Device, error) {
	switch kind {
	case KindTAP, KindTUN, KindRawSocket, KindBPF:
	default:
		return nil, fmt.Errorf("device: unknown kind %q", kind)
	}
	d, err := open(kind, name, opts)
	if err != nil {
		return nil, fmt.Errorf("open %s device %q: %w", kind, name, err)
	}
	return d, nil
}

// OSError is a failed system call on a device.
type OSError struct {
	Op     string
	Device string
	Err    error
}

func (e *OSError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Device, e.Err)
}

func (e *OSError) Unwrap() error { return e.Err }

// Errno returns the underlying error number, if there is one.
func (e *OSError) Errno() (syscall.Errno, bool) {
	var errno syscall.Errno
	ok := errors.As(e.Err, &errno)
	return errno, ok
}

// Wrap attaches op and the device name to err. nil and errors that are
// already an *OSError pass through unchanged.
func Wrap(op, name string, err error) error {
	if err == nil {
		return nil
	}
	var oe *OSError
	if errors.As(err, &oe) {
		return err
	}
	return &OSError{Op: op, Device: name, Err: err}
}

// IsTemporary reports whether a Recv or Send failed only because the
// descriptor had nothing to give or a deadline passed.
func IsTemporary(err error) bool {
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EWOULDBLOCK) ||
		errors.Is(err, syscall.EINTR) ||
		errors.Is(err, os.ErrDeadlineExceeded)
}
