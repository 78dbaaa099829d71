//go:build linux

package device

import (
	"fmt"

	"golang.org/x/sys/unix"

	"rawstack/pkg/log"
)

const tunPath = "/dev/net/tun"

// TunTapType selects layer 2 (TAP) or layer 3 (TUN) frames.
type TunTapType int

const (
	TAP TunTapType = iota
	TUN
)

func (t TunTapType) String() string {
	if t == TUN {
		return "tun"
	}
	return "tap"
}

type TunTapConfig struct {
	Name    string // name hint; the kernel picks one when empty or templated ("tap%d")
	Type    TunTapType
	Persist bool // keep the interface after Close
	Owner   int  // uid allowed to open the interface; <= 0 leaves it unset
	Group   int  // gid allowed to open the interface; <= 0 leaves it unset
}

// TunTap is a Linux TUN or TAP interface opened through /dev/net/tun
// without packet information headers: a TAP Recv returns an Ethernet frame,
// a TUN Recv an IP packet.
type TunTap struct {
	*fdDevice
	Link
	typ TunTapType
}

// OpenTunTap attaches to (or creates) the interface named in cfg.
func OpenTunTap(cfg TunTapConfig) (*TunTap, error) {
	fd, err := unix.Open(tunPath, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, Wrap("open", tunPath, err)
	}
	ifr, err := unix.NewIfreq(cfg.Name)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("interface name %q: %w", cfg.Name, err)
	}
	flags := uint16(unix.IFF_TAP | unix.IFF_NO_PI)
	if cfg.Type == TUN {
		flags = unix.IFF_TUN | unix.IFF_NO_PI
	}
	ifr.SetUint16(flags)
	if err := unix.IoctlIfreq(fd, unix.TUNSETIFF, ifr); err != nil {
		unix.Close(fd)
		return nil, Wrap("ioctl TUNSETIFF", cfg.Name, err)
	}
	name := ifr.Name()

	if err := tunSetOptions(fd, name, cfg); err != nil {
		unix.Close(fd)
		return nil, err
	}

	fdd, err := newFdDevice(fd, tunPath, name)
	if err != nil {
		return nil, err
	}
	log.Info().Str("iface", name).Stringer("type", cfg.Type).Msg("attached tuntap interface")
	return &TunTap{fdDevice: fdd, Link: Link{name: name}, typ: cfg.Type}, nil
}

func tunSetOptions(fd int, name string, cfg TunTapConfig) error {
	if cfg.Persist {
		if err := unix.IoctlSetInt(fd, unix.TUNSETPERSIST, 1); err != nil {
			return Wrap("ioctl TUNSETPERSIST", name, err)
		}
	}
	if cfg.Owner > 0 {
		if err := unix.IoctlSetInt(fd, unix.TUNSETOWNER, cfg.Owner); err != nil {
			return Wrap("ioctl TUNSETOWNER", name, err)
		}
	}
	if cfg.Group > 0 {
		if err := unix.IoctlSetInt(fd, unix.TUNSETGROUP, cfg.Group); err != nil {
			return Wrap("ioctl TUNSETGROUP", name, err)
		}
	}
	return nil
}

func (t *TunTap) Type() TunTapType { return t.typ }

// Name is the name the kernel gave the interface.
func (t *TunTap) Name() string { return t.fdDevice.Name() }
