//go:build linux

package device

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"rawstack/pkg/log"
)

// htons converts a 16-bit integer from host to network byte order.
func htons(i uint16) uint16 {
	return (i<<8)&0xff00 | i>>8
}

type RawSocketConfig struct {
	Interface string
	// EtherTypes, when set, installs a socket filter accepting only these.
	EtherTypes  []uint16
	Promiscuous bool
}

// RawSocket is an AF_PACKET socket bound to one interface. Recv returns
// whole Ethernet frames seen on the interface; Send transmits a complete
// frame as-is.
type RawSocket struct {
	*fdDevice
	Link
	ifindex int
}

func OpenRawSocket(cfg RawSocketConfig) (*RawSocket, error) {
	link := Link{name: cfg.Interface}
	ifindex, err := link.Index()
	if err != nil {
		return nil, err
	}

	proto := htons(unix.ETH_P_ALL)
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, int(proto))
	if err != nil {
		return nil, Wrap("socket", cfg.Interface, err)
	}
	if err := rawSocketSetup(fd, ifindex, proto, cfg); err != nil {
		unix.Close(fd)
		return nil, err
	}

	fdd, err := newFdDevice(fd, "packet:"+cfg.Interface, cfg.Interface)
	if err != nil {
		return nil, err
	}
	log.Info().Str("iface", cfg.Interface).Int("ifindex", ifindex).
		Bool("promisc", cfg.Promiscuous).Int("filters", len(cfg.EtherTypes)).
		Msg("opened raw socket")
	return &RawSocket{fdDevice: fdd, Link: link, ifindex: ifindex}, nil
}

// The filter goes on before bind so no unfiltered frame is queued.
func rawSocketSetup(fd, ifindex int, proto uint16, cfg RawSocketConfig) error {
	if len(cfg.EtherTypes) > 0 {
		prog, err := EtherTypeFilter(cfg.EtherTypes...)
		if err != nil {
			return fmt.Errorf("assemble filter: %w", err)
		}
		fprog := unix.SockFprog{
			Len:    uint16(len(prog)),
			Filter: (*unix.SockFilter)(unsafe.Pointer(&prog[0])),
		}
		if err := unix.SetsockoptSockFprog(fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, &fprog); err != nil {
			return Wrap("attach filter", cfg.Interface, err)
		}
	}
	sll := &unix.SockaddrLinklayer{Protocol: proto, Ifindex: ifindex}
	if err := unix.Bind(fd, sll); err != nil {
		return Wrap("bind", cfg.Interface, err)
	}
	if cfg.Promiscuous {
		mreq := &unix.PacketMreq{Ifindex: int32(ifindex), Type: unix.PACKET_MR_PROMISC}
		if err := unix.SetsockoptPacketMreq(fd, unix.SOL_PACKET, unix.PACKET_ADD_MEMBERSHIP, mreq); err != nil {
			return Wrap("set promiscuous", cfg.Interface, err)
		}
	}
	return nil
}

func (r *RawSocket) Name() string { return r.fdDevice.Name() }

// Index is the interface index the socket is bound to.
func (r *RawSocket) Index() int { return r.ifindex }
