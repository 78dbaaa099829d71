//go:build linux

package device

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/vishvananda/netlink"

	"rawstack/pkg/log"
	"rawstack/pkg/packet/ethernet"
)

const DefaultMTU = 1500

// Link configures the kernel interface behind a device over netlink.
type Link struct {
	name string
}

func (l Link) get() (netlink.Link, error) {
	link, err := netlink.LinkByName(l.name)
	if err != nil {
		return nil, fmt.Errorf("failed to find interface %q: %w", l.name, err)
	}
	return link, nil
}

// Index returns the kernel interface index.
func (l Link) Index() (int, error) {
	link, err := l.get()
	if err != nil {
		return 0, err
	}
	return link.Attrs().Index, nil
}

// Up brings the interface up.
func (l Link) Up() error {
	link, err := l.get()
	if err != nil {
		return err
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("failed to bring up interface %q: %w", l.name, err)
	}
	log.Debug().Str("iface", l.name).Msg("interface up")
	return nil
}

// MTU returns the interface MTU.
func (l Link) MTU() (int, error) {
	link, err := l.get()
	if err != nil {
		return 0, err
	}
	return link.Attrs().MTU, nil
}

func (l Link) SetMTU(mtu int) error {
	link, err := l.get()
	if err != nil {
		return err
	}
	if err := netlink.LinkSetMTU(link, mtu); err != nil {
		return fmt.Errorf("failed to set MTU %d on interface %q: %w", mtu, l.name, err)
	}
	return nil
}

// HardwareAddr returns the interface MAC. Interfaces without one (TUN)
// return the zero address.
func (l Link) HardwareAddr() (ethernet.MACAddress, error) {
	link, err := l.get()
	if err != nil {
		return ethernet.MACAddress{}, err
	}
	hw := link.Attrs().HardwareAddr
	if len(hw) != 6 {
		return ethernet.MACAddress{}, nil
	}
	return ethernet.MACFromBytes(hw), nil
}

// SetHardwareAddr sets the interface MAC. Drivers that cannot change it are
// logged and tolerated.
func (l Link) SetHardwareAddr(mac ethernet.MACAddress) error {
	link, err := l.get()
	if err != nil {
		return err
	}
	if err := netlink.LinkSetHardwareAddr(link, mac.HardwareAddr()); err != nil {
		if !errors.Is(err, syscall.EOPNOTSUPP) {
			return fmt.Errorf("failed to set MAC address %s on interface %q: %w", mac, l.name, err)
		}
		log.Warn().Err(err).Str("iface", l.name).Stringer("mac", mac).Msg("cannot set MAC address")
	}
	return nil
}

// Configure adds the address in CIDR form (an existing address is kept),
// sets the MTU (DefaultMTU when mtu <= 0) and brings the interface up.
func (l Link) Configure(cidr string, mtu int) error {
	link, err := l.get()
	if err != nil {
		return err
	}
	if cidr != "" {
		addr, err := netlink.ParseAddr(cidr)
		if err != nil {
			return fmt.Errorf("failed to parse IP address %q: %w", cidr, err)
		}
		if err := netlink.AddrAdd(link, addr); err != nil {
			if !errors.Is(err, syscall.EEXIST) {
				return fmt.Errorf("failed to add IP address %q to interface %q: %w", cidr, l.name, err)
			}
			log.Debug().Str("iface", l.name).Str("addr", cidr).Msg("address already present")
		} else {
			log.Info().Str("iface", l.name).Str("addr", cidr).Msg("added address")
		}
	}
	if mtu <= 0 {
		mtu = DefaultMTU
	}
	if err := l.SetMTU(mtu); err != nil {
		return err
	}
	return l.Up()
}
