package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"rawstack/pkg/device"
	"rawstack/pkg/log"
	"rawstack/pkg/packet/arp"
	"rawstack/pkg/packet/ethernet"
	"rawstack/pkg/packet/ipv4"
)

var announceCommand = &cli.Command{
	Name:      "announce",
	Usage:     "sends a gratuitous ARP for an address",
	UsageText: "announce --ip ADDR [--mac MAC] [--kind KIND] [--name NAME]",
	Description: `Broadcasts a gratuitous ARP reply so neighbours update their caches.
The source MAC defaults to the interface's own address.`,
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:     "ip",
			Usage:    "IPv4 `ADDR` to announce",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "mac",
			Usage: "Source `MAC` (defaults to the interface address)",
		},
		&cli.IntFlag{
			Name:  "repeat",
			Usage: "Number of announcements to send",
			Value: 1,
		},
	}, deviceFlags...),
	Action: announceCmd,
}

type hardwareAddresser interface {
	HardwareAddr() (ethernet.MACAddress, error)
}

// announceFrame builds the broadcast Ethernet frame carrying a gratuitous
// ARP reply for ip at mac.
func announceFrame(mac ethernet.MACAddress, ip ipv4.Address) []byte {
	g := arp.Gratuitous(mac, ip)
	return ethernet.Build(ethernet.Broadcast, mac, ethernet.EtherTypeARP, g.Bytes()).IntoBuffer()
}

func announceCmd(c *cli.Context) error {
	cfg := cfgFrom(c)
	applyDeviceFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("Error: invalid configuration: %v", err), 1)
	}
	ip, err := ipv4.ParseAddress(c.String("ip"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
	kind, _ := cfg.Kind()
	if kind == device.KindTUN {
		return cli.Exit("Error: a tun device carries no link-layer frames", 1)
	}

	dev, err := openDevice(cfg, kind, cfg.DeviceName, cfg.Address)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
	defer dev.Close()

	var mac ethernet.MACAddress
	if c.IsSet("mac") {
		mac, err = ethernet.ParseMAC(c.String("mac"))
	} else if h, ok := dev.(hardwareAddresser); ok {
		mac, err = h.HardwareAddr()
	} else {
		err = fmt.Errorf("%s has no hardware address, use --mac", dev.Name())
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	frame := announceFrame(mac, ip)
	for i := 0; i < c.Int("repeat"); i++ {
		if _, err := dev.Send(frame); err != nil {
			return cli.Exit(fmt.Sprintf("Error: failed to send gratuitous ARP: %v", err), 1)
		}
	}
	log.Info().Str("device", dev.Name()).Stringer("ip", ip).Stringer("mac", mac).Msg("announced address")
	return nil
}
