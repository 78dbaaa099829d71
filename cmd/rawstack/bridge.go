package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"rawstack/pkg/bridge"
	"rawstack/pkg/buffers"
	"rawstack/pkg/device"
	"rawstack/pkg/log"
)

var bridgeCommand = &cli.Command{
	Name:      "bridge",
	Usage:     "forwards frames between two devices",
	UsageText: "bridge [--kind KIND] --name NAME [--peer-kind KIND] --peer NAME",
	Description: `Forwards every frame received on one device to the other, in both
directions, until interrupted. A typical use joins a tap device to a
physical interface opened as a raw socket.`,
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "peer-kind",
			Usage: "Peer device `KIND` (defaults to --kind)",
		},
		&cli.StringFlag{
			Name:  "peer",
			Usage: "Peer device or interface `NAME`",
		},
		&cli.StringSliceFlag{
			Name:  "rule",
			Usage: "Filter `RULE`, first match wins, e.g. --rule 'deny proto=udp dst=10.0.0.0/8'",
		},
	}, deviceFlags...),
	Action: bridgeCmd,
}

func bridgeCmd(c *cli.Context) error {
	cfg := cfgFrom(c)
	applyDeviceFlags(c, cfg)
	if c.IsSet("peer-kind") {
		cfg.PeerKind = c.String("peer-kind")
	}
	if c.IsSet("peer") {
		cfg.PeerName = c.String("peer")
	}
	if c.IsSet("rule") {
		cfg.FilterRules = c.StringSlice("rule")
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("Error: invalid configuration: %v", err), 1)
	}
	if cfg.PeerName == "" {
		return cli.Exit("Error: --peer (or peer_name) is required", 1)
	}
	kind, _ := cfg.Kind()
	peerKind, _ := cfg.PeerDeviceKind()

	a, err := openDevice(cfg, kind, cfg.DeviceName, cfg.Address)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
	defer a.Close()
	b, err := openDevice(cfg, peerKind, cfg.PeerName, "")
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
	defer b.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	filter, _ := cfg.TrafficFilter()
	br := bridge.New(a, b, buffers.NewPool(cfg.BufferSize))
	br.Filter = filter
	br.IP = kind == device.KindTUN && peerKind == device.KindTUN
	if (kind == device.KindTUN) != (peerKind == device.KindTUN) {
		log.Warn().Msg("bridging a tun device with a link-layer device, frames will not be understood on the other side")
	}
	if err := br.Run(ctx); err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
	return nil
}
