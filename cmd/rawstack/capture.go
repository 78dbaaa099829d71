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
	"rawstack/pkg/config"
	"rawstack/pkg/decode"
	"rawstack/pkg/device"
	"rawstack/pkg/log"
)

var deviceFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "kind",
		Aliases: []string{"k"},
		Usage:   "Device `KIND`: tap, tun, rawsock or bpf",
	},
	&cli.StringFlag{
		Name:    "name",
		Aliases: []string{"i"},
		Usage:   "Device or interface `NAME`",
	},
	&cli.StringFlag{
		Name:  "address",
		Usage: "`CIDR` to assign to a tap or tun device",
	},
	&cli.IntFlag{
		Name:  "mtu",
		Usage: "MTU to set on a tap or tun device",
	},
	&cli.StringSliceFlag{
		Name:  "filter",
		Usage: "Only capture these EtherTypes (raw sockets), e.g. --filter arp --filter 0x0800",
	},
	&cli.BoolFlag{
		Name:  "promiscuous",
		Usage: "Put the interface into promiscuous mode (raw sockets)",
	},
	&cli.IntFlag{
		Name:  "buffer-size",
		Usage: "Receive buffer size in `BYTES`",
	},
}

var captureCommand = &cli.Command{
	Name:        "capture",
	Usage:       "logs every frame received on a device",
	UsageText:   "capture [--kind KIND] [--name NAME] [--count N]",
	Description: `Opens a device and logs a decoded summary of each frame until interrupted.`,
	Flags: append([]cli.Flag{
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "Stop after `N` frames (0 means no limit)",
		},
	}, deviceFlags...),
	Action: captureCmd,
}

// applyDeviceFlags copies the device flags that were given onto cfg.
func applyDeviceFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("kind") {
		cfg.DeviceKind = c.String("kind")
	}
	if c.IsSet("name") {
		cfg.DeviceName = c.String("name")
	}
	if c.IsSet("address") {
		cfg.Address = c.String("address")
	}
	if c.IsSet("mtu") {
		cfg.MTU = c.Int("mtu")
	}
	if c.IsSet("filter") {
		cfg.EtherTypeFilter = c.StringSlice("filter")
	}
	if c.IsSet("promiscuous") {
		cfg.Promiscuous = c.Bool("promiscuous")
	}
	if c.IsSet("buffer-size") {
		cfg.BufferSize = c.Int("buffer-size")
	}
}

type configurer interface {
	Configure(cidr string, mtu int) error
}

// openDevice opens name as kind and, for tap and tun devices, assigns cidr
// (when not empty) and the configured MTU and brings the link up.
func openDevice(cfg *config.Config, kind device.Kind, name, cidr string) (device.Device, error) {
	opts, err := cfg.DeviceOptions()
	if err != nil {
		return nil, err
	}
	dev, err := device.Open(kind, name, opts)
	if err != nil {
		return nil, err
	}
	if kind == device.KindTAP || kind == device.KindTUN {
		if l, ok := dev.(configurer); ok {
			if err := l.Configure(cidr, cfg.MTU); err != nil {
				dev.Close()
				return nil, fmt.Errorf("configure %s: %w", dev.Name(), err)
			}
		}
	}
	return dev, nil
}

func captureCmd(c *cli.Context) error {
	cfg := cfgFrom(c)
	applyDeviceFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("Error: invalid configuration: %v", err), 1)
	}
	kind, _ := cfg.Kind()

	dev, err := openDevice(cfg, kind, cfg.DeviceName, cfg.Address)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
	defer dev.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("device", dev.Name()).Str("kind", string(kind)).Msg("capturing, press Ctrl+C to stop")
	n, err := capture(ctx, dev, kind == device.KindTUN, buffers.NewPool(cfg.BufferSize), c.Int("count"), logCaptured)
	log.Info().Int("frames", n).Msg("capture stopped")
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
	return nil
}

// capture reads frames from dev and hands each one, decoded, to emit. It
// returns the number of frames read when ctx is done, limit frames have
// been read (limit > 0) or the device fails. Bare IP packets are expected
// when ip is set.
func capture(ctx context.Context, dev device.Device, ip bool, pool *buffers.Pool, limit int,
	emit func(frame []byte, l *decode.Layers, err error)) (int, error) {
	buf := pool.Get()
	defer pool.Put(buf)

	count := 0
	for limit <= 0 || count < limit {
		n, err := bridge.Recv(ctx, dev, buf)
		if err != nil {
			return count, err
		}
		if n == 0 {
			break
		}
		count++
		frame := buf[:n]
		var l *decode.Layers
		if ip {
			l, err = decode.DecodeIP(frame)
		} else {
			l, err = decode.Decode(frame)
		}
		emit(frame, l, err)
	}
	return count, nil
}

func logCaptured(frame []byte, l *decode.Layers, err error) {
	if err != nil {
		e := log.Warn().Int("len", len(frame)).Err(err)
		if l != nil {
			e = e.Object("frame", l)
		}
		e.Msg("undecodable frame")
		return
	}
	log.Info().Int("len", len(frame)).Object("frame", l).Msg(l.Summary())
}
