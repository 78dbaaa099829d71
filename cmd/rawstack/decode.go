package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"rawstack/pkg/decode"
)

var decodeCommand = &cli.Command{
	Name:      "decode",
	Usage:     "decodes a hex-encoded frame",
	UsageText: "decode [--ip] HEX...",
	Description: `Decodes one frame given as hex. Arguments are joined, and spaces,
colons and dashes are ignored, so tcpdump -xx and Wireshark hex dumps can be
pasted as they are.`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "ip",
			Usage: "Input is a bare IPv4 packet, as read from a TUN device",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Print every header field",
		},
	},
	Action: decodeCmd,
}

func decodeCmd(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("Error: no frame given", 1)
	}
	input := strings.Join(c.Args().Slice(), "")
	if err := runDecode(c.App.Writer, input, c.Bool("ip"), c.Bool("verbose")); err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
	return nil
}

func parseHex(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ':', '-':
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bad hex input: %w", err)
	}
	return b, nil
}

// runDecode prints what could be decoded before reporting a decode error.
func runDecode(w io.Writer, input string, ip, verbose bool) error {
	b, err := parseHex(input)
	if err != nil {
		return err
	}
	var l *decode.Layers
	if ip {
		l, err = decode.DecodeIP(b)
	} else {
		l, err = decode.Decode(b)
	}
	if l != nil {
		fmt.Fprintln(w, l.Summary())
		if verbose {
			printLayers(w, l)
		}
	}
	return err
}

func printLayers(w io.Writer, l *decode.Layers) {
	if f := l.Ethernet; f != nil {
		fmt.Fprintf(w, "ethernet: dst=%s src=%s type=0x%04x payload=%d\n",
			f.Destination(), f.Source(), f.RawEtherType(), len(f.Payload()))
	}
	if a := l.ARP; a != nil {
		fmt.Fprintf(w, "arp: htype=%s ptype=%s hlen=%d plen=%d op=%s sha=%x spa=%x tha=%x tpa=%x\n",
			a.HardwareType(), a.ProtocolType(), a.HardwareAddrLen(), a.ProtocolAddrLen(), a.Operation(),
			a.SenderHardwareAddr(), a.SenderProtocolAddr(), a.TargetHardwareAddr(), a.TargetProtocolAddr())
	}
	if ip := l.IPv4; ip != nil {
		fmt.Fprintf(w, "ipv4: ver=%d ihl=%d tos=0x%02x len=%d id=0x%04x flag=%s frag=%d ttl=%d proto=%d csum=0x%04x valid=%t options=%d payload=%d\n",
			ip.Version(), ip.HeaderLength(), ip.TOS(), ip.Length(), ip.Identification(), ip.Flag(),
			ip.FragmentOffset(), ip.TTL(), ip.RawProtocol(), ip.Checksum(), ip.VerifyChecksum(),
			len(ip.Options()), len(ip.Payload()))
	}
	if m := l.ICMP; m != nil {
		fmt.Fprintf(w, "icmp: type=%d code=%d csum=0x%04x valid=%t len=%d\n",
			m.RawType(), m.Code(), m.Checksum(), m.VerifyChecksum(), m.Len())
	}
}
