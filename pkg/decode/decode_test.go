package decode

import (
	"bytes"
	"encoding/json"
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rawstack/pkg/packet"
	"rawstack/pkg/packet/arp"
	"rawstack/pkg/packet/ethernet"
	"rawstack/pkg/packet/icmp"
	"rawstack/pkg/packet/ipv4"
)

var (
	srcMAC = ethernet.MACAddress{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	dstMAC = ethernet.MACAddress{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
	srcIP  = ipv4.Address{10, 0, 0, 1}
	dstIP  = ipv4.Address{10, 0, 0, 2}
)

func echoIPv4(t *testing.T) []byte {
	t.Helper()
	msg := icmp.NewEcho(icmp.TypeEchoRequest, 0x1234, 7, []byte("ping"))
	total := ipv4.HeaderLen + msg.Len()
	ip := ipv4.Alloc(total)
	ip.SetVersion(ipv4.VersionIPv4)
	require.NoError(t, ip.SetHeaderLength(ipv4.MinHeaderWords))
	ip.SetLength(uint16(total))
	ip.SetTTL(64)
	ip.SetFlag(ipv4.FlagDontFragment)
	ip.SetProtocol(ipv4.ProtocolICMP)
	ip.SetSource(srcIP)
	ip.SetDestination(dstIP)
	require.NoError(t, ip.SetPayload(msg.Bytes()))
	ip.SetChecksum(ip.CalcChecksum())
	return ip.Bytes()
}

func TestDecodeICMPEcho(t *testing.T) {
	frame := ethernet.Build(dstMAC, srcMAC, ethernet.EtherTypeIPv4, echoIPv4(t)).Bytes()

	l, err := Decode(frame)
	require.NoError(t, err)
	require.NotNil(t, l.Ethernet)
	require.NotNil(t, l.IPv4)
	require.NotNil(t, l.ICMP)
	assert.Nil(t, l.ARP)

	assert.Equal(t, srcMAC, l.Ethernet.Source())
	assert.Equal(t, dstIP, l.IPv4.Destination())
	assert.True(t, l.IPv4.VerifyChecksum())
	id, ok := l.ICMP.EchoIdent()
	require.True(t, ok)
	assert.Equal(t, uint16(0x1234), id)
	data, _ := l.ICMP.EchoData()
	assert.Equal(t, []byte("ping"), data)
	assert.True(t, l.ICMP.VerifyChecksum())
}

func TestDecodeCopiesPayloads(t *testing.T) {
	frame := ethernet.Build(dstMAC, srcMAC, ethernet.EtherTypeIPv4, echoIPv4(t)).Bytes()
	l, err := Decode(frame)
	require.NoError(t, err)

	l.IPv4.SetTTL(1)
	l.ICMP.SetCode(9)
	assert.Equal(t, uint8(64), frame[ethernet.HeaderLen+8])
	assert.Equal(t, uint8(64), mustIPv4(t, l.Ethernet.Payload()).TTL())
	assert.Equal(t, uint8(0), mustICMP(t, l.IPv4.Payload()).Code())
}

func mustIPv4(t *testing.T, b []byte) *ipv4.Packet {
	p, err := ipv4.NewPacket(b)
	require.NoError(t, err)
	return p
}

func mustICMP(t *testing.T, b []byte) *icmp.Packet {
	p, err := icmp.NewPacket(b)
	require.NoError(t, err)
	return p
}

func TestDecodeARP(t *testing.T) {
	g := arp.Gratuitous(srcMAC, srcIP)
	frame := ethernet.Build(ethernet.Broadcast, srcMAC, ethernet.EtherTypeARP, g.Bytes()).Bytes()

	l, err := Decode(frame)
	require.NoError(t, err)
	require.NotNil(t, l.ARP)
	assert.Nil(t, l.IPv4)
	assert.Equal(t, arp.OperationReply, l.ARP.Operation())
	assert.Equal(t, srcIP[:], l.ARP.SenderProtocolAddr())

	assert.Contains(t, l.Summary(), "arp reply 10.0.0.1 > 10.0.0.1")
}

func TestDecodeUnknownEtherType(t *testing.T) {
	frame := ethernet.Build(dstMAC, srcMAC, ethernet.EtherTypeIPv6, make([]byte, 40)).Bytes()
	l, err := Decode(frame)
	require.NoError(t, err)
	assert.NotNil(t, l.Ethernet)
	assert.Nil(t, l.IPv4)
	assert.Nil(t, l.ARP)

	frame[12], frame[13] = 0x88, 0xcc
	l, err = Decode(frame)
	require.NoError(t, err)
	assert.Contains(t, l.Summary(), "0x88cc")
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(make([]byte, 10))
	assert.ErrorIs(t, err, packet.ErrInvalidFormat)

	// IPv4 header length nibble of 4
	bad := echoIPv4(t)
	bad[0] = 0x44
	frame := ethernet.Build(dstMAC, srcMAC, ethernet.EtherTypeIPv4, bad).Bytes()
	l, err := Decode(frame)
	assert.ErrorIs(t, err, packet.ErrInvalidFormat)
	require.NotNil(t, l)
	assert.NotNil(t, l.Ethernet)
	assert.Nil(t, l.IPv4)
}

func TestDecodeSkipsLaterFragments(t *testing.T) {
	b := echoIPv4(t)
	ip := mustIPv4(t, b)
	ip.SetFragmentOffset(10)
	l, err := DecodeIP(b)
	require.NoError(t, err)
	assert.NotNil(t, l.IPv4)
	assert.Nil(t, l.ICMP)
}

func TestDecodeIP(t *testing.T) {
	l, err := DecodeIP(echoIPv4(t))
	require.NoError(t, err)
	assert.Nil(t, l.Ethernet)
	require.NotNil(t, l.ICMP)
	assert.Equal(t, "10.0.0.1 > 10.0.0.2 ICMP ttl=64 len=32 | echo request id=4660 seq=7", l.Summary())

	_, err = DecodeIP([]byte{0x45})
	assert.ErrorIs(t, err, packet.ErrInvalidFormat)
}

func TestDecodeGopacketFrame(t *testing.T) {
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC.HardwareAddr(),
		DstMAC:       dstMAC.HardwareAddr(),
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      32,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    net.IP(srcIP[:]),
		DstIP:    net.IP(dstIP[:]),
	}
	msg := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeDestinationUnreachable, layers.ICMPv4CodeFragmentationNeeded),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, msg, gopacket.Payload(make([]byte, 28))))

	l, err := Decode(buf.Bytes())
	require.NoError(t, err)
	require.NotNil(t, l.ICMP)
	assert.True(t, l.IPv4.VerifyChecksum())
	assert.True(t, l.ICMP.VerifyChecksum())
	code, ok := l.ICMP.UnreachableCode()
	require.True(t, ok)
	assert.Equal(t, icmp.CodeFragmentRequired, code)
}

func TestMarshalZerologObject(t *testing.T) {
	frame := ethernet.Build(dstMAC, srcMAC, ethernet.EtherTypeIPv4, echoIPv4(t)).Bytes()
	l, err := Decode(frame)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	logger.Info().Object("frame", l).Msg("rx")

	var out struct {
		Frame struct {
			Eth struct {
				Src  string `json:"src"`
				Type string `json:"type"`
			} `json:"eth"`
			IPv4 struct {
				Dst    string `json:"dst"`
				Proto  string `json:"proto"`
				CsumOK bool   `json:"csum_ok"`
			} `json:"ipv4"`
			ICMP struct {
				Type string `json:"type"`
				ID   uint16 `json:"id"`
				Seq  uint16 `json:"seq"`
			} `json:"icmp"`
		} `json:"frame"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "02:00:00:00:00:01", out.Frame.Eth.Src)
	assert.Equal(t, "IPv4", out.Frame.Eth.Type)
	assert.Equal(t, "10.0.0.2", out.Frame.IPv4.Dst)
	assert.Equal(t, "ICMP", out.Frame.IPv4.Proto)
	assert.True(t, out.Frame.IPv4.CsumOK)
	assert.Equal(t, "echo request", out.Frame.ICMP.Type)
	assert.Equal(t, uint16(0x1234), out.Frame.ICMP.ID)
	assert.Equal(t, uint16(7), out.Frame.ICMP.Seq)
}
