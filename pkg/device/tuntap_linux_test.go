//go:build linux

package device

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireTun(t *testing.T) {
	t.Helper()
	if os.Geteuid() != 0 {
		t.Skip("needs root")
	}
	if _, err := os.Stat(tunPath); err != nil {
		t.Skipf("%s not available: %v", tunPath, err)
	}
}

func TestOpenTunTap(t *testing.T) {
	requireTun(t)

	tap, err := OpenTunTap(TunTapConfig{Name: "rstest%d", Type: TAP})
	if err != nil {
		t.Skipf("cannot create tap interface: %v", err)
	}
	defer tap.Close()

	assert.NotContains(t, tap.Name(), "%")
	assert.Equal(t, TAP, tap.Type())

	require.NoError(t, tap.Configure("10.213.0.1/24", 1400))
	mtu, err := tap.MTU()
	require.NoError(t, err)
	assert.Equal(t, 1400, mtu)

	mac, err := tap.HardwareAddr()
	require.NoError(t, err)
	assert.False(t, mac.IsMulticast())
}

func TestOpenFactoryTun(t *testing.T) {
	requireTun(t)

	d, err := Open(KindTUN, "rstun%d", Options{})
	if err != nil {
		t.Skipf("cannot create tun interface: %v", err)
	}
	defer d.Close()
	_, ok := d.(*TunTap)
	assert.True(t, ok)
}

func TestOpenTunTapBadName(t *testing.T) {
	_, err := OpenTunTap(TunTapConfig{Name: "a-name-much-too-long-for-ifnamsiz"})
	assert.Error(t, err)
}

func TestOpenRawSocketMissingInterface(t *testing.T) {
	_, err := OpenRawSocket(RawSocketConfig{Interface: "rs-missing0"})
	assert.Error(t, err)
}

func TestHtons(t *testing.T) {
	assert.Equal(t, uint16(0x0300), htons(0x0003))
	assert.Equal(t, uint16(0x0608), htons(0x0806))
}
