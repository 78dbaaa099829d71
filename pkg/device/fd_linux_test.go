//go:build linux

package device

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// devicePair returns two connected datagram endpoints standing in for a
// device and its peer.
func devicePair(t *testing.T) (*fdDevice, *fdDevice) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	a, err := newFdDevice(fds[0], "pair:a", "a")
	require.NoError(t, err)
	b, err := newFdDevice(fds[1], "pair:b", "b")
	require.NoError(t, err)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestFdDeviceSendRecv(t *testing.T) {
	a, b := devicePair(t)

	frame := frameOfType(0x0800)
	n, err := a.Send(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), n)

	buf := make([]byte, 2048)
	n, err = b.Recv(buf)
	require.NoError(t, err)
	assert.Equal(t, frame, buf[:n])
	assert.Equal(t, "b", b.Name())
}

func TestFdDeviceReadDeadline(t *testing.T) {
	a, _ := devicePair(t)

	require.NoError(t, a.SetReadDeadline(time.Now().Add(10*time.Millisecond)))
	_, err := a.Recv(make([]byte, 64))
	require.Error(t, err)
	assert.True(t, IsTemporary(err))
	var oe *OSError
	assert.ErrorAs(t, err, &oe)
	assert.Equal(t, "recv", oe.Op)
}

func TestFdDeviceCloseOnce(t *testing.T) {
	a, _ := devicePair(t)

	require.NoError(t, a.Close())
	assert.NoError(t, a.Close())

	_, err := a.Recv(make([]byte, 64))
	assert.ErrorIs(t, err, os.ErrClosed)
	_, err = a.Send([]byte{1})
	assert.ErrorIs(t, err, os.ErrClosed)
}
