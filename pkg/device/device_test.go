package device

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"tap", KindTAP},
		{"TUN", KindTUN},
		{" rawsock ", KindRawSocket},
		{"afpacket", KindRawSocket},
		{"bpf", KindBPF},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseKind("pcap")
	assert.Error(t, err)
}

func TestOpenUnknownKind(t *testing.T) {
	d, err := Open(Kind("nope"), "eth0", Options{})
	assert.Nil(t, d)
	assert.Error(t, err)
}

func TestOSError(t *testing.T) {
	err := Wrap("recv", "tap0", syscall.EBADF)

	var oe *OSError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, "recv", oe.Op)
	assert.Equal(t, "tap0", oe.Device)
	assert.Equal(t, "recv tap0: "+syscall.EBADF.Error(), err.Error())

	errno, ok := oe.Errno()
	assert.True(t, ok)
	assert.Equal(t, syscall.EBADF, errno)
	assert.ErrorIs(t, err, syscall.EBADF)
}

func TestOSErrorThroughPathError(t *testing.T) {
	pe := &os.PathError{Op: "read", Path: "/dev/net/tun", Err: syscall.EIO}
	err := Wrap("recv", "tap0", pe)

	var oe *OSError
	require.True(t, errors.As(err, &oe))
	errno, ok := oe.Errno()
	assert.True(t, ok)
	assert.Equal(t, syscall.EIO, errno)

	_, ok = (&OSError{Err: errors.New("plain")}).Errno()
	assert.False(t, ok)
}

func TestWrapPassThrough(t *testing.T) {
	assert.NoError(t, Wrap("send", "tap0", nil))

	inner := Wrap("send", "tap0", syscall.ENOBUFS)
	outer := Wrap("bridge", "tap1", fmt.Errorf("forward: %w", inner))
	var oe *OSError
	require.True(t, errors.As(outer, &oe))
	assert.Equal(t, "tap0", oe.Device)
}

func TestIsTemporary(t *testing.T) {
	assert.True(t, IsTemporary(Wrap("recv", "x", syscall.EAGAIN)))
	assert.True(t, IsTemporary(Wrap("recv", "x", syscall.EINTR)))
	assert.True(t, IsTemporary(fmt.Errorf("read: %w", os.ErrDeadlineExceeded)))
	assert.False(t, IsTemporary(Wrap("recv", "x", syscall.ENETDOWN)))
	assert.False(t, IsTemporary(nil))
}
