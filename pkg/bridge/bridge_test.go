package bridge

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rawstack/pkg/buffers"
	"rawstack/pkg/device"
	"rawstack/pkg/log"
	"rawstack/pkg/packet/arp"
	"rawstack/pkg/packet/ethernet"
	"rawstack/pkg/packet/ipv4"
	"rawstack/pkg/trafficfilter"
)

// fakeDevice delivers frames pushed on in and records what is sent to it.
// An empty queue looks like a nonblocking descriptor with nothing to read.
type fakeDevice struct {
	name    string
	in      chan []byte
	out     chan []byte
	sendErr error
}

func newFake(name string) *fakeDevice {
	return &fakeDevice{name: name, in: make(chan []byte, 16), out: make(chan []byte, 16)}
}

func (f *fakeDevice) Recv(b []byte) (int, error) {
	select {
	case fr, ok := <-f.in:
		if !ok {
			return 0, device.Wrap("recv", f.name, syscall.EIO)
		}
		return copy(b, fr), nil
	case <-time.After(time.Millisecond):
		return 0, device.Wrap("recv", f.name, syscall.EAGAIN)
	}
}

func (f *fakeDevice) Send(b []byte) (int, error) {
	if f.sendErr != nil {
		return 0, device.Wrap("send", f.name, f.sendErr)
	}
	f.out <- bytes.Clone(b)
	return len(b), nil
}

func (f *fakeDevice) Close() error { return nil }
func (f *fakeDevice) Name() string { return f.name }

// deadlineDevice blocks in Recv until a frame arrives or the read deadline
// passes.
type deadlineDevice struct {
	*fakeDevice
	mu       sync.Mutex
	deadline time.Time
	calls    int
}

func (d *deadlineDevice) SetReadDeadline(t time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deadline = t
	d.calls++
	return nil
}

func (d *deadlineDevice) Recv(b []byte) (int, error) {
	d.mu.Lock()
	wait := time.Until(d.deadline)
	d.mu.Unlock()
	select {
	case fr := <-d.in:
		return copy(b, fr), nil
	case <-time.After(wait):
		return 0, device.Wrap("recv", d.name, os.ErrDeadlineExceeded)
	}
}

func testFrame(last byte) []byte {
	g := arp.Gratuitous(ethernet.MACAddress{2, 0, 0, 0, 0, last}, ipv4.Address{10, 0, 0, last})
	return ethernet.Build(ethernet.Broadcast, ethernet.MACAddress{2, 0, 0, 0, 0, last}, ethernet.EtherTypeARP, g.Bytes()).Bytes()
}

func recvWithin(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case b := <-ch:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a forwarded frame")
		return nil
	}
}

func TestBridgeForwardsBothWays(t *testing.T) {
	a, b := newFake("a"), newFake("b")
	br := New(a, b, buffers.NewPool(256))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- br.Run(ctx) }()

	a.in <- testFrame(1)
	b.in <- testFrame(2)
	b.in <- testFrame(3)

	assert.Equal(t, testFrame(1), recvWithin(t, b.out))
	assert.Equal(t, testFrame(2), recvWithin(t, a.out))
	assert.Equal(t, testFrame(3), recvWithin(t, a.out))

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, uint64(1), br.AtoB.Frames.Load())
	assert.Equal(t, uint64(2), br.BtoA.Frames.Load())
	assert.Equal(t, uint64(2*len(testFrame(2))), br.BtoA.Bytes.Load())
}

func TestBridgeStopsOnDeviceFailure(t *testing.T) {
	a, b := newFake("a"), newFake("b")
	close(a.in)

	err := New(a, b, nil).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.EIO)
	var oe *device.OSError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "a", oe.Device)
}

func TestBridgeDropsRefusedFrames(t *testing.T) {
	a, b := newFake("a"), newFake("b")
	b.sendErr = syscall.ENOBUFS
	br := New(a, b, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- br.Run(ctx) }()

	a.in <- testFrame(1)
	a.in <- testFrame(2)
	require.Eventually(t, func() bool { return br.AtoB.Dropped.Load() == 2 }, 2*time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Zero(t, br.AtoB.Frames.Load())
}

func TestBridgeSendFailureIsFatal(t *testing.T) {
	a, b := newFake("a"), newFake("b")
	b.sendErr = syscall.ENETDOWN
	a.in <- testFrame(1)

	err := New(a, b, nil).Run(context.Background())
	assert.ErrorIs(t, err, syscall.ENETDOWN)
}

func TestForwardUsesReadDeadline(t *testing.T) {
	src := &deadlineDevice{fakeDevice: newFake("src")}
	dst := newFake("dst")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Forward(ctx, src, dst) }()

	src.in <- testFrame(4)
	assert.Equal(t, testFrame(4), recvWithin(t, dst.out))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * wakeInterval):
		t.Fatal("Forward did not notice cancellation")
	}
	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Positive(t, src.calls)
}

func TestBridgeLogsDecodedFrames(t *testing.T) {
	var out syncBuffer
	log.SetOutput(&out)
	require.NoError(t, log.SetLevel("debug"))
	t.Cleanup(func() {
		log.SetOutput(io.Discard)
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	a, b := newFake("a"), newFake("b")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(a, b, nil).Run(ctx) }()

	a.in <- testFrame(5)
	a.in <- []byte{1, 2, 3}
	recvWithin(t, b.out)
	recvWithin(t, b.out)
	cancel()
	require.NoError(t, <-done)

	s := out.String()
	assert.Contains(t, s, `"message":"bridge: frame"`)
	assert.Contains(t, s, `"spa":"10.0.0.5"`)
	assert.Contains(t, s, `"message":"bridge: undecodable frame"`)
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestRecvWaitsOutEmptyReads(t *testing.T) {
	d := newFake("d")
	go func() {
		time.Sleep(20 * time.Millisecond)
		d.in <- testFrame(6)
	}()
	buf := make([]byte, 128)
	n, err := Recv(context.Background(), d, buf)
	require.NoError(t, err)
	assert.Equal(t, testFrame(6), buf[:n])
}

func TestRecvCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := Recv(ctx, newFake("d"), make([]byte, 64))
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestBridgeFilter(t *testing.T) {
	a, b := newFake("a"), newFake("b")
	f, err := trafficfilter.Parse([]string{"deny ethertype=arp src=10.0.0.7"})
	require.NoError(t, err)
	br := New(a, b, nil)
	br.Filter = f

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- br.Run(ctx) }()

	a.in <- testFrame(7)
	a.in <- testFrame(8)
	assert.Equal(t, testFrame(8), recvWithin(t, b.out))
	require.Eventually(t, func() bool { return br.AtoB.Filtered.Load() == 1 }, 2*time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, uint64(1), br.AtoB.Frames.Load())
	assert.Empty(t, b.out)
}
