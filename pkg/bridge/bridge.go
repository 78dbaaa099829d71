// Package bridge forwards raw frames between two devices in both
// directions, like a two-port hub.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"rawstack/pkg/buffers"
	"rawstack/pkg/decode"
	"rawstack/pkg/device"
	"rawstack/pkg/log"
	"rawstack/pkg/trafficfilter"
)

// PollInterval is how long a forwarding loop sleeps after a nonblocking
// device reports it has nothing to read.
var PollInterval = 5 * time.Millisecond

// wakeInterval bounds how long a Recv blocks on devices that support read
// deadlines, so cancellation is noticed.
const wakeInterval = 250 * time.Millisecond

type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// Stats counts what one direction has forwarded.
type Stats struct {
	Frames   atomic.Uint64
	Bytes    atomic.Uint64
	Dropped  atomic.Uint64 // frames the destination refused
	Filtered atomic.Uint64 // frames Filter denied
}

// Bridge copies every frame received on A to B and every frame received on
// B to A. It does not own the devices; closing them is up to the caller.
type Bridge struct {
	A, B device.Device

	AtoB, BtoA Stats

	// Filter, when it has rules, is consulted for every frame before it is
	// forwarded.
	Filter *trafficfilter.Filter
	// IP is set when the devices carry bare IP packets (TUN) rather than
	// Ethernet frames.
	IP bool

	pool *buffers.Pool
}

// New creates a bridge reading into buffers from pool. A nil pool uses
// buffers.Frames.
func New(a, b device.Device, pool *buffers.Pool) *Bridge {
	if pool == nil {
		pool = buffers.Frames
	}
	return &Bridge{A: a, B: b, pool: pool}
}

// Run forwards in both directions until ctx is cancelled or either device
// fails. Cancellation is not an error.
func (br *Bridge) Run(ctx context.Context) error {
	log.Info().Str("a", br.A.Name()).Str("b", br.B.Name()).Msg("bridge: starting")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return br.forward(gctx, br.A, br.B, &br.AtoB) })
	g.Go(func() error { return br.forward(gctx, br.B, br.A, &br.BtoA) })
	err := g.Wait()
	log.Info().
		Uint64("a_to_b", br.AtoB.Frames.Load()).
		Uint64("b_to_a", br.BtoA.Frames.Load()).
		Uint64("filtered", br.AtoB.Filtered.Load()+br.BtoA.Filtered.Load()).
		Err(err).
		Msg("bridge: stopped")
	return err
}

// Forward copies frames from src to dst until ctx is cancelled or a device
// fails.
func Forward(ctx context.Context, src, dst device.Device) error {
	return New(src, dst, nil).forward(ctx, src, dst, new(Stats))
}

func (br *Bridge) forward(ctx context.Context, src, dst device.Device, st *Stats) error {
	buf := br.pool.Get()
	defer br.pool.Put(buf)

	for {
		n, err := Recv(ctx, src, buf)
		if err != nil {
			return fmt.Errorf("bridge %s -> %s: %w", src.Name(), dst.Name(), err)
		}
		if n == 0 {
			return nil
		}
		frame := buf[:n]
		if !br.inspect(src.Name(), frame) {
			st.Filtered.Add(1)
			continue
		}

		if _, err := dst.Send(frame); err != nil {
			if device.IsTemporary(err) || errors.Is(err, syscall.ENOBUFS) {
				st.Dropped.Add(1)
				log.Debug().Err(err).Str("dst", dst.Name()).Msg("bridge: dropped frame")
				continue
			}
			return fmt.Errorf("bridge %s -> %s: %w", src.Name(), dst.Name(), err)
		}
		st.Frames.Add(1)
		st.Bytes.Add(uint64(n))
	}
}

// Recv reads the next frame from src into buf, waiting out the temporary
// errors of a nonblocking device. It returns 0 and a nil error once ctx is
// done. Empty reads are skipped.
func Recv(ctx context.Context, src device.Device, buf []byte) (int, error) {
	dl, hasDeadline := src.(deadliner)
	for {
		select {
		case <-ctx.Done():
			return 0, nil
		default:
		}

		if hasDeadline {
			if err := dl.SetReadDeadline(time.Now().Add(wakeInterval)); err != nil {
				return 0, device.Wrap("set deadline", src.Name(), err)
			}
		}

		n, err := src.Recv(buf)
		if err != nil {
			if !device.IsTemporary(err) {
				return 0, err
			}
			if errors.Is(err, syscall.EAGAIN) {
				sleep(ctx, PollInterval)
			}
			continue
		}
		if n > 0 {
			return n, nil
		}
	}
}

func (br *Bridge) decode(frame []byte) (*decode.Layers, error) {
	if br.IP {
		return decode.DecodeIP(frame)
	}
	return decode.Decode(frame)
}

// inspect logs the frame at debug level and reports whether Filter lets it
// through. Frames are only decoded when one of the two needs it.
func (br *Bridge) inspect(from string, frame []byte) bool {
	e := log.Debug()
	filtering := br.Filter.Len() > 0
	if !e.Enabled() && !filtering {
		return true
	}
	l, err := br.decode(frame)
	allow := !filtering || br.Filter.Allow(l)
	if !e.Enabled() {
		return allow
	}
	e = e.Str("from", from).Int("len", len(frame))
	if l != nil {
		e = e.Object("frame", l)
	}
	if !allow {
		e.Msg("bridge: filtered frame")
	} else if err != nil {
		e.Err(err).Msg("bridge: undecodable frame")
	} else {
		e.Msg("bridge: frame")
	}
	return allow
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
