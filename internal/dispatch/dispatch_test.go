package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/kgrobelny/radarproc/internal/calibration"
	"github.com/kgrobelny/radarproc/internal/cpi"
	"github.com/kgrobelny/radarproc/internal/dispatch"
	"github.com/kgrobelny/radarproc/internal/gather"
	"github.com/kgrobelny/radarproc/internal/ringbuffer"
	"github.com/kgrobelny/radarproc/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchGatherOrderingIsMonotonic(t *testing.T) {
	const s, w, b, channels = 4, 8, 4, 2
	ring := ringbuffer.New(4, 2*s*b*channels)
	raw := cpi.New(s, w, b, channels)
	pool, err := worker.NewPool(worker.Config{S: s, W: w, M: 4})
	require.NoError(t, err)
	pool.Start()
	defer pool.Stop()

	d := dispatch.New(ring, raw, pool, nil, false, 50, 48000)

	g := gather.New(pool, d.Order, gather.Params{
		NumChannels: channels, S: s, W: w, SampleRate: 48000, CenterFreq: 3e9,
	})

	var results []gather.ProcessedCPI
	done := make(chan struct{})
	g.Sink = func(p gather.ProcessedCPI) { results = append(results, p) }
	go func() {
		g.Run()
		close(done)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	const numBlocks = 6
	for i := 0; i < numBlocks; i++ {
		idx := ring.NextFree()
		blk := ring.At(idx)
		for j := range blk.Samples {
			blk.Samples[j] = float32(i)
		}
		ring.Commit(idx, float64(i), uint64(i))
	}

	require.Eventually(t, func() bool {
		return len(results) >= numBlocks
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	var lastID uint64
	for i, r := range results[:numBlocks] {
		require.Len(t, r.Channels, channels)
		if i > 0 {
			assert.Greater(t, r.Params.BlockID, lastID)
		}
		lastID = r.Params.BlockID
	}
}

// TestDispatcherSubmitsCalibrationSnapshotsForAllChannels exercises the C>1
// calibration path: the estimator's input queue must be sized so every
// channel's periodic snapshot is accepted in the same cycle, not just
// channel 0's.
func TestDispatcherSubmitsCalibrationSnapshotsForAllChannels(t *testing.T) {
	const s, w, b, channels = 2, 4, 4, 2
	ring := ringbuffer.New(2, 2*s*b*channels)
	raw := cpi.New(s, w, b, channels)
	pool, err := worker.NewPool(worker.Config{S: s, W: w, M: 4})
	require.NoError(t, err)
	pool.Start()
	defer pool.Stop()

	estim := calibration.New(calibration.ModeDCOnly, 0.9, channels)
	estimStop := make(chan struct{})
	go estim.Run(estimStop)
	defer close(estimStop)

	d := dispatch.New(ring, raw, pool, estim, false, 1, 48000)

	go func() {
		for range d.Order {
			// Slot harvesting is not required for this test; results are
			// left in their slots and Stop wakes and joins the workers.
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go d.Run(ctx)

	idx := ring.NextFree()
	blk := ring.At(idx)
	for j := range blk.Samples {
		blk.Samples[j] = 0.1
	}
	ring.Commit(idx, 0, 0)

	<-ctx.Done()

	var coeffs map[int]calibration.Coeffs
	require.Eventually(t, func() bool {
		if c, ok := estim.TryCollect(); ok {
			coeffs = c
		}
		return len(coeffs) == channels
	}, time.Second, 10*time.Millisecond)

	for c := 0; c < channels; c++ {
		assert.Contains(t, coeffs, c)
	}
}
