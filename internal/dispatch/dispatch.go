// Package dispatch implements the Dispatcher state machine: pulls a full
// CPI from RawCPIBuffer, shards it by channel round-robin across workers,
// and preserves channel ordering via a sequential assignment cursor.
//
// Fan-out indexing generalized from the teacher's per-channel/per-subchan
// candidate array walk (multi_modem.go) to the pool's single monotonic
// slot cursor.
package dispatch

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/kgrobelny/radarproc/internal/calibration"
	"github.com/kgrobelny/radarproc/internal/clock"
	"github.com/kgrobelny/radarproc/internal/cpi"
	"github.com/kgrobelny/radarproc/internal/ringbuffer"
	"github.com/kgrobelny/radarproc/internal/worker"
)

// RawRecorder tees raw blocks when raw recording is enabled.
type RawRecorder interface {
	WriteBlock(samples []float32) error
}

// Dispatcher runs the RUN loop described by the spec: wait on the ring,
// optionally tee to the raw recorder, load into the RawCPIBuffer,
// optionally inject simulation, release the ring, fan out per-channel
// tasks via the pool's sequential slot cursor, and periodically submit
// calibration snapshots / pick up new coefficients.
type Dispatcher struct {
	Ring   *ringbuffer.RingBuffer
	Raw    *cpi.Buffer
	Pool   *worker.Pool
	Estim  *calibration.Estimator
	Cursor int // next slot index to dispatch to; wraps mod Pool.M

	RealOnly   bool
	SampleRate float64

	// CalibrationPeriodCPIs is the "every 50 CPIs" snapshot cadence.
	CalibrationPeriodCPIs int

	RawRecording func() bool
	Recorder     RawRecorder
	SimInjector  func(channel int, offset int, raw *cpi.Buffer)
	SimEnabled   func() bool
	Logger       *log.Logger

	coeffs   map[int]calibration.Coeffs
	blockID  uint64
	cpiSeen  uint64
	epoch    clock.Epoch
	epochSet bool

	// Order is the dispatch-order ledger: (blockID, channel) pairs in the
	// exact sequence tasks were issued, which GatherStage must replay.
	Order chan TaskRef
}

// TaskRef identifies one dispatched (block, channel) task by its slot.
type TaskRef struct {
	Slot    int
	BlockID uint64
}

// New constructs a Dispatcher. calibPeriod defaults to 50 when <= 0.
// sampleRate is carried into each CPI's Params for downstream consumers
// (e.g. GatherStage's velocity conversion uses its own copy).
func New(ring *ringbuffer.RingBuffer, raw *cpi.Buffer, pool *worker.Pool, estim *calibration.Estimator, realOnly bool, calibPeriod int, sampleRate float64) *Dispatcher {
	if calibPeriod <= 0 {
		calibPeriod = 50
	}
	return &Dispatcher{
		Ring: ring, Raw: raw, Pool: pool, Estim: estim,
		RealOnly:              realOnly,
		SampleRate:            sampleRate,
		CalibrationPeriodCPIs: calibPeriod,
		coeffs:                make(map[int]calibration.Coeffs),
		Order:                 make(chan TaskRef, pool.M*4),
	}
}

// Run executes the dispatcher loop until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.Order)
	for {
		if ctx.Err() != nil {
			return
		}
		idx, ok := d.Ring.WaitBlock(ctx)
		if !ok {
			continue
		}
		block := d.Ring.At(idx)

		if !d.epochSet {
			d.epoch = clock.NewEpoch(block.DeviceTime)
			d.epochSet = true
		}
		tov := d.epoch.TOV(block.DeviceTime)

		if d.RawRecording != nil && d.RawRecording() && d.Recorder != nil {
			_ = d.Recorder.WriteBlock(block.Samples)
		}

		offset := d.Raw.Load(block.Samples, d.RealOnly)

		if d.SimEnabled != nil && d.SimEnabled() && d.SimInjector != nil {
			for c := 0; c < d.Raw.Channels; c++ {
				d.SimInjector(c, offset, d.Raw)
			}
		}

		d.Ring.Release()

		params := cpi.Params{
			TOV: tov, WallClock: d.epoch.WallClock(tov),
			BlockID: d.blockID, FrameCount: block.FrameCount,
			SampleRate: d.SampleRate,
			S:          d.Raw.S, W: d.Raw.W, Channels: d.Raw.Channels,
			RealOnly: d.RealOnly,
		}

		for c := 0; c < d.Raw.Channels; c++ {
			slot := d.Pool.Slot(d.Cursor)
			coeff, ok := d.coeffs[c]
			if !ok {
				coeff = calibration.Coeffs{X: calibration.Identity()}
			}
			input := make([]complex64, len(d.Raw.Channel(c)))
			copy(input, d.Raw.Channel(c))
			slot.Dispatch(worker.Task{
				Channel: c,
				Params:  params,
				Calib:   coeff,
				Input:   input,
			})
			select {
			case d.Order <- TaskRef{Slot: d.Cursor, BlockID: d.blockID}:
			case <-ctx.Done():
				return
			}
			d.Cursor = (d.Cursor + 1) % d.Pool.M
		}

		d.blockID++
		d.cpiSeen++

		if d.Estim != nil {
			if d.cpiSeen%uint64(d.CalibrationPeriodCPIs) == 0 {
				for c := 0; c < d.Raw.Channels; c++ {
					snap := calibration.Snapshot{
						Channel: c, S: d.Raw.S, W: d.Raw.W,
						Samples: append([]complex64(nil), d.Raw.Channel(c)...),
					}
					if !d.Estim.TrySubmit(snap) && d.Logger != nil {
						d.Logger.Warn("calibration snapshot dropped, estimator busy", "channel", c)
					}
				}
			}
			if newCoeffs, ok := d.Estim.TryCollect(); ok {
				d.coeffs = newCoeffs
			}
		}

		d.Raw.ShiftUp()
	}
}
