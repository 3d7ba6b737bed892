// Package gather implements GatherStage: consumes workers in the same
// cursor order the dispatcher used, assembles per-CPI multi-channel
// output, and emits to the display stage and recorder.
package gather

import (
	"math"

	"github.com/kgrobelny/radarproc/internal/cpi"
	"github.com/kgrobelny/radarproc/internal/dispatch"
	"github.com/kgrobelny/radarproc/internal/worker"
)

// ProcessedChannel is one channel's slice of a ProcessedCPI.
type ProcessedChannel struct {
	Channel     int
	Power       []float64
	RangeIdx    int
	DopplerIdx  int
	DopplerFrac float64
	PeakDB      float64
	VelocityMS  float64
}

// ProcessedCPI is the complete, multi-channel output for one CPI. All
// channel slices carry the same block id and TOV, inherited from the single
// Params value the dispatcher cloned into every channel's task for this CPI.
type ProcessedCPI struct {
	Params   cpi.Params
	Channels []ProcessedChannel
}

// Params bundles the geometry needed to convert Doppler bin index to
// velocity: U_amb = c*f_s / (4*S*f_c).
type Params struct {
	NumChannels int
	S, W        int
	SampleRate  float64
	CenterFreq  float64
}

const speedOfLight = 299792458.0

// Stage visits slots in the dispatcher's cursor order, replayed from the
// dispatcher's Order ledger, and assembles ProcessedCPI values in block-id
// order.
type Stage struct {
	Pool   *worker.Pool
	Order  <-chan dispatch.TaskRef
	Params Params

	Sink func(ProcessedCPI)

	current  ProcessedCPI
	haveZero bool
}

// New constructs a GatherStage reading task order from the dispatcher.
func New(pool *worker.Pool, order <-chan dispatch.TaskRef, params Params) *Stage {
	return &Stage{Pool: pool, Order: order, Params: params}
}

func (s *Stage) unambiguousVelocity() float64 {
	return speedOfLight * s.Params.SampleRate / (4 * float64(s.Params.S) * s.Params.CenterFreq)
}

// Run drains the dispatcher's order channel in lockstep, harvesting each
// slot's result and assembling ProcessedCPI values. Returns when Order is
// closed (dispatcher stopped) after draining what remains.
func (s *Stage) Run() {
	uAmb := s.unambiguousVelocity()
	channelsPerCPI := s.Params.NumChannels
	var pending ProcessedCPI
	count := 0

	for ref := range s.Order {
		slot := s.Pool.Slot(ref.Slot)
		result, ok := slot.Harvest()
		if !ok {
			return
		}

		if count == 0 {
			pending = ProcessedCPI{Params: result.Params, Channels: make([]ProcessedChannel, 0, channelsPerCPI)}
		}

		w := float64(s.Params.W)
		idxF := float64(result.DopplerIdx) + result.DopplerFrac - w/2
		velocity := uAmb * (2 * idxF / w)

		pending.Channels = append(pending.Channels, ProcessedChannel{
			Channel:     result.Channel,
			Power:       result.Power,
			RangeIdx:    result.RangeIdx,
			DopplerIdx:  result.DopplerIdx,
			DopplerFrac: result.DopplerFrac,
			PeakDB:      result.PeakDB,
			VelocityMS:  velocity,
		})
		count++

		if count == channelsPerCPI {
			if s.Sink != nil {
				s.Sink(pending)
			}
			count = 0
		}
	}
}

// RoundVelocity rounds a velocity to the nearest 1/1000 m/s, matching the
// precision the processed-data log writes.
func RoundVelocity(v float64) float64 {
	return math.Round(v*1000) / 1000
}
