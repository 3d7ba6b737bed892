// Package simadc implements a synthetic BlockSource: noise plus an
// optional single complex-exponential target, driven off a monotonic
// block counter rather than wall time so simulated phase never drifts
// regardless of configured sample rate.
package simadc

import (
	"context"
	"math"
	"math/cmplx"
	"math/rand"

	"github.com/kgrobelny/radarproc/internal/adc"
)

// Config parametrizes the synthetic generator.
type Config struct {
	SampleRate   float64
	SamplesPerWRI int // S
	WRIsPerBlock  int // B
	Channels      int
	RealOnly      bool

	TargetBin    int     // integer Doppler bin over one W-length window, -1 disables
	TargetWindow int     // W used only to compute the target's per-WRI phase increment
	AmplitudeDB  float64
	NoiseFloorDB float64

	Seed int64
}

// Source is a deterministic synthetic ADC binding.
type Source struct {
	cfg   Config
	rng   *rand.Rand
	block uint64
}

// New constructs a Source from cfg. TargetBin < 0 disables target
// injection (noise only).
func New(cfg Config) *Source {
	return &Source{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// NextBlock synthesizes one block of interleaved samples. The target's
// phase advances by a fixed per-WRI increment derived from TargetBin and
// TargetWindow, indexed by the cumulative WRI count (block * B), not by
// wall-clock time.
func (s *Source) NextBlock(ctx context.Context) (adc.Block, error) {
	select {
	case <-ctx.Done():
		return adc.Block{}, ctx.Err()
	default:
	}

	samplesPerSample := s.cfg.Channels
	if !s.cfg.RealOnly {
		samplesPerSample *= 2
	}
	n := s.cfg.SamplesPerWRI * s.cfg.WRIsPerBlock
	out := make([]float32, n*samplesPerSample)

	noiseAmp := dbToLinear(s.cfg.NoiseFloorDB)
	targetAmp := dbToLinear(s.cfg.AmplitudeDB)

	wriBase := s.block * uint64(s.cfg.WRIsPerBlock)

	idx := 0
	for wri := 0; wri < s.cfg.WRIsPerBlock; wri++ {
		globalWRI := wriBase + uint64(wri)
		var target complex128
		if s.cfg.TargetBin >= 0 && s.cfg.TargetWindow > 0 {
			freq := float64(s.cfg.TargetBin) / float64(s.cfg.TargetWindow)
			theta := 2 * math.Pi * freq * float64(globalWRI)
			target = cmplx.Rect(targetAmp, theta)
		}
		for samp := 0; samp < s.cfg.SamplesPerWRI; samp++ {
			for ch := 0; ch < s.cfg.Channels; ch++ {
				r := real(target) + s.rng.NormFloat64()*noiseAmp
				im := imag(target) + s.rng.NormFloat64()*noiseAmp
				if s.cfg.RealOnly {
					out[idx] = float32(r)
					idx++
				} else {
					out[idx] = float32(r)
					out[idx+1] = float32(im)
					idx += 2
				}
			}
		}
	}

	frame := s.block * uint64(n)
	blk := adc.Block{
		Samples:    out,
		DeviceTime: float64(frame) / s.cfg.SampleRate,
		FrameCount: frame,
	}
	s.block++
	return blk, nil
}

// Close is a no-op for the synthetic source.
func (s *Source) Close() error { return nil }

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}
