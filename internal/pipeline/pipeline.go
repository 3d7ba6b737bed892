// Package pipeline wires every stage together behind a single Pipeline
// type, the way cmd/direwolf/main.go constructs every subsystem, wires
// channels, and runs until signaled.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/kgrobelny/radarproc/internal/adc"
	"github.com/kgrobelny/radarproc/internal/calibration"
	"github.com/kgrobelny/radarproc/internal/command"
	"github.com/kgrobelny/radarproc/internal/config"
	"github.com/kgrobelny/radarproc/internal/cpi"
	"github.com/kgrobelny/radarproc/internal/dispatch"
	"github.com/kgrobelny/radarproc/internal/display"
	"github.com/kgrobelny/radarproc/internal/dsp"
	"github.com/kgrobelny/radarproc/internal/gather"
	"github.com/kgrobelny/radarproc/internal/palette"
	"github.com/kgrobelny/radarproc/internal/recorder"
	"github.com/kgrobelny/radarproc/internal/ringbuffer"
	"github.com/kgrobelny/radarproc/internal/worker"
)

// Pipeline owns every pipeline-scoped component for one radar channel
// group and runs them with an explicit, ordered shutdown.
type Pipeline struct {
	cfg    config.Config
	source adc.BlockSource
	logger *log.Logger

	Ring    *ringbuffer.RingBuffer
	Raw     *cpi.Buffer
	Pool    *worker.Pool
	Estim   *calibration.Estimator
	Dispatcher *dispatch.Dispatcher
	Gather  *gather.Stage
	Display *display.Formatter
	Command *command.State

	ProcLog *recorder.ProcessedLog
	RawRec  *recorder.RawRecorder
	DBSink  *recorder.DBSink

	cpisProcessed uint64
}

// New constructs every subsystem from cfg. It refuses to start (returns an
// error rather than aborting) if any buffer cannot be sized.
func New(cfg config.Config, source adc.BlockSource, logger *log.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	blockSamples := cfg.S * cfg.B * cfg.NumRadars
	if !cfg.ReceiveRealOnly {
		blockSamples *= 2
	}
	ring := ringbuffer.New(8, blockSamples)
	raw := cpi.New(cfg.S, cfg.W, cfg.B, cfg.NumRadars)

	pool, err := worker.NewPool(worker.Config{
		S: cfg.S, W: cfg.W, M: cfg.NumThreads,
		WindowS: dsp.LoadOrDefault(cfg.WindowFileS, cfg.S),
		WindowW: dsp.LoadOrDefault(cfg.WindowFileW, cfg.W),
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: worker pool: %w", err)
	}

	mode := calibration.ModeDCOnly
	if !cfg.DCCalOnly {
		mode = calibration.ModePerBin
	}
	estim := calibration.New(mode, cfg.FadeMemVal, cfg.NumRadars)

	d := dispatch.New(ring, raw, pool, estim, cfg.ReceiveRealOnly, 50, cfg.SampleRate)

	g := gather.New(pool, d.Order, gather.Params{
		NumChannels: cfg.NumRadars, S: cfg.S, W: cfg.W,
		SampleRate: cfg.SampleRate, CenterFreq: cfg.CenterFreq,
	})

	disp := display.New(cfg.DTIHeight, palette.Gray())
	cmdState := command.New(cfg.CenterFreq, cfg.Bandwidth, cfg.SampleRate, cfg.W, cfg.S)

	var procLog *recorder.ProcessedLog
	if cfg.ProcLogDir != "" {
		procLog, err = recorder.NewProcessedLog(cfg.ProcLogDir, time.Duration(cfg.MaxProcFileSec*float64(time.Second)))
		if err != nil {
			return nil, fmt.Errorf("pipeline: processed log: %w", err)
		}
	}
	var rawRec *recorder.RawRecorder
	if cfg.RawLogDir != "" {
		rawRec = recorder.NewRawRecorder(cfg.RawLogDir, cfg.SampleRate, cfg.NumRadars, time.Duration(cfg.MaxRawFileSec*float64(time.Second)))
	}
	dbSink := recorder.NewDBSink(64)

	if rawRec != nil {
		d.Recorder = rawRec
	}
	d.RawRecording = func() bool { return cmdState.Status().RecRaw }
	d.SimEnabled = func() bool { return cmdState.Status().SimOn }
	d.Logger = logger

	p := &Pipeline{
		cfg: cfg, source: source, logger: logger,
		Ring: ring, Raw: raw, Pool: pool, Estim: estim,
		Dispatcher: d, Gather: g, Display: disp, Command: cmdState,
		ProcLog: procLog, RawRec: rawRec, DBSink: dbSink,
	}

	g.Sink = p.onProcessedCPI
	return p, nil
}

func (p *Pipeline) onProcessedCPI(pc gather.ProcessedCPI) {
	p.cpisProcessed++

	channels := make([]recorder.Channel, 0, len(pc.Channels))
	for _, ch := range pc.Channels {
		p.Display.Process(display.ChannelInput{
			Channel: ch.Channel, Power: ch.Power, W: p.cfg.W, S: p.cfg.S,
			RangeIdx: ch.RangeIdx, DopplerIdx: ch.DopplerIdx, DopplerFrac: ch.DopplerFrac,
			RefDB: p.Command.Status().DispRef, DispRange: p.Command.Status().DispRange,
			PeakOverlay: p.Command.Status().MarkPeak,
		})
		channels = append(channels, recorder.Channel{
			PeakDopplerMS: gather.RoundVelocity(ch.VelocityMS),
			PeakAmplitude: ch.PeakDB,
		})
		if surf := p.Display.Surfaces(ch.Channel); surf != nil {
			p.DBSink.Publish(recorder.TargetLine{Channel: ch.Channel, BlockID: pc.Params.BlockID, Pixels: surf.TargetLine})
		}
	}

	if p.ProcLog != nil && p.Command.Status().RecProc {
		if err := p.ProcLog.Append(pc.Params.BlockID, pc.Params.WallClock, channels); err != nil {
			p.logger.Warn("processed log append failed", "err", err)
		}
	}
}

// Run starts the worker pool, estimator, dispatcher, and gather stage, and
// feeds blocks from the ADC source into the ring until ctx is cancelled.
// On cancellation the source feed and the dispatcher return, and the gather
// stage (which drives display) returns once the dispatcher has closed its
// order channel. Run joins those three, then stops and joins the estimator,
// and finally stops and joins the worker pool.
func (p *Pipeline) Run(ctx context.Context) error {
	p.Pool.Start()

	estimStop := make(chan struct{})
	estimDone := make(chan struct{})
	go func() {
		p.Estim.Run(estimStop)
		close(estimDone)
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p.Dispatcher.Run(gctx)
		return nil
	})

	g.Go(func() error {
		p.Gather.Run()
		return nil
	})

	g.Go(func() error {
		return p.feedSource(gctx)
	})

	err := g.Wait()

	close(estimStop)
	<-estimDone
	p.Pool.Stop()

	p.logger.Info("pipeline stopped", "cpis_processed", p.cpisProcessed)
	return err
}

func (p *Pipeline) feedSource(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		blk, err := p.source.NextBlock(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Warn("adc source error", "err", err)
			continue
		}

		idx := p.Ring.NextFree()
		copy(p.Ring.At(idx).Samples, blk.Samples)
		if overrun := p.Ring.Commit(idx, blk.DeviceTime, blk.FrameCount); overrun {
			p.logger.Warn("ring buffer overrun, dropping block")
		}
	}
}
